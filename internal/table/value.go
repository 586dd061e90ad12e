package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBool
	KindTime
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindList:
		return "list"
	}
	return "unknown"
}

// Value is a single cell. The zero Value is null.
type Value struct {
	kind Kind
	text string
	num  decimal.Decimal
	flag bool
	at   time.Time
	list []string
}

func Null() Value                    { return Value{} }
func Text(s string) Value            { return Value{kind: KindText, text: s} }
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }
func Boolean(b bool) Value           { return Value{kind: KindBool, flag: b} }
func Timestamp(t time.Time) Value    { return Value{kind: KindTime, at: t} }

// List copies items so the caller keeps ownership of its slice.
func List(items []string) Value {
	cp := make([]string, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

func (v Value) AsNumber() (decimal.Decimal, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.flag, v.kind == KindBool
}

func (v Value) AsTime() (time.Time, bool) {
	return v.at, v.kind == KindTime
}

func (v Value) AsList() ([]string, bool) {
	if v.kind != KindList {
		return nil, false
	}
	cp := make([]string, len(v.list))
	copy(cp, v.list)
	return cp, true
}

// String renders the value the way it is written to reports.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindTime:
		if v.at.Hour() == 0 && v.at.Minute() == 0 && v.at.Second() == 0 {
			return v.at.Format("2006-01-02")
		}
		return v.at.Format("2006-01-02 15:04:05")
	case KindList:
		quoted := make([]string, len(v.list))
		for i, item := range v.list {
			quoted[i] = strconv.Quote(item)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	}
	return ""
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num.Equal(o.num)
	case KindBool:
		return v.flag == o.flag
	case KindTime:
		return v.at.Equal(o.at)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// GoString keeps test failure output readable.
func (v Value) GoString() string {
	return fmt.Sprintf("table.Value{%s:%q}", v.kind, v.String())
}

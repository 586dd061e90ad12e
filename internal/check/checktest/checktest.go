// Package checktest builds cleaned fixture tables for checker tests.
package checktest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/rules"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// AsOf is the evaluation date of Input.
var AsOf = time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)

// Table builds a table whose n-th row (0-based) has id "<name>:<n+2>".
// Cells: nil or "" is null, string is text, int, float64 and
// decimal.Decimal are numbers, time.Time is a date, bool is a boolean and
// table.Value is used as is.
func Table(name string, cols []string, rows ...[]any) *table.Table {
	t := table.New(name, cols)
	for i, r := range rows {
		cells := make([]table.Value, len(r))
		for j, c := range r {
			cells[j] = value(c)
		}
		t.Append(table.NewRowID(name, i+2), cells)
	}
	return t
}

func value(c any) table.Value {
	switch v := c.(type) {
	case nil:
		return table.Null()
	case table.Value:
		return v
	case string:
		if v == "" {
			return table.Null()
		}
		return table.Text(v)
	case int:
		return table.Number(decimal.NewFromInt(int64(v)))
	case float64:
		return table.Number(decimal.NewFromFloat(v))
	case decimal.Decimal:
		return table.Number(v)
	case time.Time:
		return table.Timestamp(v)
	case bool:
		return table.Boolean(v)
	}
	panic(fmt.Sprintf("checktest: unsupported cell %T", c))
}

// Day returns midnight UTC of a date.
func Day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Input returns a checker input over tables with the default parameters.
func Input(tables ...*table.Table) check.Input {
	m := make(map[string]*table.Table, len(tables))
	for _, t := range tables {
		m[t.Name] = t
	}
	return check.Input{Data: policy.FromTables(m), Params: rules.Defaults(AsOf)}
}

// Rows returns the row ids of the anomalies of a result.
func Rows(r schema.CheckResult) []string {
	out := make([]string, 0, len(r.Anomalies))
	for _, a := range r.Anomalies {
		out = append(out, a.RowID)
	}
	return out
}

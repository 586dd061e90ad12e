package normalize

import (
	"strings"

	"github.com/dshills/policyaudit/internal/profile"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

type converter struct {
	parse   func(s string, dayFirst bool) (table.Value, bool)
	invalid schema.Category
}

// converters lists the roles that turn text into typed values. Text, key and
// free-text columns stay as they are.
var converters = map[profile.Role]converter{
	profile.RoleDate: {
		parse: func(s string, dayFirst bool) (table.Value, bool) {
			t, ok := parseDate(s, dayFirst)
			return table.Timestamp(t), ok
		},
		invalid: schema.CategoryIncorrectFormatDate,
	},
	profile.RoleNumber: {
		parse: func(s string, _ bool) (table.Value, bool) {
			d, ok := parseNumber(s)
			return table.Number(d), ok
		},
		invalid: schema.CategoryIncorrectFormatNumber,
	},
	profile.RolePercent: {
		parse: func(s string, _ bool) (table.Value, bool) {
			d, ok := parsePercent(s)
			return table.Number(d), ok
		},
		invalid: schema.CategoryIncorrectFormatPct,
	},
	profile.RoleBool: {
		parse: func(s string, _ bool) (table.Value, bool) {
			b, ok := parseBool(s)
			return table.Boolean(b), ok
		},
		invalid: schema.CategoryIncorrectFormatBool,
	},
	profile.RoleList: {
		parse: func(s string, _ bool) (table.Value, bool) {
			return table.List(parseList(s)), true
		},
	},
}

// infer guesses the role of a column from its name and text values. A column
// without text cells is typed by the kind of its values.
func (n *Normalizer) infer(col string, values []table.Value) profile.Role {
	var texts []string
	var typed table.Kind
	for _, v := range values {
		if s, ok := v.AsText(); ok {
			texts = append(texts, s)
		} else if !v.IsNull() && typed == table.KindNull {
			typed = v.Kind()
		}
	}

	if len(texts) == 0 {
		switch typed {
		case table.KindTime:
			return profile.RoleDate
		case table.KindNumber:
			return profile.RoleNumber
		case table.KindBool:
			return profile.RoleBool
		case table.KindList:
			return profile.RoleList
		}
		return profile.RoleText
	}

	if strings.Contains(strings.ToLower(col), "date") {
		return profile.RoleDate
	}
	if anyContains(texts, "%") {
		return profile.RolePercent
	}
	if !n.profile.IsBoolExcluded(col) && all(texts, isBoolToken) {
		return profile.RoleBool
	}
	if !n.profile.IsFreeText(col) && anyContains(texts, ",") {
		return profile.RoleList
	}
	if all(texts, isPlainNumber) {
		return profile.RoleNumber
	}
	return profile.RoleText
}

func anyContains(texts []string, sub string) bool {
	for _, s := range texts {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func all(texts []string, pred func(string) bool) bool {
	for _, s := range texts {
		if !pred(s) {
			return false
		}
	}
	return true
}

// compatible reports whether values inferred as inferred may be read with the
// declared role without surprise.
func compatible(declared, inferred profile.Role) bool {
	if declared == inferred || inferred == profile.RoleText {
		return true
	}
	switch declared {
	case profile.RoleKey, profile.RoleText, profile.RoleFreeText:
		return inferred == profile.RoleNumber || (declared == profile.RoleFreeText && inferred == profile.RoleList)
	case profile.RoleNumber:
		return inferred == profile.RoleBool
	case profile.RolePercent:
		return inferred == profile.RoleNumber || inferred == profile.RoleBool
	case profile.RoleList:
		return true
	}
	return false
}

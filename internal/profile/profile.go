// Package profile declares the semantic role of each column per table.
package profile

import (
	"fmt"
	"sort"
	"strings"
)

// Role is the semantic type of a column.
type Role string

const (
	RoleText     Role = "text"
	RoleKey      Role = "key"      // identifier; trimmed, never list-parsed
	RoleFreeText Role = "freetext" // user-entered text; commas are not separators
	RoleDate     Role = "date"
	RoleNumber   Role = "number"
	RolePercent  Role = "percent"
	RoleBool     Role = "bool"
	RoleList     Role = "list"
)

// ValidRoles lists every role accepted in configuration.
var ValidRoles = []Role{RoleText, RoleKey, RoleFreeText, RoleDate, RoleNumber, RolePercent, RoleBool, RoleList}

// IsValidRole reports whether r is a known role.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}

// TableProfile declares how one table is cleaned.
type TableProfile struct {
	// Columns maps a column name to its declared role. Undeclared columns are
	// inferred from their values.
	Columns map[string]Role
	// TrimColumns have surrounding spaces removed.
	TrimColumns []string
	// DropColumnsContaining drops every column whose name contains one of
	// these fragments (case-insensitive).
	DropColumnsContaining []string
	// ValueMappings rewrites exact raw values: column -> raw -> replacement.
	ValueMappings map[string]map[string]string
}

// Profile is a named set of per-table column-role declarations.
type Profile struct {
	Name   string
	Tables map[string]TableProfile
	// FreeText columns are never inferred as lists.
	FreeText []string
	// BoolExcluded columns are never inferred as booleans.
	BoolExcluded []string
}

// Get returns the built-in profile for the given name.
func Get(name string) (*Profile, error) {
	switch name {
	case "default", "":
		return declared(), nil
	case "inferred":
		return inferred(), nil
	default:
		return nil, fmt.Errorf("unknown profile %q: valid profiles are default, inferred", name)
	}
}

// Table returns the profile of a table. Unknown tables get an empty profile.
func (p *Profile) Table(name string) TableProfile {
	return p.Tables[name]
}

// Declared returns the declared role of a column.
func (p *Profile) Declared(table, column string) (Role, bool) {
	r, ok := p.Tables[table].Columns[column]
	return r, ok
}

// IsFreeText reports whether a column holds free text.
func (p *Profile) IsFreeText(column string) bool {
	return containsFold(p.FreeText, column)
}

// IsBoolExcluded reports whether a column must not be cast to boolean.
func (p *Profile) IsBoolExcluded(column string) bool {
	return containsFold(p.BoolExcluded, column)
}

// WithOverrides returns a copy of p where the given roles replace the
// declared ones. overrides maps table -> column -> role.
func (p *Profile) WithOverrides(overrides map[string]map[string]string) (*Profile, error) {
	out := &Profile{
		Name:         p.Name,
		Tables:       make(map[string]TableProfile, len(p.Tables)),
		FreeText:     append([]string(nil), p.FreeText...),
		BoolExcluded: append([]string(nil), p.BoolExcluded...),
	}
	for name, tp := range p.Tables {
		cols := make(map[string]Role, len(tp.Columns))
		for c, r := range tp.Columns {
			cols[c] = r
		}
		tp.Columns = cols
		out.Tables[name] = tp
	}

	for table, cols := range overrides {
		tp := out.Tables[table]
		if tp.Columns == nil {
			tp.Columns = make(map[string]Role, len(cols))
		}
		for col, role := range cols {
			r := Role(strings.ToLower(role))
			if !IsValidRole(r) {
				return nil, fmt.Errorf("profile override %s.%s: unknown role %q", table, col, role)
			}
			tp.Columns[col] = r
		}
		out.Tables[table] = tp
	}
	if len(overrides) > 0 {
		out.Name = p.Name + "+overrides"
	}
	return out, nil
}

// Describe returns a human-readable listing of the declared roles.
func (p *Profile) Describe() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Profile: %s\n", p.Name)

	tables := make([]string, 0, len(p.Tables))
	for name := range p.Tables {
		tables = append(tables, name)
	}
	sort.Strings(tables)

	for _, name := range tables {
		tp := p.Tables[name]
		fmt.Fprintf(&sb, "\n%s:\n", name)
		if len(tp.Columns) == 0 {
			sb.WriteString("  (all columns inferred)\n")
		}
		cols := make([]string, 0, len(tp.Columns))
		for c := range tp.Columns {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		for _, c := range cols {
			fmt.Fprintf(&sb, "  %-22s %s\n", c, tp.Columns[c])
		}
		if len(tp.TrimColumns) > 0 {
			fmt.Fprintf(&sb, "  trim: %s\n", strings.Join(tp.TrimColumns, ", "))
		}
		if len(tp.DropColumnsContaining) > 0 {
			fmt.Fprintf(&sb, "  drop columns containing: %s\n", strings.Join(tp.DropColumnsContaining, ", "))
		}
	}
	return sb.String()
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

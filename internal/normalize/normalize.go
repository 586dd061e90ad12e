// Package normalize turns raw text tables into typed tables and reports the
// cells it could not read.
//
// Normalization is pure: it never touches its input table and keeps no state
// between calls. Only text cells are converted, so running it again on its own
// output changes nothing and reports no cell the first run did not report.
package normalize

import (
	"strings"

	"github.com/dshills/policyaudit/internal/profile"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// ContractColumn links an anomaly row to its contract.
const ContractColumn = "coverRef"

// ColumnReport describes how one column was typed.
type ColumnReport struct {
	Column    string
	Declared  profile.Role // empty when the profile does not declare the column
	Inferred  profile.Role
	Applied   profile.Role
	Converted int
	Invalid   int
}

// Mismatch reports whether the values contradict the declared role.
func (c ColumnReport) Mismatch() bool {
	return c.Declared != "" && !compatible(c.Declared, c.Inferred)
}

// Result is the output of Normalize.
type Result struct {
	Table     *table.Table
	Anomalies []schema.Anomaly // format anomalies first, then missing values
	Columns   []ColumnReport
	Dropped   []string
}

// Normalizer cleans tables according to a column-role profile.
type Normalizer struct {
	profile *profile.Profile
}

// New returns a normalizer for p.
func New(p *profile.Profile) *Normalizer {
	return &Normalizer{profile: p}
}

// Normalize cleans a copy of raw.
func (n *Normalizer) Normalize(raw *table.Table) Result {
	t := raw.Clone()
	tp := n.profile.Table(t.Name)

	res := Result{Table: t}
	res.Dropped = t.DropColumns(func(col string) bool {
		lower := strings.ToLower(col)
		for _, frag := range tp.DropColumnsContaining {
			if strings.Contains(lower, strings.ToLower(frag)) {
				return true
			}
		}
		return false
	})

	for _, col := range tp.TrimColumns {
		mapText(t, col, strings.TrimSpace)
	}
	for col, mapping := range tp.ValueMappings {
		mapText(t, col, func(s string) string {
			if v, ok := mapping[s]; ok {
				return v
			}
			return s
		})
	}
	for _, col := range t.Columns {
		mapText(t, col, fixEncoding)
	}

	var missing []schema.Anomaly
	for _, col := range t.Columns {
		report, anomalies := n.normalizeColumn(t, col)
		res.Columns = append(res.Columns, report)
		res.Anomalies = append(res.Anomalies, anomalies...)
	}

	for i, row := range t.Rows {
		for c, v := range row.Cells {
			if !v.IsNull() {
				continue
			}
			missing = append(missing, newAnomaly(t, i, t.Columns[c], schema.CategoryMissingValue))
		}
	}
	res.Anomalies = append(res.Anomalies, missing...)
	return res
}

func (n *Normalizer) normalizeColumn(t *table.Table, col string) (ColumnReport, []schema.Anomaly) {
	report := ColumnReport{Column: col}
	report.Inferred = n.infer(col, t.Column(col))
	report.Applied = report.Inferred
	if declared, ok := n.profile.Declared(t.Name, col); ok {
		report.Declared = declared
		report.Applied = declared
	}

	conv, ok := converters[report.Applied]
	if !ok {
		return report, nil
	}

	dayFirst := false
	if report.Applied == profile.RoleDate {
		for _, v := range t.Column(col) {
			if s, ok := v.AsText(); ok && strings.Contains(s, "/") {
				dayFirst = true
				break
			}
		}
	}

	var anomalies []schema.Anomaly
	for i := range t.Rows {
		s, ok := t.Get(i, col).AsText()
		if !ok {
			continue
		}
		v, ok := conv.parse(s, dayFirst)
		if !ok {
			report.Invalid++
			t.Set(i, col, table.Null())
			anomalies = append(anomalies, newAnomaly(t, i, col, conv.invalid))
			continue
		}
		report.Converted++
		t.Set(i, col, v)
	}
	return report, anomalies
}

func newAnomaly(t *table.Table, i int, col string, c schema.Category) schema.Anomaly {
	a := schema.NewAnomaly(t.Name, col, string(t.Rows[i].ID), c)
	if ref, ok := t.Get(i, ContractColumn).AsText(); ok {
		a.ContractRef = strings.TrimSpace(ref)
	}
	return a
}

func mapText(t *table.Table, col string, f func(string) string) {
	if !t.Has(col) {
		return
	}
	for i := range t.Rows {
		s, ok := t.Get(i, col).AsText()
		if !ok {
			continue
		}
		out := f(s)
		if strings.TrimSpace(out) == "" {
			t.Set(i, col, table.Null())
			continue
		}
		t.Set(i, col, table.Text(out))
	}
}

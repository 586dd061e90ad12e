// Package ledger accumulates anomalies from the normalizer and the checkers.
package ledger

import (
	"strings"

	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// Ledger merges anomalies, keeping the first occurrence of each key. It is
// not safe for concurrent use; the audit pipeline merges checker results
// after they complete.
type Ledger struct {
	entries []schema.Anomaly
	seen    map[string]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{seen: make(map[string]struct{})}
}

// Add merges anomalies into the ledger and returns how many were new.
func (l *Ledger) Add(anomalies ...schema.Anomaly) int {
	added := 0
	for _, a := range anomalies {
		k := a.Key()
		if _, dup := l.seen[k]; dup {
			continue
		}
		l.seen[k] = struct{}{}
		l.entries = append(l.entries, a)
		added++
	}
	return added
}

// Len returns the number of merged anomalies.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the merged anomalies in insertion order.
func (l *Ledger) Entries() []schema.Anomaly {
	return append([]schema.Anomaly(nil), l.entries...)
}

// Enrich returns a copy of entries where every cell-level anomaly carries the
// raw value of its cell. A format anomaly whose raw value is blank is demoted
// to missing_value.
func Enrich(entries []schema.Anomaly, raw map[string]*table.Table) []schema.Anomaly {
	out := make([]schema.Anomaly, len(entries))
	for i, a := range entries {
		out[i] = a
		if !a.Category.IsCellLevel() {
			continue
		}
		value, found := rawValue(raw, a)
		if found {
			out[i].OriginalValue = value
		}
		if a.Category.IsFormat() && strings.TrimSpace(value) == "" {
			out[i].Category = schema.CategoryMissingValue
			out[i].Severity = schema.SeverityOf(schema.CategoryMissingValue)
		}
	}
	return out
}

func rawValue(raw map[string]*table.Table, a schema.Anomaly) (string, bool) {
	t, ok := raw[a.Table]
	if !ok || !t.Has(a.Column) {
		return "", false
	}
	i, ok := t.Lookup(table.RowID(a.RowID))
	if !ok {
		return "", false
	}
	v := t.Get(i, a.Column)
	if v.IsNull() {
		return "", true
	}
	return v.String(), true
}

// RowsFlagged returns the rows of a table carrying a cell-level anomaly on
// any of the given columns.
func RowsFlagged(entries []schema.Anomaly, tableName string, columns ...string) map[table.RowID]bool {
	want := make(map[string]bool, len(columns))
	for _, c := range columns {
		want[c] = true
	}
	out := make(map[table.RowID]bool)
	for _, a := range entries {
		if a.Table == tableName && a.Category.IsCellLevel() && want[a.Column] {
			out[table.RowID(a.RowID)] = true
		}
	}
	return out
}

package review

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/schema"
)

// Verdict computes the verdict from all anomalies. Any CRITICAL anomaly gives
// REJECT, any WARN gives REVIEW; INFO-only or no anomaly is CLEAN.
// Verdict is always computed before any --severity-threshold filtering.
func Verdict(anomalies []schema.Anomaly) schema.Verdict {
	v := schema.VerdictClean
	for _, a := range anomalies {
		switch a.Severity {
		case schema.SeverityCritical:
			return schema.VerdictReject
		case schema.SeverityWarn:
			v = schema.VerdictReview
		}
	}
	return v
}

// Counts returns the pre-filter critical, warn, and info counts.
func Counts(anomalies []schema.Anomaly) (critical, warn, info int) {
	for _, a := range anomalies {
		switch a.Severity {
		case schema.SeverityCritical:
			critical++
		case schema.SeverityWarn:
			warn++
		case schema.SeverityInfo:
			info++
		}
	}
	return
}

// ContractsAffected counts the distinct contract references of anomalies.
func ContractsAffected(anomalies []schema.Anomaly) int {
	refs := make(map[string]struct{})
	for _, a := range anomalies {
		if a.ContractRef != "" {
			refs[a.ContractRef] = struct{}{}
		}
	}
	return len(refs)
}

// Summarize builds the report summary from all anomalies and check results.
func Summarize(anomalies []schema.Anomaly, checks []schema.CheckResult) schema.Summary {
	critical, warn, info := Counts(anomalies)
	s := schema.Summary{
		Verdict:           Verdict(anomalies),
		Total:             len(anomalies),
		CriticalCount:     critical,
		WarnCount:         warn,
		InfoCount:         info,
		ContractsAffected: ContractsAffected(anomalies),
	}
	for _, c := range checks {
		if !c.Performed() {
			s.SkippedChecks++
		}
	}
	return s
}

// Recap aggregates anomalies per category, most severe first, then by
// category name.
func Recap(anomalies []schema.Anomaly) []schema.RecapRow {
	type acc struct {
		row    schema.RecapRow
		refs   map[string]struct{}
		amount decimal.Decimal
		hasAmt bool
	}
	by := make(map[schema.Category]*acc)
	for _, a := range anomalies {
		r, ok := by[a.Category]
		if !ok {
			r = &acc{row: schema.RecapRow{Category: a.Category, Severity: a.Severity}, refs: make(map[string]struct{})}
			by[a.Category] = r
		}
		r.row.Rows++
		if a.ContractRef != "" {
			r.refs[a.ContractRef] = struct{}{}
		}
		if a.Amount != nil {
			r.amount = r.amount.Add(*a.Amount)
			r.hasAmt = true
		}
	}

	out := make([]schema.RecapRow, 0, len(by))
	for _, r := range by {
		r.row.DistinctContracts = len(r.refs)
		if r.hasAmt {
			amt := r.amount
			r.row.Amount = &amt
		}
		out = append(out, r.row)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := severityOrdinal(out[i].Severity), severityOrdinal(out[j].Severity)
		if si != sj {
			return si > sj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// FilterBySeverity returns only anomalies at or above the given threshold severity.
func FilterBySeverity(anomalies []schema.Anomaly, threshold schema.Severity) []schema.Anomaly {
	if threshold == schema.SeverityInfo {
		return anomalies
	}
	out := make([]schema.Anomaly, 0, len(anomalies))
	for _, a := range anomalies {
		if meetsSeverity(a.Severity, threshold) {
			out = append(out, a)
		}
	}
	return out
}

// ParseSeverity reads a severity name in any case.
func ParseSeverity(s string) (schema.Severity, error) {
	sev := schema.Severity(strings.ToUpper(strings.TrimSpace(s)))
	if !schema.IsValidSeverity(sev) {
		return "", fmt.Errorf("unknown severity %q (want info, warn or critical)", s)
	}
	return sev, nil
}

func meetsSeverity(s, threshold schema.Severity) bool {
	return severityOrdinal(s) >= severityOrdinal(threshold)
}

func severityOrdinal(s schema.Severity) int {
	switch s {
	case schema.SeverityInfo:
		return 0
	case schema.SeverityWarn:
		return 1
	case schema.SeverityCritical:
		return 2
	}
	return -1
}

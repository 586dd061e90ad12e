// Package check holds the types and helpers shared by the business-rule
// checkers.
package check

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/rules"
	"github.com/dshills/policyaudit/internal/schema"
)

// Input is the read-only snapshot handed to every checker.
type Input struct {
	Data   *policy.Dataset
	Params rules.Params
	// Cleaning holds the normalizer anomalies. Checkers only read it.
	Cleaning []schema.Anomaly
}

// Check is one named rule. Run must not modify its input.
type Check struct {
	Name string
	Run  func(in Input) schema.CheckResult
}

// Result builds a performed check result. amountColumn names the monetary
// column summed from the anomalies' Amount; empty means no amount.
func Result(name string, anomalies []schema.Anomaly, amountColumn string) schema.CheckResult {
	r := schema.CheckResult{
		Name:      name,
		Status:    schema.StatusPerformed,
		Count:     len(anomalies),
		Anomalies: anomalies,
	}

	refs := make(map[string]struct{})
	total := decimal.Zero
	hasAmount := false
	for _, a := range anomalies {
		if a.ContractRef != "" {
			refs[a.ContractRef] = struct{}{}
		}
		if a.Amount != nil {
			total = total.Add(*a.Amount)
			hasAmount = true
		}
	}
	r.DistinctContracts = len(refs)
	if amountColumn != "" {
		r.AmountColumn = amountColumn
		if hasAmount {
			r.Amount = Ptr(total)
		}
	}
	return r
}

// Skipped builds a result for a check whose precondition failed.
func Skipped(name, reason string) schema.CheckResult {
	return schema.CheckResult{Name: name, Status: schema.StatusSkipped, Reason: reason}
}

// Require reports why a check cannot run when a table or one of its columns
// is absent. ok is true when everything is present.
func Require(d *policy.Dataset, table string, cols ...string) (reason string, ok bool) {
	if !d.Has(table) {
		return fmt.Sprintf("table %s not loaded", table), false
	}
	if missing := d.MissingColumns(table, cols...); len(missing) > 0 {
		return fmt.Sprintf("%s: missing columns [%s]", table, strings.Join(missing, ", ")), false
	}
	return "", true
}

// Ptr returns a pointer to a copy of d.
func Ptr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

// Amount returns a pointer to the value of n, or nil when n is null.
func Amount(n decimal.NullDecimal) *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	return Ptr(n.Decimal)
}

// DateString formats a date for anomaly details.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// Package reconcile checks that amounts add up: premium components against
// their total, yearly reimbursements against the contract limits and each
// reimbursement against the contract rate.
package reconcile

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/rules"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// Check names.
const (
	ContractArithmetic = "contract_arithmetic"
	ReceiptArithmetic  = "receipt_arithmetic"
	ReimbursementCap   = "reimbursement_cap"
	ReimbursementRate  = "reimbursement_rate"
)

var premiumColumns = []string{policy.ColTax, policy.ColBrokerFee, policy.ColBaseRate, policy.ColTotal}

// Checks returns the reconciliation checks.
func Checks() []check.Check {
	return []check.Check{
		{Name: ContractArithmetic, Run: contractArithmetic},
		{Name: ReceiptArithmetic, Run: receiptArithmetic},
		{Name: ReimbursementCap, Run: reimbursementCap},
		{Name: ReimbursementRate, Run: reimbursementRate},
	}
}

type premiumRow struct {
	row     table.RowID
	ref     string
	premium policy.Premium
}

func contractArithmetic(in check.Input) schema.CheckResult {
	if reason, ok := check.Require(in.Data, policy.TableContracts, premiumColumns...); !ok {
		return check.Skipped(ContractArithmetic, reason)
	}
	rows := make([]premiumRow, len(in.Data.Contracts))
	for i, c := range in.Data.Contracts {
		rows[i] = premiumRow{row: c.Row, ref: c.Ref, premium: c.Premium}
	}
	return check.Result(ContractArithmetic, arithmetic(policy.TableContracts, rows, in.Params), policy.ColTotal)
}

func receiptArithmetic(in check.Input) schema.CheckResult {
	if reason, ok := check.Require(in.Data, policy.TableReceipts, premiumColumns...); !ok {
		return check.Skipped(ReceiptArithmetic, reason)
	}
	rows := make([]premiumRow, len(in.Data.Receipts))
	for i, r := range in.Data.Receipts {
		rows[i] = premiumRow{row: r.Row, ref: r.Ref, premium: r.Premium}
	}
	return check.Result(ReceiptArithmetic, arithmetic(policy.TableReceipts, rows, in.Params), policy.ColTotal)
}

// arithmetic flags rows where total and tax + broker fee + base differ by at
// least the tolerance. Missing components count as zero.
func arithmetic(tableName string, rows []premiumRow, p rules.Params) []schema.Anomaly {
	var out []schema.Anomaly
	for _, r := range rows {
		total := policy.Or(r.premium.Total)
		expected := policy.Or(r.premium.Tax).Add(policy.Or(r.premium.BrokerFee)).Add(policy.Or(r.premium.Base))
		diff := total.Sub(expected).Abs()
		if diff.LessThan(p.ArithmeticTolerance) {
			continue
		}
		a := schema.NewAnomaly(tableName, policy.ColTotal, string(r.row), schema.CategoryArithmetic)
		a.ContractRef = r.ref
		a.Observed = check.Ptr(total)
		a.Expected = check.Ptr(expected)
		a.Delta = check.Ptr(diff)
		a.Amount = check.Ptr(total)
		a.Details = map[string]string{
			policy.ColTax:       policy.Or(r.premium.Tax).String(),
			policy.ColBrokerFee: policy.Or(r.premium.BrokerFee).String(),
			policy.ColBaseRate:  policy.Or(r.premium.Base).String(),
		}
		out = append(out, a)
	}
	return out
}

type capKey struct {
	ref      string
	year     int
	category string
}

func (k capKey) String() string {
	return fmt.Sprintf("coverRef=%s|year=%d|actCategory=%s", k.ref, k.year, k.category)
}

// Limit returns the yearly reimbursement limit of a contract for an act
// category: the health limit for illness and accident, the prevention limit
// for prevention and zero otherwise. ok is false when the limit is unknown.
func Limit(c *policy.Contract, category string, acts rules.ActCodes) (decimal.Decimal, bool) {
	switch acts.Family(category) {
	case rules.FamilyIllness, rules.FamilyAccident:
		return c.HealthLimit.Decimal, c.HealthLimit.Valid
	case rules.FamilyPrevention:
		return c.PreventionLimit.Decimal, c.PreventionLimit.Valid
	}
	return decimal.Zero, true
}

func reimbursementCap(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableClaims, policy.ColCoverRef, policy.ColActCategory, policy.ColClaimPaid); !ok {
		return check.Skipped(ReimbursementCap, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverRef, policy.ColHealthLimit, policy.ColPreventionLimit); !ok {
		return check.Skipped(ReimbursementCap, reason)
	}

	sums := make(map[capKey]decimal.Decimal)
	claims := make(map[capKey]int)
	var order []capKey
	for _, cl := range d.Claims {
		day := cl.ActDay()
		if cl.Ref == "" || day.IsZero() {
			continue
		}
		k := capKey{ref: cl.Ref, year: day.Year(), category: cl.Category}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] = sums[k].Add(policy.Or(cl.Paid))
		claims[k]++
	}

	contracts := d.ContractsByRef()
	var out []schema.Anomaly
	for _, k := range order {
		c, ok := contracts[k.ref]
		if !ok {
			continue
		}
		limit, ok := Limit(c, k.category, in.Params.Acts)
		if !ok {
			continue
		}
		total := sums[k]
		over := total.Sub(limit)
		if !over.GreaterThan(in.Params.ArithmeticTolerance) {
			continue
		}
		a := schema.NewAnomaly(policy.TableClaims, policy.ColClaimPaid, "", schema.CategoryOverLimit)
		a.ContractRef = k.ref
		a.Group = k.String()
		a.Observed = check.Ptr(total)
		a.Expected = check.Ptr(limit)
		a.Delta = check.Ptr(over)
		a.Amount = check.Ptr(over)
		a.Details = map[string]string{
			"year":           strconv.Itoa(k.year),
			"actCategory":    k.category,
			"totalClaimPaid": total.String(),
			"limit":          limit.String(),
			"overLimit":      over.String(),
			"claims":         strconv.Itoa(claims[k]),
		}
		out = append(out, a)
	}
	return check.Result(ReimbursementCap, out, policy.ColClaimPaid)
}

func reimbursementRate(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableClaims, policy.ColCoverRef, policy.ColActCategory, policy.ColActValue, policy.ColClaimPaid); !ok {
		return check.Skipped(ReimbursementRate, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverRef, policy.ColCoverRate); !ok {
		return check.Skipped(ReimbursementRate, reason)
	}

	contracts := d.ContractsByRef()
	var out []schema.Anomaly
	for _, cl := range d.Claims {
		switch in.Params.Acts.Family(cl.Category) {
		case rules.FamilyIllness, rules.FamilyAccident:
		default:
			continue
		}
		c, ok := contracts[cl.Ref]
		if !ok || !c.Rate.Valid || !cl.Value.Valid || !cl.Paid.Valid {
			continue
		}
		expected := cl.Value.Decimal.Mul(c.Rate.Decimal)
		if rules.Within(cl.Paid.Decimal, expected, in.Params.RateTolerance) {
			continue
		}
		a := schema.NewAnomaly(policy.TableClaims, policy.ColClaimPaid, string(cl.Row), schema.CategoryReimbursementRate)
		a.ContractRef = cl.Ref
		a.Observed = check.Ptr(cl.Paid.Decimal)
		a.Expected = check.Ptr(expected)
		a.Delta = check.Ptr(cl.Paid.Decimal.Sub(expected))
		a.Amount = check.Ptr(cl.Paid.Decimal)
		a.Details = map[string]string{
			"actCategory": cl.Category,
			"actValue":    cl.Value.Decimal.String(),
			"coverRate":   c.Rate.Decimal.String(),
		}
		out = append(out, a)
	}
	return check.Result(ReimbursementRate, out, policy.ColClaimPaid)
}

// Package tariff checks recorded premiums against the reference prices, the
// multi-contract discount and the receipts actually issued.
package tariff

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/discount"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/rules"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// Check names.
const (
	PreventionTariff = "prevention_tariff"
	HealthTariff     = "health_tariff"
	ReceiptTotal     = "receipt_total"
	ReceiptMonths    = "receipt_months"
)

// Healthy is the petSick value of animals priced from the tariff table.
const Healthy = "healthy"

var twelve = decimal.NewFromInt(12)

// Checks returns the tariff and receipt checks.
func Checks() []check.Check {
	return []check.Check{
		{Name: PreventionTariff, Run: preventionTariff},
		{Name: HealthTariff, Run: healthTariff},
		{Name: ReceiptTotal, Run: receiptTotal},
		{Name: ReceiptMonths, Run: receiptMonths},
	}
}

func preventionTariff(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColPreventionLimit, policy.ColPreventionFee); !ok {
		return check.Skipped(PreventionTariff, reason)
	}

	var out []schema.Anomaly
	for _, c := range d.Contracts {
		if !c.PreventionLimit.Valid || !c.PreventionFee.Valid {
			continue
		}
		expected, ok := in.Params.PreventionFee(c.PreventionLimit.Decimal)
		if !ok {
			continue
		}
		observed := c.PreventionFee.Decimal
		if rules.Within(observed, expected, in.Params.RateTolerance) {
			continue
		}
		a := schema.NewAnomaly(policy.TableContracts, policy.ColPreventionFee, string(c.Row), schema.CategoryPreventionTariff)
		a.ContractRef = c.Ref
		a.Observed = check.Ptr(observed)
		a.Expected = check.Ptr(expected)
		a.Delta = check.Ptr(observed.Sub(expected))
		a.Amount = check.Ptr(observed)
		a.Details = map[string]string{
			"customerId":      c.Customer,
			"preventionLimit": c.PreventionLimit.Decimal.String(),
		}
		out = append(out, a)
	}
	return check.Result(PreventionTariff, out, policy.ColPreventionFee)
}

// AgeAt returns the age in whole years, counting 365.25 days per year.
func AgeAt(birthday, at time.Time) int {
	days := at.Sub(birthday).Hours() / 24
	return int(days / 365.25)
}

// FindTariff returns the first tariff row matching species, age, rate and
// health limit. Species match ignores case.
func FindTariff(tariffs []policy.Tariff, species string, age int, rate, limit decimal.Decimal) (policy.Tariff, bool) {
	a := decimal.NewFromInt(int64(age))
	for _, t := range tariffs {
		if !t.Age.Valid || !t.Rate.Valid || !t.HealthLimit.Valid || !t.Monthly.Valid {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(t.Animal), strings.TrimSpace(species)) &&
			t.Age.Decimal.Equal(a) && t.Rate.Decimal.Equal(rate) && t.HealthLimit.Decimal.Equal(limit) {
			return t, true
		}
	}
	return policy.Tariff{}, false
}

func healthTariff(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableTariffs, policy.TariffLookupColumns...); !ok {
		return check.Skipped(HealthTariff, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts,
		policy.ColPetType, policy.ColPetBirthday, policy.ColPetSick, policy.ColStartDate,
		policy.ColCoverRate, policy.ColHealthLimit, policy.ColBaseRate); !ok {
		return check.Skipped(HealthTariff, reason)
	}

	type match struct {
		contract *policy.Contract
		age      int
	}
	var (
		out     []schema.Anomaly
		matched []match
		cands   []discount.Candidate
	)
	for i := range d.Contracts {
		c := &d.Contracts[i]
		if !strings.EqualFold(c.PetSick, Healthy) || c.PetBirthday.IsZero() || c.Start.IsZero() {
			continue
		}
		if !c.Rate.Valid || !c.HealthLimit.Valid {
			continue
		}
		age := AgeAt(c.PetBirthday, c.Start)
		t, ok := FindTariff(d.Tariffs, c.PetType, age, c.Rate.Decimal, c.HealthLimit.Decimal)
		if !ok {
			a := schema.NewAnomaly(policy.TableContracts, policy.ColBaseRate, string(c.Row), schema.CategoryHealthTariffNotFound)
			a.ContractRef = c.Ref
			a.Details = lookupDetails(c, age)
			out = append(out, a)
			continue
		}
		matched = append(matched, match{contract: c, age: age})
		cands = append(cands, discount.Candidate{Ref: c.Ref, Customer: c.Customer, Fee: t.Monthly.Decimal.Mul(twelve)})
	}

	priced := discount.Apply(cands, in.Params.DiscountRate)
	for i, m := range matched {
		c, p := m.contract, priced[i]
		if !c.Premium.Base.Valid {
			continue
		}
		observed := c.Premium.Base.Decimal
		if rules.Within(observed, p.Discounted, in.Params.RateTolerance) {
			continue
		}
		a := schema.NewAnomaly(policy.TableContracts, policy.ColBaseRate, string(c.Row), schema.CategoryHealthTariff)
		a.ContractRef = c.Ref
		a.Observed = check.Ptr(observed)
		a.Expected = check.Ptr(p.Discounted)
		a.Delta = check.Ptr(observed.Sub(p.Discounted))
		a.Amount = check.Ptr(observed)
		a.Details = lookupDetails(c, m.age)
		a.Details["annual_tariff"] = p.Fee.String()
		a.Details["discount_rank"] = strconv.Itoa(p.Rank)
		a.Details["discount_factor"] = p.Factor.String()
		out = append(out, a)
	}
	return check.Result(HealthTariff, out, policy.ColBaseRate)
}

func lookupDetails(c *policy.Contract, age int) map[string]string {
	return map[string]string{
		"customerId":  c.Customer,
		"petType":     c.PetType,
		"age":         strconv.Itoa(age),
		"coverRate":   c.Rate.Decimal.String(),
		"healthLimit": c.HealthLimit.Decimal.String(),
	}
}

func receiptTotal(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableReceipts, policy.ColCoverRef, policy.ColIssuanceDate, policy.ColTotal); !ok {
		return check.Skipped(ReceiptTotal, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverRef, policy.ColTotal); !ok {
		return check.Skipped(ReceiptTotal, reason)
	}

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, r := range d.Receipts {
		if r.Ref == "" || r.Issued.IsZero() || r.Issued.After(in.Params.ReceiptCutoff) {
			continue
		}
		sums[r.Ref] = sums[r.Ref].Add(policy.Or(r.Premium.Total))
		counts[r.Ref]++
	}

	cands := make([]discount.Candidate, len(d.Contracts))
	for i, c := range d.Contracts {
		cands[i] = discount.Candidate{Ref: c.Ref, Customer: c.Customer, Fee: policy.Or(c.Premium.Total)}
	}
	priced := discount.Apply(cands, in.Params.DiscountRate)

	seen := make(map[string]bool)
	var out []schema.Anomaly
	for i, c := range d.Contracts {
		if c.Ref == "" || seen[c.Ref] || counts[c.Ref] == 0 || !c.Premium.Total.Valid {
			continue
		}
		seen[c.Ref] = true
		sum, expected := sums[c.Ref], priced[i].Discounted
		if rules.Within(sum, expected, in.Params.RateTolerance) {
			continue
		}
		a := schema.NewAnomaly(policy.TableContracts, policy.ColTotal, string(c.Row), schema.CategoryReceiptAmount)
		a.ContractRef = c.Ref
		a.Observed = check.Ptr(sum)
		a.Expected = check.Ptr(expected)
		a.Delta = check.Ptr(sum.Sub(expected))
		a.Amount = check.Ptr(sum)
		a.Details = map[string]string{
			"customerId":      c.Customer,
			"receipts":        strconv.Itoa(counts[c.Ref]),
			"cutoff":          check.DateString(in.Params.ReceiptCutoff),
			"discount_factor": priced[i].Factor.String(),
		}
		out = append(out, a)
	}
	return check.Result(ReceiptTotal, out, policy.ColTotal)
}

// MonthStarts returns the first day of every month starting on or after
// from and no later than to.
func MonthStarts(from, to time.Time) []time.Time {
	m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	if m.Before(dayOf(from)) {
		m = m.AddDate(0, 1, 0)
	}
	var out []time.Time
	for ; !m.After(to); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthKey(ref string, t time.Time) string {
	return fmt.Sprintf("%s|%04d-%02d", ref, t.Year(), int(t.Month()))
}

func receiptMonths(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableReceipts, policy.ColCoverRef, policy.ColIssuanceDate); !ok {
		return check.Skipped(ReceiptMonths, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverRef, policy.ColStartDate); !ok {
		return check.Skipped(ReceiptMonths, reason)
	}

	end := in.Params.ReceiptCutoff
	if !in.Params.AsOf.IsZero() && in.Params.AsOf.Before(end) {
		end = in.Params.AsOf
	}

	issued := make(map[string][]table.RowID)
	var order []string
	for _, r := range d.Receipts {
		if r.Ref == "" || r.Issued.IsZero() {
			continue
		}
		k := monthKey(r.Ref, r.Issued)
		if _, ok := issued[k]; !ok {
			order = append(order, k)
		}
		issued[k] = append(issued[k], r.Row)
	}

	var out []schema.Anomaly
	seen := make(map[string]bool)
	for _, c := range d.Contracts {
		if c.Ref == "" || c.Start.IsZero() || seen[c.Ref] {
			continue
		}
		seen[c.Ref] = true
		for _, m := range MonthStarts(c.Start, end) {
			k := monthKey(c.Ref, m)
			if len(issued[k]) > 0 {
				continue
			}
			a := schema.NewAnomaly(policy.TableContracts, "", string(c.Row), schema.CategoryMissingReceiptMonth)
			a.ContractRef = c.Ref
			a.Group = k
			a.Details = map[string]string{"month": m.Format("2006-01")}
			out = append(out, a)
		}
	}

	totals := make(map[table.RowID]decimal.NullDecimal, len(d.Receipts))
	refs := make(map[table.RowID]string, len(d.Receipts))
	for _, r := range d.Receipts {
		totals[r.Row] = r.Premium.Total
		refs[r.Row] = r.Ref
	}
	for _, k := range order {
		rows := issued[k]
		for _, row := range rows[1:] {
			a := schema.NewAnomaly(policy.TableReceipts, policy.ColIssuanceDate, string(row), schema.CategoryDuplicateReceipt)
			a.ContractRef = refs[row]
			a.Group = k
			a.Amount = check.Amount(totals[row])
			a.Details = map[string]string{
				"month":         k[strings.LastIndexByte(k, '|')+1:],
				"first_receipt": string(rows[0]),
			}
			out = append(out, a)
		}
	}
	return check.Result(ReceiptMonths, out, policy.ColTotal)
}

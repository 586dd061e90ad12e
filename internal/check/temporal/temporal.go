// Package temporal checks contract durations and claim dates against their
// contract.
package temporal

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/ledger"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/schema"
)

// Check names.
const (
	ContractDuration    = "contract_duration"
	ClaimWithinContract = "claim_within_contract"
	WaitingPeriod       = "waiting_period"
)

// Checks returns the temporal checks.
func Checks() []check.Check {
	return []check.Check{
		{Name: ContractDuration, Run: contractDuration},
		{Name: ClaimWithinContract, Run: claimWithinContract},
		{Name: WaitingPeriod, Run: waitingPeriod},
	}
}

// AddYear returns t one calendar year later. 29 February maps to
// 28 February.
func AddYear(t time.Time) time.Time {
	if t.Month() == time.February && t.Day() == 29 {
		return time.Date(t.Year()+1, time.February, 28, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	}
	return t.AddDate(1, 0, 0)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func contractDuration(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColStartDate, policy.ColEndDate); !ok {
		return check.Skipped(ContractDuration, reason)
	}

	flagged := ledger.RowsFlagged(in.Cleaning, policy.TableContracts, policy.ColStartDate, policy.ColEndDate)

	var out []schema.Anomaly
	for _, c := range d.Contracts {
		if flagged[c.Row] || c.Start.IsZero() || c.End.IsZero() {
			continue
		}
		expected := AddYear(c.Start)
		if c.End.Equal(expected) {
			continue
		}
		a := schema.NewAnomaly(policy.TableContracts, policy.ColEndDate, string(c.Row), schema.CategoryContractDuration)
		a.ContractRef = c.Ref
		a.Delta = check.Ptr(decimal.NewFromInt(int64(DaysBetween(expected, c.End))))
		a.Details = map[string]string{
			"coverStartDate":   check.DateString(c.Start),
			"coverEndDate":     check.DateString(c.End),
			"expected_end":     check.DateString(expected),
			"duration_in_days": strconv.Itoa(DaysBetween(c.Start, c.End)),
		}
		out = append(out, a)
	}
	return check.Result(ContractDuration, out, "")
}

func claimWithinContract(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableClaims, policy.ColCoverRef, policy.ColIncidentDate); !ok {
		return check.Skipped(ClaimWithinContract, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverRef, policy.ColStartDate, policy.ColEndDate); !ok {
		return check.Skipped(ClaimWithinContract, reason)
	}

	contracts := d.ContractsByRef()
	var out []schema.Anomaly
	for _, cl := range d.Claims {
		c, ok := contracts[cl.Ref]
		if !ok || cl.Incident.IsZero() {
			continue
		}

		var cat schema.Category
		var bound time.Time
		switch {
		case !c.Start.IsZero() && cl.Incident.Before(c.Start):
			cat, bound = schema.CategoryClaimBeforeStart, c.Start
		case !c.End.IsZero() && cl.Incident.After(c.End):
			cat, bound = schema.CategoryClaimAfterEnd, c.End
		default:
			continue
		}

		a := schema.NewAnomaly(policy.TableClaims, policy.ColIncidentDate, string(cl.Row), cat)
		a.ContractRef = cl.Ref
		a.Amount = check.Amount(cl.Paid)
		a.Delta = check.Ptr(decimal.NewFromInt(int64(DaysBetween(bound, cl.Incident))))
		a.Details = map[string]string{
			"incidentDate":   check.DateString(cl.Incident),
			"coverStartDate": dateOrEmpty(c.Start),
			"coverEndDate":   dateOrEmpty(c.End),
		}
		out = append(out, a)
	}
	return check.Result(ClaimWithinContract, out, policy.ColClaimPaid)
}

func waitingPeriod(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableClaims, policy.ColCoverRef, policy.ColIncidentDate, policy.ColActCategory); !ok {
		return check.Skipped(WaitingPeriod, reason)
	}
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverRef, policy.ColStartDate); !ok {
		return check.Skipped(WaitingPeriod, reason)
	}

	contracts := d.ContractsByRef()
	var out []schema.Anomaly
	for _, cl := range d.Claims {
		c, ok := contracts[cl.Ref]
		if !ok || c.Start.IsZero() || cl.Incident.IsZero() {
			continue
		}

		waiting := in.Params.WaitingDays(cl.Category, cl.ActType)
		eligible := c.Start.AddDate(0, 0, waiting)
		if !cl.Incident.Before(eligible) {
			continue
		}

		short := DaysBetween(cl.Incident, eligible)
		a := schema.NewAnomaly(policy.TableClaims, policy.ColIncidentDate, string(cl.Row), schema.CategoryBeforeWaitingEnded)
		a.ContractRef = cl.Ref
		a.Amount = check.Amount(cl.Paid)
		a.Delta = check.Ptr(decimal.NewFromInt(int64(short)))
		a.Details = map[string]string{
			"actCategory":             cl.Category,
			"actType":                 cl.ActType,
			"waiting_days":            strconv.Itoa(waiting),
			"eligible_from":           check.DateString(eligible),
			"days_before_eligibility": strconv.Itoa(short),
		}
		out = append(out, a)
	}
	return check.Result(WaitingPeriod, out, policy.ColClaimPaid)
}

func dateOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return check.DateString(t)
}

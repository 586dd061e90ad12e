// Package rules holds the named, overridable constants used by the checkers.
// Values come from configuration; Defaults mirrors the business rules of the
// insurer.
package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Family groups act categories that share reimbursement rules.
type Family string

const (
	FamilyIllness    Family = "illness"
	FamilyAccident   Family = "accident"
	FamilyPrevention Family = "prevention"
	FamilyOther      Family = "other"
)

// ActCodes maps source act category codes to families.
type ActCodes struct {
	Illness         []string
	Accident        []string
	Prevention      []string
	Hospitalization []string // act types of the illness family with the long waiting period
}

// Family returns the family of an act category code. Matching is
// case-insensitive and ignores surrounding spaces.
func (a ActCodes) Family(category string) Family {
	switch {
	case contains(a.Accident, category):
		return FamilyAccident
	case contains(a.Illness, category):
		return FamilyIllness
	case contains(a.Prevention, category):
		return FamilyPrevention
	}
	return FamilyOther
}

// IsHospitalization reports whether an act type is a hospitalization.
func (a ActCodes) IsHospitalization(actType string) bool {
	return contains(a.Hospitalization, actType)
}

func contains(codes []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, c := range codes {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}

// WaitingPeriods are the carence lengths in days.
type WaitingPeriods struct {
	Accident        int
	Hospitalization int
	Illness         int
	Prevention      int
}

// Params is the full rule parameter set.
type Params struct {
	// ArithmeticTolerance applies to component-sum identities and caps.
	ArithmeticTolerance decimal.Decimal
	// RateTolerance applies to tariff, discount and reimbursement-rate math.
	RateTolerance decimal.Decimal
	// PreventionTariffs maps a prevention limit to its fixed yearly fee.
	PreventionTariffs map[string]decimal.Decimal
	DiscountRate      decimal.Decimal
	Waiting           WaitingPeriods
	ReceiptCutoff     time.Time
	AsOf              time.Time
	MinAgeYears       float64
	MaxAgeYears       float64
	Acts              ActCodes
}

// Defaults returns the standard parameters evaluated at asOf.
func Defaults(asOf time.Time) Params {
	return Params{
		ArithmeticTolerance: decimal.NewFromInt(1),
		RateTolerance:       decimal.RequireFromString("0.01"),
		PreventionTariffs: map[string]decimal.Decimal{
			"50":  decimal.RequireFromString("50.05"),
			"100": decimal.RequireFromString("99.96"),
		},
		DiscountRate: decimal.RequireFromString("0.15"),
		Waiting: WaitingPeriods{
			Accident:        2,
			Hospitalization: 120,
			Illness:         45,
			Prevention:      45,
		},
		ReceiptCutoff: time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
		AsOf:          asOf,
		MinAgeYears:   0.25,
		MaxAgeYears:   9,
		Acts: ActCodes{
			Illness:         []string{"MALADIE"},
			Accident:        []string{"ACCIDENT", "ACCIDENTO"},
			Prevention:      []string{"PREVENTION"},
			Hospitalization: []string{"HOSP"},
		},
	}
}

// WaitingDays returns the carence in days for a claim.
func (p Params) WaitingDays(category, actType string) int {
	switch p.Acts.Family(category) {
	case FamilyAccident:
		return p.Waiting.Accident
	case FamilyIllness:
		if p.Acts.IsHospitalization(actType) {
			return p.Waiting.Hospitalization
		}
		return p.Waiting.Illness
	case FamilyPrevention:
		return p.Waiting.Prevention
	}
	return 0
}

// PreventionFee returns the expected fee for a prevention limit.
func (p Params) PreventionFee(limit decimal.Decimal) (decimal.Decimal, bool) {
	fee, ok := p.PreventionTariffs[limit.String()]
	return fee, ok
}

// DiscountFactor is the multiplier applied to every contract of a customer but
// the most expensive one.
func (p Params) DiscountFactor() decimal.Decimal {
	return decimal.NewFromInt(1).Sub(p.DiscountRate)
}

// Within reports whether |a-b| <= tol.
func Within(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

package schema

import "strings"

// Category classifies an anomaly.
type Category string

// Cleaning anomalies.
const (
	CategoryMissingValue          Category = "missing_value"
	CategoryIncorrectFormatDate   Category = "incorrect_format_date"
	CategoryIncorrectFormatNumber Category = "incorrect_format_number"
	CategoryIncorrectFormatPct    Category = "incorrect_format_percent"
	CategoryIncorrectFormatBool   Category = "incorrect_format_bool"
)

// Referential integrity.
const (
	CategoryReceiptWithoutContract Category = "receipt_without_contract"
	CategoryClaimWithoutContract   Category = "claim_without_contract"
	CategoryContractWithoutReceipt Category = "contract_without_receipt"
)

// Temporal rules.
const (
	CategoryContractDuration   Category = "contract_duration_not_1_year"
	CategoryClaimBeforeStart   Category = "claim_before_contract_start"
	CategoryClaimAfterEnd      Category = "claim_after_contract_end"
	CategoryBeforeWaitingEnded Category = "reimbursement_before_carence"
)

// Tariff and discount.
const (
	CategoryPreventionTariff     Category = "incorrect_prevention_tarif"
	CategoryHealthTariff         Category = "incorrect_health_tarif_or_discount"
	CategoryHealthTariffNotFound Category = "health_tarif_not_found"
	CategoryReceiptAmount        Category = "incorrect_receipt_amount"
	CategoryMissingReceiptMonth  Category = "missing_receipt_month"
	CategoryDuplicateReceipt     Category = "duplicate_receipt_month"
)

// Reconciliation.
const (
	CategoryArithmetic        Category = "arithmetic_inconsistency"
	CategoryOverLimit         Category = "reimbursement_over_limit"
	CategoryReimbursementRate Category = "incorrect_reimbursement_rate"
)

// Supplementary quality checks.
const (
	CategoryNotEligible       Category = "animal_not_eligible"
	CategoryNegativeValue     Category = "negative_value"
	CategoryAlphaOnlyID       Category = "alpha_only_identifier"
	CategoryNonBijectiveKey   Category = "non_bijective_key"
	CategoryDuplicateRow      Category = "duplicate_row"
	CategoryDuplicatePrimaryK Category = "duplicate_primary_key"
)

var severities = map[Category]Severity{
	CategoryMissingValue:          SeverityInfo,
	CategoryIncorrectFormatDate:   SeverityInfo,
	CategoryIncorrectFormatNumber: SeverityInfo,
	CategoryIncorrectFormatPct:    SeverityInfo,
	CategoryIncorrectFormatBool:   SeverityInfo,

	CategoryReceiptWithoutContract: SeverityWarn,
	CategoryClaimWithoutContract:   SeverityCritical,
	CategoryContractWithoutReceipt: SeverityWarn,

	CategoryContractDuration:   SeverityWarn,
	CategoryClaimBeforeStart:   SeverityCritical,
	CategoryClaimAfterEnd:      SeverityCritical,
	CategoryBeforeWaitingEnded: SeverityCritical,

	CategoryPreventionTariff:     SeverityWarn,
	CategoryHealthTariff:         SeverityWarn,
	CategoryHealthTariffNotFound: SeverityInfo,
	CategoryReceiptAmount:        SeverityWarn,
	CategoryMissingReceiptMonth:  SeverityWarn,
	CategoryDuplicateReceipt:     SeverityWarn,

	CategoryArithmetic:        SeverityWarn,
	CategoryOverLimit:         SeverityCritical,
	CategoryReimbursementRate: SeverityCritical,

	CategoryNotEligible:       SeverityWarn,
	CategoryNegativeValue:     SeverityWarn,
	CategoryAlphaOnlyID:       SeverityInfo,
	CategoryNonBijectiveKey:   SeverityWarn,
	CategoryDuplicateRow:      SeverityInfo,
	CategoryDuplicatePrimaryK: SeverityWarn,
}

// IsValidCategory reports whether c is one of the defined anomaly categories.
func IsValidCategory(c Category) bool {
	_, ok := severities[c]
	return ok
}

// SeverityOf returns the severity attached to a category. Unknown categories
// are WARN.
func SeverityOf(c Category) Severity {
	if s, ok := severities[c]; ok {
		return s
	}
	return SeverityWarn
}

// IsCellLevel reports whether the category describes a single cell found
// during cleaning (missing or malformed value).
func (c Category) IsCellLevel() bool {
	return c == CategoryMissingValue || c.IsFormat()
}

// IsFormat reports whether the category is an incorrect_format_* anomaly.
func (c Category) IsFormat() bool {
	return strings.HasPrefix(string(c), "incorrect_format_")
}

// IsValidSeverity reports whether s is INFO, WARN or CRITICAL.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityWarn, SeverityCritical:
		return true
	}
	return false
}

package schema

import "github.com/shopspring/decimal"

// Report is the top-level output structure of an audit run.
type Report struct {
	Tool      string        `json:"tool"`
	Version   string        `json:"version"`
	RunID     string        `json:"run_id"`
	Input     Input         `json:"input"`
	Summary   Summary       `json:"summary"`
	Checks    []CheckResult `json:"checks"`
	Recap     []RecapRow    `json:"recap"`
	Anomalies []Anomaly     `json:"anomalies"`
}

// Input captures the parameters used for this run.
type Input struct {
	Directory         string       `json:"directory"`
	Files             []SourceFile `json:"files"`
	Profile           string       `json:"profile"`
	AsOf              string       `json:"as_of"`
	ReceiptCutoff     string       `json:"receipt_cutoff"`
	SeverityThreshold string       `json:"severity_threshold"`
}

// SourceFile describes one loaded table.
type SourceFile struct {
	Table         string `json:"table"`
	Path          string `json:"path"`
	Hash          string `json:"hash"` // SHA-256 of the file before quote repair
	Rows          int    `json:"rows"`
	RepairedLines int    `json:"repaired_lines"`
}

// Summary holds the verdict and anomaly counts.
// Counts always reflect all anomalies before any --severity-threshold filtering.
type Summary struct {
	Verdict           Verdict `json:"verdict"`
	Total             int     `json:"total"`
	CriticalCount     int     `json:"critical_count"`
	WarnCount         int     `json:"warn_count"`
	InfoCount         int     `json:"info_count"`
	ContractsAffected int     `json:"contracts_affected"`
	SkippedChecks     int     `json:"skipped_checks"`
}

// Severity levels for anomalies.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
)

// Verdict represents the overall assessment of the dataset.
type Verdict string

const (
	VerdictClean  Verdict = "CLEAN"
	VerdictReview Verdict = "REVIEW"
	VerdictReject Verdict = "REJECT"
)

// VerdictOrdinal returns the numeric ordering for a verdict, used by --fail-on
// comparison. CLEAN(0) < REVIEW(1) < REJECT(2).
// Returns -1 for an unrecognised verdict.
func VerdictOrdinal(v Verdict) int {
	switch v {
	case VerdictClean:
		return 0
	case VerdictReview:
		return 1
	case VerdictReject:
		return 2
	default:
		return -1
	}
}

// CheckStatus tells whether a check could be evaluated.
type CheckStatus string

const (
	StatusPerformed CheckStatus = "performed"
	// StatusSkipped means a structural precondition failed. It is not the same
	// as a performed check that found nothing.
	StatusSkipped CheckStatus = "skipped"
)

// CheckResult is the outcome of one rule.
type CheckResult struct {
	Name              string           `json:"name"`
	Status            CheckStatus      `json:"status"`
	Reason            string           `json:"reason,omitempty"`
	Count             int              `json:"count"`
	DistinctContracts int              `json:"distinct_contracts"`
	AmountColumn      string           `json:"amount_column,omitempty"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Anomalies         []Anomaly        `json:"-"`
}

// Performed reports whether the check ran.
func (r CheckResult) Performed() bool { return r.Status == StatusPerformed }

// RecapRow aggregates anomalies of one category.
type RecapRow struct {
	Category          Category         `json:"category"`
	Severity          Severity         `json:"severity"`
	Rows              int              `json:"rows"`
	DistinctContracts int              `json:"distinct_contracts"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
}

// Anomaly is one detected data-quality or business-rule violation. Anomalies
// are created by the normalizer and the checkers and never modified afterwards,
// except for enrichment with the original raw value.
type Anomaly struct {
	Table         string            `json:"table"`
	Column        string            `json:"column,omitempty"`
	RowID         string            `json:"row_id,omitempty"`
	ContractRef   string            `json:"contract_ref,omitempty"`
	Group         string            `json:"group,omitempty"` // aggregate key when no single row applies
	Category      Category          `json:"category"`
	Severity      Severity          `json:"severity"`
	OriginalValue string            `json:"original_value,omitempty"`
	Observed      *decimal.Decimal  `json:"observed,omitempty"`
	Expected      *decimal.Decimal  `json:"expected,omitempty"`
	Delta         *decimal.Decimal  `json:"delta,omitempty"`
	Amount        *decimal.Decimal  `json:"amount,omitempty"` // monetary amount concerned
	Details       map[string]string `json:"details,omitempty"`
}

// NewAnomaly returns an anomaly with the severity of its category.
func NewAnomaly(table, column, rowID string, c Category) Anomaly {
	return Anomaly{
		Table:    table,
		Column:   column,
		RowID:    rowID,
		Category: c,
		Severity: SeverityOf(c),
	}
}

// Key identifies an anomaly for de-duplication. Cell-level anomalies collapse
// on (table, column, row) whatever their category.
func (a Anomaly) Key() string {
	cat := string(a.Category)
	if a.Category.IsCellLevel() {
		cat = "cell"
	}
	return a.Table + "|" + a.Column + "|" + a.RowID + "|" + cat + "|" + a.Group
}

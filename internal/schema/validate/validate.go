package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dshills/policyaudit/internal/schema"
)

var rowIDPattern = regexp.MustCompile(`^[A-Za-z_]+:\d+$`)

// Parse unmarshals a saved JSON report and validates its structure. It is used
// when a report produced by an earlier run is rendered again.
func Parse(raw string) (*schema.Report, error) {
	cleaned := strings.TrimSpace(raw)

	var report schema.Report
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return nil, fmt.Errorf("JSON parse failed: %w", err)
	}

	if err := Report(&report); err != nil {
		return nil, err
	}

	return &report, nil
}

// Report checks every anomaly and check result of r.
func Report(r *schema.Report) error {
	for i, a := range r.Anomalies {
		if err := validateAnomaly(a, i); err != nil {
			return err
		}
	}
	for i, c := range r.Checks {
		if err := validateCheck(c, i); err != nil {
			return err
		}
	}
	return nil
}

func validateAnomaly(a schema.Anomaly, idx int) error {
	prefix := fmt.Sprintf("anomaly[%d]", idx)

	if a.Table == "" {
		return fmt.Errorf("%s: table is required", prefix)
	}
	if !schema.IsValidCategory(a.Category) {
		return fmt.Errorf("%s: unknown category %q", prefix, a.Category)
	}
	if !schema.IsValidSeverity(a.Severity) {
		return fmt.Errorf("%s: invalid severity %q (must be INFO, WARN, or CRITICAL)", prefix, a.Severity)
	}
	if a.RowID == "" && a.Group == "" {
		return fmt.Errorf("%s: row_id or group is required", prefix)
	}
	if a.RowID != "" && !rowIDPattern.MatchString(a.RowID) {
		return fmt.Errorf("%s: row_id %q does not match <table>:<n> format", prefix, a.RowID)
	}
	if a.Category.IsCellLevel() && a.Column == "" {
		return fmt.Errorf("%s: column is required for %s", prefix, a.Category)
	}
	return nil
}

func validateCheck(c schema.CheckResult, idx int) error {
	prefix := fmt.Sprintf("check[%d]", idx)

	if c.Name == "" {
		return fmt.Errorf("%s: name is required", prefix)
	}
	switch c.Status {
	case schema.StatusPerformed:
	case schema.StatusSkipped:
		if c.Reason == "" {
			return fmt.Errorf("%s: skipped check %q needs a reason", prefix, c.Name)
		}
	default:
		return fmt.Errorf("%s: invalid status %q", prefix, c.Status)
	}
	if c.Count < 0 || c.DistinctContracts > c.Count {
		return fmt.Errorf("%s: distinct_contracts %d must be ≤ count %d", prefix, c.DistinctContracts, c.Count)
	}
	return nil
}

package validate

import (
	"strings"
	"testing"
)

const validJSON = `{
  "tool": "policyaudit",
  "version": "1.0",
  "run_id": "6f1c",
  "input": {},
  "summary": {"verdict": "REVIEW", "total": 2},
  "checks": [
    {"name": "receipts_have_contract", "status": "performed", "count": 1, "distinct_contracts": 1},
    {"name": "health_tariff", "status": "skipped", "reason": "tariffs: missing columns [taux]", "count": 0, "distinct_contracts": 0}
  ],
  "recap": [],
  "anomalies": [
    {"table": "receipts", "column": "coverRef", "row_id": "receipts:4", "contract_ref": "X9", "category": "receipt_without_contract", "severity": "WARN", "amount": "30.5"},
    {"table": "claims", "group": "C1/2021/MALADIE", "category": "reimbursement_over_limit", "severity": "CRITICAL", "delta": "50"}
  ]
}`

func TestParse_ValidReport(t *testing.T) {
	r, err := Parse(validJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(r.Anomalies) != 2 {
		t.Errorf("expected 2 anomalies, got %d", len(r.Anomalies))
	}
	if r.Anomalies[0].Amount == nil || r.Anomalies[0].Amount.String() != "30.5" {
		t.Errorf("amount not decoded: %v", r.Anomalies[0].Amount)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	_, err := Parse("{not valid json}")
	if err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

func TestParse_UnknownCategory(t *testing.T) {
	bad := strings.Replace(validJSON, `"receipt_without_contract"`, `"made_up"`, 1)
	_, err := Parse(bad)
	if err == nil || !strings.Contains(err.Error(), "unknown category") {
		t.Errorf("expected unknown category error, got %v", err)
	}
}

func TestParse_InvalidSeverity(t *testing.T) {
	bad := strings.Replace(validJSON, `"severity": "WARN"`, `"severity": "HIGH"`, 1)
	_, err := Parse(bad)
	if err == nil || !strings.Contains(err.Error(), "invalid severity") {
		t.Errorf("expected invalid severity error, got %v", err)
	}
}

func TestParse_BadRowID(t *testing.T) {
	bad := strings.Replace(validJSON, `"receipts:4"`, `"row four"`, 1)
	_, err := Parse(bad)
	if err == nil || !strings.Contains(err.Error(), "row_id") {
		t.Errorf("expected row_id error, got %v", err)
	}
}

func TestParse_SkippedWithoutReason(t *testing.T) {
	bad := strings.Replace(validJSON, `"reason": "tariffs: missing columns [taux]", `, "", 1)
	_, err := Parse(bad)
	if err == nil || !strings.Contains(err.Error(), "needs a reason") {
		t.Errorf("expected missing reason error, got %v", err)
	}
}

package render

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dshills/policyaudit/internal/schema"
)

func sampleReport() *schema.Report {
	delta := decimal.RequireFromString("1")
	amount := decimal.RequireFromString("96")
	a := schema.NewAnomaly("contracts", "healthPremiumInclTax", "contracts:2", schema.CategoryArithmetic)
	a.ContractRef = "A|1"
	a.Delta = &delta
	a.Amount = &amount
	a.Details = map[string]string{"healthTax": "10", "healthBrokerFee": "5"}

	return &schema.Report{
		Tool:    "policyaudit",
		Version: "1.0",
		RunID:   "run-1",
		Input: schema.Input{
			Directory: "data",
			Profile:   "default",
			Files:     []schema.SourceFile{{Table: "contracts", Path: "data/contrats.csv", Hash: "sha256:abc", Rows: 1}},
		},
		Summary: schema.Summary{
			Verdict:   schema.VerdictReview,
			Total:     1,
			WarnCount: 1,
		},
		Checks: []schema.CheckResult{
			{Name: "contract_arithmetic", Status: schema.StatusPerformed, Count: 1, DistinctContracts: 1, AmountColumn: "healthPremiumInclTax", Amount: &amount},
			{Name: "health_tariff", Status: schema.StatusSkipped, Reason: "table tariffs not loaded"},
		},
		Recap:     []schema.RecapRow{{Category: schema.CategoryArithmetic, Severity: schema.SeverityWarn, Rows: 1, DistinctContracts: 1, Amount: &amount}},
		Anomalies: []schema.Anomaly{a},
	}
}

func TestNewRenderer_JSON(t *testing.T) {
	r, err := NewRenderer("json")
	if err != nil {
		t.Fatalf("NewRenderer json: %v", err)
	}
	out, err := r.Render(sampleReport())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var decoded schema.Report
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, out)
	}
	if decoded.Summary.Verdict != schema.VerdictReview {
		t.Errorf("verdict mismatch: got %q", decoded.Summary.Verdict)
	}
	if len(decoded.Anomalies) != 1 || !decoded.Anomalies[0].Delta.Equal(decimal.NewFromInt(1)) {
		t.Errorf("anomaly did not round-trip: %+v", decoded.Anomalies)
	}
}

func TestNewRenderer_Markdown(t *testing.T) {
	r, err := NewRenderer("md")
	if err != nil {
		t.Fatalf("NewRenderer md: %v", err)
	}
	out, err := r.Render(sampleReport())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	s := string(out)
	for _, want := range []string{
		"# Policy Audit Report",
		"REVIEW",
		"| health_tariff | skipped (table tariffs not loaded) |",
		"arithmetic_inconsistency",
		`A\|1`,
		"healthBrokerFee=5; healthTax=10",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("markdown missing %q:\n%s", want, s)
		}
	}
}

func TestNewRenderer_CSV(t *testing.T) {
	r, err := NewRenderer("csv")
	if err != nil {
		t.Fatalf("NewRenderer csv: %v", err)
	}
	out, err := r.Render(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(records))
	}
	if records[1][1] != "contracts:2" || records[1][9] != "1" || records[1][10] != "96" {
		t.Errorf("unexpected row: %q", records[1])
	}
}

func TestNewRenderer_XLSX(t *testing.T) {
	r, err := NewRenderer("xlsx")
	if err != nil {
		t.Fatalf("NewRenderer xlsx: %v", err)
	}
	out, err := r.Render(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	defer f.Close()

	want := []string{SheetSummary, SheetChecks, SheetRecap, SheetAnomalies}
	got := f.GetSheetList()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("sheets = %v, want %v", got, want)
	}
	v, err := f.GetCellValue(SheetAnomalies, "E2")
	if err != nil || v != string(schema.CategoryArithmetic) {
		t.Errorf("Anomalies!E2 = %q, %v", v, err)
	}
	v, _ = f.GetCellValue(SheetSummary, "B6")
	if v != "REVIEW" {
		t.Errorf("Summary!B6 = %q, want REVIEW", v)
	}
}

func TestNewRenderer_UnknownFormat(t *testing.T) {
	_, err := NewRenderer("xml")
	if err == nil {
		t.Error("expected error for unknown format, got nil")
	}
}

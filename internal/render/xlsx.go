package render

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dshills/policyaudit/internal/schema"
)

// Sheet names of the workbook.
const (
	SheetSummary   = "Summary"
	SheetChecks    = "Checks"
	SheetRecap     = "Recap"
	SheetAnomalies = "Anomalies"
)

type xlsxRenderer struct{}

func (r *xlsxRenderer) Render(report *schema.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("creating summary sheet: %w", err)
	}
	for _, name := range []string{SheetChecks, SheetRecap, SheetAnomalies} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	s := report.Summary
	summary := [][]any{
		{"run_id", report.RunID},
		{"directory", report.Input.Directory},
		{"profile", report.Input.Profile},
		{"as_of", report.Input.AsOf},
		{"receipt_cutoff", report.Input.ReceiptCutoff},
		{"verdict", string(s.Verdict)},
		{"total", s.Total},
		{"critical", s.CriticalCount},
		{"warn", s.WarnCount},
		{"info", s.InfoCount},
		{"contracts_affected", s.ContractsAffected},
		{"skipped_checks", s.SkippedChecks},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return nil, err
	}

	checks := [][]any{{"check", "status", "reason", "count", "distinct_contracts", "amount_column", "amount"}}
	for _, c := range report.Checks {
		checks = append(checks, []any{c.Name, string(c.Status), c.Reason, c.Count, c.DistinctContracts, c.AmountColumn, dec(c.Amount)})
	}
	if err := writeRows(f, SheetChecks, checks); err != nil {
		return nil, err
	}

	recap := [][]any{{"category", "severity", "rows", "distinct_contracts", "amount"}}
	for _, rr := range report.Recap {
		recap = append(recap, []any{string(rr.Category), string(rr.Severity), rr.Rows, rr.DistinctContracts, dec(rr.Amount)})
	}
	if err := writeRows(f, SheetRecap, recap); err != nil {
		return nil, err
	}

	anomalies := make([][]any, 0, len(report.Anomalies)+1)
	anomalies = append(anomalies, cells(anomalyHeader))
	for _, a := range report.Anomalies {
		anomalies = append(anomalies, cells(anomalyRow(a)))
	}
	if err := writeRows(f, SheetAnomalies, anomalies); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func cells(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

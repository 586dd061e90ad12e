package render

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/dshills/policyaudit/internal/schema"
)

// csvRenderer writes the anomaly table only.
type csvRenderer struct{}

func (r *csvRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(anomalyHeader); err != nil {
		return nil, fmt.Errorf("writing csv header: %w", err)
	}
	for _, a := range report.Anomalies {
		if err := w.Write(anomalyRow(a)); err != nil {
			return nil, fmt.Errorf("writing csv row %s: %w", a.RowID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("writing csv: %w", err)
	}
	return buf.Bytes(), nil
}

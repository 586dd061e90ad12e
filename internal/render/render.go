package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/schema"
)

// Renderer formats a Report into bytes for output.
type Renderer interface {
	Render(report *schema.Report) ([]byte, error)
}

// Formats lists the supported output formats.
var Formats = []string{"json", "md", "csv", "xlsx"}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "md", "csv", "xlsx".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	case "csv":
		return &csvRenderer{}, nil
	case "xlsx":
		return &xlsxRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are %s", format, strings.Join(Formats, ", "))
	}
}

// anomalyHeader names the columns of the flat anomaly table shared by the
// csv and xlsx renderers.
var anomalyHeader = []string{
	"table", "row_id", "contract_ref", "column", "category", "severity",
	"original_value", "observed", "expected", "delta", "amount", "group", "details",
}

func anomalyRow(a schema.Anomaly) []string {
	return []string{
		a.Table, a.RowID, a.ContractRef, a.Column, string(a.Category), string(a.Severity),
		a.OriginalValue, dec(a.Observed), dec(a.Expected), dec(a.Delta), dec(a.Amount), a.Group,
		details(a.Details),
	}
}

func dec(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// details renders a details map as "k=v; k=v" in key order.
func details(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + m[k]
	}
	return strings.Join(parts, "; ")
}

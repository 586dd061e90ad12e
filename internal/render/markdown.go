package render

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/dshills/policyaudit/internal/schema"
)

type markdownRenderer struct{}

var mdFuncs = template.FuncMap{
	"dec":     dec,
	"details": details,
	"cell": func(s string) string {
		return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
	},
}

var mdTemplate = template.Must(template.New("report").Funcs(mdFuncs).Parse(`# Policy Audit Report

**Verdict:** {{ .Summary.Verdict }}
**Anomalies:** {{ .Summary.Total }} | **Critical:** {{ .Summary.CriticalCount }} | **Warn:** {{ .Summary.WarnCount }} | **Info:** {{ .Summary.InfoCount }}
**Contracts affected:** {{ .Summary.ContractsAffected }} | **Skipped checks:** {{ .Summary.SkippedChecks }}
> Note: counts reflect all anomalies; --severity-threshold may hide some from this output.

Run ` + "`{{ .RunID }}`" + ` on ` + "`{{ .Input.Directory }}`" + ` (profile {{ .Input.Profile }}, as of {{ .Input.AsOf }}, receipt cutoff {{ .Input.ReceiptCutoff }})
{{ if .Input.Files }}
| Table | File | Rows | Repaired lines | SHA-256 |
|---|---|---|---|---|
{{ range .Input.Files }}| {{ .Table }} | {{ cell .Path }} | {{ .Rows }} | {{ .RepairedLines }} | ` + "`{{ .Hash }}`" + ` |
{{ end }}{{ end }}
---

## Checks

| Check | Status | Anomalies | Contracts | Amount |
|---|---|---|---|---|
{{ range .Checks }}| {{ .Name }} | {{ .Status }}{{ if .Reason }} ({{ cell .Reason }}){{ end }} | {{ .Count }} | {{ .DistinctContracts }} | {{ if .Amount }}{{ dec .Amount }} {{ .AmountColumn }}{{ end }} |
{{ end }}{{ if .Recap }}
---

## Recap

| Category | Severity | Rows | Contracts | Amount |
|---|---|---|---|---|
{{ range .Recap }}| {{ .Category }} | {{ .Severity }} | {{ .Rows }} | {{ .DistinctContracts }} | {{ dec .Amount }} |
{{ end }}{{ end }}{{ if .Anomalies }}
---

## Anomalies

| Row | Contract | Column | Category | Severity | Value | Expected | Delta | Details |
|---|---|---|---|---|---|---|---|---|
{{ range .Anomalies }}| {{ if .RowID }}{{ .RowID }}{{ else }}{{ cell .Group }}{{ end }} | {{ cell .ContractRef }} | {{ .Column }} | {{ .Category }} | {{ .Severity }} | {{ if .OriginalValue }}{{ cell .OriginalValue }}{{ else }}{{ dec .Observed }}{{ end }} | {{ dec .Expected }} | {{ dec .Delta }} | {{ cell (details .Details) }} |
{{ end }}{{ end }}
---
*{{ .Tool }} {{ .Version }}*
`))

func (r *markdownRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

func TestAdd_CollapsesCellAnomaliesKeepingFirst(t *testing.T) {
	l := New()
	first := schema.NewAnomaly("contracts", "coverStartDate", "contracts:4", schema.CategoryIncorrectFormatDate)
	second := schema.NewAnomaly("contracts", "coverStartDate", "contracts:4", schema.CategoryMissingValue)
	other := schema.NewAnomaly("contracts", "coverEndDate", "contracts:4", schema.CategoryMissingValue)

	assert.Equal(t, 2, l.Add(first, second, other))
	require.Equal(t, 2, l.Len())
	assert.Equal(t, schema.CategoryIncorrectFormatDate, l.Entries()[0].Category)
}

func TestAdd_CheckerAnomaliesKeyedByCategory(t *testing.T) {
	l := New()
	before := schema.NewAnomaly("claims", "incidentDate", "claims:2", schema.CategoryClaimBeforeStart)
	carence := schema.NewAnomaly("claims", "incidentDate", "claims:2", schema.CategoryBeforeWaitingEnded)

	l.Add(before, carence, before)
	assert.Equal(t, 2, l.Len())
}

func TestAdd_GroupsAreDistinct(t *testing.T) {
	l := New()
	a := schema.NewAnomaly("claims", "claimPaid", "", schema.CategoryOverLimit)
	a.Group = "A1/2021/MALADIE"
	b := a
	b.Group = "A1/2022/MALADIE"

	l.Add(a, b, a)
	assert.Equal(t, 2, l.Len())
}

func TestEntries_ReturnsCopy(t *testing.T) {
	l := New()
	l.Add(schema.NewAnomaly("claims", "actValue", "claims:2", schema.CategoryMissingValue))
	e := l.Entries()
	e[0].Table = "changed"
	assert.Equal(t, "claims", l.Entries()[0].Table)
}

func TestEnrich(t *testing.T) {
	raw := table.New("contracts", []string{"coverRef", "coverStartDate", "healthHthc"})
	raw.Append("contracts:2", []table.Value{table.Text("A1"), table.Text("31/02/2021"), table.Text(" ")})
	raw.Append("contracts:3", []table.Value{table.Text("A2"), table.Null(), table.Text("12")})

	entries := []schema.Anomaly{
		schema.NewAnomaly("contracts", "coverStartDate", "contracts:2", schema.CategoryIncorrectFormatDate),
		schema.NewAnomaly("contracts", "healthHthc", "contracts:2", schema.CategoryIncorrectFormatNumber),
		schema.NewAnomaly("contracts", "coverStartDate", "contracts:3", schema.CategoryMissingValue),
		schema.NewAnomaly("contracts", "coverRef", "contracts:9", schema.CategoryMissingValue),
		schema.NewAnomaly("contracts", "coverRef", "contracts:2", schema.CategoryContractWithoutReceipt),
	}
	out := Enrich(entries, map[string]*table.Table{"contracts": raw})

	assert.Equal(t, "31/02/2021", out[0].OriginalValue)
	assert.Equal(t, schema.CategoryIncorrectFormatDate, out[0].Category)

	assert.Equal(t, schema.CategoryMissingValue, out[1].Category, "blank format anomaly is demoted")
	assert.Equal(t, schema.SeverityInfo, out[1].Severity)

	assert.Equal(t, "", out[2].OriginalValue)
	assert.Equal(t, "", out[3].OriginalValue)
	assert.Equal(t, "", out[4].OriginalValue, "checker anomalies are not enriched")

	assert.Equal(t, schema.CategoryIncorrectFormatNumber, entries[1].Category, "input untouched")
}

func TestRowsFlagged(t *testing.T) {
	entries := []schema.Anomaly{
		schema.NewAnomaly("contracts", "coverStartDate", "contracts:2", schema.CategoryIncorrectFormatDate),
		schema.NewAnomaly("contracts", "coverEndDate", "contracts:3", schema.CategoryMissingValue),
		schema.NewAnomaly("contracts", "healthHthc", "contracts:4", schema.CategoryMissingValue),
		schema.NewAnomaly("receipts", "coverStartDate", "receipts:2", schema.CategoryMissingValue),
		schema.NewAnomaly("contracts", "coverStartDate", "contracts:5", schema.CategoryContractDuration),
	}
	got := RowsFlagged(entries, "contracts", "coverStartDate", "coverEndDate")
	assert.Equal(t, map[table.RowID]bool{"contracts:2": true, "contracts:3": true}, got)
}

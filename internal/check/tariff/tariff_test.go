package tariff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ct "github.com/dshills/policyaudit/internal/check/checktest"
	"github.com/dshills/policyaudit/internal/schema"
)

func TestPreventionTariff(t *testing.T) {
	in := ct.Input(ct.Table("contracts",
		[]string{"coverRef", "customerId", "preventionLimit", "preventionHthc"},
		[]any{"A1", "C1", 50, ct.Dec("50.05")},
		[]any{"A2", "C1", 100, ct.Dec("99.96")},
		[]any{"A3", "C2", 100, ct.Dec("90")},
		[]any{"A4", "C2", 0, ct.Dec("12")},
		[]any{"A5", "C3", 50, ct.Dec("50.06")},
	))
	r := preventionTariff(in)

	require.True(t, r.Performed())
	require.Equal(t, []string{"contracts:4"}, ct.Rows(r))
	a := r.Anomalies[0]
	assert.Equal(t, schema.CategoryPreventionTariff, a.Category)
	assert.Equal(t, "99.96", a.Expected.String())
	assert.Equal(t, "-9.96", a.Delta.String())
}

var (
	healthCols = []string{"coverRef", "customerId", "petType", "petBirthday", "petSick",
		"coverStartDate", "coverRate", "healthLimit", "healthHthc"}
	tariffCols = []string{"animal", "age", "taux", "healthLimit", "healthHthcMonthly"}
)

func tariffs() []any {
	return []any{"cat", 2, ct.Dec("0.8"), 1000, 10}
}

func TestHealthTariffWithDiscount(t *testing.T) {
	start := ct.Day(2021, time.June, 1)
	born := ct.Day(2019, time.January, 1)
	in := ct.Input(
		ct.Table("contracts", healthCols,
			[]any{"A1", "C1", "cat", born, "healthy", start, ct.Dec("0.8"), 1000, 120},
			[]any{"A2", "C1", "cat", born, "healthy", start, ct.Dec("0.8"), 1000, 102},
			[]any{"A3", "C2", "cat", born, "healthy", start, ct.Dec("0.8"), 1000, 110},
			[]any{"A4", "C3", "dog", born, "healthy", start, ct.Dec("0.8"), 1000, 120},
			[]any{"A5", "C4", "cat", born, "sick", start, ct.Dec("0.8"), 1000, 5},
		),
		ct.Table("tariffs", tariffCols, tariffs()),
	)
	r := healthTariff(in)

	require.True(t, r.Performed())
	assert.Equal(t, []string{"contracts:5", "contracts:4"}, ct.Rows(r))

	notFound := r.Anomalies[0]
	assert.Equal(t, schema.CategoryHealthTariffNotFound, notFound.Category)
	assert.Equal(t, "A4", notFound.ContractRef)

	wrong := r.Anomalies[1]
	assert.Equal(t, schema.CategoryHealthTariff, wrong.Category)
	assert.Equal(t, "A3", wrong.ContractRef)
	assert.Equal(t, "120", wrong.Expected.String())
	assert.Equal(t, "0", wrong.Details["discount_rank"])
}

func TestHealthTariffSkippedWithoutLookupColumns(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", healthCols),
		ct.Table("tariffs", []string{"animal", "age"}, []any{"cat", 2}),
	)
	r := healthTariff(in)
	assert.False(t, r.Performed())
	assert.Equal(t, schema.StatusSkipped, r.Status)
	assert.Contains(t, r.Reason, "taux")
	assert.Zero(t, r.Count)
}

func TestAgeAt(t *testing.T) {
	assert.Equal(t, 2, AgeAt(ct.Day(2019, time.January, 1), ct.Day(2021, time.June, 1)))
	assert.Equal(t, 0, AgeAt(ct.Day(2021, time.January, 1), ct.Day(2021, time.December, 31)))
}

var (
	contractCols = []string{"coverRef", "customerId", "coverStartDate", "healthPremiumInclTax"}
	receiptCols  = []string{"receiptId", "coverRef", "issuanceDate", "healthPremiumInclTax"}
)

func TestReceiptTotalUsesSharedDiscount(t *testing.T) {
	start := ct.Day(2021, time.January, 1)
	in := ct.Input(
		ct.Table("contracts", contractCols,
			[]any{"A1", "C1", start, 120},
			[]any{"A2", "C1", start, 100},
			[]any{"A3", "C2", start, 60},
			[]any{"A4", "C3", start, 50},
		),
		ct.Table("receipts", receiptCols,
			[]any{"R1", "A1", ct.Day(2021, time.January, 1), 120},
			[]any{"R2", "A2", ct.Day(2021, time.January, 1), 85},
			[]any{"R3", "A3", ct.Day(2021, time.January, 1), 30},
			[]any{"R4", "A3", ct.Day(2022, time.January, 1), 30},
		),
	)
	r := receiptTotal(in)

	require.Equal(t, []string{"contracts:4"}, ct.Rows(r))
	a := r.Anomalies[0]
	assert.Equal(t, "A3", a.ContractRef)
	assert.Equal(t, "30", a.Observed.String())
	assert.Equal(t, "60", a.Expected.String())
	assert.Equal(t, "1", a.Details["receipts"])
}

func TestMonthStarts(t *testing.T) {
	got := MonthStarts(ct.Day(2021, time.October, 15), ct.Day(2021, time.December, 31))
	assert.Equal(t, []time.Time{ct.Day(2021, time.November, 1), ct.Day(2021, time.December, 1)}, got)

	got = MonthStarts(ct.Day(2021, time.December, 1), ct.Day(2021, time.December, 31))
	assert.Equal(t, []time.Time{ct.Day(2021, time.December, 1)}, got)

	assert.Empty(t, MonthStarts(ct.Day(2022, time.March, 1), ct.Day(2021, time.December, 31)))
}

func TestReceiptMonths(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", contractCols,
			[]any{"A1", "C1", ct.Day(2021, time.October, 1), 120},
		),
		ct.Table("receipts", receiptCols,
			[]any{"R1", "A1", ct.Day(2021, time.October, 1), 10},
			[]any{"R2", "A1", ct.Day(2021, time.December, 1), 10},
			[]any{"R3", "A1", ct.Day(2021, time.December, 15), 10},
		),
	)
	r := receiptMonths(in)

	require.Len(t, r.Anomalies, 2)
	missing := r.Anomalies[0]
	assert.Equal(t, schema.CategoryMissingReceiptMonth, missing.Category)
	assert.Equal(t, "2021-11", missing.Details["month"])
	assert.Equal(t, "contracts:2", missing.RowID)

	dup := r.Anomalies[1]
	assert.Equal(t, schema.CategoryDuplicateReceipt, dup.Category)
	assert.Equal(t, "receipts:4", dup.RowID)
	assert.Equal(t, "receipts:3", dup.Details["first_receipt"])
	assert.Equal(t, "10", r.Amount.String())
}

func TestReceiptMonthsStopsAtEvaluationDate(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", contractCols, []any{"A1", "C1", ct.Day(2021, time.October, 1), 120}),
		ct.Table("receipts", receiptCols, []any{"R1", "A1", ct.Day(2021, time.October, 1), 10}),
	)
	in.Params.AsOf = ct.Day(2021, time.October, 20)
	assert.Equal(t, 0, receiptMonths(in).Count)
}

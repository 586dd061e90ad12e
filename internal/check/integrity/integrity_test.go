package integrity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ct "github.com/dshills/policyaudit/internal/check/checktest"
	"github.com/dshills/policyaudit/internal/schema"
)

var (
	contractCols = []string{"coverRef", "healthPremiumInclTax"}
	receiptCols  = []string{"receiptId", "coverRef", "healthPremiumInclTax"}
	claimCols    = []string{"claimId", "coverRef", "claimPaid"}
)

func TestReceiptWithUnknownRefReportedOnce(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", contractCols, []any{"A1", 120}, []any{"A2", 90}),
		ct.Table("receipts", receiptCols,
			[]any{"R1", "A1", 10},
			[]any{"R2", "X9", ct.Dec("30.5")},
			[]any{"R3", "A2", 7.5},
		),
	)
	r := receiptsHaveContract(in)

	require.True(t, r.Performed())
	assert.Equal(t, []string{"receipts:3"}, ct.Rows(r))
	assert.Equal(t, schema.CategoryReceiptWithoutContract, r.Anomalies[0].Category)
	assert.Equal(t, "X9", r.Anomalies[0].ContractRef)
	assert.Equal(t, 1, r.DistinctContracts)
	assert.Equal(t, "healthPremiumInclTax", r.AmountColumn)
	assert.Equal(t, "30.5", r.Amount.String())
}

func TestClaimsWithoutContract(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", contractCols, []any{"A1", 120}),
		ct.Table("claims", claimCols,
			[]any{"S1", "A1", 10},
			[]any{"S2", "X1", 40},
			[]any{"S3", "X1", 60},
			[]any{"S4", nil, 5},
		),
	)
	r := claimsHaveContract(in)

	assert.Equal(t, []string{"claims:3", "claims:4", "claims:5"}, ct.Rows(r))
	assert.Equal(t, 1, r.DistinctContracts)
	assert.Equal(t, "105", r.Amount.String())
	assert.Equal(t, schema.SeverityCritical, r.Anomalies[0].Severity)
}

func TestContractsWithoutReceipt(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", contractCols, []any{"A1", 120}, []any{"A2", 90}, []any{"A3", nil}),
		ct.Table("receipts", receiptCols, []any{"R1", "A1", 10}),
	)
	r := contractsHaveReceipt(in)

	assert.Equal(t, []string{"contracts:3", "contracts:4"}, ct.Rows(r))
	assert.Equal(t, 2, r.DistinctContracts)
	assert.Equal(t, "90", r.Amount.String())
}

func TestSkippedWhenTableMissing(t *testing.T) {
	in := ct.Input(ct.Table("contracts", contractCols, []any{"A1", 120}))

	for _, c := range Checks() {
		r := c.Run(in)
		assert.False(t, r.Performed(), c.Name)
		assert.Contains(t, r.Reason, "not loaded", c.Name)
	}
}

func TestNoAmountColumn(t *testing.T) {
	in := ct.Input(
		ct.Table("contracts", []string{"coverRef"}, []any{"A1"}),
		ct.Table("receipts", []string{"receiptId", "coverRef"}, []any{"R1", "X1"}),
	)
	r := receiptsHaveContract(in)
	assert.Equal(t, 1, r.Count)
	assert.Empty(t, r.AmountColumn)
	assert.Nil(t, r.Amount)
}

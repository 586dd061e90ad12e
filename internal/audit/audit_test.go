package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/policyaudit/internal/check/checktest"
	"github.com/dshills/policyaudit/internal/check/tariff"
	"github.com/dshills/policyaudit/internal/dataset"
	"github.com/dshills/policyaudit/internal/rules"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

const contractsCSV = `coverRef,coverId,customerId,coverStartDate,coverEndDate,healthTax,healthBrokerFee,healthHthc,healthPremiumInclTax
A1,1,C1,01/01/2021,01/01/2022,10,5,80,95
A2,2,C1,01/02/2021,abc,10,5,80,96
`

const receiptsCSV = `receiptId,coverRef,issuanceDate,healthPremiumInclTax
R1,A1,01/01/2021,95
R2,X9,01/01/2021,10
`

func input(t *testing.T) Input {
	t.Helper()
	tables := make(map[string]*table.Table)
	for name, content := range map[string]string{"contracts": contractsCSV, "receipts": receiptsCSV} {
		tbl, err := dataset.Parse(name, content)
		require.NoError(t, err)
		tables[name] = tbl
	}
	return Input{Directory: "testdata", Tables: tables}
}

func options() Options {
	return Options{Params: rules.Defaults(checktest.AsOf), Version: "test"}
}

func find(anomalies []schema.Anomaly, c schema.Category) []schema.Anomaly {
	var out []schema.Anomaly
	for _, a := range anomalies {
		if a.Category == c {
			out = append(out, a)
		}
	}
	return out
}

func TestRun_Report(t *testing.T) {
	res, err := Run(context.Background(), input(t), options())
	require.NoError(t, err)
	r := res.Report

	_, err = uuid.Parse(r.RunID)
	assert.NoError(t, err, "run id must be a uuid")
	assert.Equal(t, Tool, r.Tool)
	assert.Equal(t, "default", r.Input.Profile)
	assert.Equal(t, "2022-06-01", r.Input.AsOf)
	assert.Equal(t, "2021-12-31", r.Input.ReceiptCutoff)
	assert.Len(t, r.Checks, len(Checks()))

	badDate := find(r.Anomalies, schema.CategoryIncorrectFormatDate)
	require.Len(t, badDate, 1)
	assert.Equal(t, "contracts:3", badDate[0].RowID)
	assert.Equal(t, "abc", badDate[0].OriginalValue)

	orphan := find(r.Anomalies, schema.CategoryReceiptWithoutContract)
	require.Len(t, orphan, 1)
	assert.Equal(t, "receipts:3", orphan[0].RowID)

	arith := find(r.Anomalies, schema.CategoryArithmetic)
	require.Len(t, arith, 1)
	assert.Equal(t, "A2", arith[0].ContractRef)

	assert.Empty(t, find(r.Anomalies, schema.CategoryContractDuration), "flagged end date must not be checked")

	assert.Equal(t, schema.VerdictReview, r.Summary.Verdict)
	assert.Equal(t, len(r.Anomalies), r.Summary.Total)
	assert.Positive(t, r.Summary.SkippedChecks)

	for _, c := range r.Checks {
		if c.Name == tariff.HealthTariff {
			assert.Equal(t, schema.StatusSkipped, c.Status)
			assert.Contains(t, c.Reason, "tariffs")
		}
	}
}

func TestRun_DoesNotMutateRawTables(t *testing.T) {
	in := input(t)
	before := in.Tables["contracts"].Clone()
	_, err := Run(context.Background(), in, options())
	require.NoError(t, err)
	assert.True(t, before.Equal(in.Tables["contracts"]))
}

func TestRun_Deterministic(t *testing.T) {
	in := input(t)
	first, err := Run(context.Background(), in, options())
	require.NoError(t, err)
	second, err := Run(context.Background(), in, Options{Params: options().Params, Parallelism: 1})
	require.NoError(t, err)

	a, err := json.Marshal(first.Report.Anomalies)
	require.NoError(t, err)
	b, err := json.Marshal(second.Report.Anomalies)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.NotEqual(t, first.Report.RunID, second.Report.RunID)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, input(t), options())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

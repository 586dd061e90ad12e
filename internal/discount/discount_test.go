package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rate = decimal.RequireFromString("0.15")

func fee(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApply_ThreeContracts(t *testing.T) {
	cands := []Candidate{
		{Ref: "B", Customer: "C1", Fee: fee("90")},
		{Ref: "A", Customer: "C1", Fee: fee("120")},
		{Ref: "C", Customer: "C1", Fee: fee("60")},
	}
	got := Apply(cands, rate)
	require.Len(t, got, 3)

	want := map[string]string{"A": "120", "B": "76.5", "C": "51"}
	for _, p := range got {
		assert.True(t, p.Discounted.Equal(fee(want[p.Ref])), "%s: got %s", p.Ref, p.Discounted)
	}
	assert.Equal(t, "B", got[0].Ref, "result aligned with input")
	assert.Equal(t, 0, got[1].Rank)
}

func TestApply_TieBrokenByRef(t *testing.T) {
	forward := Apply([]Candidate{
		{Ref: "Z9", Customer: "C1", Fee: fee("100")},
		{Ref: "A1", Customer: "C1", Fee: fee("100")},
	}, rate)
	backward := Apply([]Candidate{
		{Ref: "A1", Customer: "C1", Fee: fee("100")},
		{Ref: "Z9", Customer: "C1", Fee: fee("100")},
	}, rate)

	for _, priced := range [][]Priced{forward, backward} {
		idx := ByRef(priced)
		assert.Equal(t, 0, idx["A1"].Rank)
		assert.True(t, idx["Z9"].Discounted.Equal(fee("85")))
	}
}

func TestApply_SeparateCustomers(t *testing.T) {
	got := ByRef(Apply([]Candidate{
		{Ref: "A", Customer: "C1", Fee: fee("50")},
		{Ref: "B", Customer: "C2", Fee: fee("40")},
		{Ref: "C", Fee: fee("30")},
		{Ref: "D", Fee: fee("20")},
	}, rate))

	for _, ref := range []string{"A", "B", "C", "D"} {
		assert.Equal(t, 0, got[ref].Rank, ref)
		assert.True(t, got[ref].Factor.Equal(decimal.NewFromInt(1)), ref)
	}
}

func TestApply_Empty(t *testing.T) {
	assert.Empty(t, Apply(nil, rate))
}

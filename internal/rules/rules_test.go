package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWaitingDays(t *testing.T) {
	p := Defaults(time.Now())
	cases := []struct {
		category, actType string
		want              int
	}{
		{"ACCIDENT", "", 2},
		{"accidento", "CONSULT", 2},
		{"MALADIE", "HOSP", 120},
		{"MALADIE", "CONSULT", 45},
		{"PREVENTION", "", 45},
		{"OTHER", "HOSP", 0},
		{"", "", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, p.WaitingDays(c.category, c.actType), "%s/%s", c.category, c.actType)
	}
}

func TestPreventionFee(t *testing.T) {
	p := Defaults(time.Now())
	fee, ok := p.PreventionFee(decimal.RequireFromString("100.0"))
	assert.True(t, ok)
	assert.Equal(t, "99.96", fee.String())

	_, ok = p.PreventionFee(decimal.NewFromInt(75))
	assert.False(t, ok)
}

func TestWithin_IsInclusive(t *testing.T) {
	tol := decimal.RequireFromString("0.01")
	assert.True(t, Within(decimal.RequireFromString("10.01"), decimal.NewFromInt(10), tol))
	assert.False(t, Within(decimal.RequireFromString("10.011"), decimal.NewFromInt(10), tol))
}

func TestDiscountFactor(t *testing.T) {
	assert.Equal(t, "0.85", Defaults(time.Now()).DiscountFactor().String())
}

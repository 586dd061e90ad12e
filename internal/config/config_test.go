package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policyaudit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_OverridesRules(t *testing.T) {
	path := writeConfig(t, `
profile: inferred
rules:
  arithmetic_tolerance: 2
  discount_rate: 0.2
  receipt_cutoff: "2022-06-30"
  waiting_days:
    accident: 3
    hospitalization: 90
    illness: 30
    prevention: 30
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "inferred", cfg.Profile)
	assert.Equal(t, 2.0, cfg.Rules.ArithmeticTolerance)
	assert.Equal(t, 0.01, cfg.Rules.RateTolerance)
	assert.Equal(t, 90, cfg.Rules.WaitingDays.Hospitalization)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "contracts", cfg.Files["contrat"])
}

func TestLoad_MapsReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
files:
  export_polices: contracts
rules:
  prevention_tariffs:
    "100": 99.96
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"export_polices": "contracts"}, cfg.Files)
	assert.Equal(t, map[string]float64{"100": 99.96}, cfg.Rules.PreventionTariffs)

	p, err := cfg.Params(time.Now())
	require.NoError(t, err)
	_, ok := p.PreventionTariffs["50"]
	assert.False(t, ok, "default tariff for limit 50 must be gone")
}

func TestLoad_UnsetMapsKeepDefaults(t *testing.T) {
	path := writeConfig(t, "rules:\n  discount_rate: 0.1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Files, cfg.Files)
	assert.Equal(t, DefaultConfig().Rules.PreventionTariffs, cfg.Rules.PreventionTariffs)
}

func TestParams_DuplicateTariffLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.PreventionTariffs = map[string]float64{"50": 50.05, "50.0": 49}

	_, err := cfg.Params(time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoad_InvalidDiscountRate(t *testing.T) {
	path := writeConfig(t, "rules:\n  discount_rate: 1.5\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DiscountRate")
}

func TestLoad_InvalidCutoff(t *testing.T) {
	path := writeConfig(t, "rules:\n  receipt_cutoff: 31/12/2021\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ReceiptCutoff")
}

func TestLoad_UnknownTableInFileMapping(t *testing.T) {
	path := writeConfig(t, "files:\n  payments: payments\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "rules: [unclosed\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("POLICYAUDIT_AS_OF", "2021-09-01")
	t.Setenv("POLICYAUDIT_LOG_LEVEL", "WARN")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "2021-09-01", cfg.Rules.AsOf)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestParams(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Date(2023, 3, 14, 15, 9, 26, 0, time.UTC)

	p, err := cfg.Params(now)
	require.NoError(t, err)
	assert.Equal(t, "1", p.ArithmeticTolerance.String())
	assert.Equal(t, "0.01", p.RateTolerance.String())
	assert.Equal(t, "0.15", p.DiscountRate.String())
	assert.Equal(t, time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC), p.ReceiptCutoff)
	assert.Equal(t, time.Date(2023, 3, 14, 0, 0, 0, 0, time.UTC), p.AsOf)
	assert.Equal(t, "50.05", p.PreventionTariffs["50"].String())
	assert.Equal(t, 120, p.WaitingDays("MALADIE", "HOSP"))

	cfg.Rules.AsOf = "2021-06-01"
	p, err = cfg.Params(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), p.AsOf)
}

func TestFileMatches_LongestFirst(t *testing.T) {
	matches := DefaultConfig().FileMatches()
	require.NotEmpty(t, matches)
	assert.Equal(t, "quittance", matches[0].Fragment)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, len(matches[i-1].Fragment), len(matches[i].Fragment))
	}
}

// Package config loads the YAML configuration of an audit run.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/dshills/policyaudit/internal/rules"
)

// DateLayout is the layout of every date in the configuration file.
const DateLayout = "2006-01-02"

// Config is the root configuration.
type Config struct {
	// Profile selects the column-role profile ("default" or "inferred").
	Profile string `yaml:"profile" validate:"required"`

	// Files maps a case-insensitive file name fragment to a table name.
	Files map[string]string `yaml:"files" validate:"required,min=1,dive,keys,required,endkeys,oneof=contracts receipts claims tariffs"`

	// Roles overrides column roles per table: table -> column -> role.
	Roles map[string]map[string]string `yaml:"roles,omitempty"`

	Rules   RulesConfig   `yaml:"rules"`
	Logging LoggingConfig `yaml:"logging"`
}

// RulesConfig holds the business-rule constants.
type RulesConfig struct {
	ArithmeticTolerance float64            `yaml:"arithmetic_tolerance" validate:"gte=0"`
	RateTolerance       float64            `yaml:"rate_tolerance" validate:"gte=0"`
	PreventionTariffs   map[string]float64 `yaml:"prevention_tariffs" validate:"dive,keys,numeric,endkeys,gt=0"`
	DiscountRate        float64            `yaml:"discount_rate" validate:"gte=0,lt=1"`
	WaitingDays         WaitingDaysConfig  `yaml:"waiting_days"`
	ReceiptCutoff       string             `yaml:"receipt_cutoff" validate:"required,datetime=2006-01-02"`

	// AsOf is the evaluation date for age checks; empty means the run date.
	AsOf        string     `yaml:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
	MinAgeYears float64    `yaml:"min_age_years" validate:"gte=0"`
	MaxAgeYears float64    `yaml:"max_age_years" validate:"gtfield=MinAgeYears"`
	Acts        ActsConfig `yaml:"acts"`
}

// WaitingDaysConfig is the carence table in days.
type WaitingDaysConfig struct {
	Accident        int `yaml:"accident" validate:"gte=0"`
	Hospitalization int `yaml:"hospitalization" validate:"gte=0"`
	Illness         int `yaml:"illness" validate:"gte=0"`
	Prevention      int `yaml:"prevention" validate:"gte=0"`
}

// ActsConfig lists the source codes of each act family.
type ActsConfig struct {
	Illness         []string `yaml:"illness" validate:"min=1"`
	Accident        []string `yaml:"accident" validate:"min=1"`
	Prevention      []string `yaml:"prevention" validate:"min=1"`
	Hospitalization []string `yaml:"hospitalization"`
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// DefaultConfig returns the standard configuration.
func DefaultConfig() *Config {
	return &Config{
		Profile: "default",
		Files: map[string]string{
			"contrat":   "contracts",
			"contract":  "contracts",
			"quittance": "receipts",
			"receipt":   "receipts",
			"sinistre":  "claims",
			"claim":     "claims",
			"tarif":     "tariffs",
			"tariff":    "tariffs",
		},
		Rules: RulesConfig{
			ArithmeticTolerance: 1.0,
			RateTolerance:       0.01,
			PreventionTariffs:   map[string]float64{"50": 50.05, "100": 99.96},
			DiscountRate:        0.15,
			WaitingDays: WaitingDaysConfig{
				Accident:        2,
				Hospitalization: 120,
				Illness:         45,
				Prevention:      45,
			},
			ReceiptCutoff: "2021-12-31",
			MinAgeYears:   0.25,
			MaxAgeYears:   9,
			Acts: ActsConfig{
				Illness:         []string{"MALADIE"},
				Accident:        []string{"ACCIDENT", "ACCIDENTO"},
				Prevention:      []string{"PREVENTION"},
				Hospitalization: []string{"HOSP"},
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. A .env file in the working directory is read first so that
// POLICYAUDIT_* variables can be kept there.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals data over cfg. yaml.v3 merges mappings into non-nil maps,
// so the default file mapping and prevention tariffs are cleared first when
// the file sets them: a configured map replaces the default one.
func decode(data []byte, cfg *Config) error {
	var present struct {
		Files map[string]string `yaml:"files"`
		Rules struct {
			PreventionTariffs map[string]float64 `yaml:"prevention_tariffs"`
		} `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return err
	}
	if present.Files != nil {
		cfg.Files = nil
	}
	if present.Rules.PreventionTariffs != nil {
		cfg.Rules.PreventionTariffs = nil
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("POLICYAUDIT_PROFILE"); v != "" {
		c.Profile = v
	}
	if v := os.Getenv("POLICYAUDIT_RECEIPT_CUTOFF"); v != "" {
		c.Rules.ReceiptCutoff = v
	}
	if v := os.Getenv("POLICYAUDIT_AS_OF"); v != "" {
		c.Rules.AsOf = v
	}
	if v := os.Getenv("POLICYAUDIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("POLICYAUDIT_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Params converts the rule section to typed parameters. now is used when no
// as_of date is configured.
func (c *Config) Params(now time.Time) (rules.Params, error) {
	r := c.Rules
	p := rules.Params{
		ArithmeticTolerance: decimal.NewFromFloat(r.ArithmeticTolerance),
		RateTolerance:       decimal.NewFromFloat(r.RateTolerance),
		PreventionTariffs:   make(map[string]decimal.Decimal, len(r.PreventionTariffs)),
		DiscountRate:        decimal.NewFromFloat(r.DiscountRate),
		Waiting: rules.WaitingPeriods{
			Accident:        r.WaitingDays.Accident,
			Hospitalization: r.WaitingDays.Hospitalization,
			Illness:         r.WaitingDays.Illness,
			Prevention:      r.WaitingDays.Prevention,
		},
		MinAgeYears: r.MinAgeYears,
		MaxAgeYears: r.MaxAgeYears,
		Acts: rules.ActCodes{
			Illness:         r.Acts.Illness,
			Accident:        r.Acts.Accident,
			Prevention:      r.Acts.Prevention,
			Hospitalization: r.Acts.Hospitalization,
		},
	}

	for limit, fee := range r.PreventionTariffs {
		key, err := decimal.NewFromString(limit)
		if err != nil {
			return rules.Params{}, fmt.Errorf("prevention tariff limit %q: %w", limit, err)
		}
		if _, dup := p.PreventionTariffs[key.String()]; dup {
			return rules.Params{}, fmt.Errorf("prevention tariff limit %q: duplicate of limit %s", limit, key)
		}
		p.PreventionTariffs[key.String()] = decimal.NewFromFloat(fee)
	}

	cutoff, err := time.Parse(DateLayout, r.ReceiptCutoff)
	if err != nil {
		return rules.Params{}, fmt.Errorf("receipt_cutoff: %w", err)
	}
	p.ReceiptCutoff = cutoff

	p.AsOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if r.AsOf != "" {
		asOf, err := time.Parse(DateLayout, r.AsOf)
		if err != nil {
			return rules.Params{}, fmt.Errorf("as_of: %w", err)
		}
		p.AsOf = asOf
	}
	return p, nil
}

// FileMatch is one entry of the file mapping.
type FileMatch struct {
	Fragment string
	Table    string
}

// FileMatches returns the file mapping with the longest fragments first, so
// that "contract" wins over "contrat" on names that contain both.
func (c *Config) FileMatches() []FileMatch {
	out := make([]FileMatch, 0, len(c.Files))
	for frag, table := range c.Files {
		out = append(out, FileMatch{Fragment: strings.ToLower(frag), Table: table})
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Fragment) != len(out[j].Fragment) {
			return len(out[i].Fragment) > len(out[j].Fragment)
		}
		return out[i].Fragment < out[j].Fragment
	})
	return out
}

// ParseDate parses a YYYY-MM-DD flag or config value.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

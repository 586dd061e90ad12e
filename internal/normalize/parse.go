package normalize

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

var (
	trueTokens  = map[string]bool{"true": true, "vrai": true, "1": true, "yes": true, "oui": true}
	falseTokens = map[string]bool{"false": true, "faux": true, "0": true, "no": true, "non": true}
)

// Day-first layouts are tried first when a column uses '/' separators.
var (
	dayFirstLayouts = []string{
		"02/01/2006",
		"2/1/2006",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04",
		"2006/01/02",
	}
	isoLayouts = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006-01-02 15:04:05.000000",
		"20060102",
	}
)

const (
	minYear = 1900
	maxYear = 2100
)

// parseDate parses s with the day-first layouts when dayFirst is set, then
// with the ISO layouts. Years outside [1900, 2100] are rejected.
func parseDate(s string, dayFirst bool) (time.Time, bool) {
	s = strings.TrimSpace(s)
	layouts := isoLayouts
	if dayFirst {
		layouts = append(append([]string(nil), dayFirstLayouts...), isoLayouts...)
	}
	for _, l := range layouts {
		t, err := time.Parse(l, s)
		if err != nil {
			continue
		}
		if t.Year() < minYear || t.Year() > maxYear {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

var numberNoise = strings.NewReplacer(" ", "", "\u00a0", "", "€", "")

// parseNumber accepts a decimal with a dot or comma separator.
func parseNumber(s string) (decimal.Decimal, bool) {
	s = numberNoise.Replace(strings.TrimSpace(s))
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// isPlainNumber reports whether s is a dot-decimal number as written by a
// spreadsheet export. Used for inference only.
func isPlainNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, ", ") {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// parsePercent converts "80%", "12,5 %" or "0.8" to a fraction in [0, 1].
// Values without a percent sign are taken as fractions already.
func parsePercent(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	pct := strings.Contains(s, "%")
	d, ok := parseNumber(strings.ReplaceAll(s, "%", ""))
	if !ok {
		return decimal.Decimal{}, false
	}
	if pct {
		d = d.Div(hundred)
	}
	if d.IsNegative() || d.GreaterThan(one) {
		return decimal.Decimal{}, false
	}
	return d, true
}

func parseBool(s string) (value, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case trueTokens[s]:
		return true, true
	case falseTokens[s]:
		return false, true
	}
	return false, false
}

func isBoolToken(s string) bool {
	_, ok := parseBool(s)
	return ok
}

// parseList reads a bracketed list literal, then falls back to a comma split,
// then to a singleton. Empty tokens are dropped.
func parseList(s string) []string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		if items, ok := parseListLiteral(trimmed[1 : len(trimmed)-1]); ok {
			return items
		}
	}
	if strings.Contains(trimmed, ",") {
		return splitTrim(trimmed)
	}
	if trimmed == "" {
		return []string{}
	}
	return []string{trimmed}
}

// parseListLiteral reads the inside of ["a", 'b', 3]. Every item must be a
// quoted string or a bare number.
func parseListLiteral(body string) ([]string, bool) {
	out := []string{}
	rest := strings.TrimSpace(body)
	for rest != "" {
		var item string
		switch q := rest[0]; q {
		case '"', '\'':
			end := strings.IndexByte(rest[1:], q)
			if end < 0 {
				return nil, false
			}
			item = rest[1 : end+1]
			rest = strings.TrimSpace(rest[end+2:])
		default:
			end := strings.IndexByte(rest, ',')
			if end < 0 {
				end = len(rest)
			}
			item = strings.TrimSpace(rest[:end])
			if !isPlainNumber(item) {
				return nil, false
			}
			rest = strings.TrimSpace(rest[end:])
		}
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
		if rest == "" {
			break
		}
		if rest[0] != ',' {
			return nil, false
		}
		rest = strings.TrimSpace(rest[1:])
	}
	return out, true
}

func splitTrim(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fixEncoding repairs UTF-8 text that was decoded as Latin-1
// ("DiarrhÃ©e" -> "Diarrhée"). Text that does not round-trip is returned
// unchanged.
func fixEncoding(s string) string {
	if isASCII(s) {
		return s
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil || raw == s || !utf8.ValidString(raw) {
		return s
	}
	return raw
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

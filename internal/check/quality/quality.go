// Package quality holds the data-quality checks that look at rows and
// identifiers rather than business amounts.
package quality

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/schema"
	"github.com/dshills/policyaudit/internal/table"
)

// Check names.
const (
	Eligibility          = "eligibility"
	NegativeValues       = "negative_values"
	AlphaOnlyIdentifiers = "alpha_only_identifiers"
	KeyBijectivity       = "key_bijectivity"
	DuplicateRows        = "duplicate_rows"
	DuplicatePrimaryKeys = "duplicate_primary_keys"
)

// Eligibility reasons.
const (
	ReasonAge           = "age_out_of_bounds"
	ReasonMissingIDType = "missing_uuid_type"
	ReasonInvalidID     = "invalid_uuid_format"
)

// Checks returns the quality checks.
func Checks() []check.Check {
	return []check.Check{
		{Name: Eligibility, Run: eligibility},
		{Name: NegativeValues, Run: negativeValues},
		{Name: AlphaOnlyIdentifiers, Run: alphaOnlyIdentifiers},
		{Name: KeyBijectivity, Run: keyBijectivity},
		{Name: DuplicateRows, Run: duplicateRows},
		{Name: DuplicatePrimaryKeys, Run: duplicatePrimaryKeys},
	}
}

var (
	chipPattern   = regexp.MustCompile(`^[A-Z0-9]{15}$`)
	catTattoo     = regexp.MustCompile(`^\d{3}[A-Z]{3}$|^[A-Z]{3}\d{3}$`)
	dogTattoo     = regexp.MustCompile(`^\d{3}[A-Z]{3}$|^2[A-Z]{3}\d{3}$`)
	idSpaceRemove = strings.NewReplacer(" ", "")
)

// ValidIdentification reports whether an identification number matches the
// format of its type ("chip" or "tatoo") and species.
func ValidIdentification(idType, id, species string) bool {
	id = strings.ToUpper(idSpaceRemove.Replace(strings.TrimSpace(id)))
	switch strings.ToLower(strings.TrimSpace(idType)) {
	case "chip":
		return chipPattern.MatchString(id)
	case "tatoo", "tattoo":
		switch strings.ToLower(strings.TrimSpace(species)) {
		case "cat", "chat":
			return catTattoo.MatchString(id)
		case "dog", "chien":
			return dogTattoo.MatchString(id)
		}
		return false
	}
	return true
}

func eligibility(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColPetBirthday, policy.ColPetUUIDType, policy.ColPetUUID); !ok {
		return check.Skipped(Eligibility, reason)
	}

	p := in.Params
	var out []schema.Anomaly
	for _, c := range d.Contracts {
		var reasons []string
		age := -1.0
		if !c.PetBirthday.IsZero() {
			age = p.AsOf.Sub(c.PetBirthday).Hours() / 24 / 365.25
			if age < p.MinAgeYears || age > p.MaxAgeYears {
				reasons = append(reasons, ReasonAge)
			}
		}
		if c.PetUUIDType == "" {
			reasons = append(reasons, ReasonMissingIDType)
		} else if !ValidIdentification(c.PetUUIDType, c.PetUUID, c.PetType) {
			reasons = append(reasons, ReasonInvalidID)
		}
		if len(reasons) == 0 {
			continue
		}

		a := schema.NewAnomaly(policy.TableContracts, "", string(c.Row), schema.CategoryNotEligible)
		a.ContractRef = c.Ref
		a.Details = map[string]string{
			"reasons":     strings.Join(reasons, ", "),
			"customerId":  c.Customer,
			"petType":     c.PetType,
			"petUuidType": c.PetUUIDType,
			"petUuid":     c.PetUUID,
		}
		if age >= 0 {
			a.Details["age_years"] = strconv.FormatFloat(age, 'f', 2, 64)
		}
		out = append(out, a)
	}
	return check.Result(Eligibility, out, "")
}

// tableNames returns the loaded tables in name order.
func tableNames(d *policy.Dataset) []string {
	names := make([]string, 0, len(d.Tables))
	for name := range d.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newRowAnomaly(t *table.Table, i int, col string, c schema.Category) schema.Anomaly {
	a := schema.NewAnomaly(t.Name, col, string(t.Rows[i].ID), c)
	a.ContractRef = policy.Text(t, i, policy.ColCoverRef)
	return a
}

func negativeValues(in check.Input) schema.CheckResult {
	var out []schema.Anomaly
	for _, name := range tableNames(in.Data) {
		t := in.Data.Tables[name]
		for _, col := range t.Columns {
			for i := range t.Rows {
				n, ok := t.Get(i, col).AsNumber()
				if !ok || !n.IsNegative() {
					continue
				}
				a := newRowAnomaly(t, i, col, schema.CategoryNegativeValue)
				a.Observed = check.Ptr(n)
				a.OriginalValue = n.String()
				out = append(out, a)
			}
		}
	}
	return check.Result(NegativeValues, out, "")
}

// IsIdentifierColumn reports whether a column holds identifiers: its name
// contains "ID" or "Ref", or "uuid" in any case. petUuidType is excluded.
func IsIdentifierColumn(col string) bool {
	if col == policy.ColPetUUIDType {
		return false
	}
	return strings.Contains(col, "ID") || strings.Contains(col, "Ref") ||
		strings.Contains(strings.ToLower(col), "uuid")
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func alphaOnlyIdentifiers(in check.Input) schema.CheckResult {
	var out []schema.Anomaly
	for _, name := range tableNames(in.Data) {
		t := in.Data.Tables[name]
		for _, col := range t.Columns {
			if !IsIdentifierColumn(col) {
				continue
			}
			for i := range t.Rows {
				v := t.Get(i, col)
				if v.IsNull() || !isAlpha(v.String()) {
					continue
				}
				a := newRowAnomaly(t, i, col, schema.CategoryAlphaOnlyID)
				a.OriginalValue = v.String()
				out = append(out, a)
			}
		}
	}
	return check.Result(AlphaOnlyIdentifiers, out, "")
}

func keyBijectivity(in check.Input) schema.CheckResult {
	d := in.Data
	if reason, ok := check.Require(d, policy.TableContracts, policy.ColCoverID, policy.ColCoverRef); !ok {
		return check.Skipped(KeyBijectivity, reason)
	}

	refsByID := make(map[string]map[string]bool)
	idsByRef := make(map[string]map[string]bool)
	for _, c := range d.Contracts {
		if c.CoverID == "" || c.Ref == "" {
			continue
		}
		addPair(refsByID, c.CoverID, c.Ref)
		addPair(idsByRef, c.Ref, c.CoverID)
	}

	var out []schema.Anomaly
	for _, c := range d.Contracts {
		if c.CoverID == "" || c.Ref == "" {
			continue
		}
		var col, direction string
		switch {
		case len(refsByID[c.CoverID]) > 1:
			col, direction = policy.ColCoverID, "coverId_multiple_coverRef"
		case len(idsByRef[c.Ref]) > 1:
			col, direction = policy.ColCoverRef, "coverRef_multiple_coverId"
		default:
			continue
		}
		a := schema.NewAnomaly(policy.TableContracts, col, string(c.Row), schema.CategoryNonBijectiveKey)
		a.ContractRef = c.Ref
		a.Amount = check.Amount(c.Premium.Total)
		a.Details = map[string]string{
			"coverId":   c.CoverID,
			"direction": direction,
		}
		out = append(out, a)
	}
	return check.Result(KeyBijectivity, out, policy.ColTotal)
}

func addPair(m map[string]map[string]bool, k, v string) {
	if m[k] == nil {
		m[k] = make(map[string]bool)
	}
	m[k][v] = true
}

// rowKey renders every cell of a row with its kind so equal rows share a key.
func rowKey(cells []table.Value) string {
	var b strings.Builder
	for _, v := range cells {
		b.WriteString(v.Kind().String())
		b.WriteByte(0x1f)
		b.WriteString(v.String())
		b.WriteByte(0x1e)
	}
	return b.String()
}

func duplicateRows(in check.Input) schema.CheckResult {
	var out []schema.Anomaly
	for _, name := range tableNames(in.Data) {
		t := in.Data.Tables[name]
		first := make(map[string]table.RowID, len(t.Rows))
		for i, row := range t.Rows {
			k := rowKey(row.Cells)
			orig, dup := first[k]
			if !dup {
				first[k] = row.ID
				continue
			}
			a := newRowAnomaly(t, i, "", schema.CategoryDuplicateRow)
			a.Details = map[string]string{"duplicate_of": string(orig)}
			out = append(out, a)
		}
	}
	return check.Result(DuplicateRows, out, "")
}

func duplicatePrimaryKeys(in check.Input) schema.CheckResult {
	var out []schema.Anomaly
	performed := false
	for _, name := range tableNames(in.Data) {
		key, ok := policy.PrimaryKeys[name]
		t := in.Data.Tables[name]
		if !ok || !t.Has(key) {
			continue
		}
		performed = true
		first := make(map[string]table.RowID, len(t.Rows))
		for i, row := range t.Rows {
			v := policy.Text(t, i, key)
			if v == "" {
				continue
			}
			orig, dup := first[v]
			if !dup {
				first[v] = row.ID
				continue
			}
			a := newRowAnomaly(t, i, key, schema.CategoryDuplicatePrimaryK)
			a.OriginalValue = v
			a.Details = map[string]string{"duplicate_of": string(orig)}
			out = append(out, a)
		}
	}
	if !performed {
		return check.Skipped(DuplicatePrimaryKeys, "no table with a primary key column loaded")
	}
	return check.Result(DuplicatePrimaryKeys, out, "")
}

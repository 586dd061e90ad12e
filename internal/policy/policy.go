// Package policy extracts typed contracts, receipts, claims and tariffs from
// cleaned tables. Missing or unreadable cells become zero values: an empty
// string, a zero time or an invalid decimal.NullDecimal.
package policy

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/policyaudit/internal/table"
)

// Table names.
const (
	TableContracts = "contracts"
	TableReceipts  = "receipts"
	TableClaims    = "claims"
	TableTariffs   = "tariffs"
)

// Column names of the source export.
const (
	ColCoverRef        = "coverRef"
	ColCoverID         = "coverId"
	ColCustomerID      = "customerId"
	ColPetType         = "petType"
	ColPetBirthday     = "petBirthday"
	ColPetUUIDType     = "petUuidType"
	ColPetUUID         = "petUuid"
	ColPetSick         = "petSick"
	ColStartDate       = "coverStartDate"
	ColEndDate         = "coverEndDate"
	ColCoverRate       = "coverRate"
	ColHealthLimit     = "healthLimit"
	ColPreventionLimit = "preventionLimit"
	ColTax             = "healthTax"
	ColBrokerFee       = "healthBrokerFee"
	ColBaseRate        = "healthHthc"
	ColTotal           = "healthPremiumInclTax"
	ColPreventionFee   = "preventionHthc"

	ColReceiptID    = "receiptId"
	ColIssuanceDate = "issuanceDate"

	ColClaimID      = "claimId"
	ColIncidentDate = "incidentDate"
	ColActDate      = "actDate"
	ColActCategory  = "actCategory"
	ColActType      = "actType"
	ColActValue     = "actValue"
	ColClaimPaid    = "claimPaid"

	ColAnimal        = "animal"
	ColAge           = "age"
	ColTariffRate    = "taux"
	ColMonthlyHealth = "healthHthcMonthly"
)

// PrimaryKeys maps each table to its identifying column.
var PrimaryKeys = map[string]string{
	TableContracts: ColCoverRef,
	TableReceipts:  ColReceiptID,
	TableClaims:    ColClaimID,
}

// TariffLookupColumns are required for the health tariff join.
var TariffLookupColumns = []string{ColAnimal, ColAge, ColTariffRate, ColHealthLimit, ColMonthlyHealth}

// Premium is the split of a premium into its components.
type Premium struct {
	Tax       decimal.NullDecimal
	BrokerFee decimal.NullDecimal
	Base      decimal.NullDecimal
	Total     decimal.NullDecimal
}

// Contract is one policy.
type Contract struct {
	Row             table.RowID
	Ref             string
	CoverID         string
	Customer        string
	PetType         string
	PetBirthday     time.Time
	PetUUIDType     string
	PetUUID         string
	PetSick         string
	Start           time.Time
	End             time.Time
	Rate            decimal.NullDecimal
	HealthLimit     decimal.NullDecimal
	PreventionLimit decimal.NullDecimal
	PreventionFee   decimal.NullDecimal
	Premium         Premium
}

// Receipt is one monthly installment.
type Receipt struct {
	Row     table.RowID
	ID      string
	Ref     string
	Issued  time.Time
	Premium Premium
}

// Claim is one reimbursement request.
type Claim struct {
	Row      table.RowID
	ID       string
	Ref      string
	Incident time.Time
	Act      time.Time
	Category string
	ActType  string
	Value    decimal.NullDecimal
	Paid     decimal.NullDecimal
}

// ActDay is the act date, or the incident date when the act date is missing.
func (c Claim) ActDay() time.Time {
	if !c.Act.IsZero() {
		return c.Act
	}
	return c.Incident
}

// Tariff is one reference price row.
type Tariff struct {
	Row         table.RowID
	Animal      string
	Age         decimal.NullDecimal
	Rate        decimal.NullDecimal
	HealthLimit decimal.NullDecimal
	Monthly     decimal.NullDecimal
}

// Dataset is the typed view of the cleaned tables.
type Dataset struct {
	Contracts []Contract
	Receipts  []Receipt
	Claims    []Claim
	Tariffs   []Tariff
	Tables    map[string]*table.Table
}

// FromTables extracts the typed rows of every known table present.
func FromTables(tables map[string]*table.Table) *Dataset {
	d := &Dataset{Tables: tables}
	if t, ok := tables[TableContracts]; ok {
		for i := range t.Rows {
			d.Contracts = append(d.Contracts, Contract{
				Row:             t.Rows[i].ID,
				Ref:             Text(t, i, ColCoverRef),
				CoverID:         Text(t, i, ColCoverID),
				Customer:        Text(t, i, ColCustomerID),
				PetType:         Text(t, i, ColPetType),
				PetBirthday:     Date(t, i, ColPetBirthday),
				PetUUIDType:     Text(t, i, ColPetUUIDType),
				PetUUID:         Text(t, i, ColPetUUID),
				PetSick:         Text(t, i, ColPetSick),
				Start:           Date(t, i, ColStartDate),
				End:             Date(t, i, ColEndDate),
				Rate:            Number(t, i, ColCoverRate),
				HealthLimit:     Number(t, i, ColHealthLimit),
				PreventionLimit: Number(t, i, ColPreventionLimit),
				PreventionFee:   Number(t, i, ColPreventionFee),
				Premium:         premium(t, i),
			})
		}
	}
	if t, ok := tables[TableReceipts]; ok {
		for i := range t.Rows {
			d.Receipts = append(d.Receipts, Receipt{
				Row:     t.Rows[i].ID,
				ID:      Text(t, i, ColReceiptID),
				Ref:     Text(t, i, ColCoverRef),
				Issued:  Date(t, i, ColIssuanceDate),
				Premium: premium(t, i),
			})
		}
	}
	if t, ok := tables[TableClaims]; ok {
		for i := range t.Rows {
			d.Claims = append(d.Claims, Claim{
				Row:      t.Rows[i].ID,
				ID:       Text(t, i, ColClaimID),
				Ref:      Text(t, i, ColCoverRef),
				Incident: Date(t, i, ColIncidentDate),
				Act:      Date(t, i, ColActDate),
				Category: Text(t, i, ColActCategory),
				ActType:  Text(t, i, ColActType),
				Value:    Number(t, i, ColActValue),
				Paid:     Number(t, i, ColClaimPaid),
			})
		}
	}
	if t, ok := tables[TableTariffs]; ok {
		for i := range t.Rows {
			d.Tariffs = append(d.Tariffs, Tariff{
				Row:         t.Rows[i].ID,
				Animal:      Text(t, i, ColAnimal),
				Age:         Number(t, i, ColAge),
				Rate:        Number(t, i, ColTariffRate),
				HealthLimit: Number(t, i, ColHealthLimit),
				Monthly:     Number(t, i, ColMonthlyHealth),
			})
		}
	}
	return d
}

func premium(t *table.Table, i int) Premium {
	return Premium{
		Tax:       Number(t, i, ColTax),
		BrokerFee: Number(t, i, ColBrokerFee),
		Base:      Number(t, i, ColBaseRate),
		Total:     Number(t, i, ColTotal),
	}
}

// Has reports whether a table was loaded.
func (d *Dataset) Has(name string) bool {
	_, ok := d.Tables[name]
	return ok
}

// MissingColumns returns the columns of cols absent from a table. A missing
// table lacks every column.
func (d *Dataset) MissingColumns(name string, cols ...string) []string {
	t, ok := d.Tables[name]
	var out []string
	for _, c := range cols {
		if !ok || !t.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// ContractsByRef indexes contracts by reference. The first row wins when a
// reference is duplicated.
func (d *Dataset) ContractsByRef() map[string]*Contract {
	out := make(map[string]*Contract, len(d.Contracts))
	for i := range d.Contracts {
		c := &d.Contracts[i]
		if c.Ref == "" {
			continue
		}
		if _, dup := out[c.Ref]; !dup {
			out[c.Ref] = c
		}
	}
	return out
}

// Text returns the trimmed text of a cell. Lists are joined with ", ".
func Text(t *table.Table, i int, col string) string {
	v := t.Get(i, col)
	if items, ok := v.AsList(); ok {
		return strings.Join(items, ", ")
	}
	if v.IsNull() {
		return ""
	}
	return strings.TrimSpace(v.String())
}

// Number returns the decimal of a number cell.
func Number(t *table.Table, i int, col string) decimal.NullDecimal {
	if d, ok := t.Get(i, col).AsNumber(); ok {
		return decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return decimal.NullDecimal{}
}

// Date returns the time of a date cell.
func Date(t *table.Table, i int, col string) time.Time {
	if at, ok := t.Get(i, col).AsTime(); ok {
		return at
	}
	return time.Time{}
}

// Or returns the decimal or zero when it is null.
func Or(n decimal.NullDecimal) decimal.Decimal {
	if n.Valid {
		return n.Decimal
	}
	return decimal.Zero
}

// Package integrity matches receipts and claims to contracts on coverRef.
package integrity

import (
	"github.com/dshills/policyaudit/internal/check"
	"github.com/dshills/policyaudit/internal/policy"
	"github.com/dshills/policyaudit/internal/schema"
)

// Check names.
const (
	ReceiptsHaveContract = "receipts_have_contract"
	ClaimsHaveContract   = "claims_have_contract"
	ContractsHaveReceipt = "contracts_have_receipt"
)

// Checks returns the referential integrity checks.
func Checks() []check.Check {
	return []check.Check{
		{Name: ReceiptsHaveContract, Run: receiptsHaveContract},
		{Name: ClaimsHaveContract, Run: claimsHaveContract},
		{Name: ContractsHaveReceipt, Run: contractsHaveReceipt},
	}
}

func contractRefs(d *policy.Dataset) map[string]bool {
	refs := make(map[string]bool, len(d.Contracts))
	for _, c := range d.Contracts {
		if c.Ref != "" {
			refs[c.Ref] = true
		}
	}
	return refs
}

func receiptsHaveContract(in check.Input) schema.CheckResult {
	d := in.Data
	for _, tbl := range []string{policy.TableReceipts, policy.TableContracts} {
		if reason, ok := check.Require(d, tbl, policy.ColCoverRef); !ok {
			return check.Skipped(ReceiptsHaveContract, reason)
		}
	}

	refs := contractRefs(d)
	var out []schema.Anomaly
	for _, r := range d.Receipts {
		if refs[r.Ref] {
			continue
		}
		a := schema.NewAnomaly(policy.TableReceipts, policy.ColCoverRef, string(r.Row), schema.CategoryReceiptWithoutContract)
		a.ContractRef = r.Ref
		a.Amount = check.Amount(r.Premium.Total)
		out = append(out, a)
	}
	return check.Result(ReceiptsHaveContract, out, amountColumn(d, policy.TableReceipts, policy.ColTotal))
}

func claimsHaveContract(in check.Input) schema.CheckResult {
	d := in.Data
	for _, tbl := range []string{policy.TableClaims, policy.TableContracts} {
		if reason, ok := check.Require(d, tbl, policy.ColCoverRef); !ok {
			return check.Skipped(ClaimsHaveContract, reason)
		}
	}

	refs := contractRefs(d)
	var out []schema.Anomaly
	for _, c := range d.Claims {
		if refs[c.Ref] {
			continue
		}
		a := schema.NewAnomaly(policy.TableClaims, policy.ColCoverRef, string(c.Row), schema.CategoryClaimWithoutContract)
		a.ContractRef = c.Ref
		a.Amount = check.Amount(c.Paid)
		out = append(out, a)
	}
	return check.Result(ClaimsHaveContract, out, amountColumn(d, policy.TableClaims, policy.ColClaimPaid))
}

func contractsHaveReceipt(in check.Input) schema.CheckResult {
	d := in.Data
	for _, tbl := range []string{policy.TableContracts, policy.TableReceipts} {
		if reason, ok := check.Require(d, tbl, policy.ColCoverRef); !ok {
			return check.Skipped(ContractsHaveReceipt, reason)
		}
	}

	withReceipt := make(map[string]bool, len(d.Receipts))
	for _, r := range d.Receipts {
		withReceipt[r.Ref] = true
	}

	var out []schema.Anomaly
	for _, c := range d.Contracts {
		if c.Ref != "" && withReceipt[c.Ref] {
			continue
		}
		a := schema.NewAnomaly(policy.TableContracts, policy.ColCoverRef, string(c.Row), schema.CategoryContractWithoutReceipt)
		a.ContractRef = c.Ref
		a.Amount = check.Amount(c.Premium.Total)
		out = append(out, a)
	}
	return check.Result(ContractsHaveReceipt, out, amountColumn(d, policy.TableContracts, policy.ColTotal))
}

// amountColumn returns col when the table carries it.
func amountColumn(d *policy.Dataset, tbl, col string) string {
	if len(d.MissingColumns(tbl, col)) > 0 {
		return ""
	}
	return col
}

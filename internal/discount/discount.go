// Package discount computes the multi-contract discount. Tariff and receipt
// checks both price contracts through Apply so they always agree.
package discount

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Candidate is one contract to price.
type Candidate struct {
	Ref      string
	Customer string
	Fee      decimal.Decimal // undiscounted yearly fee
}

// Priced is a candidate with its discount applied.
type Priced struct {
	Candidate
	Rank       int // 0 for the customer's most expensive contract
	Factor     decimal.Decimal
	Discounted decimal.Decimal
}

// Apply groups candidates by customer and ranks each group by fee
// descending, then by contract reference ascending. Rank 0 keeps its fee;
// every other rank is multiplied by 1 - rate. A candidate without customer
// forms its own group. The result is aligned with cands.
func Apply(cands []Candidate, rate decimal.Decimal) []Priced {
	full := decimal.NewFromInt(1)
	reduced := full.Sub(rate)

	groups := make(map[string][]int)
	var order []string
	for i, c := range cands {
		key := "customer:" + c.Customer
		if c.Customer == "" {
			key = "contract:" + c.Ref
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	out := make([]Priced, len(cands))
	for _, key := range order {
		idx := groups[key]
		sort.SliceStable(idx, func(a, b int) bool {
			ca, cb := cands[idx[a]], cands[idx[b]]
			if !ca.Fee.Equal(cb.Fee) {
				return ca.Fee.GreaterThan(cb.Fee)
			}
			return ca.Ref < cb.Ref
		})
		for rank, i := range idx {
			factor := full
			if rank > 0 {
				factor = reduced
			}
			out[i] = Priced{
				Candidate:  cands[i],
				Rank:       rank,
				Factor:     factor,
				Discounted: cands[i].Fee.Mul(factor),
			}
		}
	}
	return out
}

// ByRef indexes priced contracts by reference.
func ByRef(priced []Priced) map[string]Priced {
	out := make(map[string]Priced, len(priced))
	for _, p := range priced {
		out[p.Ref] = p
	}
	return out
}

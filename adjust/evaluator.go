package adjust

import (
	"time"

	"github.com/xraph/tally/types"
)

// Result is the outcome of applying an adjustment set to a base amount.
type Result struct {
	// DiscountTotal is the combined discount against the base. Negative
	// components (surcharges entered as negative discounts) are included
	// as-is, so this can be negative.
	DiscountTotal types.Money `json:"discount_total"`

	// TaxTotal is the combined tax computed on the discount-net base.
	TaxTotal types.Money `json:"tax_total"`

	// NetBase is max(base − DiscountTotal, 0).
	NetBase types.Money `json:"net_base"`

	// Net is the final amount: max(NetBase + TaxTotal, 0).
	Net types.Money `json:"net"`
}

// Apply selects the adjustments active at asOf and computes the net
// amount. Taxes apply to the discount-net base, not the gross base.
//
// asOf must be supplied by the caller — never an implicit "now" — so the
// same inputs always produce the same output and past months can be
// re-derived exactly.
//
// Fixed adjustments in a currency other than the base's are skipped: a
// fixed amount is only meaningful in its own currency and no exchange
// rate is available here.
func Apply(base types.Money, adjustments []*Adjustment, asOf time.Time) Result {
	discount := types.Zero(base.Currency)
	for _, a := range adjustments {
		if a.Kind != KindDiscount || !a.ActiveAt(asOf) {
			continue
		}
		discount = discount.Add(valueOn(base, a.Mode))
	}

	netBase := base.Subtract(discount).ClampZero()

	tax := types.Zero(base.Currency)
	for _, a := range adjustments {
		if a.Kind != KindTax || !a.ActiveAt(asOf) {
			continue
		}
		tax = tax.Add(valueOn(netBase, a.Mode))
	}

	return Result{
		DiscountTotal: discount,
		TaxTotal:      tax,
		NetBase:       netBase,
		Net:           netBase.Add(tax).ClampZero(),
	}
}

// valueOn evaluates one mode against a reference amount.
func valueOn(ref types.Money, m Mode) types.Money {
	switch v := m.(type) {
	case Percent:
		return ref.BasisPoints(v.BasisPoints)
	case Fixed:
		if v.Amount.Currency != ref.Currency {
			return types.Zero(ref.Currency)
		}
		return v.Amount
	default:
		return types.Zero(ref.Currency)
	}
}

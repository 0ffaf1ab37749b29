package plan

import "github.com/xraph/tally/types"

// VATBasisPoints is the VAT rate applied to every tier, in basis points.
const VATBasisPoints = 2100 // 21%

// tierPricing is the fixed price table for one tier. All amounts are USD
// cents and exclude VAT.
type tierPricing struct {
	baseCents      int64 // flat monthly base
	includedUsers  int   // users covered by the base price
	extraUserCents int64 // per user beyond includedUsers
	infraUserCents int64 // infrastructure surcharge per billed user
}

var pricingTable = map[Tier]tierPricing{
	TierBasic:      {baseCents: 2500, includedUsers: 3, extraUserCents: 500, infraUserCents: 150},
	TierStandard:   {baseCents: 5000, includedUsers: 10, extraUserCents: 400, infraUserCents: 120},
	TierPremium:    {baseCents: 9000, includedUsers: 25, extraUserCents: 300, infraUserCents: 100},
	TierEnterprise: {baseCents: 18000, includedUsers: 60, extraUserCents: 250, infraUserCents: 80},
}

// Breakdown is the display decomposition of a monthly base amount.
// Total is the single VAT-inclusive figure that gets persisted on charges.
type Breakdown struct {
	Tier       Tier        `json:"tier"`
	Users      int         `json:"users"`
	Base       types.Money `json:"base"`
	ExtraUsers types.Money `json:"extra_users"`
	Infra      types.Money `json:"infra"`
	Subtotal   types.Money `json:"subtotal"`
	VAT        types.Money `json:"vat"`
	Total      types.Money `json:"total"`
}

// MonthlyBase computes the VAT-inclusive monthly base amount in USD for a
// tier and billed-user count. Pure and deterministic; an unknown tier falls
// back to the lowest tier rather than failing.
func MonthlyBase(tier Tier, billedUsers int) types.Money {
	return Quote(tier, billedUsers).Total
}

// Quote computes the full pricing breakdown for a tier and billed-user
// count. Negative user counts are treated as zero.
func Quote(tier Tier, billedUsers int) Breakdown {
	p, ok := pricingTable[tier]
	if !ok {
		tier = TierBasic
		p = pricingTable[TierBasic]
	}
	if billedUsers < 0 {
		billedUsers = 0
	}

	extra := billedUsers - p.includedUsers
	if extra < 0 {
		extra = 0
	}

	base := types.USD(p.baseCents)
	extraUsers := types.USD(p.extraUserCents).Multiply(int64(extra))
	infra := types.USD(p.infraUserCents).Multiply(int64(billedUsers))
	subtotal := base.Add(extraUsers).Add(infra)
	vat := subtotal.BasisPoints(VATBasisPoints)

	return Breakdown{
		Tier:       tier,
		Users:      billedUsers,
		Base:       base,
		ExtraUsers: extraUsers,
		Infra:      infra,
		Subtotal:   subtotal,
		VAT:        vat,
		Total:      subtotal.Add(vat),
	}
}

// Package plan defines subscription tiers, per-agency billing configuration,
// and the monthly pricing calculator.
package plan

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Tier is a fixed subscription tier.
type Tier string

const (
	TierBasic      Tier = "basic"
	TierStandard   Tier = "standard"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

// Tiers lists all known tiers in ascending price order.
func Tiers() []Tier {
	return []Tier{TierBasic, TierStandard, TierPremium, TierEnterprise}
}

// Valid reports whether the tier is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium, TierEnterprise:
		return true
	}
	return false
}

// Config is the billing configuration for one agency. There is at most one
// per agency; plan changes update it in place, it is never deleted.
type Config struct {
	types.Entity
	ID            id.BillingConfigID `json:"id"`
	AgencyID      string             `json:"agency_id"`
	Tier          Tier               `json:"tier"`
	BilledUsers   int                `json:"billed_users"`
	SoftUserLimit *int               `json:"soft_user_limit,omitempty"`
	Currency      string             `json:"currency"`
	PlanStartsAt  time.Time          `json:"plan_starts_at"`
	Notes         string             `json:"notes,omitempty"`
}

// OverSoftLimit reports whether the billed-user count exceeds the
// configured soft limit, when one is set.
func (c *Config) OverSoftLimit() bool {
	return c.SoftUserLimit != nil && c.BilledUsers > *c.SoftUserLimit
}

// MonthlyBase returns the VAT-inclusive monthly base amount for this
// config's tier and billed-user count.
func (c *Config) MonthlyBase() types.Money {
	return MonthlyBase(c.Tier, c.BilledUsers)
}

package tally

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

// ──────────────────────────────────────────────────
// Billing Configuration
// ──────────────────────────────────────────────────

// UpsertBillingConfig creates or replaces an agency's billing config.
// Configs are never deleted; plan changes overwrite in place.
func (e *Engine) UpsertBillingConfig(ctx context.Context, cfg *plan.Config) error {
	if cfg.AgencyID == "" {
		return validationErr("agency_id", "required")
	}
	if !cfg.Tier.Valid() {
		return validationErr("tier", "unknown tier %q", cfg.Tier)
	}
	if cfg.BilledUsers < 0 {
		return validationErr("billed_users", "must not be negative")
	}

	old, err := e.store.GetBillingConfig(ctx, cfg.AgencyID)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}
	if old != nil {
		cfg.ID = old.ID
		cfg.Entity = old.Entity
		cfg.Touch()
	} else {
		cfg.ID = id.NewBillingConfigID()
		cfg.Entity = types.NewEntity()
	}

	if err := e.store.UpsertBillingConfig(ctx, cfg); err != nil {
		return err
	}

	e.logger.Info("billing config upserted",
		"agency_id", cfg.AgencyID,
		"tier", cfg.Tier,
		"billed_users", cfg.BilledUsers,
	)
	e.plugins.EmitConfigChanged(ctx, old, cfg)
	return nil
}

// GetBillingConfig retrieves an agency's billing config.
func (e *Engine) GetBillingConfig(ctx context.Context, agencyID string) (*plan.Config, error) {
	return e.store.GetBillingConfig(ctx, agencyID)
}

// ListBillingConfigs retrieves every agency's billing config.
func (e *Engine) ListBillingConfigs(ctx context.Context) ([]*plan.Config, error) {
	return e.store.ListBillingConfigs(ctx)
}

// ──────────────────────────────────────────────────
// Discount / Tax Adjustments
// ──────────────────────────────────────────────────

// CreateAdjustment creates a discount or tax adjustment for an agency.
func (e *Engine) CreateAdjustment(ctx context.Context, a *adjust.Adjustment) error {
	if a.ID.IsNil() {
		a.ID = id.NewAdjustmentID()
	}
	a.Entity = types.NewEntity()

	if err := a.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	if err := e.store.CreateAdjustment(ctx, a); err != nil {
		return err
	}

	e.logger.Info("adjustment created",
		"adjustment_id", a.ID,
		"agency_id", a.AgencyID,
		"kind", a.Kind,
		"mode", adjust.ModeName(a.Mode),
	)
	e.plugins.EmitAdjustmentCreated(ctx, a)
	return nil
}

// GetAdjustment retrieves an adjustment by ID.
func (e *Engine) GetAdjustment(ctx context.Context, adjID id.AdjustmentID) (*adjust.Adjustment, error) {
	return e.store.GetAdjustment(ctx, adjID)
}

// UpdateAdjustment replaces an adjustment's mutable fields. History is
// preserved by toggling Active off rather than deleting.
func (e *Engine) UpdateAdjustment(ctx context.Context, a *adjust.Adjustment) error {
	if err := a.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	a.Touch()
	return e.store.UpdateAdjustment(ctx, a)
}

// DeactivateAdjustment toggles an adjustment inactive, preserving it
// for historical recomputation.
func (e *Engine) DeactivateAdjustment(ctx context.Context, adjID id.AdjustmentID) error {
	a, err := e.store.GetAdjustment(ctx, adjID)
	if err != nil {
		return err
	}
	if !a.Active {
		return nil
	}
	a.Active = false
	a.Touch()
	return e.store.UpdateAdjustment(ctx, a)
}

// ListAdjustments lists an agency's adjustments.
func (e *Engine) ListAdjustments(ctx context.Context, agencyID string, opts adjust.ListOpts) ([]*adjust.Adjustment, error) {
	return e.store.ListAdjustments(ctx, agencyID, opts)
}

// ──────────────────────────────────────────────────
// Monthly Quote
// ──────────────────────────────────────────────────

// MonthlyQuote is the expected charge for an agency at a reference
// date: the tier pricing breakdown plus active adjustments.
type MonthlyQuote struct {
	AgencyID      string         `json:"agency_id"`
	AsOf          time.Time      `json:"as_of"`
	Breakdown     plan.Breakdown `json:"breakdown"`
	Adjustments   adjust.Result  `json:"adjustments"`
	Total         types.Money    `json:"total"`
	OverSoftLimit bool           `json:"over_soft_limit,omitempty"`
}

// QuoteMonthlyCharge computes what an agency would be charged at asOf:
// plan pricing for the current config with the adjustments active at
// that date applied. asOf is explicit so past months can be re-derived.
func (e *Engine) QuoteMonthlyCharge(ctx context.Context, agencyID string, asOf time.Time) (*MonthlyQuote, error) {
	cfg, err := e.store.GetBillingConfig(ctx, agencyID)
	if err != nil {
		return nil, err
	}
	adjustments, err := e.store.ListAdjustments(ctx, agencyID, adjust.ListOpts{})
	if err != nil {
		return nil, err
	}

	breakdown := plan.Quote(cfg.Tier, cfg.BilledUsers)
	result := adjust.Apply(breakdown.Total, adjustments, asOf)

	return &MonthlyQuote{
		AgencyID:      agencyID,
		AsOf:          asOf,
		Breakdown:     breakdown,
		Adjustments:   result,
		Total:         result.Net,
		OverSoftLimit: cfg.OverSoftLimit(),
	}, nil
}

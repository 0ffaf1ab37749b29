package tally

import (
	"context"
	"time"

	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/stats"
)

// AgencyDirectory resolves agency display names for report joins. The
// engine stores no agency registry of its own; the identity system that
// owns agencies supplies this.
type AgencyDirectory interface {
	AgencyNames(ctx context.Context) (map[string]string, error)
}

// WithAgencyDirectory sets the display-name source for reports.
func WithAgencyDirectory(d AgencyDirectory) Option {
	return func(e *Engine) {
		e.agencies = d
	}
}

// BillingStats builds the read-side rollup for a range anchored at the
// engine clock: totals, MRR estimate, plan mix, top-outstanding
// agencies, and recent payments. Purely derived; no side effects.
func (e *Engine) BillingStats(ctx context.Context, rng stats.Range) (*stats.Report, error) {
	return e.BillingStatsAt(ctx, rng, e.now())
}

// BillingStatsAt is BillingStats with an explicit asOf, so past reports
// can be re-derived.
func (e *Engine) BillingStatsAt(ctx context.Context, rng stats.Range, asOf time.Time) (*stats.Report, error) {
	if !rng.Valid() {
		return nil, validationErr("range", "unknown range %q", rng)
	}

	charges, err := e.allCharges(ctx)
	if err != nil {
		return nil, err
	}
	configs, err := e.store.ListBillingConfigs(ctx)
	if err != nil {
		return nil, err
	}

	adjustments := make(map[string][]*adjust.Adjustment, len(configs))
	for _, cfg := range configs {
		list, err := e.store.ListAdjustments(ctx, cfg.AgencyID, adjust.ListOpts{})
		if err != nil {
			return nil, err
		}
		adjustments[cfg.AgencyID] = list
	}

	names := map[string]string{}
	if e.agencies != nil {
		names, err = e.agencies.AgencyNames(ctx)
		if err != nil {
			return nil, err
		}
	}

	return stats.Build(stats.Input{
		Charges:     charges,
		Configs:     configs,
		Adjustments: adjustments,
		AgencyNames: names,
	}, rng, asOf)
}

// allCharges drains the cursor-paginated charge listing.
func (e *Engine) allCharges(ctx context.Context) ([]*charge.Charge, error) {
	var (
		all    []*charge.Charge
		cursor string
	)
	for {
		page, next, err := e.store.ListCharges(ctx, charge.ListOpts{Cursor: cursor, Limit: e.chargePageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		cursor = next
	}
}

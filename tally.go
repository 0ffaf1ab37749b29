package tally

import (
	"context"
	"log/slog"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/types"
)

// Engine is the main billing and reconciliation engine.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// replayer derives expected account balances; defaults to the
	// store-backed replayer, replaceable with an external ledger.
	replayer account.Replayer

	// rateProvider suggests FX rates for non-USD payments. Optional.
	rateProvider RateProvider

	// gate guards privileged operations. Optional; nil allows all.
	gate FeatureGate

	// agencies resolves display names for report joins. Optional.
	agencies AgencyDirectory

	// lockKeys serializes lock-check-then-write sequences per month
	// within this process.
	lockKeys *periodlock.KeyMutex

	// chargePageSize is the page size used when draining the charge
	// listing for stats rollups.
	chargePageSize int

	now func() time.Time
}

// RateProvider supplies a suggested FX rate for a currency, quoted as
// currency units per USD (e.g. a BSP reference-rate client). It is a
// suggestion for operator input, never applied silently.
type RateProvider interface {
	SuggestedRate(ctx context.Context, currency string) (types.Rate, error)
}

// New creates a new Engine instance backed by the given store.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		replayer: account.NewStoreReplayer(s),
		lockKeys: periodlock.NewKeyMutex(),

		chargePageSize: 500,

		now: time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithReplayer replaces the bundled store-backed balance replayer with
// an external ledger collaborator.
func WithReplayer(r account.Replayer) Option {
	return func(e *Engine) {
		e.replayer = r
	}
}

// WithRateProvider sets the suggested-FX-rate source.
func WithRateProvider(p RateProvider) Option {
	return func(e *Engine) {
		e.rateProvider = p
	}
}

// WithFeatureGate guards privileged operations behind the given gate.
func WithFeatureGate(g FeatureGate) Option {
	return func(e *Engine) {
		e.gate = g
	}
}

// WithChargePageSize sets the page size used when draining the charge
// listing for stats rollups.
func WithChargePageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chargePageSize = n
		}
	}
}

// WithClock overrides the wall clock. Tests use this to pin "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Rate-provider plugins win over the option when both are given.
	for _, rp := range e.plugins.GetRateProviders() {
		if p, ok := rp.Provider().(RateProvider); ok {
			e.rateProvider = p
		}
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("tally started",
		"plugins", e.plugins.Count(),
	)
	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)
	return e.store.Close()
}

// Store exposes the underlying store, mainly for plugins registered
// through OnInit.
func (e *Engine) Store() store.Store { return e.store }

// SuggestedRate returns the configured provider's suggested rate for a
// currency, or zero when no provider is configured.
func (e *Engine) SuggestedRate(ctx context.Context, currency string) (types.Rate, error) {
	if e.rateProvider == nil {
		return 0, nil
	}
	return e.rateProvider.SuggestedRate(ctx, currency)
}

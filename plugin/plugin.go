// Package plugin provides an extensible plugin system for Tally.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Billing config hooks
// ──────────────────────────────────────────────────

// OnConfigChanged is called when an agency's billing config is created
// or updated.
type OnConfigChanged interface {
	Plugin
	OnConfigChanged(ctx context.Context, oldCfg, newCfg interface{}) error
}

// OnAdjustmentCreated is called when a discount or tax adjustment is
// created.
type OnAdjustmentCreated interface {
	Plugin
	OnAdjustmentCreated(ctx context.Context, adj interface{}) error
}

// ──────────────────────────────────────────────────
// Charge lifecycle hooks
// ──────────────────────────────────────────────────

// OnChargeCreated is called when a charge is created.
type OnChargeCreated interface {
	Plugin
	OnChargeCreated(ctx context.Context, c interface{}) error
}

// OnPaymentRecorded is called when a payment is recorded on a charge.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, c interface{}) error
}

// OnChargeDeleted is called when a charge is deleted.
type OnChargeDeleted interface {
	Plugin
	OnChargeDeleted(ctx context.Context, chargeID string) error
}

// ──────────────────────────────────────────────────
// Period lock hooks
// ──────────────────────────────────────────────────

// OnPeriodLocked is called when a billing month is frozen.
type OnPeriodLocked interface {
	Plugin
	OnPeriodLocked(ctx context.Context, lock interface{}) error
}

// OnPeriodUnlocked is called when a billing month is reopened.
type OnPeriodUnlocked interface {
	Plugin
	OnPeriodUnlocked(ctx context.Context, agencyID string, year int, month time.Month) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciliationSubmitted is called after a reconciliation commits.
// adj is nil when no compensating adjustment was created.
type OnReconciliationSubmitted interface {
	Plugin
	OnReconciliationSubmitted(ctx context.Context, audit, adj interface{}) error
}

// OnAccountAdjustmentCreated is called when a manual account adjustment
// is created outside a reconciliation.
type OnAccountAdjustmentCreated interface {
	Plugin
	OnAccountAdjustmentCreated(ctx context.Context, adj interface{}) error
}

// ──────────────────────────────────────────────────
// Rate providers
// ──────────────────────────────────────────────────

// RateProviderPlugin supplies a suggested FX-rate source (e.g. a BSP
// reference-rate client).
type RateProviderPlugin interface {
	Plugin
	Provider() interface{} // Returns tally.RateProvider
}

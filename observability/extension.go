// Package observability provides a metrics extension for Tally that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                     = (*MetricsExtension)(nil)
	_ plugin.OnInit                     = (*MetricsExtension)(nil)
	_ plugin.OnConfigChanged            = (*MetricsExtension)(nil)
	_ plugin.OnAdjustmentCreated        = (*MetricsExtension)(nil)
	_ plugin.OnChargeCreated            = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded          = (*MetricsExtension)(nil)
	_ plugin.OnChargeDeleted            = (*MetricsExtension)(nil)
	_ plugin.OnPeriodLocked             = (*MetricsExtension)(nil)
	_ plugin.OnPeriodUnlocked           = (*MetricsExtension)(nil)
	_ plugin.OnReconciliationSubmitted  = (*MetricsExtension)(nil)
	_ plugin.OnAccountAdjustmentCreated = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tally plugin to automatically track billing metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Billing config metrics
	ConfigChanged Counter

	// Adjustment metrics
	AdjustmentCreated Counter

	// Charge metrics
	ChargeCreated   Counter
	ChargeDeleted   Counter
	ChargeTotal     Histogram
	PaymentRecorded Counter
	PaymentAmount   Histogram

	// Period lock metrics
	PeriodLocked   Counter
	PeriodUnlocked Counter

	// Reconciliation metrics
	ReconciliationSubmitted  Counter
	ReconciliationDifference Histogram
	AccountAdjustmentCreated Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Billing config metrics
		ConfigChanged: factory.Counter("tally.config.changed"),

		// Adjustment metrics
		AdjustmentCreated: factory.Counter("tally.adjustment.created"),

		// Charge metrics
		ChargeCreated:   factory.Counter("tally.charge.created"),
		ChargeDeleted:   factory.Counter("tally.charge.deleted"),
		ChargeTotal:     factory.Histogram("tally.charge.total_usd"),
		PaymentRecorded: factory.Counter("tally.payment.recorded"),
		PaymentAmount:   factory.Histogram("tally.payment.amount"),

		// Period lock metrics
		PeriodLocked:   factory.Counter("tally.period.locked"),
		PeriodUnlocked: factory.Counter("tally.period.unlocked"),

		// Reconciliation metrics
		ReconciliationSubmitted:  factory.Counter("tally.reconciliation.submitted"),
		ReconciliationDifference: factory.Histogram("tally.reconciliation.difference"),
		AccountAdjustmentCreated: factory.Counter("tally.account_adjustment.created"),

		// Error metrics
		StoreErrors:  factory.Counter("tally.store.errors"),
		PluginErrors: factory.Counter("tally.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Billing config hooks
// ──────────────────────────────────────────────────

// OnConfigChanged implements plugin.OnConfigChanged.
func (m *MetricsExtension) OnConfigChanged(_ context.Context, _, _ interface{}) error {
	m.ConfigChanged.Inc()
	return nil
}

// OnAdjustmentCreated implements plugin.OnAdjustmentCreated.
func (m *MetricsExtension) OnAdjustmentCreated(_ context.Context, _ interface{}) error {
	m.AdjustmentCreated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Charge lifecycle hooks
// ──────────────────────────────────────────────────

// OnChargeCreated implements plugin.OnChargeCreated.
func (m *MetricsExtension) OnChargeCreated(_ context.Context, v interface{}) error {
	m.ChargeCreated.Inc()
	if c, ok := v.(*charge.Charge); ok {
		m.ChargeTotal.Observe(float64(c.Total.Amount) / 100)
	}
	return nil
}

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, v interface{}) error {
	m.PaymentRecorded.Inc()
	if c, ok := v.(*charge.Charge); ok && c.Payment != nil {
		m.PaymentAmount.Observe(float64(c.Payment.Amount.Amount) / 100)
	}
	return nil
}

// OnChargeDeleted implements plugin.OnChargeDeleted.
func (m *MetricsExtension) OnChargeDeleted(_ context.Context, _ string) error {
	m.ChargeDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Period lock hooks
// ──────────────────────────────────────────────────

// OnPeriodLocked implements plugin.OnPeriodLocked.
func (m *MetricsExtension) OnPeriodLocked(_ context.Context, _ interface{}) error {
	m.PeriodLocked.Inc()
	return nil
}

// OnPeriodUnlocked implements plugin.OnPeriodUnlocked.
func (m *MetricsExtension) OnPeriodUnlocked(_ context.Context, _ string, _ int, _ time.Month) error {
	m.PeriodUnlocked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciliationSubmitted implements plugin.OnReconciliationSubmitted.
func (m *MetricsExtension) OnReconciliationSubmitted(_ context.Context, auditV, _ interface{}) error {
	m.ReconciliationSubmitted.Inc()
	if a, ok := auditV.(*account.Audit); ok {
		m.ReconciliationDifference.Observe(float64(a.Difference.Amount) / 100)
	}
	return nil
}

// OnAccountAdjustmentCreated implements plugin.OnAccountAdjustmentCreated.
func (m *MetricsExtension) OnAccountAdjustmentCreated(_ context.Context, _ interface{}) error {
	m.AccountAdjustmentCreated.Inc()
	return nil
}

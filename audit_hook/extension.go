// Package audithook bridges Tally lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                     = (*Extension)(nil)
	_ plugin.OnConfigChanged            = (*Extension)(nil)
	_ plugin.OnAdjustmentCreated        = (*Extension)(nil)
	_ plugin.OnChargeCreated            = (*Extension)(nil)
	_ plugin.OnPaymentRecorded          = (*Extension)(nil)
	_ plugin.OnChargeDeleted            = (*Extension)(nil)
	_ plugin.OnPeriodLocked             = (*Extension)(nil)
	_ plugin.OnPeriodUnlocked           = (*Extension)(nil)
	_ plugin.OnReconciliationSubmitted  = (*Extension)(nil)
	_ plugin.OnAccountAdjustmentCreated = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// Defined locally so that the audit_hook package does not import a
// concrete audit-trail module — callers inject the backend at wiring
// time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tally lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Billing config hooks
// ──────────────────────────────────────────────────

// OnConfigChanged implements plugin.OnConfigChanged.
func (e *Extension) OnConfigChanged(ctx context.Context, oldCfg, newCfg interface{}) error {
	var resourceID, agencyID string
	if cfg, ok := newCfg.(*plan.Config); ok {
		resourceID = cfg.ID.String()
		agencyID = cfg.AgencyID
	}
	action := "config_created"
	if oldCfg != nil {
		action = "config_updated"
	}
	return e.record(ctx, ActionConfigChanged, SeverityInfo, OutcomeSuccess,
		ResourceConfig, resourceID, CategoryBilling, nil,
		"event", action,
		"agency_id", agencyID,
	)
}

// OnAdjustmentCreated implements plugin.OnAdjustmentCreated.
func (e *Extension) OnAdjustmentCreated(ctx context.Context, v interface{}) error {
	var resourceID, agencyID, kind string
	if a, ok := v.(*adjust.Adjustment); ok {
		resourceID = a.ID.String()
		agencyID = a.AgencyID
		kind = string(a.Kind)
	}
	return e.record(ctx, ActionAdjustmentCreated, SeverityInfo, OutcomeSuccess,
		ResourceAdjustment, resourceID, CategoryBilling, nil,
		"event", "adjustment_created",
		"agency_id", agencyID,
		"kind", kind,
	)
}

// ──────────────────────────────────────────────────
// Charge lifecycle hooks
// ──────────────────────────────────────────────────

// OnChargeCreated implements plugin.OnChargeCreated.
func (e *Extension) OnChargeCreated(ctx context.Context, v interface{}) error {
	var resourceID, agencyID string
	if c, ok := v.(*charge.Charge); ok {
		resourceID = c.ID.String()
		agencyID = c.AgencyID
	}
	return e.record(ctx, ActionChargeCreated, SeverityInfo, OutcomeSuccess,
		ResourceCharge, resourceID, CategoryBilling, nil,
		"event", "charge_created",
		"agency_id", agencyID,
	)
}

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, v interface{}) error {
	var resourceID, currency string
	if c, ok := v.(*charge.Charge); ok {
		resourceID = c.ID.String()
		if c.Payment != nil {
			currency = c.Payment.Amount.Currency
		}
	}
	return e.record(ctx, ActionPaymentRecorded, SeverityInfo, OutcomeSuccess,
		ResourceCharge, resourceID, CategoryPayment, nil,
		"event", "payment_recorded",
		"currency", currency,
	)
}

// OnChargeDeleted implements plugin.OnChargeDeleted.
func (e *Extension) OnChargeDeleted(ctx context.Context, chargeID string) error {
	return e.record(ctx, ActionChargeDeleted, SeverityWarning, OutcomeSuccess,
		ResourceCharge, chargeID, CategoryBilling, nil,
		"charge_id", chargeID,
	)
}

// ──────────────────────────────────────────────────
// Period lock hooks
// ──────────────────────────────────────────────────

// OnPeriodLocked implements plugin.OnPeriodLocked.
func (e *Extension) OnPeriodLocked(ctx context.Context, v interface{}) error {
	var resourceID, agencyID, lockedBy string
	if l, ok := v.(*periodlock.Lock); ok {
		resourceID = l.ID.String()
		agencyID = l.AgencyID
		lockedBy = l.LockedBy
	}
	return e.record(ctx, ActionPeriodLocked, SeverityInfo, OutcomeSuccess,
		ResourcePeriodLock, resourceID, CategoryControl, nil,
		"event", "period_locked",
		"agency_id", agencyID,
		"locked_by", lockedBy,
	)
}

// OnPeriodUnlocked implements plugin.OnPeriodUnlocked.
func (e *Extension) OnPeriodUnlocked(ctx context.Context, agencyID string, year int, month time.Month) error {
	return e.record(ctx, ActionPeriodUnlocked, SeverityWarning, OutcomeSuccess,
		ResourcePeriodLock, "", CategoryControl, nil,
		"event", "period_unlocked",
		"agency_id", agencyID,
		"year", year,
		"month", int(month),
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnReconciliationSubmitted implements plugin.OnReconciliationSubmitted.
func (e *Extension) OnReconciliationSubmitted(ctx context.Context, auditV, adjV interface{}) error {
	var resourceID string
	meta := []any{"event", "reconciliation_submitted"}
	if a, ok := auditV.(*account.Audit); ok {
		resourceID = a.ID.String()
		meta = append(meta,
			"account_id", a.AccountID.String(),
			"currency", a.Currency,
			"difference", a.Difference.Amount,
		)
	}
	if adjV != nil {
		if adj, ok := adjV.(*account.Adjustment); ok {
			meta = append(meta, "adjustment_id", adj.ID.String())
		}
	}
	return e.record(ctx, ActionReconciliationSubmitted, SeverityInfo, OutcomeSuccess,
		ResourceAudit, resourceID, CategoryReconciliation, nil, meta...)
}

// OnAccountAdjustmentCreated implements plugin.OnAccountAdjustmentCreated.
func (e *Extension) OnAccountAdjustmentCreated(ctx context.Context, v interface{}) error {
	var resourceID, accountID string
	if a, ok := v.(*account.Adjustment); ok {
		resourceID = a.ID.String()
		accountID = a.AccountID.String()
	}
	return e.record(ctx, ActionAccountAdjustmentCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccountAdjustment, resourceID, CategoryReconciliation, nil,
		"event", "account_adjustment_created",
		"account_id", accountID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

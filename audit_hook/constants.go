package audithook

// Action constants for audit events.
const (
	// Billing config actions
	ActionConfigChanged = "config.changed"

	// Adjustment actions
	ActionAdjustmentCreated = "adjustment.created"

	// Charge actions
	ActionChargeCreated   = "charge.created"
	ActionPaymentRecorded = "payment.recorded"
	ActionChargeDeleted   = "charge.deleted"

	// Period lock actions
	ActionPeriodLocked   = "period.locked"
	ActionPeriodUnlocked = "period.unlocked"

	// Reconciliation actions
	ActionReconciliationSubmitted  = "reconciliation.submitted"
	ActionAccountAdjustmentCreated = "account_adjustment.created"
)

// Resource constants for audit events.
const (
	ResourceConfig            = "billing_config"
	ResourceAdjustment        = "adjustment"
	ResourceCharge            = "charge"
	ResourcePeriodLock        = "period_lock"
	ResourceAudit             = "account_audit"
	ResourceAccountAdjustment = "account_adjustment"
)

// Category constants for audit events.
const (
	CategoryBilling        = "billing"
	CategoryPayment        = "payment"
	CategoryReconciliation = "reconciliation"
	CategoryControl        = "control"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)

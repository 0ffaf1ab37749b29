package store

import (
	"context"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/plan"
)

// Store is the unified storage interface for all Tally entities.
// Instead of embedding per-aggregate sub-interfaces, every method is
// declared explicitly to avoid naming conflicts.
type Store interface {
	// Billing config methods. Configs are upserted, never deleted.
	UpsertBillingConfig(ctx context.Context, cfg *plan.Config) error
	GetBillingConfig(ctx context.Context, agencyID string) (*plan.Config, error)
	ListBillingConfigs(ctx context.Context) ([]*plan.Config, error)

	// Adjustment methods (discounts and taxes).
	CreateAdjustment(ctx context.Context, a *adjust.Adjustment) error
	GetAdjustment(ctx context.Context, adjID id.AdjustmentID) (*adjust.Adjustment, error)
	UpdateAdjustment(ctx context.Context, a *adjust.Adjustment) error
	ListAdjustments(ctx context.Context, agencyID string, opts adjust.ListOpts) ([]*adjust.Adjustment, error)

	// Charge methods. ListCharges returns the next-page cursor, empty
	// when the listing is exhausted.
	CreateCharge(ctx context.Context, c *charge.Charge) error
	GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error)
	UpdateCharge(ctx context.Context, c *charge.Charge) error
	DeleteCharge(ctx context.Context, chargeID id.ChargeID) error
	ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, string, error)

	// Account methods.
	CreateAccount(ctx context.Context, a *account.Account) error
	GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error)
	UpdateAccount(ctx context.Context, a *account.Account) error
	ListAccounts(ctx context.Context, agencyID string) ([]*account.Account, error)

	// Opening balances: at most one per (account, currency), upserted.
	UpsertOpeningBalance(ctx context.Context, ob *account.OpeningBalance) error
	GetOpeningBalance(ctx context.Context, accountID id.AccountID, currency string) (*account.OpeningBalance, error)

	// Reconciliation records. SubmitReconciliation persists the audit
	// and, when adj is non-nil, the compensating adjustment in one
	// transaction; the records carry their mutual references already.
	CreateAccountAdjustment(ctx context.Context, adj *account.Adjustment) error
	ListAccountAdjustments(ctx context.Context, accountID id.AccountID, opts account.AdjustmentListOpts) ([]*account.Adjustment, error)
	GetAudit(ctx context.Context, auditID id.AccountAuditID) (*account.Audit, error)
	ListAudits(ctx context.Context, accountID id.AccountID, opts account.AuditListOpts) ([]*account.Audit, error)
	SubmitReconciliation(ctx context.Context, audit *account.Audit, adj *account.Adjustment) error

	// Period lock methods.
	CreatePeriodLock(ctx context.Context, l *periodlock.Lock) error
	GetPeriodLock(ctx context.Context, agencyID string, year int, month time.Month) (*periodlock.Lock, error)
	DeletePeriodLock(ctx context.Context, agencyID string, year int, month time.Month) error
	ListPeriodLocks(ctx context.Context, agencyID string, opts periodlock.ListOpts) ([]*periodlock.Lock, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

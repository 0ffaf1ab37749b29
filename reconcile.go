package tally

import (
	"context"
	"strings"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

// CreateAccount registers a cash or bank account for an agency.
func (e *Engine) CreateAccount(ctx context.Context, a *account.Account) error {
	if a.AgencyID == "" {
		return validationErr("agency_id", "required")
	}
	if a.Name == "" {
		return validationErr("name", "required")
	}
	if a.ID.IsNil() {
		a.ID = id.NewAccountID()
	}
	// Money currencies are lowercase; keep the account restriction in
	// the same form so AcceptsCurrency compares like with like.
	a.Currency = strings.ToLower(a.Currency)
	a.Entity = types.NewEntity()
	return e.store.CreateAccount(ctx, a)
}

// GetAccount retrieves an account by ID.
func (e *Engine) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return e.store.GetAccount(ctx, accountID)
}

// UpdateAccount replaces an account's mutable fields.
func (e *Engine) UpdateAccount(ctx context.Context, a *account.Account) error {
	a.Currency = strings.ToLower(a.Currency)
	a.Touch()
	return e.store.UpdateAccount(ctx, a)
}

// ListAccounts lists an agency's accounts.
func (e *Engine) ListAccounts(ctx context.Context, agencyID string) ([]*account.Account, error) {
	return e.store.ListAccounts(ctx, agencyID)
}

// SetOpeningBalance anchors an account/currency at a reference date.
// At most one opening balance exists per (account, currency); a second
// call replaces the first. Rejected when the effective month is locked.
func (e *Engine) SetOpeningBalance(ctx context.Context, ob *account.OpeningBalance) error {
	acct, err := e.store.GetAccount(ctx, ob.AccountID)
	if err != nil {
		return err
	}
	if !acct.AcceptsCurrency(ob.Amount.Currency) {
		return ErrCurrencyMismatch
	}
	if ob.EffectiveDate.IsZero() {
		return validationErr("effective_date", "required")
	}
	ob.AgencyID = acct.AgencyID
	if ob.ID.IsNil() {
		ob.ID = id.NewOpeningBalanceID()
		ob.Entity = types.NewEntity()
	} else {
		ob.Touch()
	}

	unlock := e.lockedPeriodScope(acct.AgencyID, ob.EffectiveDate)
	defer unlock()

	if err := e.guardPeriod(ctx, acct.AgencyID, ob.EffectiveDate); err != nil {
		return err
	}
	if err := e.store.UpsertOpeningBalance(ctx, ob); err != nil {
		return err
	}

	e.logger.Info("opening balance set",
		"account_id", ob.AccountID,
		"amount", ob.Amount,
		"effective_date", ob.EffectiveDate,
	)
	return nil
}

// GetOpeningBalance retrieves the opening balance for an
// account/currency.
func (e *Engine) GetOpeningBalance(ctx context.Context, accountID id.AccountID, currency string) (*account.OpeningBalance, error) {
	return e.store.GetOpeningBalance(ctx, accountID, currency)
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// ReconcilePreview is the read-only dry run of a reconciliation.
type ReconcilePreview struct {
	AccountID     id.AccountID `json:"account_id"`
	Currency      string       `json:"currency"`
	Year          int          `json:"year"`
	Month         time.Month   `json:"month"`
	Expected      types.Money  `json:"expected"`
	OpeningAmount types.Money  `json:"opening_amount"`
	OpeningDate   time.Time    `json:"opening_date,omitzero"`
	IsLocked      bool         `json:"is_locked"`
}

// PreviewReconciliation derives the expected balance of an
// account/currency at the end of a month. Side-effect-free and
// deterministic: two previews with no intervening ledger mutation
// return identical values.
func (e *Engine) PreviewReconciliation(ctx context.Context, accountID id.AccountID, currency string, year int, month time.Month) (*ReconcilePreview, error) {
	if e.replayer == nil {
		return nil, ErrNoReplayer
	}
	currency = strings.ToLower(currency)
	acct, err := e.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acct.AcceptsCurrency(currency) {
		return nil, ErrCurrencyMismatch
	}

	res, err := e.replayer.Replay(ctx, accountID, currency, year, month)
	if err != nil {
		return nil, err
	}
	locked, err := e.IsPeriodLocked(ctx, acct.AgencyID, year, month)
	if err != nil {
		return nil, err
	}

	return &ReconcilePreview{
		AccountID:     accountID,
		Currency:      currency,
		Year:          year,
		Month:         month,
		Expected:      res.Expected,
		OpeningAmount: res.OpeningAmount,
		OpeningDate:   res.OpeningDate,
		IsLocked:      locked,
	}, nil
}

// SubmitReconciliationInput is the operator's reconciliation request.
type SubmitReconciliationInput struct {
	AccountID id.AccountID
	Year      int
	Month     time.Month

	// ActualBalance is the operator-counted balance; its currency is
	// the reconciled currency.
	ActualBalance types.Money

	// CreateAdjustment requests a compensating adjustment when the
	// difference is non-zero. A zero difference never produces one.
	CreateAdjustment bool
	AdjustmentReason string
	Note             string
}

// ReconcileResult is a committed reconciliation. Adjustment is nil when
// none was requested or the difference was zero.
type ReconcileResult struct {
	Audit      *account.Audit      `json:"audit"`
	Adjustment *account.Adjustment `json:"adjustment,omitempty"`
}

// SubmitReconciliation compares the replayed expected balance against
// the operator-supplied actual balance and commits an immutable audit,
// plus at most one compensating adjustment, as a single atomic unit.
// The expected value is always recomputed server-side.
func (e *Engine) SubmitReconciliation(ctx context.Context, in SubmitReconciliationInput) (*ReconcileResult, error) {
	if err := e.authorize(ctx, ActionReconcile); err != nil {
		return nil, err
	}
	if e.replayer == nil {
		return nil, ErrNoReplayer
	}
	currency := strings.ToLower(in.ActualBalance.Currency)
	if currency == "" {
		return nil, validationErr("actual_balance", "currency required")
	}
	// Keep the stored actual balance in the same form as the replayed
	// expected one.
	in.ActualBalance.Currency = currency

	acct, err := e.store.GetAccount(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}
	if !acct.AcceptsCurrency(currency) {
		return nil, ErrCurrencyMismatch
	}

	// One month, one writer: the lock check, the replay, and the
	// commit run under the agency-month key — the same key LockPeriod
	// takes — so neither a concurrent lock of the month nor a second
	// submission can interleave.
	unlock := e.lockedPeriodScope(acct.AgencyID, account.EndOfMonth(in.Year, in.Month))
	defer unlock()

	if err := e.guardPeriod(ctx, acct.AgencyID, account.EndOfMonth(in.Year, in.Month)); err != nil {
		return nil, err
	}

	res, err := e.replayer.Replay(ctx, in.AccountID, currency, in.Year, in.Month)
	if err != nil {
		return nil, err
	}
	difference := in.ActualBalance.Subtract(res.Expected)

	audit := &account.Audit{
		Entity:           types.NewEntity(),
		ID:               id.NewAccountAuditID(),
		AgencyID:         acct.AgencyID,
		AccountID:        in.AccountID,
		Currency:         currency,
		Year:             in.Year,
		Month:            in.Month,
		Expected:         res.Expected,
		Actual:           in.ActualBalance,
		Difference:       difference,
		CreateAdjustment: in.CreateAdjustment,
		Note:             in.Note,
		CreatedBy:        ActorFromContext(ctx).ID,
	}

	// Both IDs are generated up front so the audit and the adjustment
	// reference each other from the moment they are inserted; the
	// store commits them in one transaction.
	var adj *account.Adjustment
	if in.CreateAdjustment && !difference.IsZero() {
		adj = &account.Adjustment{
			Entity:        types.NewEntity(),
			ID:            id.NewAccountAdjustmentID(),
			AgencyID:      acct.AgencyID,
			AccountID:     in.AccountID,
			Amount:        difference,
			EffectiveDate: account.EndOfMonth(in.Year, in.Month),
			Reason:        in.AdjustmentReason,
			Note:          in.Note,
			Source:        account.SourceAudit,
			AuditID:       audit.ID,
		}
		audit.AdjustmentID = adj.ID
	}

	if err := e.store.SubmitReconciliation(ctx, audit, adj); err != nil {
		return nil, err
	}

	e.logger.Info("reconciliation submitted",
		"account_id", in.AccountID,
		"currency", currency,
		"year", in.Year,
		"month", int(in.Month),
		"difference", difference,
		"adjusted", adj != nil,
	)
	e.plugins.EmitReconciliationSubmitted(ctx, audit, adj)
	return &ReconcileResult{Audit: audit, Adjustment: adj}, nil
}

// CreateAccountAdjustment records a manual balance correction outside a
// reconciliation.
func (e *Engine) CreateAccountAdjustment(ctx context.Context, adj *account.Adjustment) error {
	acct, err := e.store.GetAccount(ctx, adj.AccountID)
	if err != nil {
		return err
	}
	if !acct.AcceptsCurrency(adj.Amount.Currency) {
		return ErrCurrencyMismatch
	}
	if adj.ID.IsNil() {
		adj.ID = id.NewAccountAdjustmentID()
	}
	adj.Entity = types.NewEntity()
	adj.AgencyID = acct.AgencyID
	if adj.Source == "" {
		adj.Source = account.SourceManual
	}
	if adj.EffectiveDate.IsZero() {
		adj.EffectiveDate = e.now()
	}
	if err := adj.Validate(); err != nil {
		return &ValidationError{Err: err}
	}

	unlock := e.lockedPeriodScope(acct.AgencyID, adj.EffectiveDate)
	defer unlock()

	if err := e.guardPeriod(ctx, acct.AgencyID, adj.EffectiveDate); err != nil {
		return err
	}
	if err := e.store.CreateAccountAdjustment(ctx, adj); err != nil {
		return err
	}

	e.plugins.EmitAccountAdjustmentCreated(ctx, adj)
	return nil
}

// ListAccountAdjustments lists an account's balance corrections.
func (e *Engine) ListAccountAdjustments(ctx context.Context, accountID id.AccountID, opts account.AdjustmentListOpts) ([]*account.Adjustment, error) {
	return e.store.ListAccountAdjustments(ctx, accountID, opts)
}

// GetAudit retrieves one reconciliation audit.
func (e *Engine) GetAudit(ctx context.Context, auditID id.AccountAuditID) (*account.Audit, error) {
	return e.store.GetAudit(ctx, auditID)
}

// ListAudits lists an account's reconciliation history.
func (e *Engine) ListAudits(ctx context.Context, accountID id.AccountID, opts account.AuditListOpts) ([]*account.Audit, error) {
	return e.store.ListAudits(ctx, accountID, opts)
}

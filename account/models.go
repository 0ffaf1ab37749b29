// Package account defines cash/bank accounts, opening balances, and the
// reconciliation records (audits and compensating adjustments).
package account

import (
	"fmt"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Account is a cash or bank account belonging to an agency. When
// Currency is set the account is single-currency and rejects operations
// in any other currency; empty means multi-currency.
type Account struct {
	types.Entity
	ID       id.AccountID `json:"id"`
	AgencyID string       `json:"agency_id"`
	Name     string       `json:"name"`
	Currency string       `json:"currency,omitempty"`
}

// AcceptsCurrency reports whether an operation in the given currency is
// allowed on this account.
func (a *Account) AcceptsCurrency(currency string) bool {
	return a.Currency == "" || a.Currency == currency
}

// OpeningBalance anchors an account/currency at a reference date. At
// most one exists per (account, currency) — writes upsert.
type OpeningBalance struct {
	types.Entity
	ID            id.OpeningBalanceID `json:"id"`
	AgencyID      string              `json:"agency_id"`
	AccountID     id.AccountID        `json:"account_id"`
	Amount        types.Money         `json:"amount"`
	EffectiveDate time.Time           `json:"effective_date"`
	Note          string              `json:"note,omitempty"`
}

// Audit is the append-only record of one reconciliation action. It is
// never mutated; the adjustment back-reference is set at creation time,
// inside the same transaction that writes the adjustment.
type Audit struct {
	types.Entity
	ID        id.AccountAuditID `json:"id"`
	AgencyID  string            `json:"agency_id"`
	AccountID id.AccountID      `json:"account_id"`
	Currency  string            `json:"currency"`
	Year      int               `json:"year"`
	Month     time.Month        `json:"month"`

	Expected   types.Money `json:"expected_balance"`
	Actual     types.Money `json:"actual_balance"`
	Difference types.Money `json:"difference"` // actual − expected

	// CreateAdjustment records the operator's intent at submission
	// time, whether or not an adjustment was warranted.
	CreateAdjustment bool                   `json:"create_adjustment"`
	AdjustmentID     id.AccountAdjustmentID `json:"adjustment_id,omitempty"`

	Note      string `json:"note,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// Source records how an account adjustment came to exist.
type Source string

const (
	SourceAudit  Source = "audit"
	SourceManual Source = "manual"
)

// Adjustment is a ledger-affecting correction to an account balance.
// Audit-sourced adjustments back-reference the audit that spawned them.
type Adjustment struct {
	types.Entity
	ID            id.AccountAdjustmentID `json:"id"`
	AgencyID      string                 `json:"agency_id"`
	AccountID     id.AccountID           `json:"account_id"`
	Amount        types.Money            `json:"amount"` // signed
	EffectiveDate time.Time              `json:"effective_date"`
	Reason        string                 `json:"reason,omitempty"`
	Note          string                 `json:"note,omitempty"`
	Source        Source                 `json:"source"`
	AuditID       id.AccountAuditID      `json:"audit_id,omitempty"`
}

// Validate checks structural validity of an adjustment.
func (a *Adjustment) Validate() error {
	if a.AccountID.IsNil() {
		return fmt.Errorf("account: adjustment requires an account")
	}
	if a.Amount.Currency == "" {
		return fmt.Errorf("account: adjustment requires a currency")
	}
	if a.Source != SourceAudit && a.Source != SourceManual {
		return fmt.Errorf("account: unknown adjustment source %q", a.Source)
	}
	if a.Source == SourceAudit && a.AuditID.IsNil() {
		return fmt.Errorf("account: audit-sourced adjustment requires an audit reference")
	}
	return nil
}

// EndOfMonth returns the last instant (23:59:59 UTC of the last day) of
// the given month. Audit-spawned adjustments take effect on this date.
func EndOfMonth(year int, month time.Month) time.Time {
	firstOfNext := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Second)
}

// AuditListOpts filters audit listings.
type AuditListOpts struct {
	Currency string
	Year     int
	Month    time.Month
	Limit    int
	Offset   int
}

// AdjustmentListOpts filters account-adjustment listings.
type AdjustmentListOpts struct {
	Currency string
	Source   Source
	// Until bounds the effective date, inclusive. Zero leaves it open.
	Until  time.Time
	Limit  int
	Offset int
}

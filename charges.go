package tally

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/periodlock"
	"github.com/xraph/tally/types"
)

// guardPeriod rejects a mutation whose effective instant falls in a
// locked month for the agency.
func (e *Engine) guardPeriod(ctx context.Context, agencyID string, at time.Time) error {
	_, err := e.store.GetPeriodLock(ctx, agencyID, at.Year(), at.Month())
	switch {
	case err == nil:
		return ErrPeriodLocked
	case errors.Is(err, ErrLockNotFound):
		return nil
	default:
		return err
	}
}

// lockedPeriodScope serializes the lock check and the write that
// follows it for one agency month, closing the check-then-act window
// within this process.
func (e *Engine) lockedPeriodScope(agencyID string, at time.Time) func() {
	return e.lockKeys.Lock(periodlock.KeyOf(agencyID, at.Year(), at.Month()))
}

// ──────────────────────────────────────────────────
// Charge Ledger
// ──────────────────────────────────────────────────

// CreateCharge persists a charge built with charge.NewRecurring or
// charge.NewExtra. A payment attached before creation makes the charge
// start out paid. Rejected when the charge's effective date falls in a
// locked month.
func (e *Engine) CreateCharge(ctx context.Context, c *charge.Charge) error {
	if c.ID.IsNil() {
		c.ID = id.NewChargeID()
	}
	if c.CreatedAt.IsZero() {
		c.Entity = types.NewEntity()
	}
	c.Total = charge.ComputeTotal(c.BaseAmount, c.AdjustmentsTotal)
	if c.Payment != nil {
		c.Status = charge.StatusPaid
		if c.Payment.PaidAt.IsZero() {
			c.Payment.PaidAt = e.now()
		}
	} else if c.Status == "" {
		c.Status = charge.StatusPending
	}
	if err := c.Validate(); err != nil {
		return &ValidationError{Err: err}
	}
	// A payment attached at creation passes the same checks as
	// RecordPayment.
	if c.Payment != nil {
		if c.Payment.Amount.Currency == "" {
			return validationErr("paid_currency", "required")
		}
		if !c.Payment.AccountID.IsNil() {
			acct, err := e.store.GetAccount(ctx, c.Payment.AccountID)
			if err != nil {
				return err
			}
			if !acct.AcceptsCurrency(c.Payment.Amount.Currency) {
				return ErrCurrencyMismatch
			}
		}
	}

	at := c.EffectiveDate()
	unlock := e.lockedPeriodScope(c.AgencyID, at)
	defer unlock()

	if err := e.guardPeriod(ctx, c.AgencyID, at); err != nil {
		return err
	}
	if err := e.store.CreateCharge(ctx, c); err != nil {
		return err
	}

	e.logger.Info("charge created",
		"charge_id", c.ID,
		"agency_id", c.AgencyID,
		"kind", c.Kind,
		"total", c.Total,
		"status", c.Status,
	)
	e.plugins.EmitChargeCreated(ctx, c)
	return nil
}

// IssueMonthlyCharge quotes an agency's expected charge for a month and
// persists it as a recurring charge covering that month.
func (e *Engine) IssueMonthlyCharge(ctx context.Context, agencyID string, year int, month time.Month) (*charge.Charge, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	quote, err := e.QuoteMonthlyCharge(ctx, agencyID, start)
	if err != nil {
		return nil, err
	}

	c := charge.NewRecurring(agencyID, &charge.Period{Start: start, End: end},
		quote.Breakdown.Total,
		quote.Total.Subtract(quote.Breakdown.Total))
	if err := e.CreateCharge(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetCharge retrieves a charge by ID.
func (e *Engine) GetCharge(ctx context.Context, chargeID id.ChargeID) (*charge.Charge, error) {
	return e.store.GetCharge(ctx, chargeID)
}

// RecordPayment marks a charge paid with the operator-entered payment
// details. The amount and currency are stored exactly as entered;
// rollups derive the USD figure from the FX rate when one is usable.
func (e *Engine) RecordPayment(ctx context.Context, chargeID id.ChargeID, p charge.Payment) (*charge.Charge, error) {
	c, err := e.store.GetCharge(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	if c.Status == charge.StatusPaid {
		return nil, ErrAlreadyPaid
	}
	if p.Amount.Currency == "" {
		return nil, validationErr("paid_currency", "required")
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = e.now()
	}
	if !p.AccountID.IsNil() {
		acct, err := e.store.GetAccount(ctx, p.AccountID)
		if err != nil {
			return nil, err
		}
		if !acct.AcceptsCurrency(p.Amount.Currency) {
			return nil, ErrCurrencyMismatch
		}
	}

	at := c.EffectiveDate()
	unlock := e.lockedPeriodScope(c.AgencyID, at)
	defer unlock()

	if err := e.guardPeriod(ctx, c.AgencyID, at); err != nil {
		return nil, err
	}

	c.MarkPaid(p)
	if err := e.store.UpdateCharge(ctx, c); err != nil {
		return nil, err
	}

	e.logger.Info("payment recorded",
		"charge_id", c.ID,
		"agency_id", c.AgencyID,
		"paid", p.Amount,
		"fx_rate", p.FXRate,
		"usd_estimate", c.PaidUSDEstimate(),
	)
	e.plugins.EmitPaymentRecorded(ctx, c)
	return c, nil
}

// UpdateCharge replaces a charge's mutable fields, re-deriving the
// total. Both the stored and the updated effective dates must fall in
// unlocked months.
func (e *Engine) UpdateCharge(ctx context.Context, c *charge.Charge) error {
	old, err := e.store.GetCharge(ctx, c.ID)
	if err != nil {
		return err
	}
	c.Total = charge.ComputeTotal(c.BaseAmount, c.AdjustmentsTotal)
	if err := c.Validate(); err != nil {
		return &ValidationError{Err: err}
	}

	at := c.EffectiveDate()
	unlock := e.lockedPeriodScope(c.AgencyID, at)
	defer unlock()

	if err := e.guardPeriod(ctx, old.AgencyID, old.EffectiveDate()); err != nil {
		return err
	}
	if err := e.guardPeriod(ctx, c.AgencyID, at); err != nil {
		return err
	}
	c.Touch()
	return e.store.UpdateCharge(ctx, c)
}

// DeleteCharge removes a charge. Gated, and rejected when the charge's
// month is locked.
func (e *Engine) DeleteCharge(ctx context.Context, chargeID id.ChargeID) error {
	if err := e.authorize(ctx, ActionDeleteCharge); err != nil {
		return err
	}
	c, err := e.store.GetCharge(ctx, chargeID)
	if err != nil {
		return err
	}

	at := c.EffectiveDate()
	unlock := e.lockedPeriodScope(c.AgencyID, at)
	defer unlock()

	if err := e.guardPeriod(ctx, c.AgencyID, at); err != nil {
		return err
	}
	if err := e.store.DeleteCharge(ctx, chargeID); err != nil {
		return err
	}

	e.logger.Info("charge deleted",
		"charge_id", chargeID,
		"agency_id", c.AgencyID,
	)
	e.plugins.EmitChargeDeleted(ctx, chargeID.String())
	return nil
}

// ListCharges lists charges most-recent-first, returning the cursor for
// the next page (empty when exhausted).
func (e *Engine) ListCharges(ctx context.Context, opts charge.ListOpts) ([]*charge.Charge, string, error) {
	return e.store.ListCharges(ctx, opts)
}

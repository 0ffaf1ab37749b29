// Package charge defines recurring and one-off billing charges and the
// rules for deriving their totals, status, and USD-reported payments.
package charge

import (
	"fmt"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Kind discriminates the two charge variants. Recurring charges carry a
// billing period and no label; extra charges carry a label and no period.
type Kind string

const (
	KindRecurring Kind = "recurring"
	KindExtra     Kind = "extra"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	return k == KindRecurring || k == KindExtra
}

// Status is the payment lifecycle state of a charge.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Period is the billed interval of a recurring charge.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Payment holds the operator-entered payment details of a paid charge.
// Amount and its currency are stored exactly as entered; only the USD
// *reporting* figure is derived from the FX rate.
type Payment struct {
	Amount    types.Money  `json:"amount"`
	FXRate    types.Rate   `json:"fx_rate,omitempty"` // 0 = not supplied
	PaidAt    time.Time    `json:"paid_at"`
	AccountID id.AccountID `json:"account_id,omitempty"`
	Method    string       `json:"method,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

// Charge is a billed amount owed by an agency. Both variants share one
// record type discriminated by Kind; the constructors below enforce the
// per-variant field subsets.
type Charge struct {
	types.Entity
	ID       id.ChargeID `json:"id"`
	AgencyID string      `json:"agency_id"`
	Kind     Kind        `json:"kind"`
	Period   *Period     `json:"period,omitempty"` // recurring only
	Label    string      `json:"label,omitempty"`  // extra only
	Status   Status      `json:"status"`

	// BaseAmount is the VAT-inclusive monthly base in USD.
	BaseAmount types.Money `json:"base_amount"`

	// AdjustmentsTotal is the signed USD delta applied on top of the
	// base: negative for a net discount, positive for net taxes.
	AdjustmentsTotal types.Money `json:"adjustments_total"`

	// Total is derived: max(BaseAmount + AdjustmentsTotal, 0).
	Total types.Money `json:"total"`

	Payment *Payment `json:"payment,omitempty"`
}

// ComputeTotal derives the billable total from the base amount and the
// signed adjustments total, floored at zero. Mixed currencies leave the
// base as the total; Validate rejects such charges, so the mismatch
// must not panic before it gets the chance to.
func ComputeTotal(base, adjustmentsTotal types.Money) types.Money {
	if !base.SameCurrency(adjustmentsTotal) {
		return base.ClampZero()
	}
	return base.Add(adjustmentsTotal).ClampZero()
}

// NewRecurring builds a recurring charge for a billing period.
func NewRecurring(agencyID string, period *Period, base, adjustmentsTotal types.Money) *Charge {
	return &Charge{
		Entity:           types.NewEntity(),
		ID:               id.NewChargeID(),
		AgencyID:         agencyID,
		Kind:             KindRecurring,
		Period:           period,
		Status:           StatusPending,
		BaseAmount:       base,
		AdjustmentsTotal: adjustmentsTotal,
		Total:            ComputeTotal(base, adjustmentsTotal),
	}
}

// NewExtra builds a one-off charge with an optional label.
func NewExtra(agencyID, label string, base, adjustmentsTotal types.Money) *Charge {
	return &Charge{
		Entity:           types.NewEntity(),
		ID:               id.NewChargeID(),
		AgencyID:         agencyID,
		Kind:             KindExtra,
		Label:            label,
		Status:           StatusPending,
		BaseAmount:       base,
		AdjustmentsTotal: adjustmentsTotal,
		Total:            ComputeTotal(base, adjustmentsTotal),
	}
}

// Validate checks structural validity, including the per-variant field
// subsets.
func (c *Charge) Validate() error {
	if c.AgencyID == "" {
		return fmt.Errorf("charge: agency_id is required")
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("charge: unknown kind %q", c.Kind)
	}
	switch c.Kind {
	case KindRecurring:
		if c.Label != "" {
			return fmt.Errorf("charge: recurring charges carry no label")
		}
		if c.Period != nil && c.Period.End.Before(c.Period.Start) {
			return fmt.Errorf("charge: period end precedes start")
		}
	case KindExtra:
		if c.Period != nil {
			return fmt.Errorf("charge: extra charges carry no period")
		}
	}
	if c.BaseAmount.Currency != "usd" {
		return fmt.Errorf("charge: base amount must be USD, got %q", c.BaseAmount.Currency)
	}
	if c.AdjustmentsTotal.Currency != "usd" {
		return fmt.Errorf("charge: adjustments total must be USD, got %q", c.AdjustmentsTotal.Currency)
	}
	return nil
}

// MarkPaid records a payment and flips the status.
func (c *Charge) MarkPaid(p Payment) {
	c.Payment = &p
	c.Status = StatusPaid
	c.Touch()
}

// EffectiveDate is the date a charge is attributed to: the period start
// for recurring charges when set, otherwise the creation time. Period
// locking and range filtering both key off this date.
func (c *Charge) EffectiveDate() time.Time {
	if c.Kind == KindRecurring && c.Period != nil {
		return c.Period.Start
	}
	return c.CreatedAt
}

// PaidUSDEstimate reports the USD figure used in rollups for a paid
// charge. USD payments report as entered. Non-USD payments convert at
// the recorded FX rate; when the rate is absent or non-positive the
// charge total stands in — a documented fallback, the stored payment
// stays exactly as entered either way.
func (c *Charge) PaidUSDEstimate() types.Money {
	if c.Payment == nil {
		return types.Zero("usd")
	}
	if c.Payment.Amount.Currency == "usd" {
		return c.Payment.Amount
	}
	if c.Payment.FXRate.IsPositive() {
		return c.Payment.FXRate.ToUSD(c.Payment.Amount)
	}
	return c.Total
}

// PaidAtOrCreated is the instant a payment is attributed to for range
// filters: the recorded payment time when present, otherwise creation.
func (c *Charge) PaidAtOrCreated() time.Time {
	if c.Payment != nil && !c.Payment.PaidAt.IsZero() {
		return c.Payment.PaidAt
	}
	return c.CreatedAt
}

// ListOpts filters and paginates charge listings. Listing is
// most-recent-first by creation order; Cursor is the ID of the last
// charge from the previous page (K-sortable, so creation order and ID
// order coincide).
type ListOpts struct {
	AgencyID string
	Kind     Kind
	Status   Status

	// Start/End bound the period-intersection filter against each
	// charge's EffectiveDate: Start inclusive, End exclusive. Zero
	// values leave the corresponding bound open.
	Start time.Time
	End   time.Time

	Cursor string
	Limit  int
}

// InRange reports whether the charge's effective date falls inside the
// opts' half-open [Start, End) window.
func (o ListOpts) InRange(c *Charge) bool {
	at := c.EffectiveDate()
	if !o.Start.IsZero() && at.Before(o.Start) {
		return false
	}
	if !o.End.IsZero() && !at.Before(o.End) {
		return false
	}
	return true
}

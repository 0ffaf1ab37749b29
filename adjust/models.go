// Package adjust defines discount and tax adjustment rules and the
// evaluator that applies them to a base amount at a reference date.
package adjust

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Kind classifies an adjustment as a discount or a tax.
type Kind string

const (
	KindDiscount Kind = "discount"
	KindTax      Kind = "tax"
)

// Valid reports whether the kind is known.
func (k Kind) Valid() bool {
	return k == KindDiscount || k == KindTax
}

// Mode is the tagged value of an adjustment: either a percentage of the
// base or a fixed amount in a concrete currency. Modelling this as a
// closed set of variants keeps the currency field from existing on
// percent adjustments at all.
type Mode interface {
	isMode()
}

// Percent applies a fraction of the base amount, expressed in basis
// points: Percent{BasisPoints: 1000} is 10%.
type Percent struct {
	BasisPoints int64 `json:"basis_points"`
}

func (Percent) isMode() {}

// Fixed applies a flat amount in the amount's own currency.
type Fixed struct {
	Amount types.Money `json:"amount"`
}

func (Fixed) isMode() {}

// Adjustment is a discount or tax rule belonging to an agency. Rules are
// toggled inactive rather than deleted when history must be preserved.
// A window with no end is open-ended; both bounds are inclusive.
type Adjustment struct {
	types.Entity
	ID       id.AdjustmentID `json:"id"`
	AgencyID string          `json:"agency_id"`
	Kind     Kind            `json:"kind"`
	Mode     Mode            `json:"mode"`
	Label    string          `json:"label,omitempty"`
	StartsAt *time.Time      `json:"starts_at,omitempty"`
	EndsAt   *time.Time      `json:"ends_at,omitempty"`
	Active   bool            `json:"active"`
}

// ActiveAt reports whether the adjustment applies at the given instant:
// the active flag is set and asOf falls inside the inclusive window.
func (a *Adjustment) ActiveAt(asOf time.Time) bool {
	if !a.Active {
		return false
	}
	if a.StartsAt != nil && asOf.Before(*a.StartsAt) {
		return false
	}
	if a.EndsAt != nil && asOf.After(*a.EndsAt) {
		return false
	}
	return true
}

// Validate checks structural validity. Negative values are permitted on
// purpose: a negative discount behaves as a surcharge.
func (a *Adjustment) Validate() error {
	if a.AgencyID == "" {
		return fmt.Errorf("adjust: agency_id is required")
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("adjust: unknown kind %q", a.Kind)
	}
	switch m := a.Mode.(type) {
	case Percent:
	case Fixed:
		if m.Amount.Currency == "" {
			return fmt.Errorf("adjust: fixed mode requires a currency")
		}
	default:
		return fmt.Errorf("adjust: mode is required")
	}
	if a.StartsAt != nil && a.EndsAt != nil && a.EndsAt.Before(*a.StartsAt) {
		return fmt.Errorf("adjust: ends_at precedes starts_at")
	}
	return nil
}

// ModeName returns the wire name of the mode variant.
func ModeName(m Mode) string {
	switch m.(type) {
	case Percent:
		return "percent"
	case Fixed:
		return "fixed"
	default:
		return ""
	}
}

// ModeColumns flattens a Mode for storage: the variant name, the numeric
// value (basis points or smallest currency unit), and the currency
// (empty for percent).
func ModeColumns(m Mode) (mode string, value int64, currency string) {
	switch v := m.(type) {
	case Percent:
		return "percent", v.BasisPoints, ""
	case Fixed:
		return "fixed", v.Amount.Amount, v.Amount.Currency
	default:
		return "", 0, ""
	}
}

// ModeFromColumns rebuilds a Mode from its flattened storage form.
func ModeFromColumns(mode string, value int64, currency string) (Mode, error) {
	switch mode {
	case "percent":
		return Percent{BasisPoints: value}, nil
	case "fixed":
		return Fixed{Amount: types.New(value, currency)}, nil
	default:
		return nil, fmt.Errorf("adjust: unknown mode %q", mode)
	}
}

// modeEnvelope is the JSON form of a Mode.
type modeEnvelope struct {
	Mode        string       `json:"mode"`
	BasisPoints int64        `json:"basis_points,omitempty"`
	Amount      *types.Money `json:"amount,omitempty"`
}

// adjustmentJSON mirrors Adjustment with the mode flattened into an envelope.
type adjustmentJSON struct {
	types.Entity
	ID       id.AdjustmentID `json:"id"`
	AgencyID string          `json:"agency_id"`
	Kind     Kind            `json:"kind"`
	modeEnvelope
	Label    string     `json:"label,omitempty"`
	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`
	Active   bool       `json:"active"`
}

// MarshalJSON implements json.Marshaler.
func (a Adjustment) MarshalJSON() ([]byte, error) {
	out := adjustmentJSON{
		Entity:   a.Entity,
		ID:       a.ID,
		AgencyID: a.AgencyID,
		Kind:     a.Kind,
		Label:    a.Label,
		StartsAt: a.StartsAt,
		EndsAt:   a.EndsAt,
		Active:   a.Active,
	}
	switch m := a.Mode.(type) {
	case Percent:
		out.Mode = "percent"
		out.BasisPoints = m.BasisPoints
	case Fixed:
		out.Mode = "fixed"
		amount := m.Amount
		out.Amount = &amount
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Adjustment) UnmarshalJSON(data []byte) error {
	var in adjustmentJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	a.Entity = in.Entity
	a.ID = in.ID
	a.AgencyID = in.AgencyID
	a.Kind = in.Kind
	a.Label = in.Label
	a.StartsAt = in.StartsAt
	a.EndsAt = in.EndsAt
	a.Active = in.Active

	switch in.Mode {
	case "percent":
		a.Mode = Percent{BasisPoints: in.BasisPoints}
	case "fixed":
		if in.Amount == nil {
			return fmt.Errorf("adjust: fixed mode without amount")
		}
		a.Mode = Fixed{Amount: *in.Amount}
	case "":
		a.Mode = nil
	default:
		return fmt.Errorf("adjust: unknown mode %q", in.Mode)
	}
	return nil
}

// ListOpts filters adjustment listings.
type ListOpts struct {
	Kind       Kind
	ActiveOnly bool
	Limit      int
	Offset     int
}

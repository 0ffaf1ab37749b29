// Package id defines TypeID-based identity types for all Tally entities.
//
// Every entity in Tally uses a single ID struct with a prefix that identifies
// the entity type. IDs are K-sortable (UUIDv7-based), globally unique,
// and URL-safe in the format "prefix_suffix". K-sortability is what makes
// ID-based cursor pagination equivalent to creation-order pagination.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all Tally entity types.
const (
	PrefixBillingConfig     Prefix = "bcfg" // Per-agency billing configuration
	PrefixAdjustment        Prefix = "adj"  // Discount/tax adjustment rule
	PrefixCharge            Prefix = "chg"  // Recurring or extra charge
	PrefixAccount           Prefix = "acct" // Cash/bank account
	PrefixOpeningBalance    Prefix = "obal" // Account opening balance anchor
	PrefixAccountAudit      Prefix = "aud"  // Reconciliation audit record
	PrefixAccountAdjustment Prefix = "aadj" // Compensating ledger correction
	PrefixPeriodLock        Prefix = "plk"  // Frozen (agency, year, month)
)

// ID is the primary identifier type for all Tally entities.
// It wraps a TypeID providing a prefix-qualified, globally unique,
// sortable, URL-safe identifier in the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new globally unique ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "chg_01h2xcejqtf2nbrexx3vqjhp41")
// into an ID. Returns an error if the string is not valid.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// ──────────────────────────────────────────────────
// Type aliases per entity
// ──────────────────────────────────────────────────

// BillingConfigID is a type-safe identifier for billing configs (prefix: "bcfg").
type BillingConfigID = ID

// AdjustmentID is a type-safe identifier for adjustments (prefix: "adj").
type AdjustmentID = ID

// ChargeID is a type-safe identifier for charges (prefix: "chg").
type ChargeID = ID

// AccountID is a type-safe identifier for accounts (prefix: "acct").
type AccountID = ID

// OpeningBalanceID is a type-safe identifier for opening balances (prefix: "obal").
type OpeningBalanceID = ID

// AccountAuditID is a type-safe identifier for audits (prefix: "aud").
type AccountAuditID = ID

// AccountAdjustmentID is a type-safe identifier for account adjustments (prefix: "aadj").
type AccountAdjustmentID = ID

// PeriodLockID is a type-safe identifier for period locks (prefix: "plk").
type PeriodLockID = ID

// AnyID is a type alias that accepts any valid prefix.
type AnyID = ID

// ──────────────────────────────────────────────────
// Convenience constructors
// ──────────────────────────────────────────────────

// NewBillingConfigID generates a new unique billing config ID.
func NewBillingConfigID() ID { return New(PrefixBillingConfig) }

// NewAdjustmentID generates a new unique adjustment ID.
func NewAdjustmentID() ID { return New(PrefixAdjustment) }

// NewChargeID generates a new unique charge ID.
func NewChargeID() ID { return New(PrefixCharge) }

// NewAccountID generates a new unique account ID.
func NewAccountID() ID { return New(PrefixAccount) }

// NewOpeningBalanceID generates a new unique opening balance ID.
func NewOpeningBalanceID() ID { return New(PrefixOpeningBalance) }

// NewAccountAuditID generates a new unique audit ID.
func NewAccountAuditID() ID { return New(PrefixAccountAudit) }

// NewAccountAdjustmentID generates a new unique account adjustment ID.
func NewAccountAdjustmentID() ID { return New(PrefixAccountAdjustment) }

// NewPeriodLockID generates a new unique period lock ID.
func NewPeriodLockID() ID { return New(PrefixPeriodLock) }

// ──────────────────────────────────────────────────
// Convenience parsers
// ──────────────────────────────────────────────────

// ParseBillingConfigID parses a string and validates the "bcfg" prefix.
func ParseBillingConfigID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBillingConfig) }

// ParseAdjustmentID parses a string and validates the "adj" prefix.
func ParseAdjustmentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAdjustment) }

// ParseChargeID parses a string and validates the "chg" prefix.
func ParseChargeID(s string) (ID, error) { return ParseWithPrefix(s, PrefixCharge) }

// ParseAccountID parses a string and validates the "acct" prefix.
func ParseAccountID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAccount) }

// ParseOpeningBalanceID parses a string and validates the "obal" prefix.
func ParseOpeningBalanceID(s string) (ID, error) { return ParseWithPrefix(s, PrefixOpeningBalance) }

// ParseAccountAuditID parses a string and validates the "aud" prefix.
func ParseAccountAuditID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAccountAudit) }

// ParseAccountAdjustmentID parses a string and validates the "aadj" prefix.
func ParseAccountAdjustmentID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAccountAdjustment) }

// ParsePeriodLockID parses a string and validates the "plk" prefix.
func ParsePeriodLockID(s string) (ID, error) { return ParseWithPrefix(s, PrefixPeriodLock) }

// ParseAny parses a string into an ID without type checking the prefix.
func ParseAny(s string) (ID, error) { return Parse(s) }

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional foreign key columns store NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}

package tally

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the engine. Store drivers translate their
// backend errors into these so callers can branch without knowing the
// driver.
var (
	ErrConfigNotFound     = errors.New("tally: billing config not found")
	ErrAdjustmentNotFound = errors.New("tally: adjustment not found")
	ErrChargeNotFound     = errors.New("tally: charge not found")
	ErrAccountNotFound    = errors.New("tally: account not found")
	ErrAuditNotFound      = errors.New("tally: audit not found")
	ErrLockNotFound       = errors.New("tally: period lock not found")

	// ErrPeriodLocked rejects any mutation whose effective date falls
	// in a locked month.
	ErrPeriodLocked = errors.New("tally: period is locked")

	// ErrAlreadyLocked rejects locking a month twice.
	ErrAlreadyLocked = errors.New("tally: period already locked")

	// ErrAlreadyExists rejects creating a record whose ID is taken.
	ErrAlreadyExists = errors.New("tally: already exists")

	// ErrCurrencyMismatch rejects operations whose currency conflicts
	// with the target record's currency.
	ErrCurrencyMismatch = errors.New("tally: currency mismatch")

	// ErrAlreadyPaid rejects recording a payment on a paid charge.
	ErrAlreadyPaid = errors.New("tally: charge already paid")

	// ErrPermissionDenied is returned when the acting user fails a
	// feature-gate check.
	ErrPermissionDenied = errors.New("tally: permission denied")

	// ErrNoReplayer is returned by reconciliation operations when the
	// engine was built without a ledger replayer.
	ErrNoReplayer = errors.New("tally: no replayer configured")
)

// ValidationError wraps a field-level rejection of caller input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("tally: validation: %v", e.Err)
	}
	return fmt.Sprintf("tally: validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func validationErr(field, format string, args ...any) error {
	return &ValidationError{Field: field, Err: fmt.Errorf(format, args...)}
}

// IsNotFound reports whether err is any of the engine's not-found
// sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound) ||
		errors.Is(err, ErrAdjustmentNotFound) ||
		errors.Is(err, ErrChargeNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrAuditNotFound) ||
		errors.Is(err, ErrLockNotFound)
}

// IsLocked reports whether err means the targeted month is frozen.
func IsLocked(err error) bool {
	return errors.Is(err, ErrPeriodLocked)
}

// IsConflict reports whether err is a state conflict the caller can
// resolve by re-reading (double lock, double payment).
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyLocked) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsValidation reports whether err is a rejection of caller input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

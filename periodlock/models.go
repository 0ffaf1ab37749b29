// Package periodlock freezes completed billing months against further
// mutation.
package periodlock

import (
	"fmt"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Lock marks one (agency, year, month) as closed. While a lock exists
// every mutation whose effective date falls inside the month is
// rejected.
type Lock struct {
	types.Entity
	ID       id.PeriodLockID `json:"id"`
	AgencyID string          `json:"agency_id"`
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
	LockedBy string          `json:"locked_by,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// Validate checks structural validity of a lock.
func (l *Lock) Validate() error {
	if l.AgencyID == "" {
		return fmt.Errorf("periodlock: lock requires an agency")
	}
	if l.Year < 2000 || l.Year > 2200 {
		return fmt.Errorf("periodlock: implausible year %d", l.Year)
	}
	if l.Month < time.January || l.Month > time.December {
		return fmt.Errorf("periodlock: invalid month %d", l.Month)
	}
	return nil
}

// Covers reports whether the lock's month contains t.
func (l *Lock) Covers(t time.Time) bool {
	return t.Year() == l.Year && t.Month() == l.Month
}

// Key identifies a lockable month for in-process serialization.
type Key struct {
	Scope string // agency or account id
	Year  int
	Month time.Month
}

// KeyOf builds the serialization key for an agency month.
func KeyOf(scope string, year int, month time.Month) Key {
	return Key{Scope: scope, Year: year, Month: month}
}

// ListOpts filters lock listings.
type ListOpts struct {
	Year   int
	Limit  int
	Offset int
}

// Package stats builds read-side billing rollups: totals, MRR estimate,
// plan mix, top-outstanding agencies, and recent payments.
package stats

import (
	"fmt"
	"time"

	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

// Range selects the reporting window for a rollup.
type Range string

const (
	RangeMonth   Range = "month"
	RangeQuarter Range = "quarter"
	RangeYTD     Range = "ytd"
	RangeAll     Range = "all"
)

// Valid reports whether r names a known range.
func (r Range) Valid() bool {
	switch r {
	case RangeMonth, RangeQuarter, RangeYTD, RangeAll:
		return true
	}
	return false
}

// Bounds resolves the range to a half-open [start, end) window anchored
// at asOf. RangeAll returns zero times, which callers treat as
// unbounded.
func (r Range) Bounds(asOf time.Time) (start, end time.Time, err error) {
	asOf = asOf.UTC()
	switch r {
	case RangeMonth:
		start = time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	case RangeQuarter:
		qStart := time.Month((int(asOf.Month())-1)/3*3 + 1)
		start = time.Date(asOf.Year(), qStart, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0), nil
	case RangeYTD:
		start = time.Date(asOf.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), nil
	case RangeAll:
		return time.Time{}, time.Time{}, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("stats: unknown range %q", r)
}

// Totals is the headline money rollup of a report. All values are USD.
type Totals struct {
	Billed      types.Money `json:"billed_usd"`
	Paid        types.Money `json:"paid_usd"`
	Outstanding types.Money `json:"outstanding_usd"`
	MRREstimate types.Money `json:"mrr_estimate_usd"`
}

// PlanMix counts agencies per tier, plus those with no billing config.
type PlanMix struct {
	ByTier       map[plan.Tier]int `json:"by_tier"`
	Unconfigured int               `json:"unconfigured"`
}

// OutstandingAgency is one row of the top-outstanding leaderboard.
type OutstandingAgency struct {
	AgencyID    string      `json:"agency_id"`
	AgencyName  string      `json:"agency_name,omitempty"`
	Outstanding types.Money `json:"outstanding_usd"`
	Charges     int         `json:"charges"`
}

// RecentPayment is one row of the recent-payments feed.
type RecentPayment struct {
	ChargeID     string      `json:"charge_id"`
	AgencyID     string      `json:"agency_id"`
	Label        string      `json:"label,omitempty"`
	PaidAt       time.Time   `json:"paid_at"`
	PaidAmount   types.Money `json:"paid_amount"`
	PaidEstimate types.Money `json:"paid_usd_estimate"`
}

// Report is a complete rollup for one range. It has no side effects and
// is fully reproducible from its inputs and the asOf instant.
type Report struct {
	Range          Range               `json:"range"`
	AsOf           time.Time           `json:"as_of"`
	Start          time.Time           `json:"start,omitempty"`
	End            time.Time           `json:"end,omitempty"`
	Totals         Totals              `json:"totals"`
	PlanMix        PlanMix             `json:"plan_mix"`
	TopOutstanding []OutstandingAgency `json:"top_outstanding"`
	RecentPayments []RecentPayment     `json:"recent_payments"`
}

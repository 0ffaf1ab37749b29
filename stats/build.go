package stats

import (
	"sort"
	"time"

	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

const (
	// TopOutstandingLimit bounds the outstanding-agencies leaderboard.
	TopOutstandingLimit = 5
	// RecentPaymentsLimit bounds the recent-payments feed.
	RecentPaymentsLimit = 10
)

// Input carries the snapshots a report is derived from. AgencyNames
// lists every known agency; agencies present here but absent from
// Configs count as unconfigured in the plan mix.
type Input struct {
	Charges     []*charge.Charge
	Configs     []*plan.Config
	Adjustments map[string][]*adjust.Adjustment
	AgencyNames map[string]string
}

// Build computes a complete report for the range anchored at asOf. It
// is pure: same inputs and asOf, same report.
func Build(in Input, rng Range, asOf time.Time) (*Report, error) {
	start, end, err := rng.Bounds(asOf)
	if err != nil {
		return nil, err
	}
	window := charge.ListOpts{Start: start, End: end}

	report := &Report{
		Range: rng,
		AsOf:  asOf,
		Start: start,
		End:   end,
		Totals: Totals{
			Billed:      types.USD(0),
			Paid:        types.USD(0),
			Outstanding: types.USD(0),
			MRREstimate: types.USD(0),
		},
		PlanMix:        PlanMix{ByTier: make(map[plan.Tier]int)},
		TopOutstanding: []OutstandingAgency{},
		RecentPayments: []RecentPayment{},
	}

	outstanding := make(map[string]*OutstandingAgency)
	var paid []*charge.Charge
	for _, c := range in.Charges {
		inRange := window.InRange(c)
		if inRange {
			report.Totals.Billed = report.Totals.Billed.Add(c.Total)
		}
		if c.Status == charge.StatusPaid {
			paid = append(paid, c)
			paidAt := c.PaidAtOrCreated()
			if window.Start.IsZero() || (!paidAt.Before(window.Start) && paidAt.Before(window.End)) {
				report.Totals.Paid = report.Totals.Paid.Add(c.PaidUSDEstimate())
			}
			continue
		}
		if inRange {
			report.Totals.Outstanding = report.Totals.Outstanding.Add(c.Total)
			row, ok := outstanding[c.AgencyID]
			if !ok {
				row = &OutstandingAgency{
					AgencyID:    c.AgencyID,
					AgencyName:  in.AgencyNames[c.AgencyID],
					Outstanding: types.USD(0),
				}
				outstanding[c.AgencyID] = row
			}
			row.Outstanding = row.Outstanding.Add(c.Total)
			row.Charges++
		}
	}

	// MRR: what each configured agency would be charged today.
	for _, cfg := range in.Configs {
		report.PlanMix.ByTier[cfg.Tier]++
		base := plan.Quote(cfg.Tier, cfg.BilledUsers).Total
		res := adjust.Apply(base, in.Adjustments[cfg.AgencyID], asOf)
		report.Totals.MRREstimate = report.Totals.MRREstimate.Add(res.Net)
	}
	configured := make(map[string]bool, len(in.Configs))
	for _, cfg := range in.Configs {
		configured[cfg.AgencyID] = true
	}
	for agencyID := range in.AgencyNames {
		if !configured[agencyID] {
			report.PlanMix.Unconfigured++
		}
	}

	rows := make([]OutstandingAgency, 0, len(outstanding))
	for _, row := range outstanding {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Outstanding.Amount != rows[j].Outstanding.Amount {
			return rows[i].Outstanding.Amount > rows[j].Outstanding.Amount
		}
		return rows[i].AgencyID < rows[j].AgencyID
	})
	if len(rows) > TopOutstandingLimit {
		rows = rows[:TopOutstandingLimit]
	}
	report.TopOutstanding = rows

	sort.Slice(paid, func(i, j int) bool {
		return paid[i].PaidAtOrCreated().After(paid[j].PaidAtOrCreated())
	})
	if len(paid) > RecentPaymentsLimit {
		paid = paid[:RecentPaymentsLimit]
	}
	for _, c := range paid {
		rp := RecentPayment{
			ChargeID:     c.ID.String(),
			AgencyID:     c.AgencyID,
			Label:        c.Label,
			PaidAt:       c.PaidAtOrCreated(),
			PaidEstimate: c.PaidUSDEstimate(),
		}
		if c.Payment != nil {
			rp.PaidAmount = c.Payment.Amount
		}
		report.RecentPayments = append(report.RecentPayments, rp)
	}

	return report, nil
}

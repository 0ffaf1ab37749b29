package stats

import (
	"testing"
	"time"

	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

func TestRangeBounds(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		rng        Range
		start, end time.Time
	}{
		{RangeMonth, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)},
		{RangeQuarter, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{RangeYTD, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(string(tc.rng), func(t *testing.T) {
			start, end, err := tc.rng.Bounds(asOf)
			if err != nil {
				t.Fatal(err)
			}
			if !start.Equal(tc.start) || !end.Equal(tc.end) {
				t.Errorf("bounds = [%s, %s), want [%s, %s)", start, end, tc.start, tc.end)
			}
		})
	}

	t.Run("all is unbounded", func(t *testing.T) {
		start, end, err := RangeAll.Bounds(asOf)
		if err != nil {
			t.Fatal(err)
		}
		if !start.IsZero() || !end.IsZero() {
			t.Errorf("RangeAll bounds should be zero, got [%s, %s)", start, end)
		}
	})

	t.Run("unknown range errors", func(t *testing.T) {
		if _, _, err := Range("fortnight").Bounds(asOf); err == nil {
			t.Error("expected error for unknown range")
		}
	})
}

func paidCharge(agencyID string, total int64, paidAt time.Time) *charge.Charge {
	c := charge.NewExtra(agencyID, "setup", types.USD(total), types.USD(0))
	// Pin the effective date; extra charges key off their creation
	// time, and the fixture must not depend on the wall clock.
	c.CreatedAt = paidAt
	c.MarkPaid(charge.Payment{Amount: types.USD(total), PaidAt: paidAt})
	return c
}

func TestBuildTotals(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	aug := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	may := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	pending := charge.NewRecurring("ag-1", &charge.Period{
		Start: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
	}, types.USD(9_000), types.USD(-900))

	in := Input{
		Charges: []*charge.Charge{
			pending,                           // 8100 outstanding in August
			paidCharge("ag-2", 5_000, aug),    // paid inside the month
			paidCharge("ag-2", 12_000, may),   // paid outside the month
		},
		AgencyNames: map[string]string{"ag-1": "North", "ag-2": "South"},
	}

	t.Run("month", func(t *testing.T) {
		rep, err := Build(in, RangeMonth, asOf)
		if err != nil {
			t.Fatal(err)
		}
		// Billed counts charges whose effective date intersects the
		// month: the pending recurring charge and the August payment.
		if got := rep.Totals.Billed.Amount; got != 8_100+5_000 {
			t.Errorf("billed = %d, want 13100", got)
		}
		if got := rep.Totals.Paid.Amount; got != 5_000 {
			t.Errorf("paid = %d, want 5000", got)
		}
		if got := rep.Totals.Outstanding.Amount; got != 8_100 {
			t.Errorf("outstanding = %d, want 8100", got)
		}
	})

	t.Run("all", func(t *testing.T) {
		rep, err := Build(in, RangeAll, asOf)
		if err != nil {
			t.Fatal(err)
		}
		if got := rep.Totals.Paid.Amount; got != 17_000 {
			t.Errorf("paid = %d, want 17000", got)
		}
	})
}

func TestBuildMRRAndPlanMix(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	in := Input{
		Configs: []*plan.Config{
			{AgencyID: "ag-1", Tier: plan.TierBasic, BilledUsers: 3},
			{AgencyID: "ag-2", Tier: plan.TierBasic, BilledUsers: 3},
		},
		Adjustments: map[string][]*adjust.Adjustment{
			// 10% discount on ag-2 only.
			"ag-2": {{
				Kind:   adjust.KindDiscount,
				Mode:   adjust.Percent{BasisPoints: 1000},
				Active: true,
			}},
		},
		AgencyNames: map[string]string{"ag-1": "North", "ag-2": "South", "ag-3": "West"},
	}

	rep, err := Build(in, RangeAll, asOf)
	if err != nil {
		t.Fatal(err)
	}

	base := plan.Quote(plan.TierBasic, 3).Total.Amount
	want := base + (base - base/10)
	if got := rep.Totals.MRREstimate.Amount; got != want {
		t.Errorf("mrr = %d, want %d", got, want)
	}
	if got := rep.PlanMix.ByTier[plan.TierBasic]; got != 2 {
		t.Errorf("basic count = %d, want 2", got)
	}
	if rep.PlanMix.Unconfigured != 1 {
		t.Errorf("unconfigured = %d, want 1", rep.PlanMix.Unconfigured)
	}
}

func TestBuildTopOutstanding(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	var charges []*charge.Charge
	names := map[string]string{}
	// Seven agencies with distinct outstanding totals; only five rows
	// should survive, largest first.
	for i := 1; i <= 7; i++ {
		agency := string(rune('a' + i - 1))
		names[agency] = "Agency " + agency
		charges = append(charges, charge.NewExtra(agency, "work", types.USD(int64(i)*1_000), types.USD(0)))
	}
	rep, err := Build(Input{Charges: charges, AgencyNames: names}, RangeAll, asOf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.TopOutstanding) != TopOutstandingLimit {
		t.Fatalf("rows = %d, want %d", len(rep.TopOutstanding), TopOutstandingLimit)
	}
	if rep.TopOutstanding[0].Outstanding.Amount != 7_000 {
		t.Errorf("top row = %d, want 7000", rep.TopOutstanding[0].Outstanding.Amount)
	}
	if rep.TopOutstanding[0].AgencyName != "Agency g" {
		t.Errorf("top row name = %q", rep.TopOutstanding[0].AgencyName)
	}
	for i := 1; i < len(rep.TopOutstanding); i++ {
		if rep.TopOutstanding[i].Outstanding.Amount > rep.TopOutstanding[i-1].Outstanding.Amount {
			t.Errorf("rows not sorted descending at %d", i)
		}
	}
}

func TestBuildRecentPayments(t *testing.T) {
	asOf := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	var charges []*charge.Charge
	for day := 1; day <= 14; day++ {
		paidAt := time.Date(2026, 8, day, 12, 0, 0, 0, time.UTC)
		charges = append(charges, paidCharge("ag-1", int64(day)*100, paidAt))
	}
	// ARS payment without a usable rate falls back to the charge total.
	ars := charge.NewExtra("ag-2", "hosting", types.USD(4_200), types.USD(0))
	ars.MarkPaid(charge.Payment{
		Amount: types.ARS(4_000_000),
		PaidAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	})
	charges = append(charges, ars)

	rep, err := Build(Input{Charges: charges}, RangeAll, asOf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.RecentPayments) != RecentPaymentsLimit {
		t.Fatalf("rows = %d, want %d", len(rep.RecentPayments), RecentPaymentsLimit)
	}
	if rep.RecentPayments[0].AgencyID != "ag-2" {
		t.Errorf("newest payment should lead, got agency %q", rep.RecentPayments[0].AgencyID)
	}
	if rep.RecentPayments[0].PaidEstimate.Amount != 4_200 {
		t.Errorf("fallback estimate = %d, want 4200", rep.RecentPayments[0].PaidEstimate.Amount)
	}
	for i := 1; i < len(rep.RecentPayments); i++ {
		if rep.RecentPayments[i].PaidAt.After(rep.RecentPayments[i-1].PaidAt) {
			t.Errorf("payments not sorted newest-first at %d", i)
		}
	}
}

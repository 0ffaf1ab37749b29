package charge

import (
	"testing"
	"time"

	"github.com/xraph/tally/types"
)

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name        string
		base        types.Money
		adjustments types.Money
		want        types.Money
	}{
		{"no adjustments", types.USD(10000), types.USD(0), types.USD(10000)},
		{"net discount", types.USD(10000), types.USD(-1000), types.USD(9000)},
		{"net tax", types.USD(10000), types.USD(890), types.USD(10890)},
		{"discount exceeding base clamps", types.USD(10000), types.USD(-15000), types.USD(0)},
		{"mixed currencies keep the base", types.ARS(10000), types.Zero("usd"), types.ARS(10000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTotal(tt.base, tt.adjustments); !got.Equal(tt.want) {
				t.Errorf("ComputeTotal: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConstructorsEnforceVariants(t *testing.T) {
	period := &Period{
		Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC),
	}

	rec := NewRecurring("ag_1", period, types.USD(10000), types.USD(-1000))
	if rec.Kind != KindRecurring || rec.Label != "" || rec.Period == nil {
		t.Errorf("recurring variant malformed: %+v", rec)
	}
	if rec.Status != StatusPending {
		t.Errorf("new charge should be pending, got %q", rec.Status)
	}
	if !rec.Total.Equal(types.USD(9000)) {
		t.Errorf("Total: got %v, want %v", rec.Total, types.USD(9000))
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("valid recurring charge rejected: %v", err)
	}

	ext := NewExtra("ag_1", "setup fee", types.USD(5000), types.USD(0))
	if ext.Kind != KindExtra || ext.Period != nil || ext.Label != "setup fee" {
		t.Errorf("extra variant malformed: %+v", ext)
	}
	if err := ext.Validate(); err != nil {
		t.Errorf("valid extra charge rejected: %v", err)
	}
}

func TestValidateRejectsCrossVariantFields(t *testing.T) {
	period := &Period{Start: time.Now(), End: time.Now().Add(time.Hour)}

	rec := NewRecurring("ag_1", period, types.USD(100), types.USD(0))
	rec.Label = "sneaky"
	if err := rec.Validate(); err == nil {
		t.Error("recurring charge with label should be rejected")
	}

	ext := NewExtra("ag_1", "fee", types.USD(100), types.USD(0))
	ext.Period = period
	if err := ext.Validate(); err == nil {
		t.Error("extra charge with period should be rejected")
	}

	nonUSD := NewExtra("ag_1", "fee", types.ARS(100), types.Zero("usd"))
	if err := nonUSD.Validate(); err == nil {
		t.Error("non-USD base amount should be rejected")
	}

	mixed := NewExtra("ag_1", "fee", types.USD(100), types.Zero("eur"))
	if err := mixed.Validate(); err == nil {
		t.Error("non-USD adjustments total should be rejected")
	}
}

func TestMarkPaid(t *testing.T) {
	c := NewExtra("ag_1", "fee", types.USD(5000), types.USD(0))
	paidAt := time.Date(2024, time.April, 2, 10, 0, 0, 0, time.UTC)

	c.MarkPaid(Payment{Amount: types.USD(5000), PaidAt: paidAt, Method: "transfer"})

	if c.Status != StatusPaid {
		t.Errorf("status: got %q, want paid", c.Status)
	}
	if c.Payment == nil || !c.Payment.PaidAt.Equal(paidAt) {
		t.Errorf("payment not recorded: %+v", c.Payment)
	}
}

func TestPaidUSDEstimate(t *testing.T) {
	tests := []struct {
		name    string
		payment *Payment
		total   types.Money
		want    types.Money
	}{
		{"unpaid", nil, types.USD(5000), types.USD(0)},
		{
			"usd payment as entered",
			&Payment{Amount: types.USD(4800)},
			types.USD(5000),
			types.USD(4800),
		},
		{
			// 1000 ARS at 500 ARS/USD -> $2.00
			"ars converted at rate",
			&Payment{Amount: types.ARS(100000), FXRate: types.NewRate(500)},
			types.USD(5000),
			types.USD(200),
		},
		{
			"ars without rate falls back to total",
			&Payment{Amount: types.ARS(100000)},
			types.USD(5000),
			types.USD(5000),
		},
		{
			"non-positive rate falls back to total",
			&Payment{Amount: types.ARS(100000), FXRate: types.Rate(-1)},
			types.USD(5000),
			types.USD(5000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewExtra("ag_1", "fee", types.USD(5000), types.USD(0))
			c.Total = tt.total
			c.Payment = tt.payment
			if got := c.PaidUSDEstimate(); !got.Equal(tt.want) {
				t.Errorf("PaidUSDEstimate: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectiveDate(t *testing.T) {
	period := &Period{
		Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	}

	rec := NewRecurring("ag_1", period, types.USD(100), types.USD(0))
	if !rec.EffectiveDate().Equal(period.Start) {
		t.Errorf("recurring effective date: got %v, want period start", rec.EffectiveDate())
	}

	// Recurring with no period falls back to creation time.
	recNoPeriod := NewRecurring("ag_1", nil, types.USD(100), types.USD(0))
	if !recNoPeriod.EffectiveDate().Equal(recNoPeriod.CreatedAt) {
		t.Error("recurring without period should fall back to created_at")
	}

	ext := NewExtra("ag_1", "fee", types.USD(100), types.USD(0))
	if !ext.EffectiveDate().Equal(ext.CreatedAt) {
		t.Error("extra effective date should be created_at")
	}
}

func TestListOptsInRange(t *testing.T) {
	period := &Period{
		Start: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
	c := NewRecurring("ag_1", period, types.USD(100), types.USD(0))

	march := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"open range", time.Time{}, time.Time{}, true},
		{"inside", march, april, true},
		{"start inclusive", period.Start, april, true},
		{"end exclusive", march, period.Start, false},
		{"before range", april, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := ListOpts{Start: tt.start, End: tt.end}
			if got := opts.InRange(c); got != tt.want {
				t.Errorf("InRange: got %v, want %v", got, tt.want)
			}
		})
	}
}

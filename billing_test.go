package tally_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/adjust"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

// testNow pins the engine clock so quotes, defaults, and rollup windows
// are reproducible.
var testNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts ...tally.Option) *tally.Engine {
	t.Helper()
	opts = append([]tally.Option{
		tally.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tally.WithClock(func() time.Time { return testNow }),
	}, opts...)

	e := tally.New(memory.New(), opts...)
	if err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func seedConfig(t *testing.T, e *tally.Engine, agencyID string, tier plan.Tier, billedUsers int) *plan.Config {
	t.Helper()
	cfg := &plan.Config{
		AgencyID:     agencyID,
		Tier:         tier,
		BilledUsers:  billedUsers,
		Currency:     "usd",
		PlanStartsAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := e.UpsertBillingConfig(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func seedDiscount(t *testing.T, e *tally.Engine, agencyID string, basisPoints int64) *adjust.Adjustment {
	t.Helper()
	a := &adjust.Adjustment{
		AgencyID: agencyID,
		Kind:     adjust.KindDiscount,
		Mode:     adjust.Percent{BasisPoints: basisPoints},
		Active:   true,
	}
	if err := e.CreateAdjustment(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func TestUpsertBillingConfigCreatesThenUpdates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	seedConfig(t, e, "ag_1", plan.TierBasic, 3)

	first, err := e.GetBillingConfig(ctx, "ag_1")
	if err != nil {
		t.Fatal(err)
	}
	if first.ID.IsNil() {
		t.Fatal("config ID not assigned on create")
	}

	// A plan change overwrites in place; the ID and creation time
	// survive.
	if err := e.UpsertBillingConfig(ctx, &plan.Config{
		AgencyID:    "ag_1",
		Tier:        plan.TierStandard,
		BilledUsers: 12,
		Currency:    "usd",
	}); err != nil {
		t.Fatal(err)
	}

	second, err := e.GetBillingConfig(ctx, "ag_1")
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on upsert: %v -> %v", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert: %v -> %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Tier != plan.TierStandard || second.BilledUsers != 12 {
		t.Errorf("update not applied: tier=%v users=%d", second.Tier, second.BilledUsers)
	}

	configs, err := e.ListBillingConfigs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(configs) != 1 {
		t.Errorf("ListBillingConfigs = %d configs, want 1", len(configs))
	}
}

func TestUpsertBillingConfigValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  *plan.Config
	}{
		{"missing agency", &plan.Config{Tier: plan.TierBasic}},
		{"unknown tier", &plan.Config{AgencyID: "ag_1", Tier: "platinum"}},
		{"negative users", &plan.Config{AgencyID: "ag_1", Tier: plan.TierBasic, BilledUsers: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.UpsertBillingConfig(ctx, tt.cfg)
			var verr *tally.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("UpsertBillingConfig = %v, want ValidationError", err)
			}
		})
	}
}

func TestQuoteMonthlyCharge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// basic, 3 users: 25.00 base + 4.50 infra = 29.50; VAT 21% = 6.20.
	seedConfig(t, e, "ag_1", plan.TierBasic, 3)

	q, err := e.QuoteMonthlyCharge(ctx, "ag_1", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Breakdown.Subtotal.Equal(types.USD(2950)) {
		t.Errorf("Subtotal = %v, want $29.50", q.Breakdown.Subtotal)
	}
	if !q.Breakdown.VAT.Equal(types.USD(620)) {
		t.Errorf("VAT = %v, want $6.20", q.Breakdown.VAT)
	}
	if !q.Total.Equal(types.USD(3570)) {
		t.Errorf("Total = %v, want $35.70", q.Total)
	}
	if q.OverSoftLimit {
		t.Error("OverSoftLimit = true without a soft limit")
	}

	// A 10% discount nets 35.70 down by 3.57.
	seedDiscount(t, e, "ag_1", 1000)

	q, err = e.QuoteMonthlyCharge(ctx, "ag_1", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Adjustments.DiscountTotal.Equal(types.USD(357)) {
		t.Errorf("DiscountTotal = %v, want $3.57", q.Adjustments.DiscountTotal)
	}
	if !q.Total.Equal(types.USD(3213)) {
		t.Errorf("discounted Total = %v, want $32.13", q.Total)
	}
}

func TestQuoteMonthlyChargeWindowedAdjustment(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// standard, 10 users: 50.00 + 12.00 = 62.00; VAT 13.02; total 75.02.
	seedConfig(t, e, "ag_1", plan.TierStandard, 10)

	start := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.February, 28, 23, 59, 59, 0, time.UTC)
	if err := e.CreateAdjustment(ctx, &adjust.Adjustment{
		AgencyID: "ag_1",
		Kind:     adjust.KindDiscount,
		Mode:     adjust.Percent{BasisPoints: 1000},
		Label:    "February promo",
		StartsAt: &start,
		EndsAt:   &end,
		Active:   true,
	}); err != nil {
		t.Fatal(err)
	}

	inWindow, err := e.QuoteMonthlyCharge(ctx, "ag_1", time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !inWindow.Total.Equal(types.USD(6752)) {
		t.Errorf("February Total = %v, want $67.52", inWindow.Total)
	}

	afterWindow, err := e.QuoteMonthlyCharge(ctx, "ag_1", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !afterWindow.Total.Equal(types.USD(7502)) {
		t.Errorf("March Total = %v, want $75.02 (promo expired)", afterWindow.Total)
	}
}

func TestQuoteMonthlyChargeUnknownAgency(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.QuoteMonthlyCharge(context.Background(), "ag_ghost", testNow)
	if !errors.Is(err, tally.ErrConfigNotFound) {
		t.Errorf("QuoteMonthlyCharge = %v, want ErrConfigNotFound", err)
	}
}

func TestQuoteMonthlyChargeOverSoftLimit(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	limit := 2
	if err := e.UpsertBillingConfig(ctx, &plan.Config{
		AgencyID:      "ag_1",
		Tier:          plan.TierBasic,
		BilledUsers:   3,
		SoftUserLimit: &limit,
		Currency:      "usd",
	}); err != nil {
		t.Fatal(err)
	}

	q, err := e.QuoteMonthlyCharge(ctx, "ag_1", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !q.OverSoftLimit {
		t.Error("OverSoftLimit = false with 3 users over a limit of 2")
	}
}

func TestDeactivateAdjustmentRestoresFullPrice(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	seedConfig(t, e, "ag_1", plan.TierBasic, 3)
	a := seedDiscount(t, e, "ag_1", 1000)

	if err := e.DeactivateAdjustment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	// Deactivating twice is a no-op, not an error.
	if err := e.DeactivateAdjustment(ctx, a.ID); err != nil {
		t.Fatal(err)
	}

	q, err := e.QuoteMonthlyCharge(ctx, "ag_1", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if !q.Total.Equal(types.USD(3570)) {
		t.Errorf("Total after deactivation = %v, want $35.70", q.Total)
	}

	// The rule itself survives for historical recomputation.
	kept, err := e.GetAdjustment(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if kept.Active {
		t.Error("adjustment still active after DeactivateAdjustment")
	}
}

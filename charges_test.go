package tally_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/charge"
	"github.com/xraph/tally/plan"
	"github.com/xraph/tally/types"
)

func TestCreateChargeDefaultsToPending(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	c := charge.NewExtra("ag_1", "Setup fee", types.USD(5000), types.USD(0))
	if err := e.CreateCharge(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := e.GetCharge(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != charge.StatusPending {
		t.Errorf("Status = %v, want pending", got.Status)
	}
	if !got.Total.Equal(types.USD(5000)) {
		t.Errorf("Total = %v, want $50.00", got.Total)
	}
}

func TestCreateChargePaidAtCreation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// A payment attached before creation makes the charge start out
	// paid; the engine clock backfills the payment time.
	c := charge.NewExtra("ag_1", "Onboarding", types.USD(10000), types.USD(0))
	c.Payment = &charge.Payment{Amount: types.USD(10000), Method: "transfer"}
	if err := e.CreateCharge(ctx, c); err != nil {
		t.Fatal(err)
	}

	got, err := e.GetCharge(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != charge.StatusPaid {
		t.Errorf("Status = %v, want paid", got.Status)
	}
	if !got.Payment.PaidAt.Equal(testNow) {
		t.Errorf("PaidAt = %v, want engine clock %v", got.Payment.PaidAt, testNow)
	}
}

func TestCreateChargeValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	bad := charge.NewExtra("ag_1", "ARS base", types.ARS(5000), types.Zero("ars"))
	err := e.CreateCharge(ctx, bad)
	var verr *tally.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("CreateCharge with ARS base = %v, want ValidationError", err)
	}

	// Mixed base/adjustments currencies are a validation failure, not a
	// panic.
	mixed := charge.NewExtra("ag_1", "Mixed", types.USD(5000), types.Zero("ars"))
	if err := e.CreateCharge(ctx, mixed); !errors.As(err, &verr) {
		t.Errorf("CreateCharge with mixed currencies = %v, want ValidationError", err)
	}
}

func TestCreateChargePaidAtCreationChecksAccountCurrency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := &account.Account{AgencyID: "ag_1", Name: "Main USD", Currency: "usd"}
	if err := e.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	// The creation path enforces the fixed-currency restriction the
	// same way RecordPayment does.
	c := charge.NewExtra("ag_1", "Prepaid", types.USD(5000), types.USD(0))
	c.Payment = &charge.Payment{
		Amount:    types.ARS(2500000),
		FXRate:    types.NewRate(500),
		AccountID: acct.ID,
	}
	if err := e.CreateCharge(ctx, c); !errors.Is(err, tally.ErrCurrencyMismatch) {
		t.Fatalf("CreateCharge = %v, want ErrCurrencyMismatch", err)
	}
	if _, err := e.GetCharge(ctx, c.ID); !errors.Is(err, tally.ErrChargeNotFound) {
		t.Errorf("rejected charge was stored: GetCharge = %v, want ErrChargeNotFound", err)
	}

	// A matching currency is accepted.
	ok := charge.NewExtra("ag_1", "Prepaid", types.USD(5000), types.USD(0))
	ok.Payment = &charge.Payment{Amount: types.USD(5000), AccountID: acct.ID}
	if err := e.CreateCharge(ctx, ok); err != nil {
		t.Fatal(err)
	}

	withoutCurrency := charge.NewExtra("ag_1", "Prepaid", types.USD(5000), types.USD(0))
	withoutCurrency.Payment = &charge.Payment{Amount: types.Money{Amount: 5000}}
	var verr *tally.ValidationError
	if err := e.CreateCharge(ctx, withoutCurrency); !errors.As(err, &verr) {
		t.Errorf("CreateCharge with currencyless payment = %v, want ValidationError", err)
	}
}

func TestIssueMonthlyCharge(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	seedConfig(t, e, "ag_1", plan.TierBasic, 3)
	seedDiscount(t, e, "ag_1", 1000)

	c, err := e.IssueMonthlyCharge(ctx, "ag_1", 2026, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind != charge.KindRecurring {
		t.Errorf("Kind = %v, want recurring", c.Kind)
	}
	wantStart := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	if !c.Period.Start.Equal(wantStart) {
		t.Errorf("Period.Start = %v, want %v", c.Period.Start, wantStart)
	}
	if c.Period.End.Month() != time.January || c.Period.End.Day() != 31 {
		t.Errorf("Period.End = %v, want last instant of January", c.Period.End)
	}
	// Base is the full VAT-inclusive price; the discount lands in the
	// signed adjustments total.
	if !c.BaseAmount.Equal(types.USD(3570)) {
		t.Errorf("BaseAmount = %v, want $35.70", c.BaseAmount)
	}
	if !c.AdjustmentsTotal.Equal(types.USD(-357)) {
		t.Errorf("AdjustmentsTotal = %v, want -$3.57", c.AdjustmentsTotal)
	}
	if !c.Total.Equal(types.USD(3213)) {
		t.Errorf("Total = %v, want $32.13", c.Total)
	}

	stored, err := e.GetCharge(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != charge.StatusPending {
		t.Errorf("Status = %v, want pending", stored.Status)
	}
}

func TestRecordPaymentForeignCurrency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	c := charge.NewExtra("ag_1", "Consulting", types.USD(250), types.USD(0))
	if err := e.CreateCharge(ctx, c); err != nil {
		t.Fatal(err)
	}

	// 1000.00 ARS at 500 ARS/USD reports as a 2.00 USD estimate; the
	// stored payment stays exactly as entered.
	paid, err := e.RecordPayment(ctx, c.ID, charge.Payment{
		Amount: types.ARS(100000),
		FXRate: types.NewRate(500),
		PaidAt: testNow,
	})
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != charge.StatusPaid {
		t.Errorf("Status = %v, want paid", paid.Status)
	}
	if !paid.Payment.Amount.Equal(types.ARS(100000)) {
		t.Errorf("stored Amount = %v, want ARS 1000.00 as entered", paid.Payment.Amount)
	}
	if got := paid.PaidUSDEstimate(); !got.Equal(types.USD(200)) {
		t.Errorf("PaidUSDEstimate = %v, want $2.00", got)
	}

	_, err = e.RecordPayment(ctx, c.ID, charge.Payment{Amount: types.USD(250)})
	if !errors.Is(err, tally.ErrAlreadyPaid) {
		t.Errorf("second RecordPayment = %v, want ErrAlreadyPaid", err)
	}
}

func TestRecordPaymentWithoutRateFallsBackToTotal(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	c := charge.NewExtra("ag_1", "Hosting", types.USD(4200), types.USD(0))
	if err := e.CreateCharge(ctx, c); err != nil {
		t.Fatal(err)
	}

	paid, err := e.RecordPayment(ctx, c.ID, charge.Payment{Amount: types.ARS(2100000)})
	if err != nil {
		t.Fatal(err)
	}
	if got := paid.PaidUSDEstimate(); !got.Equal(types.USD(4200)) {
		t.Errorf("PaidUSDEstimate without rate = %v, want charge total $42.00", got)
	}
}

func TestRecordPaymentAccountCurrencyMismatch(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := &account.Account{AgencyID: "ag_1", Name: "Main USD", Currency: "usd"}
	if err := e.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	c := charge.NewExtra("ag_1", "Retainer", types.USD(5000), types.USD(0))
	if err := e.CreateCharge(ctx, c); err != nil {
		t.Fatal(err)
	}

	_, err := e.RecordPayment(ctx, c.ID, charge.Payment{
		Amount:    types.ARS(2500000),
		FXRate:    types.NewRate(500),
		AccountID: acct.ID,
	})
	if !errors.Is(err, tally.ErrCurrencyMismatch) {
		t.Fatalf("RecordPayment = %v, want ErrCurrencyMismatch", err)
	}

	got, err := e.GetCharge(ctx, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != charge.StatusPending {
		t.Errorf("charge status after rejected payment = %v, want pending", got.Status)
	}
}

func TestRecordPaymentRequiresCurrency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	c := charge.NewExtra("ag_1", "Misc", types.USD(100), types.USD(0))
	if err := e.CreateCharge(ctx, c); err != nil {
		t.Fatal(err)
	}

	_, err := e.RecordPayment(ctx, c.ID, charge.Payment{Amount: types.Money{Amount: 100}})
	var verr *tally.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("RecordPayment without currency = %v, want ValidationError", err)
	}
}

func TestChargeMutationsRejectedInLockedMonth(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// A February charge created before the month is frozen.
	existing := charge.NewRecurring("ag_1",
		&charge.Period{
			Start: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, time.February, 28, 23, 59, 59, 0, time.UTC),
		},
		types.USD(3570), types.USD(0))
	if err := e.CreateCharge(ctx, existing); err != nil {
		t.Fatal(err)
	}

	if _, err := e.LockPeriod(ctx, "ag_1", 2026, time.February, "month closed"); err != nil {
		t.Fatal(err)
	}

	late := charge.NewRecurring("ag_1",
		&charge.Period{
			Start: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2026, time.February, 28, 23, 59, 59, 0, time.UTC),
		},
		types.USD(100), types.USD(0))
	if err := e.CreateCharge(ctx, late); !errors.Is(err, tally.ErrPeriodLocked) {
		t.Errorf("CreateCharge in locked month = %v, want ErrPeriodLocked", err)
	}

	// Extra charges key off their creation time.
	extra := charge.NewExtra("ag_1", "Late fee", types.USD(100), types.USD(0))
	extra.CreatedAt = time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	if err := e.CreateCharge(ctx, extra); !errors.Is(err, tally.ErrPeriodLocked) {
		t.Errorf("CreateCharge (extra) in locked month = %v, want ErrPeriodLocked", err)
	}

	_, err := e.RecordPayment(ctx, existing.ID, charge.Payment{Amount: types.USD(3570)})
	if !errors.Is(err, tally.ErrPeriodLocked) {
		t.Errorf("RecordPayment in locked month = %v, want ErrPeriodLocked", err)
	}

	if err := e.DeleteCharge(ctx, existing.ID); !errors.Is(err, tally.ErrPeriodLocked) {
		t.Errorf("DeleteCharge in locked month = %v, want ErrPeriodLocked", err)
	}

	// Other months stay open.
	other := charge.NewExtra("ag_1", "March work", types.USD(100), types.USD(0))
	other.CreatedAt = testNow
	if err := e.CreateCharge(ctx, other); err != nil {
		t.Errorf("CreateCharge in open month = %v, want nil", err)
	}

	// Unlocking reopens the month.
	if err := e.UnlockPeriod(ctx, "ag_1", 2026, time.February); err != nil {
		t.Fatal(err)
	}
	if err := e.DeleteCharge(ctx, existing.ID); err != nil {
		t.Errorf("DeleteCharge after unlock = %v, want nil", err)
	}
	if _, err := e.GetCharge(ctx, existing.ID); !errors.Is(err, tally.ErrChargeNotFound) {
		t.Errorf("GetCharge after delete = %v, want ErrChargeNotFound", err)
	}
}

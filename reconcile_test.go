package tally_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

func seedAccount(t *testing.T, e *tally.Engine, agencyID, name, currency string) *account.Account {
	t.Helper()
	a := &account.Account{AgencyID: agencyID, Name: name, Currency: currency}
	if err := e.CreateAccount(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	return a
}

func seedOpeningBalance(t *testing.T, e *tally.Engine, acct *account.Account, amount types.Money, effective time.Time) {
	t.Helper()
	err := e.SetOpeningBalance(context.Background(), &account.OpeningBalance{
		AccountID:     acct.ID,
		Amount:        amount,
		EffectiveDate: effective,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestPreviewReconciliationReplaysLedger(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Main USD", "usd")
	seedOpeningBalance(t, e, acct, types.USD(100000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	if err := e.CreateAccountAdjustment(ctx, &account.Adjustment{
		AccountID:     acct.ID,
		Amount:        types.USD(5000),
		EffectiveDate: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		Reason:        "deposit correction",
	}); err != nil {
		t.Fatal(err)
	}

	p, err := e.PreviewReconciliation(ctx, acct.ID, "usd", 2026, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Expected.Equal(types.USD(105000)) {
		t.Errorf("Expected = %v, want $1050.00", p.Expected)
	}
	if !p.OpeningAmount.Equal(types.USD(100000)) {
		t.Errorf("OpeningAmount = %v, want $1000.00", p.OpeningAmount)
	}
	if p.IsLocked {
		t.Error("IsLocked = true for an open month")
	}

	// Previews are side-effect-free: a second run returns the same
	// value. Currency input is case-insensitive.
	again, err := e.PreviewReconciliation(ctx, acct.ID, "USD", 2026, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Expected.Equal(p.Expected) {
		t.Errorf("second preview = %v, first = %v; want identical", again.Expected, p.Expected)
	}
}

func TestPreviewReconciliationCurrencyMismatch(t *testing.T) {
	e := newTestEngine(t)
	acct := seedAccount(t, e, "ag_1", "Main USD", "usd")

	_, err := e.PreviewReconciliation(context.Background(), acct.ID, "ars", 2026, time.January)
	if !errors.Is(err, tally.ErrCurrencyMismatch) {
		t.Errorf("PreviewReconciliation = %v, want ErrCurrencyMismatch", err)
	}
}

func TestSubmitReconciliationCreatesCompensatingAdjustment(t *testing.T) {
	e := newTestEngine(t)
	ctx := tally.WithActor(context.Background(), tally.Actor{ID: "usr_ana", Role: "admin"})

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")
	seedOpeningBalance(t, e, acct, types.USD(100000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	// Counted 980.00 against an expected 1000.00: difference -20.00.
	res, err := e.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
		AccountID:        acct.ID,
		Year:             2026,
		Month:            time.January,
		ActualBalance:    types.USD(98000),
		CreateAdjustment: true,
		AdjustmentReason: "cash shortfall",
		Note:             "monthly close",
	})
	if err != nil {
		t.Fatal(err)
	}

	audit := res.Audit
	if !audit.Expected.Equal(types.USD(100000)) {
		t.Errorf("Expected = %v, want $1000.00", audit.Expected)
	}
	if !audit.Difference.Equal(types.USD(-2000)) {
		t.Errorf("Difference = %v, want -$20.00", audit.Difference)
	}
	if audit.CreatedBy != "usr_ana" {
		t.Errorf("CreatedBy = %q, want the acting user", audit.CreatedBy)
	}

	adj := res.Adjustment
	if adj == nil {
		t.Fatal("Adjustment = nil, want a compensating adjustment")
	}
	if !adj.Amount.Equal(types.USD(-2000)) {
		t.Errorf("adjustment Amount = %v, want -$20.00", adj.Amount)
	}
	if adj.Source != account.SourceAudit {
		t.Errorf("adjustment Source = %v, want audit", adj.Source)
	}
	if !adj.EffectiveDate.Equal(account.EndOfMonth(2026, time.January)) {
		t.Errorf("adjustment EffectiveDate = %v, want end of January", adj.EffectiveDate)
	}
	// The audit and the adjustment reference each other from the moment
	// they are created.
	if audit.AdjustmentID != adj.ID {
		t.Errorf("audit.AdjustmentID = %v, want %v", audit.AdjustmentID, adj.ID)
	}
	if adj.AuditID != audit.ID {
		t.Errorf("adjustment.AuditID = %v, want %v", adj.AuditID, audit.ID)
	}

	// The next month's replay folds the correction in.
	next, err := e.PreviewReconciliation(ctx, acct.ID, "usd", 2026, time.February)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Expected.Equal(types.USD(98000)) {
		t.Errorf("February Expected = %v, want $980.00 after correction", next.Expected)
	}

	audits, err := e.ListAudits(ctx, acct.ID, account.AuditListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) != 1 {
		t.Errorf("ListAudits = %d audits, want 1", len(audits))
	}
}

func TestSubmitReconciliationZeroDifference(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")
	seedOpeningBalance(t, e, acct, types.USD(50000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	// A zero difference never produces an adjustment, even when the
	// operator asked for one.
	res, err := e.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
		AccountID:        acct.ID,
		Year:             2026,
		Month:            time.January,
		ActualBalance:    types.USD(50000),
		CreateAdjustment: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Adjustment != nil {
		t.Errorf("Adjustment = %v, want nil for zero difference", res.Adjustment)
	}
	if !res.Audit.CreateAdjustment {
		t.Error("audit lost the operator's CreateAdjustment intent")
	}
	if !res.Audit.AdjustmentID.IsNil() {
		t.Errorf("AdjustmentID = %v, want nil", res.Audit.AdjustmentID)
	}

	adjs, err := e.ListAccountAdjustments(ctx, acct.ID, account.AdjustmentListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(adjs) != 0 {
		t.Errorf("ListAccountAdjustments = %d, want 0", len(adjs))
	}
}

func TestSubmitReconciliationDifferenceWithoutAdjustmentRequest(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")
	seedOpeningBalance(t, e, acct, types.USD(50000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	res, err := e.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
		AccountID:     acct.ID,
		Year:          2026,
		Month:         time.January,
		ActualBalance: types.USD(51000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Adjustment != nil {
		t.Error("Adjustment created without the operator requesting one")
	}
	if !res.Audit.Difference.Equal(types.USD(1000)) {
		t.Errorf("Difference = %v, want $10.00", res.Audit.Difference)
	}
}

func TestSubmitReconciliationLockedMonth(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")
	seedOpeningBalance(t, e, acct, types.USD(50000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	if _, err := e.LockPeriod(ctx, "ag_1", 2026, time.January, "closed"); err != nil {
		t.Fatal(err)
	}

	_, err := e.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
		AccountID:        acct.ID,
		Year:             2026,
		Month:            time.January,
		ActualBalance:    types.USD(40000),
		CreateAdjustment: true,
	})
	if !errors.Is(err, tally.ErrPeriodLocked) {
		t.Fatalf("SubmitReconciliation on locked month = %v, want ErrPeriodLocked", err)
	}

	// The rejection leaves no trace.
	audits, err := e.ListAudits(ctx, acct.ID, account.AuditListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(audits) != 0 {
		t.Errorf("ListAudits after rejected submission = %d, want 0", len(audits))
	}
}

func TestSubmitReconciliationGated(t *testing.T) {
	e := newTestEngine(t, tally.WithFeatureGate(adminGate{}))
	acct := seedAccount(t, e, "ag_1", "Caja", "usd")

	_, err := e.SubmitReconciliation(context.Background(), tally.SubmitReconciliationInput{
		AccountID:     acct.ID,
		Year:          2026,
		Month:         time.January,
		ActualBalance: types.USD(100),
	})
	if !errors.Is(err, tally.ErrPermissionDenied) {
		t.Errorf("SubmitReconciliation without actor = %v, want ErrPermissionDenied", err)
	}
}

func TestSubmitReconciliationCurrencyMismatch(t *testing.T) {
	e := newTestEngine(t)
	acct := seedAccount(t, e, "ag_1", "Main USD", "usd")

	_, err := e.SubmitReconciliation(context.Background(), tally.SubmitReconciliationInput{
		AccountID:     acct.ID,
		Year:          2026,
		Month:         time.January,
		ActualBalance: types.ARS(100000),
	})
	if !errors.Is(err, tally.ErrCurrencyMismatch) {
		t.Errorf("SubmitReconciliation = %v, want ErrCurrencyMismatch", err)
	}
}

func TestSetOpeningBalanceReplaces(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")
	effective := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	seedOpeningBalance(t, e, acct, types.USD(100000), effective)
	seedOpeningBalance(t, e, acct, types.USD(120000), effective)

	ob, err := e.GetOpeningBalance(ctx, acct.ID, "usd")
	if err != nil {
		t.Fatal(err)
	}
	if !ob.Amount.Equal(types.USD(120000)) {
		t.Errorf("Amount = %v, want the replacement $1200.00", ob.Amount)
	}

	err = e.SetOpeningBalance(ctx, &account.OpeningBalance{
		AccountID:     acct.ID,
		Amount:        types.ARS(100000),
		EffectiveDate: effective,
	})
	if !errors.Is(err, tally.ErrCurrencyMismatch) {
		t.Errorf("SetOpeningBalance in ARS on a USD account = %v, want ErrCurrencyMismatch", err)
	}

	if _, err := e.LockPeriod(ctx, "ag_1", 2026, time.January, ""); err != nil {
		t.Fatal(err)
	}
	err = e.SetOpeningBalance(ctx, &account.OpeningBalance{
		AccountID:     acct.ID,
		Amount:        types.USD(999),
		EffectiveDate: effective,
	})
	if !errors.Is(err, tally.ErrPeriodLocked) {
		t.Errorf("SetOpeningBalance in locked month = %v, want ErrPeriodLocked", err)
	}
}

func TestCreateAccountAdjustmentDefaults(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")

	adj := &account.Adjustment{
		AccountID: acct.ID,
		Amount:    types.USD(-1500),
		Reason:    "bank fee",
	}
	if err := e.CreateAccountAdjustment(ctx, adj); err != nil {
		t.Fatal(err)
	}
	if adj.Source != account.SourceManual {
		t.Errorf("Source = %v, want manual by default", adj.Source)
	}
	if !adj.EffectiveDate.Equal(testNow) {
		t.Errorf("EffectiveDate = %v, want engine clock %v", adj.EffectiveDate, testNow)
	}
	if adj.AgencyID != "ag_1" {
		t.Errorf("AgencyID = %q, want derived from the account", adj.AgencyID)
	}

	err := e.CreateAccountAdjustment(ctx, &account.Adjustment{
		AccountID: acct.ID,
		Amount:    types.ARS(100),
	})
	if !errors.Is(err, tally.ErrCurrencyMismatch) {
		t.Errorf("CreateAccountAdjustment in ARS = %v, want ErrCurrencyMismatch", err)
	}
}

func TestMultiCurrencyAccountReconcilesPerCurrency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	// No currency restriction: the account holds USD and ARS side by
	// side, each reconciled on its own.
	acct := seedAccount(t, e, "ag_1", "Mixed cash", "")
	seedOpeningBalance(t, e, acct, types.USD(10000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	seedOpeningBalance(t, e, acct, types.ARS(5000000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	usd, err := e.PreviewReconciliation(ctx, acct.ID, "usd", 2026, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if !usd.Expected.Equal(types.USD(10000)) {
		t.Errorf("USD Expected = %v, want $100.00", usd.Expected)
	}

	ars, err := e.PreviewReconciliation(ctx, acct.ID, "ars", 2026, time.January)
	if err != nil {
		t.Fatal(err)
	}
	if !ars.Expected.Equal(types.ARS(5000000)) {
		t.Errorf("ARS Expected = %v, want ARS 50000.00", ars.Expected)
	}
}

// stallReplayer parks inside Replay until released, exposing the window
// between a submission's lock check and its commit.
type stallReplayer struct {
	entered chan struct{}
	release chan struct{}
}

func (r *stallReplayer) Replay(_ context.Context, _ id.AccountID, currency string, _ int, _ time.Month) (account.ReplayResult, error) {
	close(r.entered)
	<-r.release
	return account.ReplayResult{Expected: types.Zero(currency)}, nil
}

func TestSubmitReconciliationSerializesWithPeriodLock(t *testing.T) {
	r := &stallReplayer{entered: make(chan struct{}), release: make(chan struct{})}
	e := newTestEngine(t, tally.WithReplayer(r))
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")

	submitted := make(chan error, 1)
	go func() {
		_, err := e.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
			AccountID:     acct.ID,
			Year:          2026,
			Month:         time.January,
			ActualBalance: types.USD(0),
		})
		submitted <- err
	}()

	<-r.entered

	locked := make(chan error, 1)
	go func() {
		_, err := e.LockPeriod(ctx, "ag_1", 2026, time.January, "closing")
		locked <- err
	}()

	// The submission holds the agency-month key from its lock check
	// through its commit; locking the same month must wait for it.
	select {
	case err := <-locked:
		t.Fatalf("LockPeriod finished during an in-flight submission: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(r.release)

	if err := <-submitted; err != nil {
		t.Fatalf("SubmitReconciliation: %v", err)
	}
	if err := <-locked; err != nil {
		t.Fatalf("LockPeriod after submission: %v", err)
	}
}

func TestSubmitReconciliationUppercaseCurrency(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	acct := seedAccount(t, e, "ag_1", "Caja", "usd")
	seedOpeningBalance(t, e, acct, types.USD(50000),
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	res, err := e.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
		AccountID:     acct.ID,
		Year:          2026,
		Month:         time.January,
		ActualBalance: types.Money{Amount: 48000, Currency: "USD"},
	})
	if err != nil {
		t.Fatalf("SubmitReconciliation with uppercase currency: %v", err)
	}
	if res.Audit.Currency != "usd" {
		t.Errorf("Audit.Currency = %q, want %q", res.Audit.Currency, "usd")
	}
	if res.Audit.Actual.Currency != "usd" {
		t.Errorf("Audit.Actual.Currency = %q, want %q", res.Audit.Actual.Currency, "usd")
	}
	if !res.Audit.Difference.Equal(types.USD(-2000)) {
		t.Errorf("Difference = %v, want -$20.00", res.Audit.Difference)
	}
}

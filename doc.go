// Package tally provides an embeddable billing and account-reconciliation
// engine for Go applications.
//
// Tally is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Plan pricing with VAT-inclusive monthly quotes per agency
//   - Time-windowed discount and tax adjustments with reproducible
//     as-of evaluation
//   - A charge ledger for recurring and one-off charges, with USD
//     reporting of ARS payments via operator-entered FX rates
//   - Read-side billing rollups: totals, MRR estimate, plan mix,
//     top-outstanding agencies, recent payments
//   - Account reconciliation with immutable audits and atomic
//     compensating adjustments
//   - Per-month period locks that freeze completed months
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/postgres"
//	)
//
//	// Initialize store (db is a *grove.DB opened with the pg driver)
//	store := postgres.New(db)
//
//	// Create engine
//	t := tally.New(store)
//
//	// Start the engine (migrates the store, initializes plugins)
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//
// # Core Concepts
//
// Billing configs bind an agency to a plan tier:
//
//	cfg := &plan.Config{
//	    AgencyID:    "agency-1",
//	    Tier:        plan.TierStandard,
//	    BilledUsers: 12,
//	}
//	err := t.UpsertBillingConfig(ctx, cfg)
//
// Quotes answer "what would this agency be charged at this date":
//
//	quote, err := t.QuoteMonthlyCharge(ctx, "agency-1", time.Now())
//
// Charges persist what was actually billed, and payments flow in as the
// operator records them:
//
//	c, err := t.IssueMonthlyCharge(ctx, "agency-1", 2026, time.August)
//	c, err = t.RecordPayment(ctx, c.ID, charge.Payment{
//	    Amount: tally.ARS(9_200_000),
//	    FXRate: tally.NewRate(1150),
//	})
//
// Reconciliation compares a replayed expected balance against the
// operator-counted actual balance and commits the audit trail
// atomically:
//
//	res, err := t.SubmitReconciliation(ctx, tally.SubmitReconciliationInput{
//	    AccountID:        acctID,
//	    Year:             2026,
//	    Month:            time.July,
//	    ActualBalance:    tally.USD(48_000),
//	    CreateAdjustment: true,
//	})
//
// # Money
//
// All monetary calculations use integer arithmetic to avoid
// floating-point precision issues. The Money type represents amounts in
// the smallest currency unit (cents for USD, centavos for ARS); FX
// rates are fixed-point with four decimal places.
package tally

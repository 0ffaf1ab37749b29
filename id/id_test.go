package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/tally/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"BillingConfigID", id.NewBillingConfigID, "bcfg_"},
		{"AdjustmentID", id.NewAdjustmentID, "adj_"},
		{"ChargeID", id.NewChargeID, "chg_"},
		{"AccountID", id.NewAccountID, "acct_"},
		{"OpeningBalanceID", id.NewOpeningBalanceID, "obal_"},
		{"AccountAuditID", id.NewAccountAuditID, "aud_"},
		{"AccountAdjustmentID", id.NewAccountAdjustmentID, "aadj_"},
		{"PeriodLockID", id.NewPeriodLockID, "plk_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestNew(t *testing.T) {
	i := id.New(id.PrefixCharge)
	if i.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if i.Prefix() != id.PrefixCharge {
		t.Errorf("expected prefix %q, got %q", id.PrefixCharge, i.Prefix())
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"BillingConfigID", id.NewBillingConfigID, id.ParseBillingConfigID},
		{"AdjustmentID", id.NewAdjustmentID, id.ParseAdjustmentID},
		{"ChargeID", id.NewChargeID, id.ParseChargeID},
		{"AccountID", id.NewAccountID, id.ParseAccountID},
		{"OpeningBalanceID", id.NewOpeningBalanceID, id.ParseOpeningBalanceID},
		{"AccountAuditID", id.NewAccountAuditID, id.ParseAccountAuditID},
		{"AccountAdjustmentID", id.NewAccountAdjustmentID, id.ParseAccountAdjustmentID},
		{"PeriodLockID", id.NewPeriodLockID, id.ParsePeriodLockID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"ParseChargeID rejects adj_", id.NewAdjustmentID().String(), id.ParseChargeID},
		{"ParseAdjustmentID rejects chg_", id.NewChargeID().String(), id.ParseAdjustmentID},
		{"ParseAccountID rejects obal_", id.NewOpeningBalanceID().String(), id.ParseAccountID},
		{"ParseAccountAuditID rejects aadj_", id.NewAccountAdjustmentID().String(), id.ParseAccountAuditID},
		{"ParseAccountAdjustmentID rejects aud_", id.NewAccountAuditID().String(), id.ParseAccountAdjustmentID},
		{"ParsePeriodLockID rejects bcfg_", id.NewBillingConfigID().String(), id.ParsePeriodLockID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.parseFn(tt.input)
			if err == nil {
				t.Errorf("expected error for cross-type parse of %q, got nil", tt.input)
			}
		})
	}
}

func TestParseAny(t *testing.T) {
	ids := []id.ID{
		id.NewBillingConfigID(),
		id.NewAdjustmentID(),
		id.NewChargeID(),
		id.NewAccountID(),
		id.NewOpeningBalanceID(),
		id.NewAccountAuditID(),
		id.NewAccountAdjustmentID(),
		id.NewPeriodLockID(),
	}

	for _, i := range ids {
		t.Run(i.String(), func(t *testing.T) {
			parsed, err := id.ParseAny(i.String())
			if err != nil {
				t.Fatalf("ParseAny(%q) failed: %v", i.String(), err)
			}
			if parsed.String() != i.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), i.String())
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := id.Parse("")
	if err == nil {
		t.Error("expected error for empty string")
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" {
		t.Errorf("expected empty string, got %q", i.String())
	}
	if i.Prefix() != "" {
		t.Errorf("expected empty prefix, got %q", i.Prefix())
	}
}

func TestMarshalUnmarshalText(t *testing.T) {
	original := id.NewAccountAuditID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}

	var restored id.ID
	if unmarshalErr := restored.UnmarshalText(data); unmarshalErr != nil {
		t.Fatalf("UnmarshalText failed: %v", unmarshalErr)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}

	// Nil round-trip.
	var nilID id.ID
	data, err = nilID.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText(nil) failed: %v", err)
	}
	var restored2 id.ID
	if err := restored2.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText(nil) failed: %v", err)
	}
	if !restored2.IsNil() {
		t.Error("expected nil after round-trip of nil ID")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewAccountAdjustmentID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	// Nil round-trip: optional back-reference columns store NULL.
	var nilID id.ID
	val, err = nilID.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil value for nil ID, got %v", val)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if !scanned2.IsNil() {
		t.Error("expected nil after scan of nil")
	}
}

func TestOrdering(t *testing.T) {
	// TypeIDs are K-sortable: later IDs sort after earlier ones, which is
	// what charge cursor pagination relies on.
	a := id.NewChargeID()
	b := id.NewChargeID()
	if a.String() == b.String() {
		t.Fatalf("two consecutive NewChargeID() calls returned the same ID: %q", a.String())
	}
	if !(a.String() < b.String()) {
		t.Errorf("expected %q to sort before %q", a.String(), b.String())
	}
}

package adjust

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

var asOf = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func discount(m Mode) *Adjustment {
	return &Adjustment{ID: id.NewAdjustmentID(), AgencyID: "ag_1", Kind: KindDiscount, Mode: m, Active: true}
}

func tax(m Mode) *Adjustment {
	return &Adjustment{ID: id.NewAdjustmentID(), AgencyID: "ag_1", Kind: KindTax, Mode: m, Active: true}
}

func TestApply(t *testing.T) {
	tests := []struct {
		name         string
		base         types.Money
		adjustments  []*Adjustment
		wantDiscount types.Money
		wantTax      types.Money
		wantNet      types.Money
	}{
		{
			name:         "no adjustments",
			base:         types.USD(10000),
			wantDiscount: types.USD(0),
			wantTax:      types.USD(0),
			wantNet:      types.USD(10000),
		},
		{
			// base 100.00, one active 10% discount, no taxes -> net 90.00
			name:         "ten percent discount",
			base:         types.USD(10000),
			adjustments:  []*Adjustment{discount(Percent{BasisPoints: 1000})},
			wantDiscount: types.USD(1000),
			wantTax:      types.USD(0),
			wantNet:      types.USD(9000),
		},
		{
			name: "percent and fixed discounts combine",
			base: types.USD(10000),
			adjustments: []*Adjustment{
				discount(Percent{BasisPoints: 1000}),
				discount(Fixed{Amount: types.USD(500)}),
			},
			wantDiscount: types.USD(1500),
			wantTax:      types.USD(0),
			wantNet:      types.USD(8500),
		},
		{
			// Tax applies to the discount-net base: (100 - 10) * 21% = 18.90
			name: "tax on net not gross",
			base: types.USD(10000),
			adjustments: []*Adjustment{
				discount(Percent{BasisPoints: 1000}),
				tax(Percent{BasisPoints: 2100}),
			},
			wantDiscount: types.USD(1000),
			wantTax:      types.USD(1890),
			wantNet:      types.USD(10890),
		},
		{
			name: "discounts exceeding base clamp net base at zero",
			base: types.USD(10000),
			adjustments: []*Adjustment{
				discount(Fixed{Amount: types.USD(15000)}),
				tax(Percent{BasisPoints: 2100}),
			},
			wantDiscount: types.USD(15000),
			wantTax:      types.USD(0), // 21% of zero
			wantNet:      types.USD(0),
		},
		{
			// A negative-valued discount behaves as a surcharge.
			name:         "negative discount is a surcharge",
			base:         types.USD(10000),
			adjustments:  []*Adjustment{discount(Percent{BasisPoints: -500})},
			wantDiscount: types.USD(-500),
			wantTax:      types.USD(0),
			wantNet:      types.USD(10500),
		},
		{
			name: "fixed adjustment in foreign currency is skipped",
			base: types.USD(10000),
			adjustments: []*Adjustment{
				discount(Fixed{Amount: types.ARS(500000)}),
			},
			wantDiscount: types.USD(0),
			wantTax:      types.USD(0),
			wantNet:      types.USD(10000),
		},
		{
			name:         "fixed tax",
			base:         types.USD(10000),
			adjustments:  []*Adjustment{tax(Fixed{Amount: types.USD(250)})},
			wantDiscount: types.USD(0),
			wantTax:      types.USD(250),
			wantNet:      types.USD(10250),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(tt.base, tt.adjustments, asOf)
			if !got.DiscountTotal.Equal(tt.wantDiscount) {
				t.Errorf("DiscountTotal: got %v, want %v", got.DiscountTotal, tt.wantDiscount)
			}
			if !got.TaxTotal.Equal(tt.wantTax) {
				t.Errorf("TaxTotal: got %v, want %v", got.TaxTotal, tt.wantTax)
			}
			if !got.Net.Equal(tt.wantNet) {
				t.Errorf("Net: got %v, want %v", got.Net, tt.wantNet)
			}
		})
	}
}

func TestApplyNetNeverNegative(t *testing.T) {
	bases := []types.Money{types.USD(0), types.USD(1), types.USD(9999), types.USD(1000000)}
	sets := [][]*Adjustment{
		{discount(Percent{BasisPoints: 20000})},                         // 200% discount
		{discount(Fixed{Amount: types.USD(1 << 40)})},                   // absurd fixed discount
		{tax(Percent{BasisPoints: -10000})},                             // -100% tax
		{discount(Percent{BasisPoints: 10000}), tax(Fixed{Amount: types.USD(-500)})},
	}

	for _, base := range bases {
		for _, set := range sets {
			if got := Apply(base, set, asOf); got.Net.IsNegative() {
				t.Errorf("Apply(%v): net %v is negative", base, got.Net)
			}
		}
	}
}

func TestActiveAtWindows(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC)

	tests := []struct {
		name     string
		starts   *time.Time
		ends     *time.Time
		active   bool
		asOf     time.Time
		expected bool
	}{
		{"open both ends", nil, nil, true, asOf, true},
		{"inside window", &start, &end, true, asOf, true},
		{"at start boundary inclusive", &start, &end, true, start, true},
		{"at end boundary inclusive", &start, &end, true, end, true},
		{"before window", &start, &end, true, start.Add(-time.Second), false},
		{"after window", &start, &end, true, end.Add(time.Second), false},
		{"open end", &start, nil, true, end.AddDate(10, 0, 0), true},
		{"open start", nil, &end, true, start.AddDate(-10, 0, 0), true},
		{"inactive flag wins", nil, nil, false, asOf, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Adjustment{
				Kind:     KindDiscount,
				Mode:     Percent{BasisPoints: 1000},
				StartsAt: tt.starts,
				EndsAt:   tt.ends,
				Active:   tt.active,
			}
			if got := a.ActiveAt(tt.asOf); got != tt.expected {
				t.Errorf("ActiveAt: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)

	tests := []struct {
		name    string
		adj     Adjustment
		wantErr bool
	}{
		{"valid percent", Adjustment{AgencyID: "ag", Kind: KindDiscount, Mode: Percent{BasisPoints: 1000}}, false},
		{"valid fixed", Adjustment{AgencyID: "ag", Kind: KindTax, Mode: Fixed{Amount: types.USD(100)}}, false},
		{"negative value permitted", Adjustment{AgencyID: "ag", Kind: KindDiscount, Mode: Percent{BasisPoints: -1000}}, false},
		{"missing agency", Adjustment{Kind: KindDiscount, Mode: Percent{BasisPoints: 1000}}, true},
		{"bad kind", Adjustment{AgencyID: "ag", Kind: "rebate", Mode: Percent{BasisPoints: 1}}, true},
		{"missing mode", Adjustment{AgencyID: "ag", Kind: KindDiscount}, true},
		{"fixed without currency", Adjustment{AgencyID: "ag", Kind: KindTax, Mode: Fixed{Amount: types.Money{Amount: 100}}}, true},
		{"inverted window", Adjustment{AgencyID: "ag", Kind: KindDiscount, Mode: Percent{BasisPoints: 1}, StartsAt: &start, EndsAt: &before}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.adj.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got err=%v, wantErr=%v", err, tt.wantErr)
			}
		})
	}
}

func TestAdjustmentJSONRoundTrip(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		adj  Adjustment
	}{
		{"percent", Adjustment{ID: id.NewAdjustmentID(), AgencyID: "ag", Kind: KindDiscount, Mode: Percent{BasisPoints: 1000}, Active: true}},
		{"fixed", Adjustment{ID: id.NewAdjustmentID(), AgencyID: "ag", Kind: KindTax, Mode: Fixed{Amount: types.USD(250)}, StartsAt: &start, Label: "IVA"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.adj)
			if err != nil {
				t.Fatal(err)
			}
			var out Adjustment
			if err := json.Unmarshal(data, &out); err != nil {
				t.Fatal(err)
			}
			if out.Kind != tt.adj.Kind || out.AgencyID != tt.adj.AgencyID || out.Active != tt.adj.Active {
				t.Errorf("round trip changed fields: %+v", out)
			}
			if ModeName(out.Mode) != ModeName(tt.adj.Mode) {
				t.Errorf("mode variant changed: got %q, want %q", ModeName(out.Mode), ModeName(tt.adj.Mode))
			}
		})
	}
}

func TestModeColumnsRoundTrip(t *testing.T) {
	modes := []Mode{
		Percent{BasisPoints: 1500},
		Fixed{Amount: types.ARS(300000)},
	}

	for _, m := range modes {
		name, value, currency := ModeColumns(m)
		got, err := ModeFromColumns(name, value, currency)
		if err != nil {
			t.Fatalf("ModeFromColumns(%q): %v", name, err)
		}
		if ModeName(got) != ModeName(m) {
			t.Errorf("variant changed: got %q, want %q", ModeName(got), ModeName(m))
		}
	}

	if _, err := ModeFromColumns("bogus", 0, ""); err == nil {
		t.Error("expected error for unknown mode column")
	}
}

package pricing

import (
	"errors"
	"testing"

	"github.com/theirongolddev/tiercost/internal/model"
)

func TestDefaultRateTable_HasEveryCategory(t *testing.T) {
	table := DefaultRateTable()
	got := table.Categories()
	if len(got) != len(model.Categories) {
		t.Fatalf("Categories() = %v, want %v", got, model.Categories)
	}
	for i, c := range model.Categories {
		if got[i] != c {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], c)
		}
		s, _ := table.Schedule(c)
		if s.Len() != 4 {
			t.Errorf("%s has %d tiers, want 4", c, s.Len())
		}
	}
}

func TestNewRateTable_PropagatesScheduleErrors(t *testing.T) {
	_, err := NewRateTable([]RateRow{
		{model.PropertiesPosted, 0, 1},
		{model.DatumQueried, 5, 1},
	})
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want *ConfigurationError", err)
	}
	if cfgErr.Category != model.DatumQueried {
		t.Fatalf("Category = %q, want %q", cfgErr.Category, model.DatumQueried)
	}
}

func TestRateTable_RequireMissing(t *testing.T) {
	table, err := NewRateTable([]RateRow{{model.PropertiesPosted, 0, 1}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := table.Require(model.DatumQueried); err == nil {
		t.Fatal("Require(datum-out) returned nil error for a missing schedule")
	}
	if _, err := table.Require(model.PropertiesPosted); err != nil {
		t.Fatalf("Require(datum-props-in): %v", err)
	}
}

func TestRateTable_WithSchedulesLeavesOriginal(t *testing.T) {
	base := DefaultRateTable()
	flat := MustSchedule(model.OCPPChargers, []Breakpoint{{0, 3}})
	over := base.WithSchedules(flat)

	s, _ := over.Schedule(model.OCPPChargers)
	if got := s.Price(10); !approx(got, 30) {
		t.Fatalf("override Price(10) = %v, want 30", got)
	}
	s, _ = base.Schedule(model.OCPPChargers)
	if got := s.Price(10); !approx(got, 20) {
		t.Fatalf("base Price(10) = %v, want 20", got)
	}
}

func TestVisibleCategories_HidesDisabledAddOns(t *testing.T) {
	table := DefaultRateTable()
	usage := model.UsageConfiguration{
		OSCPCapacityGroups: model.AddOn{Count: 4, Enabled: true},
		DNP3DataPoints:     model.AddOn{Count: 10},
	}
	got := table.VisibleCategories(usage)
	want := []model.Category{model.PropertiesPosted, model.DatumQueried, model.DatumDaysStored, model.OSCPCapacityGroups}
	if len(got) != len(want) {
		t.Fatalf("VisibleCategories = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("VisibleCategories = %v, want %v", got, want)
		}
	}
}

func TestBreakdown_DisplayRatesAndCapacity(t *testing.T) {
	table := DefaultRateTable()

	props, _ := table.Schedule(model.PropertiesPosted)
	tiers := PriceTierSchedule(props)
	if len(tiers) != 4 {
		t.Fatalf("len(tiers) = %d, want 4", len(tiers))
	}
	first := tiers[0]
	if first.Index != 1 || first.Start != 0 || first.Unit != "1 million" {
		t.Fatalf("first tier = %+v", first)
	}
	if !approx(first.DisplayRate, 5) {
		t.Errorf("DisplayRate = %v, want 5 per million", first.DisplayRate)
	}
	if first.MaxCount == nil || *first.MaxCount != 500_000 {
		t.Fatalf("MaxCount = %v, want 500000", first.MaxCount)
	}
	if !approx(*first.MaxCost, 2.5) {
		t.Errorf("MaxCost = %v, want 2.5", *first.MaxCost)
	}
	if second := tiers[1]; second.MaxCount == nil || *second.MaxCount != 9_500_000 {
		t.Errorf("tier 2 MaxCount = %v, want 9500000", second.MaxCount)
	}
	if last := tiers[3]; last.MaxCount != nil || last.MaxCost != nil {
		t.Errorf("top tier should be unbounded, got %+v", last)
	}

	stored, _ := table.Schedule(model.DatumDaysStored)
	if got := stored.Breakdown()[0]; !approx(got.DisplayRate, 5) || got.Unit != "100 million" {
		t.Errorf("stored tier 1 = %v / %s, want 5 / 100 million", got.DisplayRate, got.Unit)
	}

	ocpp, _ := table.Schedule(model.OCPPChargers)
	if got := ocpp.Breakdown()[0]; got.DisplayRate != 2 || got.Unit != "each" {
		t.Errorf("ocpp tier 1 = %v / %s, want 2 / each", got.DisplayRate, got.Unit)
	}
}

func TestBreakdowns_SkipsUnknownCategories(t *testing.T) {
	table, _ := NewRateTable([]RateRow{{model.PropertiesPosted, 0, 1}})
	got := table.Breakdowns([]model.Category{model.PropertiesPosted, model.DatumQueried})
	if len(got) != 1 || got[0].Label != "Properties Posted" {
		t.Fatalf("Breakdowns = %+v", got)
	}
}

func TestSchedule_Position(t *testing.T) {
	s := MustSchedule(model.OCPPChargers, []Breakpoint{
		{Start: 0, Rate: 2},
		{Start: 250, Rate: 1},
		{Start: 12_500, Rate: 0.5},
		{Start: 500_000, Rate: 0.3},
	})

	tests := []struct {
		usage    float64
		wantTier int
		wantFill float64
	}{
		{0, 1, 0},
		{125, 1, 0.5},
		{250, 2, 0},
		{6_375, 2, 0.5},
		{499_999, 3, (499_999 - 12_500) / 487_500.0},
		{500_000, 4, 1},
		{9e9, 4, 1},
	}
	for _, tt := range tests {
		tier, fill := s.Position(tt.usage)
		if tier != tt.wantTier || fill != tt.wantFill {
			t.Errorf("Position(%v) = (%d, %v), want (%d, %v)", tt.usage, tier, fill, tt.wantTier, tt.wantFill)
		}
	}
}

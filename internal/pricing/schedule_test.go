package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/theirongolddev/tiercost/internal/model"
)

const eps = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Abs(b))
}

func TestPrice_ZeroUsageIsFree(t *testing.T) {
	table := DefaultRateTable()
	for _, c := range table.Categories() {
		s, _ := table.Schedule(c)
		if got := s.Price(0); got != 0 {
			t.Errorf("%s: Price(0) = %v, want 0", c, got)
		}
	}
}

func TestPrice_SingleTierIsFlat(t *testing.T) {
	s := MustSchedule(model.OCPPChargers, []Breakpoint{{Start: 0, Rate: 0.25}})
	for _, n := range []float64{0, 1, 7, 250, 1e6, 123456.5} {
		if got, want := s.Price(n), n*0.25; !approx(got, want) {
			t.Errorf("Price(%v) = %v, want %v", n, got, want)
		}
	}
}

func TestPrice_TierBoundaries(t *testing.T) {
	s := MustSchedule(model.PropertiesPosted, []Breakpoint{{0, 1.0}, {100, 0.5}})

	tests := []struct {
		usage float64
		want  float64
	}{
		{50, 50},
		{100, 100},
		{150, 125},
		{1100, 600},
	}
	for _, tt := range tests {
		if got := Price(tt.usage, s); !approx(got, tt.want) {
			t.Errorf("Price(%v) = %v, want %v", tt.usage, got, tt.want)
		}
	}
}

func TestPrice_ConsumesUpToEachBreakpointStart(t *testing.T) {
	s, _ := DefaultRateTable().Schedule(model.PropertiesPosted)

	// 500k at tier 1, then min(19.5M, 10M) at tier 2, then the last 9.5M at tier 3.
	want := 500_000*0.000005 + 10_000_000*0.000003 + 9_500_000*0.0000008
	if got := s.Price(20_000_000); !approx(got, want) {
		t.Fatalf("Price(20M) = %v, want %v", got, want)
	}

	// Beyond every breakpoint the remainder is charged at the top rate.
	usage := 2_000_000_000.0
	want = 500_000*0.000005 + 10_000_000*0.000003 + 500_000_000*0.0000008 +
		(usage-500_000-10_000_000-500_000_000)*0.0000002
	if got := s.Price(usage); !approx(got, want) {
		t.Fatalf("Price(2B) = %v, want %v", got, want)
	}
}

func TestPrice_Monotonic(t *testing.T) {
	table := DefaultRateTable()
	for _, c := range table.Categories() {
		s, _ := table.Schedule(c)
		prev := -1.0
		for usage := 0.0; usage < 2e11; usage = usage*1.7 + 13 {
			got := s.Price(usage)
			if got < prev {
				t.Fatalf("%s: Price(%v) = %v dropped below previous %v", c, usage, got, prev)
			}
			prev = got
		}
	}
}

func TestNewSchedule_RejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name  string
		tiers []Breakpoint
	}{
		{"empty", nil},
		{"non-zero first start", []Breakpoint{{10, 1}}},
		{"unsorted", []Breakpoint{{0, 1}, {100, 0.5}, {50, 0.2}}},
		{"duplicate start", []Breakpoint{{0, 1}, {0, 0.5}}},
		{"negative rate", []Breakpoint{{0, -1}}},
		{"negative start", []Breakpoint{{0, 1}, {-5, 1}}},
		{"nan rate", []Breakpoint{{0, math.NaN()}}},
		{"infinite start", []Breakpoint{{0, 1}, {math.Inf(1), 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchedule(model.DatumQueried, tt.tiers)
			if err == nil {
				t.Fatal("NewSchedule returned nil error")
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %T is not a *ConfigurationError", err)
			}
			if cfgErr.Category != model.DatumQueried {
				t.Fatalf("Category = %q, want %q", cfgErr.Category, model.DatumQueried)
			}
		})
	}
}

func TestNewSchedule_CopiesTiers(t *testing.T) {
	tiers := []Breakpoint{{0, 1}, {100, 0.5}}
	s := MustSchedule(model.DatumQueried, tiers)
	tiers[1].Rate = 99

	if got := s.Price(150); !approx(got, 125) {
		t.Fatalf("Price after caller mutation = %v, want 125", got)
	}

	out := s.Tiers()
	out[0].Rate = 42
	if got := s.Price(10); !approx(got, 10) {
		t.Fatalf("Price after Tiers() mutation = %v, want 10", got)
	}
}

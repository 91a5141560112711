package config

import (
	"fmt"
	"sort"

	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

// RateTable returns the default rate table with any [rates] overrides
// applied. An override replaces the whole schedule for its category.
func (c Config) RateTable() (pricing.RateTable, error) {
	table := pricing.DefaultRateTable()
	if len(c.Rates) == 0 {
		return table, nil
	}

	keys := make([]string, 0, len(c.Rates))
	for k := range c.Rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	overrides := make([]pricing.Schedule, 0, len(keys))
	for _, k := range keys {
		cat, ok := model.ParseCategory(k)
		if !ok {
			return table, fmt.Errorf("rates: unknown category %q", k)
		}
		s, err := pricing.NewSchedule(cat, c.Rates[k])
		if err != nil {
			return table, fmt.Errorf("rates: %w", err)
		}
		overrides = append(overrides, s)
	}
	return table.WithSchedules(overrides...), nil
}

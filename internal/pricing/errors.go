package pricing

import (
	"fmt"

	"github.com/theirongolddev/tiercost/internal/model"
)

// ConfigurationError reports a malformed rate table. It signals a setup
// defect rather than bad user input and is never recovered by the engine.
type ConfigurationError struct {
	Category model.Category
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Category == "" {
		return "invalid rate configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid rate configuration for %s: %s", e.Category, e.Reason)
}

func configErrorf(c model.Category, format string, args ...any) error {
	return &ConfigurationError{Category: c, Reason: fmt.Sprintf(format, args...)}
}

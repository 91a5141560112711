// Package config loads and saves the tiercost TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/theirongolddev/tiercost/internal/logging"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

// Config holds all tiercost configuration.
type Config struct {
	General    GeneralConfig                   `toml:"general"`
	Usage      UsageConfig                     `toml:"usage"`
	AddOns     AddOnsConfig                    `toml:"addons"`
	Appearance AppearanceConfig                `toml:"appearance"`
	Logging    LoggingConfig                   `toml:"logging"`
	Server     ServerConfig                    `toml:"server"`
	Rates      map[string][]pricing.Breakpoint `toml:"rates,omitempty"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	Months    int    `toml:"months"`
	Currency  string `toml:"currency"`
	AllMonths bool   `toml:"all_months"`
}

// UsageConfig holds the base usage inputs. The two per-hour fields pin a
// derived value when set.
type UsageConfig struct {
	NodeCount                    float64  `toml:"node_count"`
	SourcesPerNode               float64  `toml:"sources_per_node"`
	DatumPerSourcePerHour        float64  `toml:"datum_per_source_per_hour"`
	PropertiesPerDatum           float64  `toml:"properties_per_datum"`
	QueriedDatumPerSourcePerHour float64  `toml:"queried_datum_per_source_per_hour"`
	DatumPerHour                 *float64 `toml:"datum_per_hour,omitempty"`
	PropertiesPerHour            *float64 `toml:"properties_per_hour,omitempty"`
}

// AddOnsConfig holds the optional add-on services.
type AddOnsConfig struct {
	OCPP model.AddOn `toml:"ocpp"`
	OSCP model.AddOn `toml:"oscp"`
	DNP3 model.AddOn `toml:"dnp3"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Format      string `toml:"format"`
	Output      string `toml:"output"`
	Development bool   `toml:"development"`
}

// ServerConfig holds the HTTP service settings.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	DebounceMS   int    `toml:"debounce_ms"`
	EventsBuffer int    `toml:"events_buffer"`
}

// Debounce returns the recalculation debounce window.
func (s ServerConfig) Debounce() time.Duration {
	if s.DebounceMS <= 0 {
		return DefaultDebounce
	}
	return time.Duration(s.DebounceMS) * time.Millisecond
}

// DefaultDebounce is how long input edits settle before a recompute.
const DefaultDebounce = 500 * time.Millisecond

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	lc := logging.DefaultConfig()
	return Config{
		General: GeneralConfig{
			Months:   60,
			Currency: "NZD",
		},
		Usage: UsageConfig{
			NodeCount:                    1,
			SourcesPerNode:               4,
			DatumPerSourcePerHour:        60,
			PropertiesPerDatum:           10,
			QueriedDatumPerSourcePerHour: 6,
		},
		AddOns: AddOnsConfig{
			OCPP: model.AddOn{Count: 10},
			OSCP: model.AddOn{Count: 1},
			DNP3: model.AddOn{Count: 10},
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Logging: LoggingConfig{
			Level:       lc.Level,
			Format:      lc.Format,
			Output:      lc.Output,
			Development: lc.Development,
		},
		Server: ServerConfig{
			Addr:         "127.0.0.1:8787",
			DebounceMS:   500,
			EventsBuffer: 200,
		},
	}
}

// UsageConfiguration converts the [usage] and [addons] sections into the
// engine's input snapshot.
func (c Config) UsageConfiguration() model.UsageConfiguration {
	u := model.UsageConfiguration{
		NodeCount:                    c.Usage.NodeCount,
		SourcesPerNode:               c.Usage.SourcesPerNode,
		DatumPerSourcePerHour:        c.Usage.DatumPerSourcePerHour,
		PropertiesPerDatum:           c.Usage.PropertiesPerDatum,
		QueriedDatumPerSourcePerHour: c.Usage.QueriedDatumPerSourcePerHour,
		OCPPChargers:                 c.AddOns.OCPP,
		OSCPCapacityGroups:           c.AddOns.OSCP,
		DNP3DataPoints:               c.AddOns.DNP3,
	}
	if c.Usage.DatumPerHour != nil {
		u.DatumPerHour = model.Float(*c.Usage.DatumPerHour)
	}
	if c.Usage.PropertiesPerHour != nil {
		u.PropertiesPerHour = model.Float(*c.Usage.PropertiesPerHour)
	}
	return u
}

// SetUsageConfiguration stores u back into the [usage] and [addons] sections.
func (c *Config) SetUsageConfiguration(u model.UsageConfiguration) {
	c.Usage = UsageConfig{
		NodeCount:                    u.NodeCount,
		SourcesPerNode:               u.SourcesPerNode,
		DatumPerSourcePerHour:        u.DatumPerSourcePerHour,
		PropertiesPerDatum:           u.PropertiesPerDatum,
		QueriedDatumPerSourcePerHour: u.QueriedDatumPerSourcePerHour,
		DatumPerHour:                 u.DatumPerHour,
		PropertiesPerHour:            u.PropertiesPerHour,
	}
	c.AddOns = AddOnsConfig{
		OCPP: u.OCPPChargers,
		OSCP: u.OSCPCapacityGroups,
		DNP3: u.DNP3DataPoints,
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tiercost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tiercost")
}

// ConfigPath returns the full path to the config file. TIERCOST_CONFIG wins
// over the XDG location.
func ConfigPath() string {
	if p := os.Getenv("TIERCOST_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	return LoadFile(ConfigPath())
}

// LoadFile reads the config at path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user's own environment
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes cfg to path, creating its directory.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600) //nolint:gosec // see LoadFile
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}

// StateDir returns the XDG state directory used for pid files, logs and exports.
func StateDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "tiercost")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "tiercost")
}

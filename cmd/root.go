// Package cmd implements the tiercost CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/logging"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
	"github.com/theirongolddev/tiercost/internal/pricing"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagMonths    int
	flagAllMonths bool

	flagNodes            float64
	flagSources          float64
	flagDatumPerSource   float64
	flagPropsPerDatum    float64
	flagQueriedPerSource float64
	flagDatumPerHour     float64
	flagPropsPerHour     float64

	flagOCPPCount float64
	flagOSCPCount float64
	flagDNP3Count float64
	flagOCPP      bool
	flagOSCP      bool
	flagDNP3      bool
)

var rootCmd = &cobra.Command{
	Use:   "tiercost",
	Short: "Tiered subscription cost explorer",
	Long: "Project a metered data platform's tiered subscription costs month by month\n" +
		"from node, source and data-rate inputs.",
	SilenceUsage: true,
	RunE:         runEstimate,
}

// Execute is the main entry point called from main.go.
func Execute() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/tiercost/config.toml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	addUsageFlags(pf)
}

// addUsageFlags registers the horizon and usage flags that loadSettings
// overlays on the config.
func addUsageFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&flagMonths, "months", "m", 0, "Months to project (default from config, 60)")
	fs.BoolVarP(&flagAllMonths, "all-months", "a", false, "Show every month instead of year ends only")

	fs.Float64Var(&flagNodes, "nodes", 0, "Node count")
	fs.Float64Var(&flagSources, "sources", 0, "Sources per node")
	fs.Float64Var(&flagDatumPerSource, "datum-per-source", 0, "Datum per source per hour")
	fs.Float64Var(&flagPropsPerDatum, "props-per-datum", 0, "Properties per datum")
	fs.Float64Var(&flagQueriedPerSource, "queried-per-source", 0, "Queried datum per source per hour")
	fs.Float64Var(&flagDatumPerHour, "datum-per-hour", 0, "Pin datum per hour instead of deriving it")
	fs.Float64Var(&flagPropsPerHour, "props-per-hour", 0, "Pin properties per hour instead of deriving it")

	fs.Float64Var(&flagOCPPCount, "ocpp-count", 0, "OCPP chargers per month")
	fs.Float64Var(&flagOSCPCount, "oscp-count", 0, "OSCP capacity groups per month")
	fs.Float64Var(&flagDNP3Count, "dnp3-count", 0, "DNP3 data points per month")
	fs.BoolVar(&flagOCPP, "ocpp", false, "Include OCPP chargers")
	fs.BoolVar(&flagOSCP, "oscp", false, "Include OSCP capacity groups")
	fs.BoolVar(&flagDNP3, "dnp3", false, "Include DNP3 data points")
}

// settings is the resolved input for one command invocation.
type settings struct {
	cfg       config.Config
	usage     model.UsageConfiguration
	rates     pricing.RateTable
	months    int
	allMonths bool
}

// loadSettings reads the config, applies any flags the user set, and
// initialises logging. logOutput overrides the configured log output when set.
func loadSettings(cmd *cobra.Command, logOutput string) (settings, error) {
	if flagConfig != "" {
		if err := setConfigEnv(flagConfig); err != nil {
			return settings{}, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return settings{}, err
	}

	lc := logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		Development: cfg.Logging.Development,
	}
	if flagLogLevel != "" {
		lc.Level = flagLogLevel
	}
	if logOutput != "" {
		lc.Output = logOutput
	}
	if err := logging.Initialize(lc); err != nil {
		return settings{}, err
	}

	rates, err := cfg.RateTable()
	if err != nil {
		return settings{}, err
	}

	st := settings{
		cfg:       cfg,
		usage:     applyUsageFlags(cmd.Flags(), cfg.UsageConfiguration()),
		rates:     rates,
		months:    cfg.General.Months,
		allMonths: cfg.General.AllMonths,
	}
	if cmd.Flags().Changed("months") {
		st.months = flagMonths
	}
	if cmd.Flags().Changed("all-months") {
		st.allMonths = flagAllMonths
	}
	if err := st.usage.Validate(); err != nil {
		return settings{}, fmt.Errorf("usage: %w", err)
	}
	if err := pipeline.CheckMonths(st.months); err != nil {
		return settings{}, err
	}

	logging.L().Debug("settings loaded",
		zap.String("config", config.ConfigPath()),
		zap.Int("months", st.months),
		zap.Float64("nodes", st.usage.NodeCount),
	)
	return st, nil
}

// applyUsageFlags overlays only the flags that were set on the command line.
func applyUsageFlags(fs *pflag.FlagSet, u model.UsageConfiguration) model.UsageConfiguration {
	set := func(name string, dst *float64, v float64) {
		if fs.Changed(name) {
			*dst = v
		}
	}
	set("nodes", &u.NodeCount, flagNodes)
	set("sources", &u.SourcesPerNode, flagSources)
	set("datum-per-source", &u.DatumPerSourcePerHour, flagDatumPerSource)
	set("props-per-datum", &u.PropertiesPerDatum, flagPropsPerDatum)
	set("queried-per-source", &u.QueriedDatumPerSourcePerHour, flagQueriedPerSource)
	set("ocpp-count", &u.OCPPChargers.Count, flagOCPPCount)
	set("oscp-count", &u.OSCPCapacityGroups.Count, flagOSCPCount)
	set("dnp3-count", &u.DNP3DataPoints.Count, flagDNP3Count)

	if fs.Changed("datum-per-hour") {
		u.DatumPerHour = model.Float(flagDatumPerHour)
	}
	if fs.Changed("props-per-hour") {
		u.PropertiesPerHour = model.Float(flagPropsPerHour)
	}
	if fs.Changed("ocpp") {
		u.OCPPChargers.Enabled = flagOCPP
	}
	if fs.Changed("oscp") {
		u.OSCPCapacityGroups.Enabled = flagOSCP
	}
	if fs.Changed("dnp3") {
		u.DNP3DataPoints.Enabled = flagDNP3
	}
	return u
}

func setConfigEnv(path string) error {
	return os.Setenv("TIERCOST_CONFIG", path)
}

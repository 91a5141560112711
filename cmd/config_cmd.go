package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings(cmd, "")
	if err != nil {
		return err
	}
	cfg := st.cfg
	p := pipeline.NewProjector(st.usage)

	fmt.Printf("  Config file: %s\n", config.ConfigPath())
	if config.Exists() {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	fmt.Println("  [General]")
	fmt.Printf("    Months:      %d\n", st.months)
	fmt.Printf("    Currency:    %s\n", cfg.General.Currency)
	fmt.Printf("    All months:  %v\n", st.allMonths)
	fmt.Println()

	fmt.Println("  [Usage]")
	fmt.Printf("    Nodes:                    %s\n", cli.FormatCount(st.usage.NodeCount))
	fmt.Printf("    Sources per node:         %s\n", cli.FormatCount(st.usage.SourcesPerNode))
	fmt.Printf("    Datum / source / hour:    %s\n", cli.FormatCount(st.usage.DatumPerSourcePerHour))
	fmt.Printf("    Properties / datum:       %s\n", cli.FormatCount(st.usage.PropertiesPerDatum))
	fmt.Printf("    Queried / source / hour:  %s\n", cli.FormatCount(st.usage.QueriedDatumPerSourcePerHour))
	fmt.Printf("    Datum / hour:             %s%s\n", cli.FormatCount(p.DatumPerHour()), pinned(st.usage.DatumPerHour))
	fmt.Printf("    Properties / hour:        %s%s\n", cli.FormatCount(p.PropertiesPerHour()), pinned(st.usage.PropertiesPerHour))
	fmt.Println()

	fmt.Println("  [Add-ons]")
	for _, c := range model.AddOnCategories {
		a, _ := st.usage.AddOn(c)
		state := "off"
		if a.Enabled {
			state = "on"
		}
		fmt.Printf("    %-22s %s (%s)\n", c.Label()+":", cli.FormatCount(a.Count), state)
	}
	fmt.Println()

	fmt.Println("  [Appearance]")
	fmt.Printf("    Theme: %s\n", cfg.Appearance.Theme)
	fmt.Println()

	fmt.Println("  [Server]")
	fmt.Printf("    Address:  %s\n", cfg.Server.Addr)
	fmt.Printf("    Debounce: %s\n", cfg.Server.Debounce())
	fmt.Println()

	fmt.Println("  [Rates]")
	if len(cfg.Rates) == 0 {
		fmt.Println("    Overrides: none (published price list)")
	} else {
		keys := make([]string, 0, len(cfg.Rates))
		for k := range cfg.Rates {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("    %s: %d tiers\n", k, len(cfg.Rates[k]))
		}
	}
	fmt.Println()

	fmt.Println("  Run `tiercost setup` to reconfigure.")
	return nil
}

func pinned(v *float64) string {
	if v != nil {
		return " (pinned)"
	}
	return " (derived)"
}

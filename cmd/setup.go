package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup of default usage inputs",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(_ *cobra.Command, _ []string) error {
	if flagConfig != "" {
		if err := setConfigEnv(flagConfig); err != nil {
			return err
		}
	}

	// Load existing config or defaults
	cfg, _ := config.Load()

	fmt.Println()
	fmt.Println("  Welcome to tiercost!")
	fmt.Println()

	vals := tui.NewSetupValues(cfg)
	months := strconv.Itoa(cfg.General.Months)

	form := huh.NewForm(
		append(tui.SetupGroups(&vals),
			huh.NewGroup(
				huh.NewInput().
					Title("Months to project").
					Value(&months).
					Validate(func(s string) error {
						n, err := strconv.Atoi(strings.TrimSpace(s))
						if err != nil || n < 1 {
							return fmt.Errorf("enter a whole number of months")
						}
						return nil
					}),
			),
		)...,
	)
	if err := form.Run(); err != nil {
		return fmt.Errorf("setup form: %w", err)
	}

	if err := vals.Apply(&cfg); err != nil {
		return err
	}
	cfg.General.Months, _ = strconv.Atoi(strings.TrimSpace(months))

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println()
	fmt.Printf("  Saved to %s\n", config.ConfigPath())
	fmt.Println("  Run `tiercost setup` anytime to reconfigure.")
	fmt.Println()

	return nil
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/logging"
	"github.com/theirongolddev/tiercost/internal/tui"
	"github.com/theirongolddev/tiercost/internal/tui/theme"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive cost explorer",
	RunE:  runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	// stderr belongs to the alt screen while the dashboard runs
	logOutput := "none"
	if dir := config.StateDir(); os.MkdirAll(dir, 0o750) == nil {
		logOutput = filepath.Join(dir, "tui.log")
	}

	st, err := loadSettings(cmd, logOutput)
	if err != nil {
		return err
	}
	theme.SetActive(st.cfg.Appearance.Theme)

	// Force TrueColor profile so all background styling produces ANSI codes
	// Without this, lipgloss may default to Ascii profile (no colors)
	lipgloss.SetColorProfile(termenv.TrueColor)

	app := tui.NewApp(tui.Options{
		Config:    st.cfg,
		Usage:     st.usage,
		Rates:     st.rates,
		Months:    st.months,
		AllMonths: st.allMonths,
		Debounce:  st.cfg.Server.Debounce(),
		NeedSetup: !config.Exists(),
		Save:      config.Save,
		Logger:    logging.L(),
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

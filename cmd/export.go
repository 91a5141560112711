package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/logging"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
	"github.com/theirongolddev/tiercost/internal/store"
)

var (
	flagExportDB    string
	flagExportLabel string
	flagRunsShow    int64
	flagRunsDelete  int64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the computed schedule to a SQLite file",
	RunE:  runExport,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, show or delete exported schedules",
	RunE:  runRuns,
}

func init() {
	defaultDB := filepath.Join(config.StateDir(), "runs.db")

	exportCmd.Flags().StringVar(&flagExportDB, "db", defaultDB, "Export database path")
	exportCmd.Flags().StringVar(&flagExportLabel, "label", "", "Label stored with the run (default: timestamp)")

	runsCmd.Flags().StringVar(&flagExportDB, "db", defaultDB, "Export database path")
	runsCmd.Flags().Int64Var(&flagRunsShow, "show", 0, "Print the run with this id")
	runsCmd.Flags().Int64Var(&flagRunsDelete, "delete", 0, "Delete the run with this id")
	runsCmd.MarkFlagsMutuallyExclusive("show", "delete")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runsCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings(cmd, "")
	if err != nil {
		return err
	}

	rows, err := pipeline.ComputeMonthlySchedule(st.usage, st.rates, st.months)
	if err != nil {
		return err
	}

	label := flagExportLabel
	if label == "" {
		label = time.Now().Format("2006-01-02 15:04")
	}

	s, err := store.Open(flagExportDB)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	id, err := s.SaveRun(label, st.usage, rows)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	logging.L().Info("run exported",
		zap.Int64("id", id),
		zap.String("db", flagExportDB),
		zap.Int("months", len(rows)),
	)

	summary := model.Summarize(rows)
	fmt.Printf("  Saved run %d %q to %s\n", id, label, flagExportDB)
	fmt.Printf("  %d months, total %s\n", summary.Months, cli.FormatMoney(summary.TotalCost))
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(cmd, ""); err != nil {
		return err
	}

	s, err := store.Open(flagExportDB)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	switch {
	case cmd.Flags().Changed("delete"):
		if err := s.DeleteRun(flagRunsDelete); err != nil {
			return err
		}
		fmt.Printf("  Deleted run %d\n", flagRunsDelete)
		return nil
	case cmd.Flags().Changed("show"):
		run, err := s.LoadRun(flagRunsShow)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(cli.RenderTitle(fmt.Sprintf("RUN %d  %s", run.ID, run.Label)))
		fmt.Printf("  %s  saved %s\n", run.UUID, run.CreatedAt.Local().Format(time.RFC3339))
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.ScheduleTable("Monthly costs", pipeline.VisibleRows(run.Rows, flagAllMonths))))
		fmt.Println()
		fmt.Print(cli.RenderSummary(model.Summarize(run.Rows)))
		return nil
	}

	runs, err := s.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("\n  No exported runs.")
		return nil
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(runsTable(runs)))
	return nil
}

func runsTable(runs []store.RunInfo) cli.Table {
	t := cli.Table{
		Title:   "Exported runs",
		Headers: []string{"ID", "Run", "Label", "Created", "Months", "First Month", "Total"},
	}
	for _, r := range runs {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.UUID.String()[:8],
			r.Label,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			cli.FormatNumber(int64(r.Months)),
			cli.FormatMoney(r.FirstMonthCost),
			cli.FormatMoney(r.TotalCost),
		})
	}
	return t
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/model"
	"github.com/theirongolddev/tiercost/internal/pipeline"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Print the monthly cost schedule",
	RunE:  runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings(cmd, "")
	if err != nil {
		return err
	}

	rows, err := pipeline.ComputeMonthlySchedule(st.usage, st.rates, st.months)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("\n  No months to project.")
		return nil
	}

	totals := make([]float64, len(rows))
	for i, r := range rows {
		totals[i] = r.MonthTotalCost
	}

	view := "year ends"
	if st.allMonths {
		view = "all months"
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("COST SCHEDULE  %d months  %s", len(rows), st.cfg.General.Currency)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.ScheduleTable("Monthly costs ("+view+")", pipeline.VisibleRows(rows, st.allMonths))))
	fmt.Println()
	fmt.Print(cli.RenderSummary(model.Summarize(rows)))
	fmt.Printf("  %-16s%s\n", "Trend", cli.RenderSparkline(totals))

	var off []string
	for _, c := range model.AddOnCategories {
		if a, _ := st.usage.AddOn(c); !a.Enabled && a.Count > 0 {
			off = append(off, c.ShortLabel())
		}
	}
	if len(off) > 0 {
		fmt.Println()
		fmt.Print(cli.RenderWarning(fmt.Sprintf("Add-ons not included: %v (enable with --ocpp/--oscp/--dnp3)", off)))
	}
	fmt.Println()
	return nil
}

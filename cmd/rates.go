package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tiercost/internal/cli"
)

var flagRatesAll bool

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Show the tier rate tables",
	RunE:  runRates,
}

func init() {
	ratesCmd.Flags().BoolVar(&flagRatesAll, "all", false, "Include disabled add-ons")
	rootCmd.AddCommand(ratesCmd)
}

func runRates(cmd *cobra.Command, _ []string) error {
	st, err := loadSettings(cmd, "")
	if err != nil {
		return err
	}

	cats := st.rates.VisibleCategories(st.usage)
	if flagRatesAll {
		cats = st.rates.Categories()
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SUBSCRIPTION RATES"))
	fmt.Println()
	for _, cr := range st.rates.Breakdowns(cats) {
		fmt.Print(cli.RenderTable(cli.RateTable(cr)))
		fmt.Println()
	}
	if !flagRatesAll && len(cats) < len(st.rates.Categories()) {
		fmt.Print(cli.RenderWarning("Disabled add-ons hidden; use --all to show them."))
		fmt.Println()
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Portfolio summary: payments, revenue and repairs",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	result, err := loadLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	stats := pipeline.NewAggregatorFromConfig(cfg).Aggregate(result.Latest)
	cur := cfg.Billing.Currency

	fmt.Println()
	fmt.Println(cli.RenderTitle(summaryTitle(result)))
	fmt.Println()

	if result.Err != nil {
		fmt.Println("  " + cli.RenderWarning("Ledger unavailable; figures below are empty. Retry shortly."))
		fmt.Println()
	} else if stats.UnitCount == 0 {
		fmt.Println("  No units found in the ledger.")
		fmt.Println("  Check the sheet has a unit column (see `rentroll config`).")
		return nil
	}

	rows := [][]string{
		{"Units", cli.FormatNumber(int64(stats.UnitCount))},
		{"Paid", cli.FormatNumber(int64(stats.PaidCount))},
		{"Unpaid", cli.FormatNumber(int64(stats.UnpaidCount))},
		{"Paid Rate", cli.FormatPercent(stats.PaidFraction())},
		{"---"},
		{"Projected Revenue", cli.FormatMoney(stats.TotalProjectedRevenue, cur)},
		{"Derived Revenue", cli.FormatMoney(stats.DerivedRevenue, cur)},
		{"---"},
		{"Pending Repairs", cli.FormatNumber(int64(stats.PendingRepairCount))},
		{"Repair Cost", cli.FormatMoney(stats.TotalRepairCost, cur)},
		{"Meter Anomalies", cli.FormatNumber(int64(stats.AnomalyCount))},
	}

	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Metric", "Value"},
		Rows:    rows,
	}))
	fmt.Println()
	fmt.Println("  " + cli.RenderRatioBar(stats.PaidCount, stats.UnitCount, 40))

	printSummaryNotes(stats, cur)

	if len(result.Issues) > 0 && !flagQuiet {
		fmt.Fprintf(os.Stderr, "\n  %d data issues were recovered (see `rentroll units --issues`)\n", len(result.Issues))
	}
	return nil
}

func summaryTitle(res *pipeline.LoadResult) string {
	period := ""
	for _, r := range res.Latest {
		if pipeline.ComparePeriodsOf(r, model.UnitPeriodRecord{Period: period}) > 0 {
			period = r.Period
		}
	}
	if period == "" {
		return "RENT ROLL"
	}
	return "RENT ROLL  " + period
}

func printSummaryNotes(stats model.PortfolioSummary, cur string) {
	if stats.HasDiscrepancy() {
		fmt.Println()
		fmt.Println("  " + cli.RenderWarning(fmt.Sprintf(
			"Projected revenue uses the sheet's own totals for %d units and differs from billing by %s.",
			stats.SourceCombinedCount, cli.FormatSignedMoney(stats.RevenueDiscrepancy, cur))))
		fmt.Println("  " + cli.RenderMuted("Per-unit bills are always recomputed from readings; check those rows in the sheet."))
	}
	if stats.AnomalyCount > 0 {
		fmt.Println()
		fmt.Println("  " + cli.RenderWarning(fmt.Sprintf(
			"%d units have a current meter reading below the previous one (run `rentroll units` to see them).",
			stats.AnomalyCount)))
	}
}

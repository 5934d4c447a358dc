package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/model"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

var (
	flagUnitsAll    bool
	flagUnitsUnpaid bool
	flagUnitsIssues bool
)

var unitsCmd = &cobra.Command{
	Use:   "units",
	Short: "List units with billing for the latest period",
	RunE:  runUnits,
}

func init() {
	unitsCmd.Flags().BoolVarP(&flagUnitsAll, "all", "a", false, "Show every period, not just the latest per unit")
	unitsCmd.Flags().BoolVarP(&flagUnitsUnpaid, "unpaid", "u", false, "Only units not marked paid")
	unitsCmd.Flags().BoolVar(&flagUnitsIssues, "issues", false, "List recovered data issues instead of units")
	rootCmd.AddCommand(unitsCmd)
}

func runUnits(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := requireLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if flagUnitsIssues {
		printIssues(result.Issues)
		return nil
	}

	records := result.Latest
	if flagUnitsAll {
		records = result.Records
	}
	if flagUnitsUnpaid {
		records = pipeline.FilterUnpaid(records)
	}

	if len(records) == 0 {
		fmt.Println("\n  No matching units.")
		return nil
	}

	tariff := cfg.Tariff()
	cur := cfg.Billing.Currency
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		b := pipeline.BillRecord(rec, tariff)
		usage := cli.FormatUnits(b.UsageUnits)
		if b.MeterAnomaly {
			usage += " !"
		}
		repair := ""
		if b.HasRepairFee() {
			repair = cli.FormatMoney(b.RepairFee, cur)
		}
		rows = append(rows, []string{
			rec.UnitID,
			cli.OrDash(rec.Period),
			cli.OrDash(rec.TenantName),
			statusLabel(rec),
			usage,
			cli.FormatMoney(b.RentDue, cur),
			repair,
		})
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Units (%d)", len(records)),
		Headers:   []string{"Unit", "Period", "Tenant", "Status", "Usage", "Rent Due", "Repair"},
		Rows:      rows,
		LeftAlign: []int{1, 2, 3},
	}))
	return nil
}

func statusLabel(rec model.UnitPeriodRecord) string {
	label := string(rec.PaymentStatus)
	if rec.StatusRaw != "" && rec.StatusRaw != label {
		label += " (" + rec.StatusRaw + ")"
	}
	return cli.RenderStatus(label, rec.PaymentStatus.IsPaid())
}

func printIssues(issues []model.RowIssue) {
	if len(issues) == 0 {
		fmt.Println("\n  No data issues.")
		return
	}
	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{fmt.Sprint(is.Row), string(is.Kind), is.Field, cli.OrDash(is.Raw)})
	}
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     fmt.Sprintf("Recovered issues (%d)", len(issues)),
		Headers:   []string{"Row", "Kind", "Field", "Value"},
		Rows:      rows,
		LeftAlign: []int{1, 2, 3},
	}))
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

var flagBillWithRepair bool

var billCmd = &cobra.Command{
	Use:   "bill <unit>",
	Short: "Itemized bill for one unit's latest period",
	Args:  cobra.ExactArgs(1),
	RunE:  runBill,
}

func init() {
	billCmd.Flags().BoolVar(&flagBillWithRepair, "with-repair", false, "Also show rent due plus the repair fee as one figure")
	rootCmd.AddCommand(billCmd)
}

func runBill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := requireLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	bill, rec, err := pipeline.BillUnit(result.Records, args[0], cfg.Tariff())
	if err != nil {
		return err
	}

	cur := cfg.Billing.Currency
	rows := [][]string{
		{"Period", cli.OrDash(rec.Period)},
		{"Tenant", cli.OrDash(rec.TenantName)},
		{"Company", cli.OrDash(rec.CompanyName)},
		{"Status", statusLabel(rec)},
		{"---"},
		{"Meter (prev)", cli.FormatUnits(rec.MeterPrevious)},
		{"Meter (cur)", cli.FormatUnits(rec.MeterCurrent)},
		{"Usage", cli.FormatUnits(bill.UsageUnits)},
		{"Rate", cli.FormatMoney(bill.Rate, cur)},
		{"Utility", cli.FormatMoney(bill.UtilityCharge, cur)},
		{"Base Rent", cli.FormatMoney(bill.BaseRent, cur)},
		{"---"},
		{"Rent Due", cli.FormatMoney(bill.RentDue, cur)},
		{"Repair Fee", cli.FormatMoney(bill.RepairFee, cur)},
	}
	if rec.DamagedItem != "" || rec.RepairStatus != "" {
		rows = append(rows, []string{"Repair", fmt.Sprintf("%s %s", cli.OrDash(rec.DamagedItem), rec.RepairStatus)})
	}
	if flagBillWithRepair {
		rows = append(rows, []string{"---"}, []string{"Rent + Repair", cli.FormatMoney(bill.CombinedWithRepair(), cur)})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("UNIT " + rec.UnitID))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Item", "Amount"},
		Rows:    rows,
	}))

	if bill.MeterAnomaly {
		fmt.Println()
		fmt.Println("  " + cli.RenderWarning("Current meter reading is below the previous one; usage and utility are negative."))
	}
	if rec.CombinedDue.Valid && !rec.CombinedDue.Decimal.Equal(bill.RentDue) {
		fmt.Println()
		fmt.Println("  " + cli.RenderMuted(fmt.Sprintf("Sheet total for this unit is %s; the bill above is recomputed from readings.",
			cli.FormatMoney(rec.CombinedDue.Decimal, cur))))
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/export"
	"github.com/theirongolddev/rentroll/internal/notice"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

var (
	flagExportXLSX    string
	flagExportNotices string
	flagExportAll     bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the billed ledger to XLSX and notices to PDF",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagExportXLSX, "xlsx", "rentroll.xlsx", "Workbook output path (empty to skip)")
	exportCmd.Flags().StringVar(&flagExportNotices, "notices", "", "Directory for one PDF notice per unpaid unit")
	exportCmd.Flags().BoolVarP(&flagExportAll, "all", "a", false, "Export every period, not just the latest per unit")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	result, err := requireLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	records := result.Latest
	if flagExportAll {
		records = result.Records
	}
	tariff := cfg.Tariff()
	bills := pipeline.BillAll(records, tariff)

	if flagExportXLSX != "" {
		data, err := export.LedgerXLSX(export.Report{
			Records:     records,
			Bills:       bills,
			Summary:     pipeline.NewAggregatorFromConfig(cfg).Aggregate(result.Latest),
			Issues:      result.Issues,
			Currency:    cfg.Billing.Currency,
			GeneratedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("building workbook: %w", err)
		}
		if err := os.WriteFile(flagExportXLSX, data, 0o600); err != nil {
			return fmt.Errorf("writing workbook: %w", err)
		}
		fmt.Printf("  Wrote %s (%d rows)\n", flagExportXLSX, len(records))
	}

	if flagExportNotices != "" {
		composer, err := notice.NewComposer(cfg)
		if err != nil {
			return err
		}
		var files []export.NoticeFile
		for _, rec := range pipeline.FilterUnpaid(result.Latest) {
			b := pipeline.BillRecord(rec, tariff)
			files = append(files, export.NoticeFile{
				Name:  rec.UnitID,
				Title: "Notice " + rec.UnitID,
				Text:  composer.Compose(rec, b),
			})
		}
		if err := export.WriteNoticePDFs(cmd.Context(), flagExportNotices, cfg.Notice.PDFFont, files); err != nil {
			return err
		}
		fmt.Printf("  Wrote %d notices to %s\n", len(files), flagExportNotices)
	}
	return nil
}

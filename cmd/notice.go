package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/dispatch"
	"github.com/theirongolddev/rentroll/internal/export"
	"github.com/theirongolddev/rentroll/internal/notice"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

var (
	flagNoticePDF     string
	flagNoticePublish bool
)

var noticeCmd = &cobra.Command{
	Use:   "notice <unit>",
	Short: "Compose the tenant notice for one unit",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotice,
}

func init() {
	noticeCmd.Flags().StringVar(&flagNoticePDF, "pdf", "", "Also write the notice to this PDF file")
	noticeCmd.Flags().BoolVar(&flagNoticePublish, "publish", false, "Publish the notice to the configured AMQP exchange")
	rootCmd.AddCommand(noticeCmd)
}

func runNotice(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	composer, err := notice.NewComposer(cfg)
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
	text := composer.Compose(rec, bill)

	fmt.Println()
	fmt.Println(text)
	fmt.Println()

	if flagNoticePDF != "" {
		data, err := export.NoticePDF("Notice "+rec.UnitID, text, cfg.Notice.PDFFont)
		if err != nil {
			return fmt.Errorf("rendering pdf: %w", err)
		}
		if err := os.WriteFile(flagNoticePDF, data, 0o600); err != nil {
			return fmt.Errorf("writing pdf: %w", err)
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Wrote %s\n", flagNoticePDF)
		}
	}

	if flagNoticePublish {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		pub, err := dispatch.NewPublisher(ctx, cfg.Dispatch, 3)
		if err != nil {
			return err
		}
		defer func() { _ = pub.Close() }()

		if err := pub.Publish(ctx, dispatch.NewNoticeMessage(rec, bill, text)); err != nil {
			return err
		}
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Published to %s (%s)\n", cfg.Dispatch.Exchange, cfg.Dispatch.RoutingKey)
		}
	}
	return nil
}

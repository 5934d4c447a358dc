package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/pipeline"
	"github.com/theirongolddev/rentroll/internal/source"
	"github.com/theirongolddev/rentroll/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check source connectivity and snapshot cache health",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle("SOURCE STATUS"))
	fmt.Println()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Source.Timeout.Duration+5*time.Second)
	defer cancel()

	start := time.Now()
	table, fetchErr := src.Fetch(ctx)
	took := time.Since(start).Round(time.Millisecond)

	rows := [][]string{{"Source", src.Key()}}
	if fetchErr != nil {
		rows = append(rows,
			[]string{"Reachable", cli.RenderStatus("no", false)},
			[]string{"Error", fetchErr.Error()},
		)
	} else {
		rows = append(rows,
			[]string{"Reachable", cli.RenderStatus("yes", true)},
			[]string{"Rows", formatNumber(int64(table.Len()))},
			[]string{"Columns", formatNumber(int64(len(table.Header)))},
			[]string{"Latency", took.String()},
		)
		norm := pipeline.NewNormalizerFromConfig(cfg).Normalize(table)
		if len(norm.Missing) > 0 {
			names := make([]string, len(norm.Missing))
			for i, f := range norm.Missing {
				names[i] = f.String()
			}
			rows = append(rows, []string{"Missing", strings.Join(names, ", ")})
		}
	}
	fmt.Print(cli.RenderTable(cli.Table{
		Headers:   []string{"Check", "Result"},
		Rows:      rows,
		LeftAlign: []int{1},
	}))

	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		fmt.Printf("  %s\n\n", cli.RenderWarning("Snapshot cache unavailable: "+err.Error()))
		return nil
	}
	defer func() { _ = cache.Close() }()

	if fetchErr == nil {
		_ = cache.RecordFetch(src.Key(), time.Now(), table.Len(), nil)
	} else {
		_ = cache.RecordFetch(src.Key(), time.Now(), 0, fetchErr)
	}

	snaps, err := cache.Snapshots()
	if err != nil {
		return fmt.Errorf("reading cache: %w", err)
	}
	now := time.Now()
	if len(snaps) > 0 {
		snapRows := make([][]string, 0, len(snaps))
		for _, s := range snaps {
			snapRows = append(snapRows, []string{s.Key, formatNumber(int64(s.Rows)), cli.FormatAge(s.FetchedAt, now)})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:     "Cached Snapshots",
			Headers:   []string{"Source", "Rows", "Age"},
			Rows:      snapRows,
			LeftAlign: []int{0},
		}))
	}

	fetches, err := cache.RecentFetches(src.Key(), 10)
	if err != nil {
		return fmt.Errorf("reading fetch log: %w", err)
	}
	if len(fetches) > 0 {
		logRows := make([][]string, 0, len(fetches))
		for _, f := range fetches {
			result := cli.RenderStatus("ok", true)
			if f.Error != "" {
				result = cli.RenderStatus(f.Error, false)
			}
			logRows = append(logRows, []string{f.FetchedAt.Local().Format("01-02 15:04:05"), formatNumber(int64(f.Rows)), result})
		}
		fmt.Print(cli.RenderTable(cli.Table{
			Title:     "Recent Fetches",
			Headers:   []string{"When", "Rows", "Result"},
			Rows:      logRows,
			LeftAlign: []int{0, 2},
		}))
	}

	if n, err := cache.PruneFetches(now.AddDate(0, 0, -30)); err == nil && n > 0 && !flagQuiet {
		fmt.Printf("  Pruned %d fetch log entries older than 30 days\n\n", n)
	}
	return nil
}

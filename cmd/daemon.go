package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/rentroll/internal/cli"
	"github.com/theirongolddev/rentroll/internal/config"
	"github.com/theirongolddev/rentroll/internal/daemon"
	"github.com/theirongolddev/rentroll/internal/pipeline"
)

const defaultDaemonAddr = "127.0.0.1:8788"

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonLogLevel     string
	flagDaemonLogJSON      bool
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Poll the ledger in the background and serve it over HTTP",
	Long: "Poll the ledger source on an interval and serve status, summary, per-unit billing\n" +
		"and notices as JSON, plus Prometheus metrics at /metrics.",
	RunE: runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and latest poll",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	pf := daemonCmd.PersistentFlags()
	pf.StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default [daemon].addr)")
	pf.DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default [daemon].interval)")
	pf.StringVar(&flagDaemonPIDFile, "pid-file", filepath.Join(pipeline.CacheDir(), "rentrolld.pid"), "PID file path")
	pf.StringVar(&flagDaemonLogFile, "log-file", filepath.Join(pipeline.CacheDir(), "rentrolld.log"), "Log file used by --detach")
	pf.IntVar(&flagDaemonEventsBuffer, "events-buffer", 200, "Ledger change events kept in memory")

	daemonCmd.Flags().StringVar(&flagDaemonLogLevel, "log-level", "info", "Log level: debug, info, warn or error")
	daemonCmd.Flags().BoolVar(&flagDaemonLogJSON, "log-json", false, "Write JSON log lines")
	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run in the background")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: mark detached child process")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd, daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("--detach and --child are mutually exclusive")
	}
	files := daemonFiles{pid: flagDaemonPIDFile}
	if err := files.ensureStopped(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagDaemonDetach {
		return startDetached(cfg)
	}
	return serveDaemon(cfg, files)
}

// daemonAddr resolves the listen address: flag, then config, then default.
func daemonAddr(cfg config.Config) string {
	switch {
	case flagDaemonAddr != "":
		return flagDaemonAddr
	case cfg.Daemon.Addr != "":
		return cfg.Daemon.Addr
	}
	return defaultDaemonAddr
}

func daemonInterval(cfg config.Config) time.Duration {
	switch {
	case flagDaemonInterval > 0:
		return flagDaemonInterval
	case cfg.Daemon.Interval.Duration > 0:
		return cfg.Daemon.Interval.Duration
	}
	return 30 * time.Second
}

func newDaemonLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagDaemonLogLevel)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if flagDaemonLogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

// startDetached re-executes the current command line as a child process
// whose output goes to the daemon log file.
func startDetached(cfg config.Config) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	args := append(withoutDetach(os.Args[1:]), "--child")

	if err := os.MkdirAll(filepath.Dir(flagDaemonLogFile), 0o750); err != nil {
		return fmt.Errorf("create daemon log directory: %w", err)
	}
	//nolint:gosec // daemon log path is configured by the local user
	logf, err := os.OpenFile(flagDaemonLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open daemon log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Env = os.Environ()
	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached daemon: %w", err)
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Daemon started",
		Headers: []string{"Item", "Value"},
		Rows: [][]string{
			{"PID", fmt.Sprint(child.Process.Pid)},
			{"API", "http://" + daemonAddr(cfg) + "/v1/status"},
			{"PID file", flagDaemonPIDFile},
			{"Log", flagDaemonLogFile},
		},
		LeftAlign: []int{1},
	}))
	return nil
}

func withoutDetach(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func serveDaemon(cfg config.Config, files daemonFiles) error {
	logger, err := newDaemonLogger()
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Poll progress goes to the structured log.
	flagQuiet = true
	loader, closeLoader, err := newLoader(cfg, !flagNoCache)
	if err != nil {
		return err
	}
	defer closeLoader()

	addr := daemonAddr(cfg)
	interval := daemonInterval(cfg)
	srcKey := loader.Source.Key()

	release, err := files.claim(daemonRuntimeState{
		PID:       os.Getpid(),
		Addr:      addr,
		StartedAt: time.Now(),
		Source:    srcKey,
	})
	if err != nil {
		return err
	}
	defer release()

	svc, err := daemon.New(daemon.Config{
		Loader:       loader,
		App:          cfg,
		SourceName:   srcKey,
		Interval:     interval,
		Addr:         addr,
		EventsBuffer: flagDaemonEventsBuffer,
	})
	if err != nil {
		return err
	}

	fmt.Printf("  rentroll daemon listening on http://%s\n", addr)
	fmt.Printf("  Polling %s every %s\n", srcKey, interval)
	fmt.Printf("  Stop with: rentroll daemon stop --pid-file %s\n", files.pid)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(cmd *cobra.Command, _ []string) error {
	files := daemonFiles{pid: flagDaemonPIDFile}
	pid, alive, err := files.running()
	switch {
	case err != nil:
		fmt.Println("  Daemon: not running")
		return nil
	case !alive:
		fmt.Printf("  Daemon: stale pid file (pid %d not alive)\n", pid)
		return nil
	}

	addr := flagDaemonAddr
	if st, err := files.readState(); err == nil && st.Addr != "" {
		addr = st.Addr
	}
	if addr == "" {
		addr = defaultDaemonAddr
	}

	rows := [][]string{
		{"PID", fmt.Sprint(pid)},
		{"Address", "http://" + addr},
	}
	st, err := fetchDaemonStatus(cmd.Context(), addr)
	if err != nil {
		rows = append(rows, []string{"API", err.Error()})
	} else {
		lastPoll := "pending"
		if !st.LastPollAt.IsZero() {
			lastPoll = cli.FormatAge(st.LastPollAt, time.Now())
		}
		rows = append(rows,
			[]string{"Source", st.Source},
			[]string{"Last poll", lastPoll},
			[]string{"Polls", cli.FormatNumber(st.PollCount)},
			[]string{"---"},
			[]string{"Units", fmt.Sprintf("%d (%d paid, %d unpaid)", st.Summary.Units, st.Summary.Paid, st.Summary.Unpaid)},
			[]string{"Projected revenue", cli.FormatMoney(st.Summary.ProjectedRevenue, "")},
			[]string{"Pending repairs", fmt.Sprint(st.Summary.PendingRepairs)},
			[]string{"Meter anomalies", fmt.Sprint(st.Summary.Anomalies)},
		)
		if st.LastError != "" {
			rows = append(rows, []string{"Last error", st.LastError})
		}
	}

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:     "Daemon",
		Headers:   []string{"Item", "Value"},
		Rows:      rows,
		LeftAlign: []int{1},
	}))
	return nil
}

func fetchDaemonStatus(ctx context.Context, addr string) (*daemon.Status, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/v1/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	return &st, nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pid: flagDaemonPIDFile}
	pid, alive, err := files.running()
	if err != nil || !alive {
		files.clear()
		return errors.New("daemon is not running")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find daemon process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal daemon process: %w", err)
	}

	deadline := time.Now().Add(8 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			files.clear()
			fmt.Printf("  Stopped daemon (pid %d)\n", pid)
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit in time", pid)
}

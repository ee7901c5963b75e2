package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/daemon"
	"github.com/theirongolddev/spendburn/internal/notify"
	"github.com/theirongolddev/spendburn/internal/store"
)

var (
	flagDaemonAddr         string
	flagDaemonInterval     time.Duration
	flagDaemonDetach       bool
	flagDaemonPIDFile      string
	flagDaemonLogFile      string
	flagDaemonEventsBuffer int
	flagDaemonChild        bool
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Watch the ledger and serve reports over HTTP/SSE",
	RunE:  runDaemon,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon process and API status",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	RunE:  runDaemonStop,
}

func init() {
	defaultPID := filepath.Join(store.CacheDir(), "spendburnd.pid")
	defaultLog := filepath.Join(store.CacheDir(), "spendburnd.log")

	daemonCmd.PersistentFlags().StringVar(&flagDaemonAddr, "addr", "", "HTTP listen address (default [daemon] addr)")
	daemonCmd.PersistentFlags().DurationVar(&flagDaemonInterval, "interval", 0, "Polling interval (default [daemon] interval_sec)")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonPIDFile, "pid-file", defaultPID, "Where the watcher records its pid")
	daemonCmd.PersistentFlags().StringVar(&flagDaemonLogFile, "log-file", defaultLog, "Where a detached watcher writes its log")
	daemonCmd.PersistentFlags().IntVar(&flagDaemonEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default [daemon] events_buffer)")

	daemonCmd.Flags().BoolVar(&flagDaemonDetach, "detach", false, "Run daemon as a background process")
	daemonCmd.Flags().BoolVar(&flagDaemonChild, "child", false, "Internal: set on the re-executed detached watcher")
	_ = daemonCmd.Flags().MarkHidden("child")

	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}

// applyDaemonDefaults fills unset daemon flags from the config file.
func applyDaemonDefaults(cfg config.DaemonConfig) {
	if flagDaemonAddr == "" {
		flagDaemonAddr = cfg.Addr
	}
	if flagDaemonInterval == 0 {
		flagDaemonInterval = cfg.Interval()
	}
	if flagDaemonEventsBuffer == 0 {
		flagDaemonEventsBuffer = cfg.EventsBuffer
	}
}

func runDaemon(_ *cobra.Command, _ []string) error {
	if flagDaemonDetach && flagDaemonChild {
		return errors.New("invalid daemon launch mode")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyDaemonDefaults(cfg.Daemon)

	if flagDaemonDetach {
		return startDaemonDetached()
	}
	return runDaemonForeground(cfg)
}

func startDaemonDetached() error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	if pid, err := files.livePID(); err == nil {
		return fmt.Errorf("spendburn daemon already running (pid %d)", pid)
	}

	pid, err := spawnDetached(flagDaemonLogFile)
	if err != nil {
		return err
	}

	fmt.Printf("  Started daemon (pid %d)\n", pid)
	fmt.Printf("  PID file: %s\n", flagDaemonPIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", flagDaemonAddr)
	fmt.Printf("  Log: %s\n", flagDaemonLogFile)
	return nil
}

func runDaemonForeground(cfg config.Config) error {
	path, err := ledgerPath(cfg)
	if err != nil {
		return err
	}
	opts, err := sourceOptions(cfg)
	if err != nil {
		return err
	}

	files := daemonFiles{pidPath: flagDaemonPIDFile}
	if err := files.claim(daemonRuntimeState{
		PID:        os.Getpid(),
		Addr:       flagDaemonAddr,
		StartedAt:  time.Now(),
		LedgerPath: path,
	}); err != nil {
		return err
	}
	defer files.clear()

	fc, closeCache, err := newForecaster(cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	pub, err := notify.New(cfg.Notify, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = pub.Close() }()

	svc := daemon.New(daemon.Config{
		LedgerPath:   path,
		Source:       opts,
		App:          cfg,
		Forecaster:   fc,
		Publisher:    pub,
		Logger:       slog.Default(),
		Interval:     flagDaemonInterval,
		Addr:         flagDaemonAddr,
		EventsBuffer: flagDaemonEventsBuffer,
	})

	fmt.Printf("  spendburn daemon listening on http://%s\n", flagDaemonAddr)
	fmt.Printf("  Polling every %s from %s\n", flagDaemonInterval, path)
	fmt.Printf("  Stop with: spendburn daemon stop --pid-file %s\n", flagDaemonPIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runDaemonStatus(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	pid, err := files.livePID()
	if err != nil {
		fmt.Printf("  Daemon: not running (%v)\n", err)
		return nil
	}

	addr := flagDaemonAddr
	if st, err := files.state(); err == nil && st.Addr != "" {
		addr = st.Addr
	}
	if addr == "" {
		addr = config.DefaultConfig().Daemon.Addr
	}

	fmt.Printf("  Daemon PID: %d\n", pid)
	fmt.Printf("  Address: http://%s\n", addr)

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status probe
	if err != nil {
		fmt.Printf("  API status: unreachable (%v)\n", err)
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  API status: HTTP %d\n", resp.StatusCode)
		return nil
	}

	var st daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		fmt.Printf("  API status: malformed response (%v)\n", err)
		return nil
	}

	if flagJSON {
		return printJSON(st)
	}

	if st.LastPollAt.IsZero() {
		fmt.Printf("  Last poll: pending\n")
	} else {
		fmt.Printf("  Last poll: %s\n", st.LastPollAt.Local().Format(time.RFC3339))
	}
	fmt.Printf("  Poll count: %d (%d reloads)\n", st.PollCount, st.LoadCount)
	fmt.Printf("  Ledger: %s\n", st.LedgerPath)
	fmt.Printf("  Transactions: %s\n", cli.FormatNumber(int64(st.Summary.Transactions)))
	fmt.Printf("  Total: %s\n", st.Summary.Total.StringFixed(2))
	if !st.Summary.Month.IsZero() {
		fmt.Printf("  %s spent: %s\n", st.Summary.Month, st.Summary.MonthSpent.StringFixed(2))
	}
	fmt.Printf("  Alerts firing: %d\n", st.Summary.Triggered)
	if st.LastError != "" {
		fmt.Printf("  Last error: %s\n", st.LastError)
	}
	return nil
}

func runDaemonStop(_ *cobra.Command, _ []string) error {
	files := daemonFiles{pidPath: flagDaemonPIDFile}
	pid, err := files.livePID()
	if err != nil {
		return err
	}
	if err := terminate(pid, 8*time.Second); err != nil {
		return err
	}
	files.clear()
	fmt.Printf("  Stopped daemon (pid %d)\n", pid)
	return nil
}

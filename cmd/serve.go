package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/tiercost/internal/cli"
	"github.com/theirongolddev/tiercost/internal/config"
	"github.com/theirongolddev/tiercost/internal/daemon"
	"github.com/theirongolddev/tiercost/internal/logging"
)

var (
	flagServeAddr         string
	flagServeDebounce     time.Duration
	flagServeDetach       bool
	flagServePIDFile      string
	flagServeLogFile      string
	flagServeEventsBuffer int
	flagServeChild        bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve live cost schedules over HTTP/SSE",
	RunE:  runServe,
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server process and API status",
	RunE:  runServeStatus,
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running server",
	RunE:  runServeStop,
}

func init() {
	defaultPID := filepath.Join(config.StateDir(), "tiercostd.pid")
	defaultLog := filepath.Join(config.StateDir(), "tiercostd.log")

	pf := serveCmd.PersistentFlags()
	pf.StringVar(&flagServeAddr, "addr", "", "HTTP listen address (default from config, 127.0.0.1:8787)")
	pf.DurationVar(&flagServeDebounce, "debounce", 0, "Settle time before usage updates are recalculated (default from config)")
	pf.StringVar(&flagServePIDFile, "pid-file", defaultPID, "PID file path")
	pf.StringVar(&flagServeLogFile, "log-file", defaultLog, "Log file path for detached mode")
	pf.IntVar(&flagServeEventsBuffer, "events-buffer", 0, "Max in-memory events retained (default from config)")

	serveCmd.Flags().BoolVar(&flagServeDetach, "detach", false, "Run the server as a background process")
	serveCmd.Flags().BoolVar(&flagServeChild, "child", false, "Internal: mark detached child process")
	_ = serveCmd.Flags().MarkHidden("child")

	serveCmd.AddCommand(serveStatusCmd)
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if flagServeDetach && flagServeChild {
		return errors.New("invalid server launch mode")
	}

	if flagServeDetach {
		return startServerDetached(cmd)
	}

	return runServerForeground(cmd)
}

// serverConfig resolves the service settings from config and flags.
func serverConfig(cmd *cobra.Command, st settings) daemon.Config {
	dc := daemon.Config{
		Addr:         st.cfg.Server.Addr,
		Months:       st.months,
		Usage:        st.usage,
		Rates:        st.rates,
		Debounce:     st.cfg.Server.Debounce(),
		EventsBuffer: st.cfg.Server.EventsBuffer,
		Logger:       logging.L(),
	}
	if flagServeAddr != "" {
		dc.Addr = flagServeAddr
	}
	if cmd.Flags().Changed("debounce") {
		dc.Debounce = flagServeDebounce
		if dc.Debounce == 0 {
			dc.Debounce = -1
		}
	}
	if flagServeEventsBuffer > 0 {
		dc.EventsBuffer = flagServeEventsBuffer
	}
	if dc.Addr == "" {
		dc.Addr = "127.0.0.1:8787"
	}
	return dc
}

func startServerDetached(cmd *cobra.Command) error {
	if err := daemon.ClaimPIDFile(flagServePIDFile); err != nil {
		return err
	}

	st, err := loadSettings(cmd, "none")
	if err != nil {
		return err
	}
	dc := serverConfig(cmd, st)

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	args := filterDetachArg(os.Args[1:])
	args = append(args, "--child")

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(flagServeLogFile), 0o750); err != nil {
		return fmt.Errorf("create server log directory: %w", err)
	}

	//nolint:gosec // server log path is configured by the local user
	logf, err := os.OpenFile(flagServeLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open server log file: %w", err)
	}
	defer func() { _ = logf.Close() }()

	child := exec.Command(exe, args...) //nolint:gosec // exe/args come from current process invocation
	child.Stdout = logf
	child.Stderr = logf
	child.Stdin = nil
	child.Env = os.Environ()

	if err := child.Start(); err != nil {
		return fmt.Errorf("start detached server: %w", err)
	}

	fmt.Printf("  Started server (pid %d)\n", child.Process.Pid)
	fmt.Printf("  PID file: %s\n", flagServePIDFile)
	fmt.Printf("  API: http://%s/v1/status\n", dc.Addr)
	fmt.Printf("  Log: %s\n", flagServeLogFile)
	return nil
}

func runServerForeground(cmd *cobra.Command) error {
	if err := daemon.ClaimPIDFile(flagServePIDFile); err != nil {
		return err
	}

	st, err := loadSettings(cmd, "")
	if err != nil {
		return err
	}
	dc := serverConfig(cmd, st)

	if err := os.MkdirAll(filepath.Dir(flagServePIDFile), 0o750); err != nil {
		return fmt.Errorf("create server directory: %w", err)
	}

	proc := daemon.Process{
		PID:       os.Getpid(),
		Addr:      dc.Addr,
		StartedAt: time.Now(),
		Config:    config.ConfigPath(),
	}
	if err := daemon.WritePIDFile(flagServePIDFile, proc); err != nil {
		return err
	}
	defer func() { _ = os.Remove(flagServePIDFile) }()

	svc := daemon.New(dc)

	fmt.Printf("  tiercost server listening on http://%s\n", dc.Addr)
	fmt.Printf("  Projecting %d months, debounce %s\n", dc.Months, dc.Debounce)
	fmt.Printf("  Stop with: tiercost serve stop --pid-file %s\n", flagServePIDFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runServeStatus(_ *cobra.Command, _ []string) error {
	proc, err := daemon.ReadPIDFile(flagServePIDFile)
	if err != nil {
		fmt.Printf("  Server: not running (pid file not found)\n")
		return nil
	}

	if !proc.Alive() {
		fmt.Printf("  Server: stale pid file (pid %d not alive)\n", proc.PID)
		return nil
	}

	addr := flagServeAddr
	if addr == "" {
		addr = proc.Addr
	}
	if addr == "" {
		addr = "127.0.0.1:8787"
	}

	fmt.Printf("  Server PID: %d\n", proc.PID)
	fmt.Printf("  Address: http://%s\n", addr)
	if !proc.StartedAt.IsZero() {
		fmt.Printf("  Started: %s\n", proc.StartedAt.Local().Format(time.RFC3339))
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/v1/status") //nolint:noctx // short status request
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

	fmt.Print(renderServerStatus(st))
	return nil
}

// renderServerStatus formats the body of a /v1/status response.
func renderServerStatus(st daemon.Status) string {
	var b strings.Builder
	if st.LastRecalcAt.IsZero() {
		b.WriteString("  Last recalc: pending\n")
	} else {
		fmt.Fprintf(&b, "  Last recalc: %s\n", st.LastRecalcAt.Local().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, "  Recalc count: %d\n", st.RecalcCount)
	fmt.Fprintf(&b, "  Revision: %d\n", st.Summary.Revision)
	if st.Pending {
		fmt.Fprintf(&b, "  Update pending (debounce %dms)\n", st.DebounceMS)
	}
	fmt.Fprintf(&b, "  Months: %d\n", st.Summary.Summary.Months)
	fmt.Fprintf(&b, "  First month: %s\n", cli.FormatMoney(st.Summary.Summary.FirstMonthCost))
	fmt.Fprintf(&b, "  Total: %s\n", cli.FormatMoney(st.Summary.Summary.TotalCost))
	fmt.Fprintf(&b, "  Subscribers: %d\n", st.SubscriberCount)
	if st.LastError != "" {
		fmt.Fprintf(&b, "  Last error: %s\n", st.LastError)
	}
	return b.String()
}

func runServeStop(_ *cobra.Command, _ []string) error {
	proc, err := daemon.ReadPIDFile(flagServePIDFile)
	if err != nil {
		return errors.New("server is not running")
	}
	if err := proc.Terminate(8 * time.Second); err != nil {
		return err
	}
	_ = os.Remove(flagServePIDFile)
	fmt.Printf("  Stopped server (pid %d)\n", proc.PID)
	return nil
}

func filterDetachArg(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if a == "--detach" || strings.HasPrefix(a, "--detach=") {
			continue
		}
		out = append(out, a)
	}
	return out
}

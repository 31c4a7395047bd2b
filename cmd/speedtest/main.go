package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const logFile = "speedtest.log"

type rootOptions struct {
	envFile  string
	logLevel string
	plain    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, newRootCmd()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "speedtest",
		Short: "Measure TCP and UDP throughput between a server and clients on the local network",
	}

	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Optional .env file with SPEEDTEST_* settings")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&opts.plain, "plain", false, "Print plain text instead of the interactive UI")

	cmd.AddCommand(newServerCmd(opts))
	cmd.AddCommand(newClientCmd(opts))
	return cmd
}

// setupLogging routes slog to stderr in plain mode and to a log file while
// the TUI owns the terminal. The returned closer releases the file.
func setupLogging(opts *rootOptions) (io.Closer, error) {
	level, err := parseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)
	if !opts.plain {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w, closer = f, f
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	log.SetOutput(w)
	return closer, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func closeLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close log file", "error", err)
	}
}

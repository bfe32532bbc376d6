package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/joshuapare/poolkit/internal/logger"
	"github.com/joshuapare/poolkit/pkg/mempool"
	"github.com/joshuapare/poolkit/pool"
)

var (
	// Global flags
	quiet    bool
	jsonOut  bool
	logLevel string
	logDir   string

	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "poolctl",
	Short: "Exercise and inspect memory-pool backends",
	Long: `poolctl runs allocation workloads against the poolkit backends
(pass_through, chained_pool, buddy, fixed_bitmap, one_big) and reports
pool statistics as a table, JSON or Prometheus metrics.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) { teardown() },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log to stderr at this level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write daily JSON log files to this directory")
}

func setup(cmd *cobra.Command, args []string) error {
	opts := logger.Options{Dir: logDir}
	if logLevel != "" || logDir != "" {
		opts.Enabled = true
		if logLevel != "" {
			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			opts.Level = level
		}
	}
	closer, err := logger.Init(opts)
	if err != nil {
		return err
	}
	logCloser = closer
	pool.SetLogger(logger.L)

	return mempool.Init()
}

func teardown() {
	mempool.Shutdown()
	pool.SetLogger(nil)
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

func execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		teardown()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printInfo prints to stdout unless --quiet is set.
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stdout, "%s\n", data)
	return err
}

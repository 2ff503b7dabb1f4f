// Package cmd provides the command-line interface for the monday-import tool.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/monday-import/internal/logging"
	"github.com/danielolaszy/monday-import/internal/telemetry"
)

// Version is reported in logs and trace resources.
const Version = "1.0.0"

const appName = "monday-import"

var (
	logLevel  string
	logFormat string
	logToFile bool
	traceRun  bool

	logFile         *os.File
	shutdownTracing telemetry.Shutdown
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Import a Monday.com board export into Linear",
	Long: `monday-import reads a Monday.com board export (CSV or XLSX) and creates the
matching projects or issues in Linear, driven by a mapping document.

A typical session validates the mapping, previews the import and then runs it:

  monday-import validate --config mapping.yaml --file board.xlsx
  monday-import dry-run  --config mapping.yaml --file board.xlsx
  monday-import run      --config mapping.yaml --file board.xlsx

Credentials are read from LINEAR_API_KEY or LINEAR_OAUTH_TOKEN (a .env file in
the working directory is honored). LINEAR_TEAM_ID overrides the team in the
mapping document.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupRuntime,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardownRuntime(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. An interrupt cancels a running import between units.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		_ = teardownRuntime(context.Background())
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json (default LOG_FORMAT or text)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "also write logs to ~/."+appName+"/logs")
	rootCmd.PersistentFlags().BoolVar(&traceRun, "trace", false, "print OpenTelemetry spans for each import phase to stderr")

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(dryRunCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(usersCmd)
}

func setupRuntime(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	level := firstNonEmpty(logLevel, env.Logging.Level, string(logging.LevelInfo))
	format := firstNonEmpty(logFormat, env.Logging.Format, string(logging.FormatText))

	var w io.Writer = cmd.ErrOrStderr()
	if logToFile {
		f, err := logging.OpenLogFile(appName)
		if err != nil {
			return err
		}
		logFile = f
		w = io.MultiWriter(w, f)
	}
	logging.Setup(w, logging.LogLevel(level), logging.LogFormat(format))

	var traceOut io.Writer
	if traceRun {
		traceOut = cmd.ErrOrStderr()
	}
	shutdown, err := telemetry.Setup(cmd.Context(), traceOut, Version)
	if err != nil {
		return err
	}
	shutdownTracing = shutdown

	logging.Debug("starting "+appName, "version", Version, "command", cmd.Name(), "log_level", level)
	return nil
}

func teardownRuntime(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var err error
	if shutdownTracing != nil {
		err = shutdownTracing(ctx)
		shutdownTracing = nil
	}
	if logFile != nil {
		if cerr := logFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close log file: %w", cerr)
		}
		logFile = nil
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

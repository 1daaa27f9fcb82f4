// Package main provides the easlog CLI. Every command resolves a build through
// the intercepted GraphQL client, so builds found by one command are announced
// to the broker and cached in the store like builds seen by the browser watcher.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"easlog/src/config"
	"easlog/src/logger"
	"easlog/src/pipeline"
	"easlog/src/provider"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	appConfig *config.Config
	appLogger logger.Logger

	configPath string
	verbose    bool
	logFormat  string
	outputDir  string
	concurrent int
	stripANSI  bool
)

var rootCmd = &cobra.Command{
	Use:   "easlog",
	Short: "easlog - export Expo EAS build logs and artifacts",
	Long: `easlog downloads the logs and artifacts of Expo EAS builds.

Build logs are stored by EAS as JSON-lines fragments. easlog fetches every
fragment, groups the lines by build phase and writes one readable document.

Mode is auto-detected: set REDPANDA_BROKERS to publish discovered builds and
export results to Redpanda, and POSTGRES_DSN to keep the export history.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		flags := cmd.Flags()
		if flags.Changed("output") {
			cfg.OutputDir = outputDir
		}
		if flags.Changed("concurrency") {
			cfg.Concurrency = concurrent
		}
		if flags.Changed("strip-ansi") {
			cfg.StripANSI = stripANSI
		}
		if flags.Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		appConfig = cfg
		appLogger = logger.NewLogrusLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file (default $EASLOG_CONFIG)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	pf.StringVarP(&outputDir, "output", "o", ".", "directory for exported files")
	pf.IntVar(&concurrent, "concurrency", 0, "parallel log fragment downloads")
	pf.BoolVar(&stripANSI, "strip-ansi", false, "remove terminal escapes from log messages")

	downloadCmd.Flags().String("kind", "app", "artifact to download: app or xcode")
	watchCmd.Flags().Bool("headless", false, "run Chrome without a window")
	watchCmd.Flags().String("profile", "", "Chrome user data directory (default $EASLOG_CHROME_PROFILE)")
	serveCmd.Flags().String("addr", "", "listen address (default $EASLOG_HTTP_ADDR or :8080)")

	rootCmd.AddCommand(logsCmd, downloadCmd, exportCmd, actionsCmd, viewCmd,
		watchCmd, agentCmd, serveCmd, mcpCmd, historyCmd, versionCmd)
}

// newPipeline wires a pipeline for the current command. Interactive commands
// pass quiet so log output doesn't tear the terminal UI.
func newPipeline(source string, quiet bool) (*pipeline.Pipeline, error) {
	log := appLogger
	if quiet && !verbose {
		log = logger.NewSilentLogger()
	}
	p, err := pipeline.New(appConfig, log, pipeline.Options{Source: source})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printError writes err with its hint when it maps to a known failure.
func printError(w io.Writer, err error) {
	var ue *provider.UserError
	if errors.As(provider.WrapError(err), &ue) {
		fmt.Fprintf(w, "Error: %s\n", ue.Message)
		if ue.Hint != "" {
			fmt.Fprintf(w, "Hint: %s\n", ue.Hint)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"easlog/src/actions"
	"easlog/src/aggregate"
	"easlog/src/artifact"
	"easlog/src/browser"
	"easlog/src/mcp"
	"easlog/src/pipeline"
	"easlog/src/provider"
	"easlog/src/server"
	"easlog/src/tui"
)

var logsCmd = &cobra.Command{
	Use:   "logs <build-url|build-id>",
	Short: "Aggregate a build's log fragments into one file",
	Long: `Fetch every log fragment of a build, group the lines by phase and save
the document as logs_<platform>_<version>-<build>_<profile>.log.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(args[0], actions.KindLogs)
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download <build-url|build-id>",
	Short: "Download the app archive or the Xcode log of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("kind")
		kind, err := actions.ParseKind(name)
		if err != nil {
			return err
		}
		if kind == actions.KindLogs {
			return fmt.Errorf("use 'easlog logs' for build logs")
		}
		return runSingle(args[0], kind)
	},
}

// runSingle resolves a build and runs one action on it.
func runSingle(buildURL string, kind actions.Kind) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, err := newPipeline("cli", false)
	if err != nil {
		return err
	}
	defer p.Close()

	rec, err := p.Resolve(ctx, buildURL)
	if err != nil {
		return err
	}

	res, err := p.Runner.Run(ctx, rec, kind)
	if res != nil {
		p.Record(context.WithoutCancel(ctx), []*actions.Result{res})
	}
	if err != nil {
		return err
	}

	fmt.Printf("✓ %s saved to %s (%s)\n", res.Action.Label, res.Path, formatBytes(res.Bytes))
	if res.Failures > 0 {
		fmt.Printf("  %d log fragments or lines could not be read\n", res.Failures)
	}
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export <build-url|build-id>",
	Short: "Run every available action for a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("cli", true)
		if err != nil {
			return err
		}
		defer p.Close()

		rec, err := p.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		if len(actions.For(rec)) == 0 {
			return fmt.Errorf("%w: build %s has no logs or artifacts", actions.ErrUnavailable, rec.ID)
		}

		events := make(chan actions.Event)
		results := make(chan []*actions.Result, 1)
		go func() {
			defer close(events)
			results <- p.Runner.RunAll(ctx, rec, func(ev actions.Event) {
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			})
		}()

		title := fmt.Sprintf("%s %s (%s)", rec.Slug, artifact.Prefix(rec), rec.Platform)
		final, err := tea.NewProgram(tui.NewExportModel(title, events)).Run()
		if err != nil {
			return fmt.Errorf("failed to run progress view: %w", err)
		}
		if m, ok := final.(tui.ExportModel); ok && m.Interrupted() {
			cancel()
		}

		out := <-results
		p.Record(context.WithoutCancel(ctx), out)

		failed := 0
		for _, res := range out {
			if !res.OK() {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d actions failed", failed, len(out))
		}
		return nil
	},
}

var actionsCmd = &cobra.Command{
	Use:   "actions <build-url|build-id>",
	Short: "List the downloads available for a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("cli", false)
		if err != nil {
			return err
		}
		defer p.Close()

		rec, err := p.Resolve(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Build %s: %s %s (%s)\n\n", rec.ID, rec.Slug, artifact.Prefix(rec), rec.Platform)
		available := actions.For(rec)
		if len(available) == 0 {
			fmt.Println("No downloads available.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ACTION\tFILENAME\tSOURCE")
		for _, a := range available {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Label, a.Filename, actionSource(a))
		}
		return tw.Flush()
	},
}

func actionSource(a actions.Action) string {
	if a.Kind == actions.KindLogs {
		return fmt.Sprintf("%d fragments", a.Fragments)
	}
	return a.URL
}

var viewCmd = &cobra.Command{
	Use:   "view <build-url|build-id>",
	Short: "Browse a build's logs by phase",
	Long: `Aggregate a build's logs and browse them in the terminal.

Keys: ↑/↓ select a phase, Enter reads its lines, / searches, s saves the
document, q quits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("cli", true)
		if err != nil {
			return err
		}
		defer p.Close()

		load := func() (*provider.BuildRecord, *aggregate.Result, error) {
			rec, err := p.Resolve(ctx, args[0])
			if err != nil {
				return nil, nil, provider.WrapError(err)
			}
			return rec, p.Aggregator.Run(ctx, rec.LogFragmentURLs), nil
		}
		save := func(rec *provider.BuildRecord, document string) (string, error) {
			path, _, err := p.Saver.Save(artifact.LogsFilename(rec), strings.NewReader(document))
			return path, err
		}

		_, err = tea.NewProgram(tui.NewMainModel(load, save), tea.WithAltScreen()).Run()
		return err
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <dashboard-url>",
	Short: "Open the EAS dashboard and add download buttons to build pages",
	Long: `Open the dashboard in Chrome and watch its GraphQL traffic. Every build the
page loads gets Logs, Xcode Logs and App buttons next to "Install"; clicking
one saves the file to the output directory.

Sign in once with a persistent --profile and later runs reuse the session.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("browser", false)
		if err != nil {
			return err
		}
		defer p.Close()

		headless, _ := cmd.Flags().GetBool("headless")
		profile, _ := cmd.Flags().GetString("profile")
		if profile == "" {
			profile = appConfig.ChromeProfile
		}

		w := browser.NewWatcher(p.Registry, recordingRunner(p), appLogger, browser.Options{
			ProfileDir: profile,
			Headless:   headless,
		})
		return w.Run(ctx, args[0])
	},
}

// recordingRunner runs an action and records its outcome.
func recordingRunner(p *pipeline.Pipeline) browser.RunFunc {
	return func(ctx context.Context, rec *provider.BuildRecord, kind actions.Kind) (*actions.Result, error) {
		res, err := p.Runner.Run(ctx, rec, kind)
		if res != nil {
			p.Record(context.WithoutCancel(ctx), []*actions.Result{res})
		}
		return res, err
	}
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Export builds received from the broker",
	Long: `Consume export requests and discovered builds from the broker, run their
actions and record the results. Requires REDPANDA_BROKERS to share work
across processes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("agent", false)
		if err != nil {
			return err
		}
		defer p.Close()

		if p.Mode != pipeline.AgenticMode {
			appLogger.Info("[Agent] REDPANDA_BROKERS is not set; only builds from this process will be exported")
		}
		if err := p.NewAgent().Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve build downloads over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("server", false)
		if err != nil {
			return err
		}
		defer p.Close()

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = appConfig.HTTPAddr
		}
		return server.New(p).ListenAndServe(ctx, addr)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol, so nothing else may write to it.
		p, err := newPipeline("mcp", true)
		if err != nil {
			return err
		}
		defer p.Close()

		return mcp.NewServer(p, version).Run()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <build-id>",
	Short: "List recorded exports of a build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		p, err := newPipeline("cli", false)
		if err != nil {
			return err
		}
		defer p.Close()

		exports, err := p.Store.ListExports(ctx, args[0])
		if err != nil {
			return err
		}
		if len(exports) == 0 {
			fmt.Printf("No exports recorded for build %s.\n", args[0])
			if p.Config.PostgresDSN == "" {
				fmt.Println("Set POSTGRES_DSN to keep history between runs.")
			}
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tACTION\tSTATUS\tSIZE\tPATH")
		for _, e := range exports {
			where := e.Path
			if e.Error != "" {
				where = e.Error
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Timestamp, e.Action, e.Status, formatBytes(e.Bytes), where)
		}
		return tw.Flush()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	// Skip configuration so version works without a valid environment.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("easlog %s\n", version)
	},
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

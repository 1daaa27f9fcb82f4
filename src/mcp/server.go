package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"easlog/src/actions"
	"easlog/src/aggregate"
	"easlog/src/pipeline"
	"easlog/src/provider"
)

// Server is the MCP server for easlog.
type Server struct {
	mcpServer  *server.MCPServer
	pipeline   *pipeline.Pipeline
	aggregator *aggregate.Aggregator
	cache      ExportCache
}

// NewServer creates a new MCP server over p.
func NewServer(p *pipeline.Pipeline, version string) *Server {
	s := server.NewMCPServer(
		"easlog",
		version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		pipeline:  p,
		// Model-facing output never carries terminal escapes.
		aggregator: aggregate.New(aggregate.NewHTTPFetcher(nil), p.Logger, aggregate.Options{
			Concurrency: p.Config.Concurrency,
			StripANSI:   true,
		}).WithMetrics(p.Metrics),
		cache: NewInMemoryCache(0),
	}
	srv.registerTools()

	return srv
}

// registerTools registers all available tools.
func (s *Server) registerTools() {
	exportTool := mcp.NewTool("export_build_logs",
		mcp.WithDescription("Fetch an EAS build's log fragments and merge them into one document grouped by build phase (in the order phases first appear). Returns a manifest with the last lines of every phase; use get_export to page through a whole phase."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Build page URL (https://expo.dev/accounts/<account>/projects/<project>/builds/<id>) or build ID"),
		),
		mcp.WithNumber("tail_lines",
			mcp.Description(fmt.Sprintf("Lines to include from the end of each phase (default: %d)", DefaultTailLines)),
		),
		mcp.WithBoolean("save",
			mcp.Description("Also write the document to the output directory"),
		),
	)

	getTool := mcp.NewTool("get_export",
		mcp.WithDescription("Read lines of one phase from a previous export_build_logs call. Without a phase, returns the manifest again."),
		mcp.WithString("export_id",
			mcp.Required(),
			mcp.Description("Export ID from export_build_logs"),
		),
		mcp.WithString("phase",
			mcp.Description("Phase name from the manifest"),
		),
		mcp.WithNumber("offset",
			mcp.Description("First line to return (default: 0)"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Lines to return (default: %d, max: %d)", DefaultPageLines, MaxPageLines)),
		),
		mcp.WithBoolean("keep_times",
			mcp.Description("Keep the [time] prefix of each line"),
		),
	)

	listTool := mcp.NewTool("list_build_actions",
		mcp.WithDescription("List the downloads available for an EAS build (Logs, Xcode Logs, App) with their target filenames."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Build page URL or build ID"),
		),
	)

	runTool := mcp.NewTool("run_build_action",
		mcp.WithDescription("Run one download for an EAS build and write the file to the output directory."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Build page URL or build ID"),
		),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("One of: logs, xcode, app"),
		),
	)

	s.mcpServer.AddTool(exportTool, s.handleExportBuildLogs)
	s.mcpServer.AddTool(getTool, s.handleGetExport)
	s.mcpServer.AddTool(listTool, s.handleListBuildActions)
	s.mcpServer.AddTool(runTool, s.handleRunBuildAction)
}

// Run starts the MCP server on stdio.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

// handleExportBuildLogs handles the export_build_logs tool call.
func (s *Server) handleExportBuildLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	rec, err := s.pipeline.Resolve(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", provider.WrapError(err))), nil
	}
	if !rec.HasLogs() {
		return mcp.NewToolResultError(fmt.Sprintf("build %s has no log files yet", rec.ID)), nil
	}

	res := s.aggregator.Run(ctx, rec.LogFragmentURLs)
	exportID := uuid.NewString()
	manifest := ToManifest(exportID, rec, res, request.GetInt("tail_lines", DefaultTailLines))

	if request.GetBool("save", false) {
		if _, _, err := s.pipeline.Saver.Save(manifest.Filename, strings.NewReader(res.Document)); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save %s: %v", manifest.Filename, err)), nil
		}
	}

	s.cache.Put(exportID, CachedExport{Manifest: manifest, Groups: res.Groups, Document: res.Document})

	return jsonResult(manifest)
}

// handleGetExport handles the get_export tool call.
func (s *Server) handleGetExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exportID := request.GetString("export_id", "")
	if exportID == "" {
		return mcp.NewToolResultError("export_id parameter is required"), nil
	}

	entry, found := s.cache.Get(exportID)
	if !found {
		return mcp.NewToolResultError(fmt.Sprintf("export not found: export_id=%s", exportID)), nil
	}

	phase := request.GetString("phase", "")
	if phase == "" {
		return jsonResult(entry.Manifest)
	}

	detail, ok := PhasePage(exportID, entry.Groups, phase,
		request.GetInt("offset", 0),
		request.GetInt("limit", DefaultPageLines),
		request.GetBool("keep_times", false),
	)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("phase not found: export_id=%s, phase=%s", exportID, phase)), nil
	}
	return jsonResult(detail)
}

// handleListBuildActions handles the list_build_actions tool call.
func (s *Server) handleListBuildActions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	rec, err := s.pipeline.Resolve(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", provider.WrapError(err))), nil
	}

	return jsonResult(struct {
		Build   BuildInfo        `json:"build"`
		Actions []actions.Action `json:"actions"`
	}{
		Build: BuildInfo{
			ID:              rec.ID,
			Slug:            rec.Slug,
			Platform:        rec.Platform,
			BuildProfile:    rec.BuildProfile,
			AppVersion:      rec.AppVersion,
			AppBuildVersion: rec.AppBuildVersion,
			Fragments:       len(rec.LogFragmentURLs),
		},
		Actions: actions.For(rec),
	})
}

// handleRunBuildAction handles the run_build_action tool call.
func (s *Server) handleRunBuildAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url := request.GetString("url", "")
	if url == "" {
		return mcp.NewToolResultError("url parameter is required"), nil
	}
	kind, err := actions.ParseKind(request.GetString("action", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := s.pipeline.Resolve(ctx, url)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", provider.WrapError(err))), nil
	}

	res, err := s.pipeline.Runner.Run(ctx, rec, kind)
	if res != nil {
		s.pipeline.Record(ctx, []*actions.Result{res})
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", kind.Label(), err)), nil
	}
	return jsonResult(res)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

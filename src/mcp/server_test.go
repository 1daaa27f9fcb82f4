package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"easlog/src/config"
	"easlog/src/intercept"
	"easlog/src/pipeline"
)

const buildID = "0f8fad5b-d9cb-469f-a165-70867728950e"

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graphql":
			io.WriteString(w, `[{"data":{"builds":{"byId":{"id":"`+buildID+`","platform":"IOS",
				"buildProfile":"production","appVersion":"3.1.0","appBuildVersion":"77",
				"logFiles":["`+srv.URL+`/f0","`+srv.URL+`/f1"],"app":{"slug":"shop"},
				"artifacts":{"xcodeBuildLogsUrl":"`+srv.URL+`/xcode.log"}}}}}]`)
		case "/f0":
			io.WriteString(w, `{"phase":"INSTALL_PODS","time":"t1","msg":"\u001b[32mInstalling\u001b[0m pods"}`+"\n"+
				`{"phase":"RUN_FASTLANE","time":"t2","msg":"archive start"}`)
		case "/f1":
			io.WriteString(w, `{"phase":"INSTALL_PODS","time":"t3","msg":"pods done"}`+"\n"+`garbage`)
		case "/xcode.log":
			io.WriteString(w, "xcodebuild output")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	cfg := config.Default()
	cfg.APIURL = srv.URL + "/graphql"
	cfg.OutputDir = t.TempDir()

	p, err := pipeline.New(cfg, nil, pipeline.Options{Registry: intercept.NewRegistry(cfg.APIURL, nil), Source: "mcp"})
	if err != nil {
		t.Fatalf("pipeline.New() unexpected error: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	return NewServer(p, "test"), cfg.OutputDir
}

func call(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content type %T", res.Content[0])
	return ""
}

func TestHandleExportBuildLogs(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleExportBuildLogs(ctx, call(map[string]interface{}{"url": buildID, "save": true}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	var m Manifest
	if err := json.Unmarshal([]byte(resultText(t, res)), &m); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}

	if len(m.Phases) != 2 || m.Phases[0].Name != "INSTALL_PODS" || m.Phases[1].Name != "RUN_FASTLANE" {
		t.Fatalf("phases = %+v", m.Phases)
	}
	if got := strings.Join(m.Phases[0].Tail, "|"); got != "Installing pods|pods done" {
		t.Errorf("INSTALL_PODS tail = %q", got)
	}
	if m.TotalLines != 3 || m.Failures != 1 {
		t.Errorf("TotalLines = %d, Failures = %d, want 3 and 1", m.TotalLines, m.Failures)
	}
	if m.Filename != "logs_ios_3.1.0-77_production.log" {
		t.Errorf("Filename = %q", m.Filename)
	}
	if len(m.Actions) != 2 {
		t.Errorf("Actions = %+v, want Logs and Xcode Logs", m.Actions)
	}

	saved, err := os.ReadFile(filepath.Join(dir, m.Filename))
	if err != nil {
		t.Fatalf("saved document missing: %v", err)
	}
	if !strings.HasPrefix(string(saved), "=== INSTALL_PODS ===\n[t1] Installing pods\n[t3] pods done\n\n") {
		t.Errorf("saved document = %q", saved)
	}

	// Drill into a phase.
	res, _ = s.handleGetExport(ctx, call(map[string]interface{}{
		"export_id": m.ExportID, "phase": "INSTALL_PODS", "limit": 1, "keep_times": true,
	}))
	if res.IsError {
		t.Fatalf("get_export error: %s", resultText(t, res))
	}
	var detail PhaseDetail
	json.Unmarshal([]byte(resultText(t, res)), &detail)
	if detail.Total != 2 || !detail.Truncated || len(detail.Lines) != 1 || detail.Lines[0] != "[t1] Installing pods" {
		t.Errorf("get_export detail = %+v", detail)
	}
}

func TestHandleGetExport_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing id", map[string]interface{}{}},
		{"unknown id", map[string]interface{}{"export_id": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, _ := s.handleGetExport(ctx, call(tt.args))
			if !res.IsError {
				t.Error("expected tool error")
			}
		})
	}
}

func TestHandleListBuildActions(t *testing.T) {
	s, _ := newTestServer(t)

	res, _ := s.handleListBuildActions(context.Background(), call(map[string]interface{}{"url": buildID}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	for _, want := range []string{`"Logs"`, `"Xcode Logs"`, `logs_xcode_3.1.0-77_production.log`} {
		if !strings.Contains(text, want) {
			t.Errorf("response missing %s: %s", want, text)
		}
	}
	if strings.Contains(text, `"App"`) {
		t.Errorf("response lists App without an archive: %s", text)
	}
}

func TestHandleRunBuildAction(t *testing.T) {
	s, dir := newTestServer(t)
	ctx := context.Background()

	res, _ := s.handleRunBuildAction(ctx, call(map[string]interface{}{"url": buildID, "action": "xcode"}))
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	data, err := os.ReadFile(filepath.Join(dir, "logs_xcode_3.1.0-77_production.log"))
	if err != nil || string(data) != "xcodebuild output" {
		t.Errorf("xcode log = %q, %v", data, err)
	}

	res, _ = s.handleRunBuildAction(ctx, call(map[string]interface{}{"url": buildID, "action": "app"}))
	if !res.IsError {
		t.Error("expected tool error for unavailable App action")
	}

	res, _ = s.handleRunBuildAction(ctx, call(map[string]interface{}{"url": "https://example.com", "action": "logs"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "Hint") {
		t.Errorf("expected invalid URL error with hint, got %q", resultText(t, res))
	}
}

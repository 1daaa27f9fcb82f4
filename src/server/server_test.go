package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"easlog/src/config"
	"easlog/src/contracts"
	"easlog/src/intercept"
	"easlog/src/pipeline"
)

const (
	buildID       = "0f8fad5b-d9cb-469f-a165-70867728950e"
	brokenBuildID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
)

// newTestServer starts a fake dashboard and returns the server under test.
// brokenBuildID has log fragments that all return 404.
func newTestServer(t *testing.T) (*Server, *pipeline.Pipeline) {
	t.Helper()

	var dash *httptest.Server
	dash = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/graphql":
			body, _ := io.ReadAll(r.Body)
			id, frag := buildID, "/frag"
			if strings.Contains(string(body), brokenBuildID) {
				id, frag = brokenBuildID, "/missing"
			}
			io.WriteString(w, `[{"data":{"builds":{"byId":{
				"id":"`+id+`","platform":"ANDROID","buildProfile":"preview",
				"appVersion":"1.0.0","appBuildVersion":"9",
				"logFiles":["`+dash.URL+frag+`"],
				"app":{"slug":"shop"},
				"artifacts":{"applicationArchiveUrl":"`+dash.URL+`/shop.aab"}}}}}]`)
		case "/frag":
			io.WriteString(w, `{"phase":"build","time":"t0","msg":"done"}`)
		case "/shop.aab":
			w.Header().Set("Content-Type", "application/vnd.android.package-archive")
			io.WriteString(w, "AAB")
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(dash.Close)

	cfg := config.Default()
	cfg.APIURL = dash.URL + "/graphql"
	cfg.OutputDir = t.TempDir()

	p, err := pipeline.New(cfg, nil, pipeline.Options{Registry: intercept.NewRegistry(cfg.APIURL, nil), Source: "server"})
	if err != nil {
		t.Fatalf("pipeline.New() unexpected error: %v", err)
	}
	t.Cleanup(func() { p.Close() })

	return New(p), p
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"mode":"local"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestActions(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/builds/"+buildID+"/actions")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp ActionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Build.ID != buildID || resp.Build.Slug != "shop" {
		t.Errorf("build = %+v", resp.Build)
	}
	if len(resp.Actions) != 2 || resp.Actions[0].Label != "Logs" || resp.Actions[1].Label != "App" {
		t.Errorf("actions = %+v, want Logs and App", resp.Actions)
	}
}

func TestLogs_StreamsAttachmentAndRecordsHistory(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/builds/"+buildID+"/logs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=logs_android_1.0.0-9_preview.log" {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Body.String(); got != "=== build ===\n[t0] done\n\n" {
		t.Errorf("body = %q", got)
	}

	hist := get(t, s, "/builds/"+buildID+"/exports")
	var exports []contracts.ExportResult
	if err := json.Unmarshal(hist.Body.Bytes(), &exports); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(exports) != 1 || exports[0].Action != "logs" || exports[0].Status != contracts.StatusOK || exports[0].Bytes != int64(rec.Body.Len()) {
		t.Errorf("history = %+v", exports)
	}
}

func TestLogs_AllFragmentsUnreadableServesEmptyDocument(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/builds/"+brokenBuildID+"/logs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
	if got := rec.Header().Get(FailuresHeader); got != "1" {
		t.Errorf("%s = %q, want 1", FailuresHeader, got)
	}
	if got := rec.Header().Get("Content-Length"); got != "0" {
		t.Errorf("Content-Length = %q, want 0", got)
	}

	hist := get(t, s, "/builds/"+brokenBuildID+"/exports")
	var exports []contracts.ExportResult
	if err := json.Unmarshal(hist.Body.Bytes(), &exports); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(exports) != 1 || exports[0].Status != contracts.StatusOK || exports[0].Bytes != 0 {
		t.Errorf("history = %+v", exports)
	}
}

func TestArtifact(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name        string
		kind        string
		wantStatus  int
		wantBody    string
		wantHeader  string
		contentType string
	}{
		{"app streams archive", "app", http.StatusOK, "AAB", "attachment; filename=shop_1.0.0-9_preview.aab", "application/vnd.android.package-archive"},
		{"logs kind", "logs", http.StatusOK, "=== build ===\n[t0] done\n\n", "attachment; filename=logs_android_1.0.0-9_preview.log", "text/plain; charset=utf-8"},
		{"unavailable xcode log", "xcode", http.StatusNotFound, "", "", "application/json"},
		{"unknown kind", "ipa", http.StatusBadRequest, "", "", "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/builds/"+buildID+"/artifacts/"+tt.kind)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", got, tt.contentType)
			}
			if tt.wantHeader != "" && rec.Header().Get("Content-Disposition") != tt.wantHeader {
				t.Errorf("Content-Disposition = %q, want %q", rec.Header().Get("Content-Disposition"), tt.wantHeader)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantText   string
		wantHint   bool
	}{
		{"invalid build id", "/builds/not-a-build/actions", http.StatusBadRequest, "Invalid build URL", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.RequestID == "" {
				t.Error("error response has no request ID")
			}
			if !strings.Contains(resp.Error, tt.wantText) {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantText)
			}
			if (resp.Hint != "") != tt.wantHint {
				t.Errorf("hint = %q, want hint: %v", resp.Hint, tt.wantHint)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	s, p := newTestServer(t)

	get(t, s, "/builds/"+buildID+"/artifacts/app")
	p.Registry.Wait()
	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`easlog_exports_total{action="app",status="ok"} 1`,
		`easlog_builds_discovered_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestSubmit(t *testing.T) {
	s, p := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := p.Broker.Subscribe(ctx, contracts.TopicExportRequests, "test")
	if err != nil {
		t.Fatalf("Subscribe() unexpected error: %v", err)
	}

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/exports", strings.NewReader(body)))
		return rec
	}

	if rec := post(`{"url":"https://example.com"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid URL status = %d, want 400", rec.Code)
	}
	if rec := post(`{"url":"` + buildID + `","actions":["zip"]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown action status = %d, want 400", rec.Code)
	}
	if rec := post(`not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}

	rec := post(`{"url":"` + buildID + `","actions":["logs"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var accepted map[string]string
	json.Unmarshal(rec.Body.Bytes(), &accepted)

	select {
	case msg := <-msgs:
		var req contracts.ExportRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.RequestID != accepted["request_id"] || req.BuildURL != buildID || len(req.Actions) != 1 {
			t.Errorf("published request = %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no export request published")
	}
}

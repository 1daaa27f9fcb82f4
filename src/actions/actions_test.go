package actions

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"easlog/src/aggregate"
	"easlog/src/artifact"
	"easlog/src/metrics"
	"easlog/src/provider"
)

func TestFor(t *testing.T) {
	tests := []struct {
		name string
		rec  provider.BuildRecord
		want []Kind
	}{
		{"nothing", provider.BuildRecord{}, nil},
		{"logs only", provider.BuildRecord{LogFragmentURLs: []string{"a"}}, []Kind{KindLogs}},
		{
			"ios with everything",
			provider.BuildRecord{LogFragmentURLs: []string{"a"}, NativeLogURL: "x", ArchiveURL: "y.ipa"},
			[]Kind{KindLogs, KindXcodeLogs, KindApp},
		},
		{"archive without logs", provider.BuildRecord{ArchiveURL: "y.apk"}, []Kind{KindApp}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := For(&tt.rec)
			if len(got) != len(tt.want) {
				t.Fatalf("For() = %d actions, want %d", len(got), len(tt.want))
			}
			for i, a := range got {
				if a.Kind != tt.want[i] {
					t.Errorf("For()[%d] = %s, want %s", i, a.Kind, tt.want[i])
				}
				if a.Label != a.Kind.Label() {
					t.Errorf("For()[%d].Label = %q", i, a.Label)
				}
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"logs", KindLogs, false},
		{"Logs", KindLogs, false},
		{"xcode", KindXcodeLogs, false},
		{"Xcode Logs", KindXcodeLogs, false},
		{"app", KindApp, false},
		{"ipa", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLookup_Unavailable(t *testing.T) {
	_, err := Lookup(&provider.BuildRecord{ID: "b1"}, KindApp)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Lookup() error = %v, want ErrUnavailable", err)
	}
}

func newTestRunner(t *testing.T, m *metrics.Metrics) (*Runner, string, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/frag0":
			io.WriteString(w, `{"phase":"install","time":1,"msg":"start"}`+"\n"+`{"phase":"build","time":2,"msg":"compile"}`)
		case "/xcode.log":
			io.WriteString(w, "xcode output")
		case "/shop.ipa":
			io.WriteString(w, "IPA")
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	saver, err := artifact.NewDirSaver(dir)
	if err != nil {
		t.Fatal(err)
	}
	agg := aggregate.New(aggregate.NewHTTPFetcher(srv.Client()), nil, aggregate.Options{}).WithMetrics(m)
	dl := artifact.NewDownloader(srv.Client(), saver, nil)
	return NewRunner(agg, dl, saver, nil).WithMetrics(m), dir, srv
}

func TestRunner_RunAll(t *testing.T) {
	m := metrics.New("test")
	runner, _, srv := newTestRunner(t, m)

	rec := &provider.BuildRecord{
		ID: "b1", Slug: "shop", AppVersion: "1.0", AppBuildVersion: "3", BuildProfile: "production", Platform: "IOS",
		LogFragmentURLs: []string{srv.URL + "/frag0"},
		NativeLogURL:    srv.URL + "/xcode.log",
		ArchiveURL:      srv.URL + "/shop.ipa",
	}

	var events []Event
	results := runner.RunAll(context.Background(), rec, func(e Event) { events = append(events, e) })

	if len(results) != 3 || len(events) != 6 {
		t.Fatalf("RunAll() = %d results, %d events, want 3 and 6", len(results), len(events))
	}
	for _, r := range results {
		if !r.OK() {
			t.Errorf("%s failed: %s", r.Action.Label, r.Error)
		}
	}

	logs, _ := os.ReadFile(results[0].Path)
	want := "=== install ===\n[1] start\n\n=== build ===\n[2] compile\n\n"
	if string(logs) != want {
		t.Errorf("logs document = %q, want %q", logs, want)
	}
	if !strings.HasSuffix(results[0].Path, "logs_ios_1.0-3_production.log") {
		t.Errorf("logs path = %q", results[0].Path)
	}
	if !strings.HasSuffix(results[2].Path, "shop_1.0-3_production.ipa") {
		t.Errorf("app path = %q", results[2].Path)
	}

	if got := testutil.ToFloat64(m.ExportsTotal.WithLabelValues("app", "ok")); got != 1 {
		t.Errorf("app exports = %v, want 1", got)
	}
}

func TestRunner_FailedDownloadDoesNotStopOthers(t *testing.T) {
	runner, _, srv := newTestRunner(t, nil)

	rec := &provider.BuildRecord{
		ID: "b2", Slug: "shop", Platform: "ANDROID",
		LogFragmentURLs: []string{srv.URL + "/frag0"},
		ArchiveURL:      srv.URL + "/missing.apk",
	}
	results := runner.RunAll(context.Background(), rec, nil)

	if len(results) != 2 {
		t.Fatalf("RunAll() = %d results, want 2", len(results))
	}
	if !results[0].OK() {
		t.Errorf("logs failed: %s", results[0].Error)
	}
	if results[1].OK() {
		t.Error("app download of missing archive succeeded")
	}
}

func TestRunner_AllFragmentsUnreadableSavesEmptyDocument(t *testing.T) {
	runner, dir, srv := newTestRunner(t, nil)

	rec := &provider.BuildRecord{ID: "b3", LogFragmentURLs: []string{srv.URL + "/nope", srv.URL + "/nope2"}}
	res, err := runner.Run(context.Background(), rec, KindLogs)
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if !res.OK() || res.Failures != 2 || res.Bytes != 0 {
		t.Errorf("Run() result = %+v, want ok with 2 failures and 0 bytes", res)
	}
	if !strings.HasPrefix(res.Path, dir) {
		t.Errorf("Path = %q, want a file under %q", res.Path, dir)
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		t.Fatalf("saved document missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("saved document is %d bytes, want 0", info.Size())
	}
}

func TestUnreadable(t *testing.T) {
	tests := []struct {
		name string
		out  *aggregate.Result
		want bool
	}{
		{"no fragments", &aggregate.Result{}, false},
		{"every fragment failed", &aggregate.Result{Fragments: 2, Failures: []aggregate.Failure{{URL: "a"}, {URL: "b"}}}, true},
		{"one fragment read", &aggregate.Result{Fragments: 2, Failures: []aggregate.Failure{{URL: "a"}}}, false},
		{"only malformed lines", &aggregate.Result{Fragments: 1, Failures: []aggregate.Failure{{URL: "a", Line: 3}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Unreadable(tt.out); got != tt.want {
				t.Errorf("Unreadable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunner_UnavailableAction(t *testing.T) {
	runner, _, _ := newTestRunner(t, nil)

	if _, err := runner.Run(context.Background(), &provider.BuildRecord{}, KindXcodeLogs); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Run() error = %v, want ErrUnavailable", err)
	}
}

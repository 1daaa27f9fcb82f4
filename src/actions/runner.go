package actions

import (
	"context"
	"strings"
	"time"

	"easlog/src/aggregate"
	"easlog/src/artifact"
	"easlog/src/logger"
	"easlog/src/metrics"
	"easlog/src/provider"
)

// Result describes one executed action.
type Result struct {
	BuildID  string        `json:"build_id"`
	Action   Action        `json:"action"`
	Path     string        `json:"path,omitempty"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"duration"`
	// Failures counts fragments or lines the aggregator dropped.
	Failures int    `json:"failures,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OK reports whether the action succeeded.
func (r *Result) OK() bool {
	return r.Error == ""
}

// Event is emitted by RunAll before and after each action.
type Event struct {
	Index  int
	Total  int
	Action Action
	// Result is nil for the start event.
	Result *Result
}

// Runner executes actions for build records.
type Runner struct {
	aggregator *aggregate.Aggregator
	downloader *artifact.Downloader
	saver      artifact.Saver
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// NewRunner wires the aggregator, downloader and saver together.
func NewRunner(agg *aggregate.Aggregator, dl *artifact.Downloader, saver artifact.Saver, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Runner{
		aggregator: agg,
		downloader: dl,
		saver:      saver,
		logger:     log,
	}
}

// WithMetrics attaches Prometheus instruments.
func (r *Runner) WithMetrics(m *metrics.Metrics) *Runner {
	r.metrics = m
	return r
}

// Run executes the action of kind k for rec. The returned Result is non-nil
// whenever the action was available.
func (r *Runner) Run(ctx context.Context, rec *provider.BuildRecord, k Kind) (*Result, error) {
	action, err := Lookup(rec, k)
	if err != nil {
		return nil, err
	}
	return r.run(ctx, rec, action)
}

// RunAll executes every available action in order. One failing action does
// not stop the rest.
func (r *Runner) RunAll(ctx context.Context, rec *provider.BuildRecord, progress func(Event)) []*Result {
	all := For(rec)
	results := make([]*Result, 0, len(all))
	for i, action := range all {
		if progress != nil {
			progress(Event{Index: i, Total: len(all), Action: action})
		}
		res, _ := r.run(ctx, rec, action)
		results = append(results, res)
		if progress != nil {
			progress(Event{Index: i, Total: len(all), Action: action, Result: res})
		}
	}
	return results
}

func (r *Runner) run(ctx context.Context, rec *provider.BuildRecord, action Action) (*Result, error) {
	start := time.Now()
	res := &Result{BuildID: rec.ID, Action: action}

	var err error
	switch action.Kind {
	case KindLogs:
		err = r.saveLogs(ctx, rec, res)
	default:
		res.Path, res.Bytes, err = r.downloader.Download(ctx, action.URL, action.Filename)
	}

	res.Duration = time.Since(start)
	r.metrics.RecordExport(string(action.Kind), err == nil, res.Bytes)
	if err != nil {
		res.Error = err.Error()
		r.logger.Error("[Runner] %s for build %s failed: %v", action.Label, rec.ID, err)
		return res, err
	}
	r.logger.Info("[Runner] %s for build %s saved to %s", action.Label, rec.ID, res.Path)
	return res, nil
}

// Unreadable reports whether out has fragments and none of them could be
// retrieved. Parse failures don't count: a fragment with only malformed lines
// was still read.
func Unreadable(out *aggregate.Result) bool {
	unreadable := 0
	for _, f := range out.Failures {
		if f.Line == 0 {
			unreadable++
		}
	}
	return out.Fragments > 0 && unreadable == out.Fragments
}

// saveLogs always saves the document, even when it is empty because every
// fragment failed; the failures are reported in res.
func (r *Runner) saveLogs(ctx context.Context, rec *provider.BuildRecord, res *Result) error {
	out := r.aggregator.Run(ctx, rec.LogFragmentURLs)
	res.Failures = len(out.Failures)
	if err := ctx.Err(); err != nil {
		return err
	}
	if Unreadable(out) {
		r.logger.Error("[Runner] No log fragment of build %s could be read, saving an empty document", rec.ID)
	}

	var err error
	res.Path, res.Bytes, err = r.saver.Save(res.Action.Filename, strings.NewReader(out.Document))
	return err
}

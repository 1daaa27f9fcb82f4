// Package aggregate rebuilds one readable build log from the JSON Lines
// fragments an EAS build writes.
//
// Fragments are fetched (optionally in parallel), every line is parsed as a
// standalone record, records are grouped by phase and the groups are rendered
// in the order phases were first seen. A failing fragment or line is recorded
// and skipped; it never aborts the rest of the work.
package aggregate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"easlog/src/logger"
	"easlog/src/metrics"
	"easlog/src/sanitize"
)

// DefaultConcurrency is the number of fragments fetched at once when Options leaves it unset.
const DefaultConcurrency = 4

// Options tunes an Aggregator.
type Options struct {
	// Concurrency bounds parallel fragment retrieval. 1 fetches sequentially.
	Concurrency int
	// StripANSI removes terminal escapes from messages.
	StripANSI bool
}

// Failure describes one contained error.
type Failure struct {
	URL string
	// Line is the 1-based line number for parse failures, 0 for retrieval failures.
	Line int
	Err  error
}

// Result is the outcome of one aggregation.
type Result struct {
	Document  string
	Groups    *PhaseGroup
	Failures  []Failure
	Fragments int
	Lines     int
}

// Aggregator turns fragment URLs into a formatted document.
type Aggregator struct {
	fetcher Fetcher
	logger  logger.Logger
	metrics *metrics.Metrics
	opts    Options
}

// New creates an Aggregator.
func New(fetcher Fetcher, log logger.Logger, opts Options) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Aggregator{
		fetcher: fetcher,
		logger:  log,
		opts:    opts,
	}
}

// WithMetrics attaches Prometheus instruments.
func (a *Aggregator) WithMetrics(m *metrics.Metrics) *Aggregator {
	a.metrics = m
	return a
}

// Aggregate returns the formatted document for fragmentURLs.
// An empty list, or a list where every fragment failed, yields "".
func (a *Aggregator) Aggregate(ctx context.Context, fragmentURLs []string) string {
	return a.Run(ctx, fragmentURLs).Document
}

// fragment holds one URL's parsed lines until the ordered merge.
type fragment struct {
	lines    []LogLine
	failures []Failure
}

// Run aggregates fragmentURLs and reports failures alongside the document.
func (a *Aggregator) Run(ctx context.Context, fragmentURLs []string) *Result {
	parsed := make([]fragment, len(fragmentURLs))

	var g errgroup.Group
	g.SetLimit(a.opts.Concurrency)
	for i, url := range fragmentURLs {
		g.Go(func() error {
			parsed[i] = a.load(ctx, url)
			return nil
		})
	}
	g.Wait()

	// Merge strictly in list order so phase order never depends on which fetch finished first.
	groups := NewPhaseGroup()
	result := &Result{Groups: groups, Fragments: len(fragmentURLs)}
	for _, frag := range parsed {
		for _, line := range frag.lines {
			groups.Add(line.Phase, line.Format())
		}
		result.Lines += len(frag.lines)
		result.Failures = append(result.Failures, frag.failures...)
	}

	result.Document = groups.Render()

	a.logger.Debug("[Aggregator] %d fragments, %d lines, %d phases, %d failures",
		result.Fragments, result.Lines, groups.Len(), len(result.Failures))

	return result
}

// load fetches and parses one fragment.
func (a *Aggregator) load(ctx context.Context, url string) fragment {
	start := time.Now()
	text, err := a.fetcher.Fetch(ctx, url)
	a.metrics.RecordFragment(err == nil, time.Since(start))
	if err != nil {
		a.logger.Error("[Aggregator] Error fetching log file %s: %v", url, err)
		return fragment{failures: []Failure{{URL: url, Err: err}}}
	}

	var frag fragment
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		parsed, err := ParseLine(line)
		if err != nil {
			a.logger.Debug("[Aggregator] Error parsing log line %s:%d: %v", url, n+1, err)
			frag.failures = append(frag.failures, Failure{URL: url, Line: n + 1, Err: err})
			continue
		}
		if a.opts.StripANSI {
			parsed.Msg = sanitize.PlainLine(parsed.Msg)
		}
		frag.lines = append(frag.lines, parsed)
	}

	a.metrics.RecordLines(len(frag.lines), len(frag.failures))
	if len(frag.failures) > 0 {
		a.logger.Error("[Aggregator] Dropped %d malformed lines from %s", len(frag.failures), url)
	}

	return frag
}

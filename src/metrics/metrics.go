// Package metrics defines the Prometheus instruments for fragment retrieval,
// response interception and artifact exports.
//
// Every method is safe to call on a nil *Metrics, so components can run without
// instrumentation in tests and one-shot CLI commands.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// FragmentsTotal counts fragment retrievals.
	// labels: status (ok, failed)
	FragmentsTotal *prometheus.CounterVec

	// FragmentDuration observes fragment retrieval latency in seconds.
	FragmentDuration prometheus.Histogram

	// LinesTotal counts log lines seen by the aggregator.
	// labels: result (parsed, malformed)
	LinesTotal *prometheus.CounterVec

	// InterceptedResponses counts responses from the build endpoint.
	// labels: result (records, empty, invalid)
	InterceptedResponses *prometheus.CounterVec

	// BuildsDiscovered counts build records extracted from intercepted responses.
	BuildsDiscovered prometheus.Counter

	// ExportsTotal counts download actions.
	// labels: action (logs, xcode_logs, app), status (ok, failed)
	ExportsTotal *prometheus.CounterVec

	// ExportBytes sums bytes persisted per action.
	// labels: action
	ExportBytes *prometheus.CounterVec
}

// New creates the collectors under the given namespace on a fresh registry.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FragmentsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fragments_total",
				Help:      "Log fragment retrievals by status",
			},
			[]string{"status"},
		),
		FragmentDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fragment_fetch_seconds",
				Help:      "Log fragment retrieval latency",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		LinesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "log_lines_total",
				Help:      "Log lines seen by the aggregator by parse result",
			},
			[]string{"result"},
		),
		InterceptedResponses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "intercepted_responses_total",
				Help:      "Responses observed on the build endpoint by extraction result",
			},
			[]string{"result"},
		),
		BuildsDiscovered: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_discovered_total",
				Help:      "Build records extracted from intercepted responses",
			},
		),
		ExportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Download actions by action and status",
			},
			[]string{"action", "status"},
		),
		ExportBytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "export_bytes_total",
				Help:      "Bytes persisted by download actions",
			},
			[]string{"action"},
		),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFragment records one fragment retrieval.
func (m *Metrics) RecordFragment(ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FragmentsTotal.WithLabelValues(status(ok)).Inc()
	m.FragmentDuration.Observe(elapsed.Seconds())
}

// RecordLines records parsed and malformed line counts for one fragment.
func (m *Metrics) RecordLines(parsed, malformed int) {
	if m == nil {
		return
	}
	m.LinesTotal.WithLabelValues("parsed").Add(float64(parsed))
	m.LinesTotal.WithLabelValues("malformed").Add(float64(malformed))
}

// RecordIntercept records one intercepted response and the number of records it carried.
func (m *Metrics) RecordIntercept(records int, invalid bool) {
	if m == nil {
		return
	}
	switch {
	case invalid:
		m.InterceptedResponses.WithLabelValues("invalid").Inc()
	case records == 0:
		m.InterceptedResponses.WithLabelValues("empty").Inc()
	default:
		m.InterceptedResponses.WithLabelValues("records").Inc()
		m.BuildsDiscovered.Add(float64(records))
	}
}

// RecordExport records one download action.
func (m *Metrics) RecordExport(action string, ok bool, bytes int64) {
	if m == nil {
		return
	}
	m.ExportsTotal.WithLabelValues(action, status(ok)).Inc()
	if ok {
		m.ExportBytes.WithLabelValues(action).Add(float64(bytes))
	}
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

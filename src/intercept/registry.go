// Package intercept observes the dashboard's build endpoint without changing
// what the caller receives.
//
// A Registry owns the subscription list. Registry.Wrap decorates an
// http.RoundTripper: responses whose request URL equals the endpoint get their
// body teed into a private buffer, and once the caller has consumed or closed
// the body the full body is decoded on a separate goroutine and every build record found is
// handed to the subscribers. The caller is never delayed by extraction and
// never sees extraction errors.
package intercept

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"easlog/src/logger"
	"easlog/src/metrics"
	"easlog/src/provider"
)

// DefaultEndpoint is the dashboard's GraphQL endpoint.
const DefaultEndpoint = "https://api.expo.dev/graphql"

// maxBodySize caps how much of an abandoned body is read for extraction.
const maxBodySize = 32 << 20

// Handler receives one discovered build. Handlers run on the extraction
// goroutine, one record at a time in envelope order.
type Handler func(rec *provider.BuildRecord)

type subscription struct {
	id      uint64
	handler Handler
}

// Registry dispatches build records extracted from intercepted responses.
type Registry struct {
	endpoint string
	logger   logger.Logger
	metrics  atomic.Pointer[metrics.Metrics]

	mu     sync.RWMutex
	subs   []subscription
	nextID uint64

	pending sync.WaitGroup
}

// NewRegistry creates a registry matching endpoint exactly.
func NewRegistry(endpoint string, log logger.Logger) *Registry {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Registry{endpoint: endpoint, logger: log}
}

// WithMetrics attaches Prometheus instruments. The first instruments attached
// stay; later calls leave them in place.
func (r *Registry) WithMetrics(m *metrics.Metrics) *Registry {
	r.metrics.CompareAndSwap(nil, m)
	return r
}

// Endpoint returns the URL this registry matches.
func (r *Registry) Endpoint() string {
	return r.endpoint
}

// Matches reports whether url is the intercepted endpoint.
func (r *Registry) Matches(url string) bool {
	return url == r.endpoint
}

// Subscribe registers h and returns a function that removes it.
func (r *Registry) Subscribe(h Handler) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription{id: id, handler: h})

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

// Wrap decorates base so responses from the endpoint are observed.
// A nil base means http.DefaultTransport.
func (r *Registry) Wrap(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, registry: r}
}

// Observe extracts and dispatches records from a body captured for url.
// It runs synchronously; bodies for other URLs are ignored.
func (r *Registry) Observe(url string, body []byte) int {
	if !r.Matches(url) {
		return 0
	}

	ex, err := ExtractBuilds(body)
	if err != nil {
		r.metrics.Load().RecordIntercept(0, true)
		r.logger.Error("[Interceptor] Failed to parse response from %s: %v", url, err)
		return 0
	}
	r.metrics.Load().RecordIntercept(len(ex.Records), false)

	if ex.Skipped > 0 {
		r.logger.Debug("[Interceptor] Build data not found in %d response entries: %s", ex.Skipped, url)
	}
	if ex.Invalid > 0 {
		r.logger.Error("[Interceptor] %d response entries carried an unreadable build: %s", ex.Invalid, url)
	}

	for _, rec := range ex.Records {
		r.dispatch(rec)
	}
	return len(ex.Records)
}

// Wait blocks until every scheduled extraction has finished.
func (r *Registry) Wait() {
	r.pending.Wait()
}

// schedule runs Observe on its own goroutine. When the caller stopped reading
// early, rest holds the unread part of the body; it is read to the end and
// closed there before extraction.
func (r *Registry) schedule(url string, head []byte, rest io.ReadCloser) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		body := head
		if rest != nil {
			tail, err := io.ReadAll(io.LimitReader(rest, maxBodySize))
			rest.Close()
			if err != nil {
				r.logger.Error("[Interceptor] Failed to read response from %s: %v", url, err)
				return
			}
			body = append(body, tail...)
		}
		r.Observe(url, body)
	}()
}

func (r *Registry) dispatch(rec *provider.BuildRecord) {
	r.mu.RLock()
	subs := append([]subscription(nil), r.subs...)
	r.mu.RUnlock()

	r.logger.Info("[Interceptor] Discovered build %s (%s %s-%s %s)",
		rec.ID, rec.Platform, rec.AppVersion, rec.AppBuildVersion, rec.BuildProfile)

	for _, s := range subs {
		r.invoke(s, rec.Clone())
	}
}

func (r *Registry) invoke(s subscription, rec *provider.BuildRecord) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("[Interceptor] Handler %d panicked on build %s: %v", s.id, rec.ID, p)
		}
	}()
	s.handler(rec)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Install creates the process-wide registry with m attached. Only the first
// call has any effect; later calls return the registry that is already
// installed.
func Install(endpoint string, log logger.Logger, m *metrics.Metrics) *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(endpoint, log).WithMetrics(m)
	})
	return defaultRegistry
}

// Package pipeline wires the interceptor, EAS provider, aggregator, broker and
// store into one object. It is shared by the CLI, the HTTP server and the MCP
// server.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"easlog/src/actions"
	"easlog/src/aggregate"
	"easlog/src/artifact"
	"easlog/src/broker"
	"easlog/src/config"
	"easlog/src/contracts"
	"easlog/src/eas"
	"easlog/src/exporter"
	"easlog/src/intercept"
	"easlog/src/logger"
	"easlog/src/metrics"
	"easlog/src/provider"
	"easlog/src/store"
)

// Mode selects the broker and store implementations.
type Mode int

const (
	// LocalMode runs everything in process with an in-memory broker.
	LocalMode Mode = iota
	// AgenticMode uses Redpanda, and Postgres when a DSN is set.
	AgenticMode
)

func (m Mode) String() string {
	if m == AgenticMode {
		return "agentic"
	}
	return "local"
}

// DetectMode picks the mode from the configuration.
func DetectMode(cfg *config.Config) Mode {
	if cfg.AgentMode() {
		return AgenticMode
	}
	return LocalMode
}

// Options override pieces of the default wiring.
type Options struct {
	// Registry replaces the process-wide interceptor registry.
	Registry *intercept.Registry
	// Broker replaces the mode's broker.
	Broker broker.Broker
	// Store replaces the mode's store.
	Store store.Store
	// Source labels BuildDiscovered messages.
	Source string
}

// Pipeline holds the wired components.
type Pipeline struct {
	Config     *config.Config
	Mode       Mode
	Logger     logger.Logger
	Metrics    *metrics.Metrics
	Registry   *intercept.Registry
	Broker     broker.Broker
	Store      store.Store
	Provider   provider.Provider
	Aggregator *aggregate.Aggregator
	Saver      artifact.Saver
	Downloader *artifact.Downloader
	Runner     *actions.Runner

	source      string
	unsubscribe func()
}

// New builds a pipeline for cfg.
func New(cfg *config.Config, log logger.Logger, opts Options) (*Pipeline, error) {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	p := &Pipeline{
		Config:  cfg,
		Mode:    DetectMode(cfg),
		Logger:  log,
		Metrics: metrics.New("easlog"),
		source:  opts.Source,
	}
	if p.source == "" {
		p.source = "cli"
	}

	p.Registry = opts.Registry
	if p.Registry == nil {
		p.Registry = intercept.Install(cfg.APIURL, log, p.Metrics)
	} else {
		p.Registry.WithMetrics(p.Metrics)
	}

	if err := p.openBackends(opts); err != nil {
		return nil, err
	}

	client := eas.NewClient(cfg.ExpoToken,
		eas.WithAPIURL(cfg.APIURL),
		eas.WithTransport(p.Registry.Wrap(nil)),
	)
	p.Provider = eas.NewProvider(client)

	saver, err := artifact.NewDirSaver(cfg.OutputDir)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.Saver = saver

	p.Aggregator = aggregate.New(aggregate.NewHTTPFetcher(nil), log, aggregate.Options{
		Concurrency: cfg.Concurrency,
		StripANSI:   cfg.StripANSI,
	}).WithMetrics(p.Metrics)
	p.Downloader = artifact.NewDownloader(&http.Client{}, saver, log)
	p.Runner = actions.NewRunner(p.Aggregator, p.Downloader, saver, log).WithMetrics(p.Metrics)

	p.unsubscribe = p.Registry.Subscribe(p.announce)

	log.Debug("[Pipeline] Started in %s mode", p.Mode)
	return p, nil
}

func (p *Pipeline) openBackends(opts Options) error {
	p.Broker = opts.Broker
	if p.Broker == nil {
		if p.Mode == AgenticMode {
			rp, err := broker.NewRedpandaBroker(p.Config.RedpandaBrokers, p.Logger)
			if err != nil {
				return fmt.Errorf("failed to create Redpanda broker: %w", err)
			}
			p.Broker = rp
		} else {
			p.Broker = broker.NewInMemoryBroker()
		}
	}

	p.Store = opts.Store
	if p.Store == nil {
		if p.Config.PostgresDSN != "" {
			pg, err := store.NewPostgresStore(p.Config.PostgresDSN)
			if err != nil {
				p.Broker.Close()
				return fmt.Errorf("failed to create Postgres store: %w", err)
			}
			p.Store = pg
		} else {
			p.Store = store.NewMemoryStore()
		}
	}
	return nil
}

// announce publishes every intercepted build and caches it in the store.
func (p *Pipeline) announce(rec *provider.BuildRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	p.Metrics.BuildsDiscovered.Inc()
	if err := p.Store.SaveBuild(ctx, rec); err != nil {
		p.Logger.Error("[Pipeline] Failed to save build %s: %v", rec.ID, err)
	}

	event := contracts.BuildDiscovered{
		Build:     rec,
		Source:    p.source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := broker.PublishJSON(ctx, p.Broker, contracts.TopicBuildsDiscovered, rec.ID, event); err != nil {
		p.Logger.Error("[Pipeline] Failed to publish build %s: %v", rec.ID, err)
	}
}

// Resolve parses a dashboard URL or build ID and fetches the build record.
// The fetch goes through the interceptor, so subscribers see it too.
func (p *Pipeline) Resolve(ctx context.Context, buildURL string) (*provider.BuildRecord, error) {
	ref, err := p.Provider.ParseURL(buildURL)
	if err != nil {
		return nil, err
	}
	return p.Provider.FetchBuild(ctx, ref)
}

// Lookup returns a cached build record, fetching it when the store has none.
func (p *Pipeline) Lookup(ctx context.Context, buildID string) (*provider.BuildRecord, error) {
	if rec, err := p.Store.GetBuild(ctx, buildID); err == nil {
		return rec, nil
	}
	return p.Resolve(ctx, buildID)
}

// Submit publishes an export request for an agent and returns its ID.
func (p *Pipeline) Submit(ctx context.Context, buildURL string, kinds []string) (string, error) {
	if _, err := provider.ParseURL(buildURL); err != nil {
		return "", err
	}

	requestID := "req-" + uuid.NewString()
	request := contracts.ExportRequest{
		RequestID: requestID,
		BuildURL:  buildURL,
		Actions:   kinds,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := broker.PublishJSON(ctx, p.Broker, contracts.TopicExportRequests, requestID, request); err != nil {
		return "", fmt.Errorf("failed to publish request: %w", err)
	}
	return requestID, nil
}

// Record stores runner results and publishes them.
func (p *Pipeline) Record(ctx context.Context, results []*actions.Result) {
	for _, res := range results {
		out := exporter.ToContract("", res)
		if err := p.Store.SaveExport(ctx, out); err != nil {
			p.Logger.Error("[Pipeline] Failed to save export: %v", err)
		}
		if err := broker.PublishJSON(ctx, p.Broker, contracts.TopicExportsCompleted, out.BuildID, out); err != nil {
			p.Logger.Error("[Pipeline] Failed to publish export result: %v", err)
		}
	}
}

// NewAgent creates an export agent over this pipeline's components.
func (p *Pipeline) NewAgent() *exporter.Agent {
	return exporter.NewAgent(p.Broker, p.Provider, p.Runner, p.Store, p.Logger)
}

// Close releases the broker and store and stops observing responses.
func (p *Pipeline) Close() error {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
	p.Registry.Wait()

	var firstErr error
	if p.Broker != nil {
		if err := p.Broker.Close(); err != nil {
			firstErr = err
		}
	}
	if p.Store != nil {
		if err := p.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

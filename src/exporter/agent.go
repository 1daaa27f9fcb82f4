// Package exporter provides the export agent.
// It consumes export requests and discovered builds from the broker, runs the
// download actions, records results and publishes them.
package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"easlog/src/actions"
	"easlog/src/broker"
	"easlog/src/contracts"
	"easlog/src/logger"
	"easlog/src/provider"
	"easlog/src/store"
)

// ConsumerGroup is the group ID the agent subscribes with.
const ConsumerGroup = "easlog-exporter"

// Agent turns export requests into files.
type Agent struct {
	broker   broker.Broker
	provider provider.Provider
	runner   *actions.Runner
	store    store.Store
	logger   logger.Logger

	// AutoExport runs every available action for each discovered build.
	AutoExport bool
}

// NewAgent creates a new export agent.
func NewAgent(brk broker.Broker, prov provider.Provider, runner *actions.Runner, st store.Store, log logger.Logger) *Agent {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Agent{
		broker:   brk,
		provider: prov,
		runner:   runner,
		store:    st,
		logger:   log,
	}
}

// Run starts the agent's main loop. It returns when ctx is done or both
// subscriptions close.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[ExportAgent] Starting...")

	requests, err := a.broker.Subscribe(ctx, contracts.TopicExportRequests, ConsumerGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicExportRequests, err)
	}
	discovered, err := a.broker.Subscribe(ctx, contracts.TopicBuildsDiscovered, ConsumerGroup)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicBuildsDiscovered, err)
	}

	a.logger.Info("[ExportAgent] Listening on '%s' and '%s'...",
		contracts.TopicExportRequests, contracts.TopicBuildsDiscovered)

	for requests != nil || discovered != nil {
		select {
		case msg, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			if err := a.processRequest(ctx, msg); err != nil {
				a.logger.Error("[ExportAgent] Error processing request: %v", err)
			}

		case msg, ok := <-discovered:
			if !ok {
				discovered = nil
				continue
			}
			if err := a.processDiscovered(ctx, msg); err != nil {
				a.logger.Error("[ExportAgent] Error processing discovered build: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[ExportAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	a.logger.Info("[ExportAgent] Message channels closed, shutting down")
	return nil
}

func (a *Agent) processRequest(ctx context.Context, msg broker.Message) error {
	var request contracts.ExportRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}

	a.logger.Info("[ExportAgent] Processing request %s for %s", request.RequestID, request.BuildURL)

	ref, err := a.provider.ParseURL(request.BuildURL)
	if err != nil {
		return fmt.Errorf("failed to parse build URL: %w", err)
	}
	build, err := a.provider.FetchBuild(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to fetch build %s: %w", ref.BuildID, err)
	}
	if err := a.store.SaveBuild(ctx, build); err != nil {
		a.logger.Error("[ExportAgent] Failed to save build %s: %v", build.ID, err)
	}

	kinds, err := requestedKinds(build, request.Actions)
	if err != nil {
		return err
	}

	for _, k := range kinds {
		res, err := a.runner.Run(ctx, build, k)
		if res == nil {
			a.logger.Error("[ExportAgent] %s: %v", k.Label(), err)
			continue
		}
		a.record(ctx, request.RequestID, res)
	}

	a.logger.Info("[ExportAgent] Completed request %s (%d actions)", request.RequestID, len(kinds))
	return nil
}

func (a *Agent) processDiscovered(ctx context.Context, msg broker.Message) error {
	var event contracts.BuildDiscovered
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal discovered build: %w", err)
	}
	if event.Build == nil || event.Build.ID == "" {
		return fmt.Errorf("discovered build message without build id")
	}

	a.logger.Debug("[ExportAgent] Build %s discovered via %s", event.Build.ID, event.Source)
	if err := a.store.SaveBuild(ctx, event.Build); err != nil {
		return fmt.Errorf("failed to save build %s: %w", event.Build.ID, err)
	}

	if !a.AutoExport {
		return nil
	}
	for _, res := range a.runner.RunAll(ctx, event.Build, nil) {
		a.record(ctx, "", res)
	}
	return nil
}

// record stores and publishes one action result.
func (a *Agent) record(ctx context.Context, requestID string, res *actions.Result) {
	out := ToContract(requestID, res)
	if err := a.store.SaveExport(ctx, out); err != nil {
		a.logger.Error("[ExportAgent] Failed to save export: %v", err)
	}
	if err := broker.PublishJSON(ctx, a.broker, contracts.TopicExportsCompleted, out.BuildID, out); err != nil {
		a.logger.Error("[ExportAgent] Failed to publish export result: %v", err)
	}
}

// ToContract converts a runner result into the broker and store message.
func ToContract(requestID string, res *actions.Result) *contracts.ExportResult {
	status := contracts.StatusOK
	if !res.OK() {
		status = contracts.StatusFailed
	}
	return &contracts.ExportResult{
		RequestID:  requestID,
		BuildID:    res.BuildID,
		Action:     string(res.Action.Kind),
		Filename:   res.Action.Filename,
		Path:       res.Path,
		Bytes:      res.Bytes,
		DurationMS: res.Duration.Milliseconds(),
		Status:     status,
		Error:      res.Error,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// requestedKinds resolves the request's action names against what the build offers.
func requestedKinds(build *provider.BuildRecord, names []string) ([]actions.Kind, error) {
	if len(names) == 0 {
		var kinds []actions.Kind
		for _, act := range actions.For(build) {
			kinds = append(kinds, act.Kind)
		}
		return kinds, nil
	}

	kinds := make([]actions.Kind, 0, len(names))
	for _, name := range names {
		k, err := actions.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

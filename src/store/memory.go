package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"easlog/src/contracts"
	"easlog/src/provider"
)

// MemoryStore is an in-memory implementation of Store.
// Used for local mode and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	builds  map[string]*provider.BuildRecord
	exports map[string]contracts.ExportResult
	byBuild map[string][]string // buildID -> export IDs in insertion order
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		builds:  make(map[string]*provider.BuildRecord),
		exports: make(map[string]contracts.ExportResult),
		byBuild: make(map[string][]string),
	}
}

// SaveBuild upserts the latest record of a build.
func (s *MemoryStore) SaveBuild(ctx context.Context, build *provider.BuildRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.builds[build.ID] = build.Clone()
	return nil
}

// GetBuild returns a copy of the last saved record.
func (s *MemoryStore) GetBuild(ctx context.Context, buildID string) (*provider.BuildRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.builds[buildID]
	if !ok {
		return nil, ErrNotFound{Kind: "build", ID: buildID}
	}
	return b.Clone(), nil
}

// SaveExport records one executed action.
func (s *MemoryStore) SaveExport(ctx context.Context, result *contracts.ExportResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.Timestamp == "" {
		result.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if _, exists := s.exports[result.ID]; !exists {
		s.byBuild[result.BuildID] = append(s.byBuild[result.BuildID], result.ID)
	}
	s.exports[result.ID] = *result
	return nil
}

// GetExport returns one export by ID.
func (s *MemoryStore) GetExport(ctx context.Context, id string) (*contracts.ExportResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.exports[id]
	if !ok {
		return nil, ErrNotFound{Kind: "export", ID: id}
	}
	return &r, nil
}

// ListExports returns a build's exports, oldest first.
func (s *MemoryStore) ListExports(ctx context.Context, buildID string) ([]contracts.ExportResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byBuild[buildID]
	result := make([]contracts.ExportResult, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.exports[id])
	}
	return result, nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}

// Package store persists export history and the last seen record of each build.
package store

import (
	"context"
	"fmt"

	"easlog/src/contracts"
	"easlog/src/provider"
)

// Store defines the interface for persisting builds and export results.
type Store interface {
	// SaveBuild upserts the latest record of a build.
	SaveBuild(ctx context.Context, build *provider.BuildRecord) error

	// GetBuild returns the last saved record of a build.
	GetBuild(ctx context.Context, buildID string) (*provider.BuildRecord, error)

	// SaveExport records one executed action. An empty ID is filled with a new UUID.
	SaveExport(ctx context.Context, result *contracts.ExportResult) error

	// GetExport returns one export by ID.
	GetExport(ctx context.Context, id string) (*contracts.ExportResult, error)

	// ListExports returns a build's exports, oldest first.
	ListExports(ctx context.Context, buildID string) ([]contracts.ExportResult, error)

	// Close closes the store connection
	Close() error
}

// ErrNotFound is returned when a build or export does not exist.
type ErrNotFound struct {
	Kind string // "build" or "export"
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

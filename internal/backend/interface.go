// Package backend chooses where report payloads come from: the reporting
// API, the sqlite snapshot store in front of it, or fixture files.
package backend

import (
	"context"
	"slices"
	"time"

	"finboard/internal/reports"
	"finboard/internal/storage"
)

// CleanupFunc releases what a backend opened.
type CleanupFunc func() error

// BackendResult is a ready Fetcher plus the parts a worker needs to
// refresh it.
type BackendResult struct {
	Fetcher reports.Fetcher
	// Upstream is the reporting API client, nil for the memory backend.
	Upstream reports.Fetcher
	// Snapshots is set by the sqlite backend.
	Snapshots *storage.SnapshotStore
	Cleanup   CleanupFunc
}

// Close runs Cleanup, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config selects and configures one backend.
type Config struct {
	Type BackendType

	// api and sqlite
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	SQLiteDBPath string

	// DataDirectory holds the memory backend's fixture files.
	DataDirectory string
}

type BackendType string

const (
	APIBackend    BackendType = "api"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return slices.Contains(GetBackendTypes(), bt)
}

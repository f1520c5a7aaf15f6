// Package storage keeps reporting-API payloads in SQLite so the dashboard
// can serve them without reaching the API.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"

	_ "modernc.org/sqlite"
)

var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotInfo describes one stored payload.
type SnapshotInfo struct {
	Key       string
	Endpoint  core.Endpoint
	Size      int64
	FetchedAt time.Time
}

// SnapshotStore is a SQLite table of payloads keyed by query.
type SnapshotStore struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	logger  *applog.Logger
}

var _ reports.Fetcher = (*SnapshotStore)(nil)

func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	version, err := Migrate(dbPath)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; the worker and the dashboard may share the file.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger := applog.WithComponent(applog.ComponentStorage)
	logger.Debug("Snapshot store opened", "path", dbPath, "schema_version", version)
	return &SnapshotStore{
		db:      db,
		queries: New(db),
		now:     time.Now,
		logger:  logger,
	}, nil
}

func (s *SnapshotStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save stores payload as the latest snapshot of q.
func (s *SnapshotStore) Save(ctx context.Context, q core.Query, payload []byte) error {
	err := s.queries.UpsertSnapshot(ctx, Snapshot{
		QueryKey:  q.Key(),
		Endpoint:  string(q.Endpoint),
		Payload:   payload,
		FetchedAt: s.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", q.Key(), err)
	}
	s.logger.DebugContext(ctx, "Snapshot saved",
		applog.FieldQueryKey, q.Key(),
		applog.FieldBytes, len(payload))
	return nil
}

// Fetch returns the stored payload of q, or ErrSnapshotNotFound.
func (s *SnapshotStore) Fetch(ctx context.Context, q core.Query) ([]byte, error) {
	snap, err := s.queries.GetSnapshot(ctx, q.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", q.Key(), ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", q.Key(), err)
	}
	return snap.Payload, nil
}

// FetchedAt reports when q was last saved.
func (s *SnapshotStore) FetchedAt(ctx context.Context, q core.Query) (time.Time, error) {
	snap, err := s.queries.GetSnapshot(ctx, q.Key())
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("%s: %w", q.Key(), ErrSnapshotNotFound)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get snapshot %s: %w", q.Key(), err)
	}
	return time.UnixMilli(snap.FetchedAt), nil
}

func (s *SnapshotStore) Delete(ctx context.Context, q core.Query) error {
	if err := s.queries.DeleteSnapshot(ctx, q.Key()); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", q.Key(), err)
	}
	return nil
}

// List returns every stored snapshot ordered by key.
func (s *SnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := s.queries.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	out := make([]SnapshotInfo, len(rows))
	for i, r := range rows {
		out[i] = SnapshotInfo{
			Key:       r.QueryKey,
			Endpoint:  core.Endpoint(r.Endpoint),
			Size:      r.Size,
			FetchedAt: time.UnixMilli(r.FetchedAt),
		}
	}
	return out, nil
}

// Prune deletes snapshots fetched before the given time.
func (s *SnapshotStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.queries.DeleteSnapshotsBefore(ctx, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Snapshots pruned",
			applog.FieldOperation, applog.OpPrune,
			applog.FieldRows, n)
	}
	return n, nil
}

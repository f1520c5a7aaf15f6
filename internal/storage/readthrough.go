package storage

import (
	"context"
	"errors"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// ReadThrough serves snapshots and falls back to the upstream fetcher for
// queries never saved, storing what it gets.
type ReadThrough struct {
	store    *SnapshotStore
	upstream reports.Fetcher
	logger   *applog.Logger
}

var _ reports.Fetcher = (*ReadThrough)(nil)

// NewReadThrough returns a fetcher over store. A nil upstream makes a
// missing snapshot an error.
func NewReadThrough(store *SnapshotStore, upstream reports.Fetcher) *ReadThrough {
	return &ReadThrough{
		store:    store,
		upstream: upstream,
		logger:   applog.WithComponent(applog.ComponentStorage),
	}
}

func (r *ReadThrough) Fetch(ctx context.Context, q core.Query) ([]byte, error) {
	body, err := r.store.Fetch(ctx, q)
	if err == nil || !errors.Is(err, ErrSnapshotNotFound) || r.upstream == nil {
		return body, err
	}

	body, err = r.upstream.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(ctx, q, body); err != nil {
		r.logger.WarnContext(ctx, "Failed to store fetched payload",
			applog.FieldQueryKey, q.Key(),
			applog.FieldError, err)
	}
	return body, nil
}

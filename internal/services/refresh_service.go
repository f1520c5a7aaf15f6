// Package services orchestrates the dashboard's write-side operations.
package services

import (
	"context"
	"errors"
	"fmt"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// RefreshResult reports what a refresh did.
type RefreshResult struct {
	Keys      []string
	Published bool
}

// RefreshService drops cached payloads of a view and, when a publisher is
// configured, asks the snapshot worker to refetch them.
type RefreshService struct {
	invalidator reports.Invalidator
	publisher   reports.RefreshPublisher
	logger      *applog.Logger
}

// NewRefreshService accepts a nil publisher; refreshes are then local only.
func NewRefreshService(inv reports.Invalidator, pub reports.RefreshPublisher) *RefreshService {
	return &RefreshService{
		invalidator: inv,
		publisher:   pub,
		logger:      applog.WithComponent(applog.ComponentReports),
	}
}

// Refresh invalidates every query first, so the next read misses the cache
// even if publishing fails. Publish errors are returned joined; the
// invalidation stands.
func (s *RefreshService) Refresh(ctx context.Context, view string, queries []core.Query) (RefreshResult, error) {
	res := RefreshResult{Keys: make([]string, 0, len(queries))}
	for _, q := range queries {
		if s.invalidator != nil {
			s.invalidator.Invalidate(q)
		}
		res.Keys = append(res.Keys, q.Key())
	}

	var errs []error
	if s.publisher != nil {
		for _, q := range queries {
			if err := s.publisher.PublishRefresh(ctx, q); err != nil {
				errs = append(errs, fmt.Errorf("publish %s: %w", q.Key(), err))
			}
		}
		res.Published = len(errs) == 0 && len(queries) > 0
	}

	applog.NewStructuredLogger(s.logger).LogRefreshRequested(ctx, view, res.Keys, res.Published)
	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "Refresh publish failed", applog.FieldView, view, applog.FieldError, err)
		return res, err
	}
	return res, nil
}

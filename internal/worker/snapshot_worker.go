// Package worker refreshes stored snapshots from the reporting API.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"
	"finboard/internal/storage"
)

// SnapshotStore is where refreshed payloads land.
type SnapshotStore interface {
	Save(ctx context.Context, q core.Query, payload []byte) error
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// SnapshotWorker fetches queries from the upstream API and saves them. An
// optional invalidator drops in-process cached copies after each save.
type SnapshotWorker struct {
	upstream    reports.Fetcher
	store       SnapshotStore
	invalidator reports.Invalidator
	now         func() time.Time
	logger      *applog.Logger
}

func NewSnapshotWorker(upstream reports.Fetcher, store SnapshotStore, invalidator reports.Invalidator) *SnapshotWorker {
	return &SnapshotWorker{
		upstream:    upstream,
		store:       store,
		invalidator: invalidator,
		now:         time.Now,
		logger:      applog.WithComponent(applog.ComponentWorker),
	}
}

// HandleRefreshMessage processes one refresh request from AMQP. Messages
// naming an unknown endpoint are logged and acknowledged.
func (w *SnapshotWorker) HandleRefreshMessage(ctx context.Context, msg *amqp.RefreshMessage) error {
	q, err := msg.Query()
	if err != nil {
		w.logger.WarnContext(ctx, "Dropping refresh message",
			applog.FieldEndpoint, msg.Endpoint,
			applog.FieldError, err)
		return nil
	}
	w.logger.InfoContext(ctx, "Processing refresh message",
		applog.FieldQueryKey, q.Key(),
		"requested_at", msg.RequestedAt)
	return w.Refresh(ctx, q)
}

// Refresh fetches q upstream and saves it.
func (w *SnapshotWorker) Refresh(ctx context.Context, q core.Query) error {
	_, err := w.refresh(ctx, q)
	return err
}

func (w *SnapshotWorker) refresh(ctx context.Context, q core.Query) ([]byte, error) {
	start := w.now()
	body, err := w.upstream.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", q.Key(), err)
	}
	if err := w.store.Save(ctx, q, body); err != nil {
		return nil, err
	}
	if w.invalidator != nil {
		w.invalidator.Invalidate(q)
	}
	w.logger.InfoContext(ctx, "Snapshot refreshed",
		applog.FieldOperation, applog.OpSnapshot,
		applog.FieldQueryKey, q.Key(),
		applog.FieldBytes, len(body),
		applog.FieldDuration, w.now().Sub(start).Milliseconds())
	return body, nil
}

// WarmPeriod refreshes everything a month of the dashboard shows: the four
// month reports, the card list, and each card's summary and trend. It keeps
// going past failures and returns them joined.
func (w *SnapshotWorker) WarmPeriod(ctx context.Context, p core.Period) error {
	var errs []error
	for _, q := range core.MonthQueries(p) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Refresh(ctx, q); err != nil {
			errs = append(errs, err)
		}
	}

	body, err := w.refresh(ctx, core.CreditCardsQuery())
	if err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	var cards []core.CreditCard
	if err := json.Unmarshal(body, &cards); err != nil {
		errs = append(errs, fmt.Errorf("decode credit cards: %w", err))
		return errors.Join(errs...)
	}
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Refresh(ctx, core.CreditCardSummaryQuery(c.ID, p)); err != nil {
			errs = append(errs, err)
		}
		if err := w.Refresh(ctx, core.CreditCardTrendQuery(c.ID)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := w.Refresh(ctx, core.SplitwiseFriendsQuery()); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		w.logger.WarnContext(ctx, "Period warm-up finished with errors",
			applog.FieldYear, p.Year,
			applog.FieldMonth, p.Month,
			"errors", len(errs))
	}
	return errors.Join(errs...)
}

// fetchedAtReader is implemented by stores that know when a query was
// last saved.
type fetchedAtReader interface {
	FetchedAt(ctx context.Context, q core.Query) (time.Time, error)
}

// WarmIfDue refreshes the month reports of p whose snapshots the policy
// considers stale and returns how many it refreshed. Stores that cannot
// tell when a query was saved make every query due.
func (w *SnapshotWorker) WarmIfDue(ctx context.Context, p core.Period, policy StalenessPolicy) (int, error) {
	now := w.now()
	checker := policy.Checker(AgeOf(p, core.PeriodOf(now)))
	reader, _ := w.store.(fetchedAtReader)

	var errs []error
	refreshed := 0
	for _, q := range core.MonthQueries(p) {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		var fetchedAt time.Time
		if reader != nil {
			t, err := reader.FetchedAt(ctx, q)
			switch {
			case err == nil:
				fetchedAt = t
			case !errors.Is(err, storage.ErrSnapshotNotFound):
				errs = append(errs, err)
				continue
			}
		}
		if !checker.IsDue(fetchedAt, now) {
			continue
		}
		if err := w.Refresh(ctx, q); err != nil {
			errs = append(errs, err)
			continue
		}
		refreshed++
	}
	return refreshed, errors.Join(errs...)
}

// PruneOlderThan deletes snapshots not refreshed within maxAge.
func (w *SnapshotWorker) PruneOlderThan(ctx context.Context, maxAge time.Duration) (int64, error) {
	return w.store.Prune(ctx, w.now().Add(-maxAge))
}

// Run warms the current period every interval until ctx is done. The
// first pass runs immediately.
func (w *SnapshotWorker) Run(ctx context.Context, interval time.Duration, loc *time.Location) {
	policy := DefaultStalenessPolicy(interval, loc)
	tick := func() {
		p := core.PeriodOf(w.now().In(loc))
		if err := w.WarmPeriod(ctx, p); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Periodic warm-up failed",
				applog.FieldYear, p.Year,
				applog.FieldMonth, p.Month,
				applog.FieldError, err)
		}
		prev := p.Prev()
		if n, err := w.WarmIfDue(ctx, prev, policy); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "Previous month refresh failed",
				applog.FieldYear, prev.Year,
				applog.FieldMonth, prev.Month,
				applog.FieldError, err)
		} else if n > 0 {
			w.logger.InfoContext(ctx, "Previous month refreshed",
				applog.FieldYear, prev.Year,
				applog.FieldMonth, prev.Month,
				applog.FieldRows, n)
		}
	}
	tick()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// ServeConfig schedules the background loops of Serve.
type ServeConfig struct {
	Interval time.Duration
	Location *time.Location
	// Retention is passed to PruneOlderThan every PruneEvery.
	Retention  time.Duration
	PruneEvery time.Duration
}

// Serve runs Run, the prune loop and, when consume is not nil, the refresh
// consumer until ctx is done. It returns only after all of them stopped, so
// the store can be closed afterwards. A failing consumer is logged; the
// periodic loops keep going.
func (w *SnapshotWorker) Serve(ctx context.Context, cfg ServeConfig, consume func(context.Context) error) {
	var g errgroup.Group
	if consume != nil {
		g.Go(func() error {
			if err := consume(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "Refresh consumption failed", applog.FieldError, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		w.Run(ctx, cfg.Interval, cfg.Location)
		return nil
	})
	g.Go(func() error {
		w.pruneLoop(ctx, cfg.PruneEvery, cfg.Retention)
		return nil
	})
	_ = g.Wait()
}

func (w *SnapshotWorker) pruneLoop(ctx context.Context, every, retention time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.PruneOlderThan(ctx, retention)
			if err != nil {
				w.logger.ErrorContext(ctx, "Snapshot prune failed", applog.FieldError, err)
				continue
			}
			w.logger.InfoContext(ctx, "Pruned snapshots", applog.FieldRows, n)
		}
	}
}

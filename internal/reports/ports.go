// Package reports turns reporting-API payloads into grid datasets. It owns
// the data-source side of every table: what to fetch, how to decode it,
// which columns show it.
package reports

import (
	"context"
	"errors"

	"finboard/internal/core"
)

// Ports for outbound adapters.
type (
	// Fetcher returns the raw JSON payload of a query.
	Fetcher interface {
		Fetch(ctx context.Context, q core.Query) ([]byte, error)
	}

	// Invalidator drops cached payloads so the next fetch goes upstream.
	Invalidator interface {
		Invalidate(q core.Query)
	}

	// RefreshPublisher asks the snapshot worker to refetch a query.
	RefreshPublisher interface {
		PublishRefresh(ctx context.Context, q core.Query) error
	}
)

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q core.Query) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, q core.Query) ([]byte, error) { return f(ctx, q) }

// ErrNotReady is returned when a view is loaded without the parameters it
// needs, e.g. a card view without a card.
var ErrNotReady = errors.New("view parameters incomplete")

package reports

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"finboard/internal/core"
)

// Service decodes reporting-API payloads into domain types.
type Service struct {
	fetcher Fetcher
}

func NewService(f Fetcher) *Service {
	return &Service{fetcher: f}
}

// Fetcher returns the underlying fetcher.
func (s *Service) Fetcher() Fetcher { return s.fetcher }

func decode[T any](ctx context.Context, f Fetcher, q core.Query) (T, error) {
	var out T
	body, err := f.Fetch(ctx, q)
	if err != nil {
		return out, fmt.Errorf("fetch %s: %w", q.Endpoint, err)
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", q.Endpoint, err)
	}
	return out, nil
}

func (s *Service) Transactions(ctx context.Context, p core.Period) ([]core.Transaction, error) {
	return decode[[]core.Transaction](ctx, s.fetcher, core.TransactionsQuery(p))
}

func (s *Service) AccountSummaries(ctx context.Context, p core.Period) ([]core.AccountSummary, error) {
	return decode[[]core.AccountSummary](ctx, s.fetcher, core.MonthlyReportQuery(p))
}

func (s *Service) ExpenseSummaries(ctx context.Context, p core.Period) ([]core.ExpenseSummary, error) {
	return decode[[]core.ExpenseSummary](ctx, s.fetcher, core.ExpenseSummaryQuery(p))
}

func (s *Service) CategorisedExpenses(ctx context.Context, p core.Period) (core.CategorisedExpenseSummary, error) {
	return decode[core.CategorisedExpenseSummary](ctx, s.fetcher, core.CategorisedExpensesQuery(p))
}

func (s *Service) CreditCards(ctx context.Context) ([]core.CreditCard, error) {
	return decode[[]core.CreditCard](ctx, s.fetcher, core.CreditCardsQuery())
}

func (s *Service) CreditCardSummary(ctx context.Context, cardID int64, p core.Period) (core.CreditCardSummary, error) {
	return decode[core.CreditCardSummary](ctx, s.fetcher, core.CreditCardSummaryQuery(cardID, p))
}

func (s *Service) CreditCardTrend(ctx context.Context, cardID int64) ([]core.CreditCardTrend, error) {
	return decode[[]core.CreditCardTrend](ctx, s.fetcher, core.CreditCardTrendQuery(cardID))
}

func (s *Service) SplitwiseTransactions(ctx context.Context, f core.SplitwiseFilter) ([]core.SplitwiseTransaction, error) {
	return decode[[]core.SplitwiseTransaction](ctx, s.fetcher, core.SplitwiseTransactionsQuery(f))
}

func (s *Service) Friends(ctx context.Context) ([]core.Friend, error) {
	return decode[[]core.Friend](ctx, s.fetcher, core.SplitwiseFriendsQuery())
}

// MonthOverview loads the three report views of a month concurrently. The
// first failure cancels the others.
func (s *Service) MonthOverview(ctx context.Context, p core.Period) (core.MonthOverview, error) {
	out := core.MonthOverview{Period: p}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Accounts, err = s.AccountSummaries(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		out.Expenses, err = s.ExpenseSummaries(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		out.Categorised, err = s.CategorisedExpenses(gctx, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthOverview{}, fmt.Errorf("month overview %s: %w", p, err)
	}
	return out, nil
}

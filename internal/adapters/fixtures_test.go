package adapters

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"finboard/internal/core"
)

func TestFixtureNames(t *testing.T) {
	tests := []struct {
		name  string
		query core.Query
		want  []string
	}{
		{
			name:  "no params",
			query: core.CreditCardsQuery(),
			want:  []string{"credit-card.json"},
		},
		{
			name:  "month params sorted",
			query: core.TransactionsQuery(core.Period{Year: 2024, Month: 3}),
			want:  []string{"transactions__month-3_year-2024.json", "transactions.json"},
		},
		{
			name:  "nested endpoint",
			query: core.CreditCardTrendQuery(7),
			want:  []string{"credit-card_trend__credit_card_id-7.json", "credit-card_trend.json"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FixtureNames(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("FixtureNames() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FixtureNames()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFixtureFetcher(t *testing.T) {
	march := core.TransactionsQuery(core.Period{Year: 2024, Month: 3})
	april := core.TransactionsQuery(core.Period{Year: 2024, Month: 4})
	f := NewFixtureFetcherFS(fstest.MapFS{
		"transactions__month-3_year-2024.json": {Data: []byte(`[{"id":1}]`)},
		"transactions.json":                    {Data: []byte(`[]`)},
	})

	body, err := f.Fetch(context.Background(), march)
	if err != nil || string(body) != `[{"id":1}]` {
		t.Errorf("Fetch(march) = %s, %v", body, err)
	}

	body, err = f.Fetch(context.Background(), april)
	if err != nil || string(body) != `[]` {
		t.Errorf("Fetch(april) = %s, %v; want endpoint fallback", body, err)
	}

	_, err = f.Fetch(context.Background(), core.SplitwiseFriendsQuery())
	if !errors.Is(err, ErrFixtureNotFound) {
		t.Errorf("Fetch(friends) error = %v, want ErrFixtureNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, march); !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch(cancelled) error = %v", err)
	}
}

func TestWriteFixtureRoundTrip(t *testing.T) {
	dir := t.TempDir()
	q := core.CreditCardSummaryQuery(2, core.Period{Year: 2024, Month: 5})

	if _, err := WriteFixture(dir, q, []byte(`{"total_bill":10}`)); err != nil {
		t.Fatalf("WriteFixture() error = %v", err)
	}
	body, err := NewFixtureFetcher(dir).Fetch(context.Background(), q)
	if err != nil || string(body) != `{"total_bill":10}` {
		t.Errorf("Fetch() = %s, %v", body, err)
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finboard/internal/core"
)

func newTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(filepath.Join(t.TempDir(), "data", "snapshots.db"))
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSnapshotStoreSaveFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	q := core.TransactionsQuery(core.Period{Year: 2024, Month: 3})

	if _, err := s.Fetch(ctx, q); !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("Fetch before save error = %v, want ErrSnapshotNotFound", err)
	}

	if err := s.Save(ctx, q, []byte(`[1]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, q, []byte(`[1,2]`)); err != nil {
		t.Fatalf("Save (upsert): %v", err)
	}
	got, err := s.Fetch(ctx, q)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(got) != `[1,2]` {
		t.Errorf("Fetch = %s, want [1,2]", got)
	}

	other := core.TransactionsQuery(core.Period{Year: 2024, Month: 4})
	if _, err := s.Fetch(ctx, other); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Fetch other month error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSnapshotStoreListPrune(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	old := core.CreditCardsQuery()
	if err := s.Save(ctx, old, []byte(`[]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s.now = func() time.Time { return base.Add(48 * time.Hour) }
	recent := core.SplitwiseFriendsQuery()
	if err := s.Save(ctx, recent, []byte(`[{"id":1}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("List len = %d, want 2", len(list))
	}
	if list[0].Key != "credit-card" || list[1].Key != "splitwise/friends" {
		t.Errorf("List keys = %q, %q", list[0].Key, list[1].Key)
	}
	if list[1].Size != int64(len(`[{"id":1}]`)) {
		t.Errorf("Size = %d", list[1].Size)
	}
	if !list[0].FetchedAt.Equal(base) {
		t.Errorf("FetchedAt = %v, want %v", list[0].FetchedAt, base)
	}

	n, err := s.Prune(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if _, err := s.Fetch(ctx, old); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("pruned snapshot still present: %v", err)
	}
	if _, err := s.Fetch(ctx, recent); err != nil {
		t.Errorf("recent snapshot: %v", err)
	}
}

func TestSnapshotStoreReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("NewSnapshotStore: %v", err)
	}
	q := core.CreditCardTrendQuery(4)
	if err := s.Save(ctx, q, []byte(`[]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Close()

	s, err = NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Fetch(ctx, q); err != nil {
		t.Errorf("Fetch after reopen: %v", err)
	}
}

type countingFetcher struct {
	calls int
	body  []byte
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, q core.Query) ([]byte, error) {
	f.calls++
	return f.body, f.err
}

func TestReadThrough(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	up := &countingFetcher{body: []byte(`{"data":{}}`)}
	rt := NewReadThrough(s, up)
	q := core.CategorisedExpensesQuery(core.Period{Year: 2024, Month: 1})

	for i := 0; i < 2; i++ {
		got, err := rt.Fetch(ctx, q)
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(got) != `{"data":{}}` {
			t.Errorf("Fetch = %s", got)
		}
	}
	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", up.calls)
	}

	failing := &countingFetcher{err: errors.New("down")}
	rt = NewReadThrough(s, failing)
	if _, err := rt.Fetch(ctx, core.CreditCardsQuery()); err == nil {
		t.Error("expected upstream error")
	}

	rt = NewReadThrough(s, nil)
	if _, err := rt.Fetch(ctx, core.CreditCardsQuery()); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshots.db")
	for i := 0; i < 2; i++ {
		version, err := Migrate(path)
		if err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+1, err)
		}
		if version != 1 {
			t.Errorf("Migrate() run %d version = %d, want 1", i+1, version)
		}
	}
}

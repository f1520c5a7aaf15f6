package reports

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/grid"
)

var march = core.Period{Year: 2024, Month: 3}

// stubFetcher serves payloads by query key and counts upstream calls.
type stubFetcher struct {
	mu       sync.Mutex
	payloads map[string]string
	calls    map[string]int
	fail     map[core.Endpoint]error
}

func newStub(payloads map[string]string) *stubFetcher {
	return &stubFetcher{payloads: payloads, calls: map[string]int{}, fail: map[core.Endpoint]error{}}
}

func (s *stubFetcher) Fetch(_ context.Context, q core.Query) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[q.Key()]++
	if err := s.fail[q.Endpoint]; err != nil {
		return nil, err
	}
	body, ok := s.payloads[q.Key()]
	if !ok {
		return nil, errors.New("no payload for " + q.Key())
	}
	return []byte(body), nil
}

func (s *stubFetcher) count(q core.Query) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[q.Key()]
}

const pivotPayload = `{"data":{
	"Food":{"debit":150,"credit":20,"sub_categories":[
		{"sub_category":"Groceries","debit":100,"credit":20},
		{"sub_category":"Dining","debit":50,"credit":0}]},
	"Travel":{"debit":30,"credit":0,"sub_categories":[{"sub_category":"Cab","debit":30,"credit":0}]}
},"grand_total":{"debit":180,"credit":20}}`

func monthStub() *stubFetcher {
	return newStub(map[string]string{
		core.TransactionsQuery(march).Key(): `[
			{"id":2,"date":"2024-03-02","narration":"Rent","debit_amount":15000,"credit_amount":0,
			 "category":"Housing","sub_category":null,"personal_account":"HDFC","nominal_account":"Expense","running_balance":5000},
			{"id":1,"date":"2024-03-01","narration":"Salary","debit_amount":0,"credit_amount":20000,
			 "category":null,"sub_category":null,"personal_account":"HDFC","nominal_account":"Income","running_balance":20000}]`,
		core.MonthlyReportQuery(march).Key():       `[{"account_name":"HDFC","opening_balance":0,"debit":15000,"credit":20000,"closing_balance":5000}]`,
		core.ExpenseSummaryQuery(march).Key():      `[{"account_name":"Housing","debit":15000,"credit":0,"total":15000}]`,
		core.CategorisedExpensesQuery(march).Key(): pivotPayload,
	})
}

func catalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return c
}

func TestServiceDecodeErrorsNameEndpoint(t *testing.T) {
	stub := newStub(map[string]string{core.TransactionsQuery(march).Key(): `{"not":"a list"}`})
	_, err := NewService(stub).Transactions(context.Background(), march)
	if err == nil || !strings.Contains(err.Error(), "decode transactions") {
		t.Errorf("Transactions() error = %v, want decode error naming the endpoint", err)
	}

	stub.fail[core.EndpointTransactions] = errors.New("connection refused")
	_, err = NewService(stub).Transactions(context.Background(), march)
	if err == nil || !strings.Contains(err.Error(), "fetch transactions") {
		t.Errorf("Transactions() error = %v, want fetch error naming the endpoint", err)
	}
}

func TestMonthOverview(t *testing.T) {
	stub := monthStub()
	o, err := NewService(stub).MonthOverview(context.Background(), march)
	if err != nil {
		t.Fatalf("MonthOverview() error = %v", err)
	}
	if len(o.Accounts) != 1 || len(o.Expenses) != 1 || len(o.Categorised.Categories) != 2 {
		t.Errorf("MonthOverview() = %+v", o)
	}

	stub.fail[core.EndpointExpenseSummary] = errors.New("boom")
	if _, err := NewService(stub).MonthOverview(context.Background(), march); err == nil {
		t.Error("MonthOverview() should fail when one report fails")
	}
}

func TestCachedFetcherServesFromCache(t *testing.T) {
	stub := monthStub()
	cf := NewCachedFetcher(stub, 10, time.Minute)
	q := core.TransactionsQuery(march)

	for i := 0; i < 3; i++ {
		if _, err := cf.Fetch(context.Background(), q); err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
	}
	if got := stub.count(q); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	cf.Invalidate(q)
	if _, err := cf.Fetch(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if got := stub.count(q); got != 2 {
		t.Errorf("upstream calls after Invalidate = %d, want 2", got)
	}
}

func TestCachedFetcherExpires(t *testing.T) {
	stub := monthStub()
	cf := NewCachedFetcher(stub, 10, 0)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cf.Cache().WithClock(func() time.Time { return now })
	q := core.ExpenseSummaryQuery(march)

	cf.Fetch(context.Background(), q)
	now = now.Add(DefaultStaleTime - time.Second)
	cf.Fetch(context.Background(), q)
	if got := stub.count(q); got != 1 {
		t.Errorf("upstream calls within stale time = %d, want 1", got)
	}
	now = now.Add(2 * time.Second)
	cf.Fetch(context.Background(), q)
	if got := stub.count(q); got != 2 {
		t.Errorf("upstream calls after stale time = %d, want 2", got)
	}
}

func TestCachedFetcherDoesNotCacheErrors(t *testing.T) {
	stub := monthStub()
	stub.fail[core.EndpointTransactions] = errors.New("502")
	cf := NewCachedFetcher(stub, 10, time.Minute)
	q := core.TransactionsQuery(march)

	if _, err := cf.Fetch(context.Background(), q); err == nil {
		t.Fatal("Fetch() error = nil")
	}
	delete(stub.fail, core.EndpointTransactions)
	if _, err := cf.Fetch(context.Background(), q); err != nil {
		t.Errorf("Fetch() after recovery error = %v", err)
	}
}

// blockingFetcher holds every call until released.
type blockingFetcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingFetcher) Fetch(context.Context, core.Query) ([]byte, error) {
	b.calls.Add(1)
	<-b.release
	return []byte(`[]`), nil
}

func TestCachedFetcherCollapsesConcurrentLoads(t *testing.T) {
	up := &blockingFetcher{release: make(chan struct{})}
	cf := NewCachedFetcher(up, 10, time.Minute)
	q := core.TransactionsQuery(march)

	var wg sync.WaitGroup
	started := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started <- struct{}{}
			cf.Fetch(context.Background(), q)
		}()
	}
	for i := 0; i < 8; i++ {
		<-started
	}
	time.Sleep(20 * time.Millisecond)
	close(up.release)
	wg.Wait()

	if got := up.calls.Load(); got < 1 || got > 8 {
		t.Fatalf("upstream calls = %d", got)
	}
	if _, err := cf.Fetch(context.Background(), q); err != nil {
		t.Fatal(err)
	}
	if got := up.calls.Load(); got > 8 {
		t.Errorf("cached read went upstream: %d calls", got)
	}
}

// ctxFetcher holds every call until released, then fails if its context
// was cancelled meanwhile.
type ctxFetcher struct {
	entered chan struct{}
	release chan struct{}
}

func (f *ctxFetcher) Fetch(ctx context.Context, _ core.Query) ([]byte, error) {
	f.entered <- struct{}{}
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(`[]`), nil
}

func TestCachedFetcherSharedLoadSurvivesFirstCaller(t *testing.T) {
	up := &ctxFetcher{entered: make(chan struct{}, 4), release: make(chan struct{})}
	cf := NewCachedFetcher(up, 10, time.Minute)
	q := core.TransactionsQuery(march)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cf.Fetch(first, q)
		firstErr <- err
	}()
	<-up.entered

	secondErr := make(chan error, 1)
	go func() {
		_, err := cf.Fetch(context.Background(), q)
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}
	close(up.release)
	if err := <-secondErr; err != nil {
		t.Errorf("joined caller error = %v", err)
	}
}

func TestInvalidateEndpoint(t *testing.T) {
	stub := newStub(map[string]string{
		core.CreditCardsQuery().Key():                 `[]`,
		core.CreditCardSummaryQuery(1, march).Key():   `{}`,
		core.CreditCardSummaryQuery(2, march).Key():   `{}`,
		core.CreditCardTrendQuery(1).Key():            `[]`,
	})
	cf := NewCachedFetcher(stub, 10, time.Minute)
	for key := range stub.payloads {
		q, _ := core.ParseKey(key)
		cf.Fetch(context.Background(), q)
	}

	if n := cf.InvalidateEndpoint(core.EndpointCreditCardSummary); n != 2 {
		t.Errorf("InvalidateEndpoint() = %d, want 2", n)
	}
	if got := cf.Cache().Size(); got != 2 {
		t.Errorf("remaining entries = %d, want credit-card and trend", got)
	}
}

func TestTransactionsView(t *testing.T) {
	v, _ := catalog(t).Lookup(ViewTransactions)
	tbl := v.NewTable(grid.NewState())
	if err := tbl.Load(context.Background(), v.Source(NewService(monthStub()), Params{Period: march})); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tbl.SetSort(grid.SortState{Key: "date", Dir: grid.Asc})
	view := tbl.Render()
	if len(view.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(view.Rows))
	}
	first := view.Rows[0]
	if first.Key != "1" {
		t.Errorf("first row = %q, want the 1 March transaction", first.Key)
	}
	cells := map[string]string{}
	for _, c := range first.Cells {
		cells[c.Key] = c.Text
	}
	if cells["date"] != "01-03-2024" || cells["credit_amount"] != "₹20,000.00" || cells["category"] != "" {
		t.Errorf("cells = %v", cells)
	}

	p, _ := tbl.OpenPopover("category")
	if got := p.Values(); len(got) != 2 || got[1] != "" {
		t.Errorf("category values = %q, want Housing and the empty value", got)
	}
}

func TestPivotView(t *testing.T) {
	v, _ := catalog(t).Lookup(ViewPivot)
	tbl := v.NewTable(grid.NewState())
	if err := tbl.Load(context.Background(), v.Source(NewService(monthStub()), Params{Period: march})); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	tbl.Toggle("Food")
	view := tbl.Render()

	var labels, totals []string
	for _, r := range view.Rows {
		labels = append(labels, r.Cells[0].Text)
		totals = append(totals, r.Cells[3].Text)
	}
	wantLabels := []string{"Food", "Groceries", "Dining", "Travel", "Grand Total"}
	wantTotals := []string{"₹130.00", "₹80.00", "₹50.00", "₹30.00", "₹160.00"}
	for i := range wantLabels {
		if labels[i] != wantLabels[i] || totals[i] != wantTotals[i] {
			t.Errorf("row %d = %s %s, want %s %s", i, labels[i], totals[i], wantLabels[i], wantTotals[i])
		}
	}
	last := view.Rows[len(view.Rows)-1]
	if last.Highlight != TotalHighlight || !last.Emphasis {
		t.Errorf("total row = %+v, want highlighted", last)
	}
	if view.Rows[1].Indent != 1 {
		t.Error("sub-category rows should be indented")
	}
}

func TestViewNotReady(t *testing.T) {
	c := catalog(t)
	for _, name := range []string{ViewCardTransactions, ViewCardTrend, ViewSplitwise} {
		v, ok := c.Lookup(name)
		if !ok {
			t.Fatalf("Lookup(%q) missing", name)
		}
		if _, err := v.Load(context.Background(), NewService(newStub(nil)), Params{Period: march}); !errors.Is(err, ErrNotReady) {
			t.Errorf("%s Load() error = %v, want ErrNotReady", name, err)
		}
		if qs := v.Queries(Params{Period: march}); len(qs) != 0 {
			t.Errorf("%s Queries() = %v, want none", name, qs)
		}
	}
}

func TestCardViewsShareSummary(t *testing.T) {
	summary := core.CreditCardSummaryQuery(7, march)
	stub := newStub(map[string]string{summary.Key(): `{"opening_balance":-100,"total_bill":900,"transactions":[
		{"id":1,"date":"2024-03-03","narration":"Swiggy","debit_amount":300,"credit_amount":0,"category":"Food"},
		{"id":2,"date":"2024-03-04","narration":"Uber","debit_amount":100,"credit_amount":0,"category":"Travel"},
		{"id":3,"date":"2024-03-05","narration":"Zomato","debit_amount":200,"credit_amount":0,"category":"Food"}]}`})
	svc := NewService(NewCachedFetcher(stub, 10, time.Minute))
	c := catalog(t)
	p := Params{Period: march, CardID: 7}

	txView, _ := c.Lookup(ViewCardTransactions)
	ds, err := txView.Load(context.Background(), svc, p)
	if err != nil || len(ds.Rows) != 3 {
		t.Fatalf("card transactions = %d rows, err %v", len(ds.Rows), err)
	}
	catView, _ := c.Lookup(ViewCardCategories)
	ds, err = catView.Load(context.Background(), svc, p)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Rows) != 2 || ds.Rows[0].Key != "Food" || shareText(t, catView, ds.Rows[0]) != "83.3%" {
		t.Errorf("card categories = %+v", ds.Rows)
	}
	if got := stub.count(summary); got != 1 {
		t.Errorf("summary fetched %d times, want 1", got)
	}
}

func shareText(t *testing.T, v *View, row grid.Row) string {
	t.Helper()
	col, ok := v.Columns.Lookup("share")
	if !ok {
		t.Fatal("share column missing")
	}
	return grid.Renderer{Columns: v.Columns}.CellText(col, row)
}

func TestBreakdownRowsEmptyTotal(t *testing.T) {
	rows := BreakdownRows([]core.CategoryAmount{{Name: "Food", Amount: decimal.Zero}})
	catView, _ := catalog(t).Lookup(ViewCardCategories)
	if got := shareText(t, catView, rows[0]); got != "0.0%" {
		t.Errorf("share = %q, want 0.0%%", got)
	}
}

func TestCardCategoriesSortByShare(t *testing.T) {
	rows := BreakdownRows([]core.CategoryAmount{
		{Name: "Misc", Amount: decimal.NewFromInt(50)},
		{Name: "Rent", Amount: decimal.NewFromInt(700)},
		{Name: "Food", Amount: decimal.NewFromInt(250)},
	})
	catView, _ := catalog(t).Lookup(ViewCardCategories)

	tests := []struct {
		dir  grid.Direction
		want []string
	}{
		{grid.Desc, []string{"70.0%", "25.0%", "5.0%"}},
		{grid.Asc, []string{"5.0%", "25.0%", "70.0%"}},
	}
	for _, tt := range tests {
		got := grid.ComputeVisibleRows(rows, catView.Columns, grid.SortState{Key: "share", Dir: tt.dir}, nil)
		var shares []string
		for _, r := range got {
			shares = append(shares, shareText(t, catView, r))
		}
		if !reflect.DeepEqual(shares, tt.want) {
			t.Errorf("sort %s = %v, want %v", tt.dir, shares, tt.want)
		}
	}
}

package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
	"finboard/internal/grid"
)

// TotalHighlight is the background of the grand-total row.
const TotalHighlight = "#7AB2D3"

// View names.
const (
	ViewTransactions     = "transactions"
	ViewAccounts         = "accounts"
	ViewExpenses         = "expenses"
	ViewPivot            = "pivot"
	ViewCardTransactions = "card-transactions"
	ViewCardCategories   = "card-categories"
	ViewCardTrend        = "card-trend"
	ViewSplitwise        = "splitwise"
)

// Params are the page-level inputs a view is loaded with.
type Params struct {
	Period    core.Period
	CardID    int64
	Splitwise core.SplitwiseFilter
}

// View describes one table of the dashboard: its columns, highlight policy
// and how to load it.
type View struct {
	Name  string
	Title string
	// Prefix namespaces the table's state in the page URL.
	Prefix    string
	Columns   *grid.Columns
	Highlight grid.Highlight
	LabelKey  string

	ready   func(Params) bool
	queries func(Params) []core.Query
	load    func(ctx context.Context, s *Service, p Params) (grid.Dataset, error)
}

// Ready reports whether p carries everything the view needs.
func (v *View) Ready(p Params) bool {
	return v.ready == nil || v.ready(p)
}

// Queries lists the API queries the view reads for p.
func (v *View) Queries(p Params) []core.Query {
	if !v.Ready(p) {
		return nil
	}
	return v.queries(p)
}

// Load fetches and converts the view's dataset.
func (v *View) Load(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
	if !v.Ready(p) {
		return grid.Dataset{}, ErrNotReady
	}
	ds, err := v.load(ctx, s, p)
	if err != nil {
		return grid.Dataset{}, fmt.Errorf("load %s: %w", v.Name, err)
	}
	return ds, nil
}

// Source binds the view to a service and parameters.
func (v *View) Source(s *Service, p Params) grid.DataSource {
	return func(ctx context.Context) (grid.Dataset, error) { return v.Load(ctx, s, p) }
}

// NewTable mounts a table for the view starting from state.
func (v *View) NewTable(state grid.State) *grid.Table {
	opts := []grid.Option{grid.WithState(state), grid.WithHighlight(v.Highlight)}
	if v.LabelKey != "" {
		opts = append(opts, grid.WithLabelKey(v.LabelKey))
	}
	return grid.NewTable(v.Columns, opts...)
}

// Catalog is the set of views, by name.
type Catalog struct {
	views map[string]*View
	order []string
}

// NewCatalog builds every view. It fails only on a column definition
// error.
func NewCatalog() (*Catalog, error) {
	builders := []func() (*View, error){
		transactionsView,
		accountsView,
		expensesView,
		pivotView,
		cardTransactionsView,
		cardCategoriesView,
		cardTrendView,
		splitwiseView,
	}
	c := &Catalog{views: make(map[string]*View, len(builders))}
	for _, build := range builders {
		v, err := build()
		if err != nil {
			return nil, err
		}
		c.views[v.Name] = v
		c.order = append(c.order, v.Name)
	}
	return c, nil
}

// Lookup returns the view called name.
func (c *Catalog) Lookup(name string) (*View, bool) {
	v, ok := c.views[name]
	return v, ok
}

// Names lists the views in declaration order.
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

func money(key, header string, width int) grid.Column {
	return grid.Column{
		Key:      key,
		Header:   header,
		Width:    grid.Width{Current: width},
		Sortable: true,
		Align:    grid.AlignRight,
		Render:   func(v any, _ grid.Row) string { return grid.FormatMoney(v) },
	}
}

func date(key string, width int) grid.Column {
	return grid.Column{
		Key:        key,
		Header:     "Date",
		Width:      grid.Width{Current: width},
		Sortable:   true,
		Filterable: true,
		Align:      grid.AlignRight,
		Render:     func(v any, _ grid.Row) string { return grid.FormatDate(v) },
	}
}

// percent shows a decimal percentage with one place.
func percent(key, header string, width int) grid.Column {
	return grid.Column{
		Key:      key,
		Header:   header,
		Width:    grid.Width{Current: width},
		Sortable: true,
		Align:    grid.AlignRight,
		Render: func(v any, _ grid.Row) string {
			d, ok := v.(decimal.Decimal)
			if !ok {
				return grid.Literal(v)
			}
			return d.StringFixed(1) + "%"
		},
	}
}

func text(key, header string, width int) grid.Column {
	return grid.Column{
		Key:        key,
		Header:     header,
		Width:      grid.Width{Current: width},
		Sortable:   true,
		Filterable: true,
	}
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func monthReady(p Params) bool { return p.Period.Validate() == nil }

func cardReady(p Params) bool { return p.CardID > 0 && monthReady(p) }

func transactionColumns() (*grid.Columns, error) {
	return grid.NewColumns(grid.DefaultColumn(),
		grid.Column{Key: "id", Header: "ID", Width: grid.Width{Current: 64}, Sortable: true, Align: grid.AlignRight},
		date("date", 87),
		text("narration", "Narration", 300),
		money("debit_amount", "Debit Amount", 100),
		money("credit_amount", "Credit Amount", 100),
		text("category", "Category", 123),
		text("sub_category", "Sub Category", 123),
		text("personal_account", "Personal Account", 123),
		text("nominal_account", "Nominal Account", 123),
		money("running_balance", "Running Balance", 123),
	)
}

// TransactionRows converts transactions to grid rows keyed by id.
func TransactionRows(txns []core.Transaction) []grid.Row {
	rows := make([]grid.Row, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, grid.NewRow(strconv.FormatInt(t.ID, 10), map[string]any{
			"id":               t.ID,
			"date":             t.Date.String(),
			"narration":        t.Narration,
			"debit_amount":     t.DebitAmount,
			"credit_amount":    t.CreditAmount,
			"category":         optional(t.Category),
			"sub_category":     optional(t.SubCategory),
			"personal_account": t.PersonalAccount,
			"nominal_account":  t.NominalAccount,
			"running_balance":  t.RunningBalance,
		}))
	}
	return rows
}

func transactionsView() (*View, error) {
	cols, err := transactionColumns()
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewTransactions,
		Title:   "Transactions",
		Prefix:  "tx.",
		Columns: cols,
		ready:   monthReady,
		queries: func(p Params) []core.Query { return []core.Query{core.TransactionsQuery(p.Period)} },
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			txns, err := s.Transactions(ctx, p.Period)
			if err != nil {
				return grid.Dataset{}, err
			}
			return grid.Dataset{Rows: TransactionRows(txns)}, nil
		},
	}, nil
}

func accountsView() (*View, error) {
	cols, err := grid.NewColumns(grid.DefaultColumn(),
		text("account_name", "Account Name", 120),
		money("opening_balance", "Opening Balance", 100),
		money("debit", "Debit", 100),
		money("credit", "Credit", 100),
		money("closing_balance", "Closing Balance", 100),
	)
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewAccounts,
		Title:   "Account Summary",
		Prefix:  "acc.",
		Columns: cols,
		ready:   monthReady,
		queries: func(p Params) []core.Query { return []core.Query{core.MonthlyReportQuery(p.Period)} },
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			accounts, err := s.AccountSummaries(ctx, p.Period)
			if err != nil {
				return grid.Dataset{}, err
			}
			rows := make([]grid.Row, 0, len(accounts))
			for _, a := range accounts {
				rows = append(rows, grid.NewRow(a.AccountName, map[string]any{
					"account_name":    a.AccountName,
					"opening_balance": a.OpeningBalance,
					"debit":           a.Debit,
					"credit":          a.Credit,
					"closing_balance": a.ClosingBalance,
				}))
			}
			return grid.Dataset{Rows: rows}, nil
		},
	}, nil
}

func expensesView() (*View, error) {
	cols, err := grid.NewColumns(grid.DefaultColumn(),
		text("account_name", "Account Name", 150),
		money("debit", "Debit", 100),
		money("credit", "Credit", 100),
		money("total", "Total", 100),
	)
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewExpenses,
		Title:   "Expense Summary",
		Prefix:  "exp.",
		Columns: cols,
		ready:   monthReady,
		queries: func(p Params) []core.Query { return []core.Query{core.ExpenseSummaryQuery(p.Period)} },
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			expenses, err := s.ExpenseSummaries(ctx, p.Period)
			if err != nil {
				return grid.Dataset{}, err
			}
			rows := make([]grid.Row, 0, len(expenses))
			for _, e := range expenses {
				rows = append(rows, grid.NewRow(e.AccountName, map[string]any{
					"account_name": e.AccountName,
					"debit":        e.Debit,
					"credit":       e.Credit,
					"total":        e.Total,
				}))
			}
			return grid.Dataset{Rows: rows}, nil
		},
	}, nil
}

// netOf derives the pivot "Totals" cell from a row's debit and credit.
func netOf(row grid.Row) (any, bool) {
	d, _ := row.Values["debit"].(decimal.Decimal)
	c, _ := row.Values["credit"].(decimal.Decimal)
	return core.Net(d, c), true
}

func pivotAmount(key, header string) grid.Column {
	c := money(key, header, 140)
	c.Sortable = false
	return c
}

// PivotOf converts a categorised expense summary into a grid pivot. Leaf
// rows carry the sub-category name under "category", beneath their group.
func PivotOf(s core.CategorisedExpenseSummary) *grid.Pivot {
	p := &grid.Pivot{
		TotalLabel: grid.TotalLabel,
		Total:      map[string]any{"debit": s.GrandTotal.Debit, "credit": s.GrandTotal.Credit},
	}
	for _, c := range s.Categories {
		g := grid.Group{
			Key:       c.Name,
			Aggregate: map[string]any{"debit": c.Debit, "credit": c.Credit},
		}
		for i, sub := range c.SubCategories {
			g.Leaves = append(g.Leaves, grid.NewRow(fmt.Sprintf("%s/%d", c.Name, i), map[string]any{
				"category": sub.Name,
				"debit":    sub.Debit,
				"credit":   sub.Credit,
			}))
		}
		p.Groups = append(p.Groups, g)
	}
	return p
}

func pivotView() (*View, error) {
	cols, err := grid.NewColumns(grid.DefaultColumn(),
		grid.Column{Key: "category", Header: "Category", Width: grid.Width{Current: 200}},
		pivotAmount("credit", "Sum of Credit Amount"),
		pivotAmount("debit", "Sum of Debit Amount"),
		grid.Column{
			Key:    "totals",
			Header: "Totals",
			Width:  grid.Width{Current: 120},
			Align:  grid.AlignRight,
			Value:  netOf,
			Render: func(v any, _ grid.Row) string { return grid.FormatMoney(v) },
		},
	)
	if err != nil {
		return nil, err
	}
	return &View{
		Name:      ViewPivot,
		Title:     "Expenses by Category",
		Prefix:    "pv.",
		Columns:   cols,
		Highlight: grid.Highlight{Match: grid.IsTotal, Color: TotalHighlight},
		LabelKey:  "category",
		ready:     monthReady,
		queries:   func(p Params) []core.Query { return []core.Query{core.CategorisedExpensesQuery(p.Period)} },
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			summary, err := s.CategorisedExpenses(ctx, p.Period)
			if err != nil {
				return grid.Dataset{}, err
			}
			return grid.Dataset{Pivot: PivotOf(summary)}, nil
		},
	}, nil
}

func cardSummaryQueries(p Params) []core.Query {
	return []core.Query{core.CreditCardSummaryQuery(p.CardID, p.Period)}
}

func cardTransactionsView() (*View, error) {
	cols, err := transactionColumns()
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewCardTransactions,
		Title:   "Card Transactions",
		Prefix:  "ctx.",
		Columns: cols,
		ready:   cardReady,
		queries: cardSummaryQueries,
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			summary, err := s.CreditCardSummary(ctx, p.CardID, p.Period)
			if err != nil {
				return grid.Dataset{}, err
			}
			return grid.Dataset{Rows: TransactionRows(summary.Transactions)}, nil
		},
	}, nil
}

func cardCategoriesView() (*View, error) {
	cols, err := grid.NewColumns(grid.DefaultColumn(),
		text("category", "Category", 180),
		money("amount", "Spent", 120),
		percent("share", "Share", 80),
	)
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewCardCategories,
		Title:   "Category-wise Expenses",
		Prefix:  "cc.",
		Columns: cols,
		ready:   cardReady,
		queries: cardSummaryQueries,
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			summary, err := s.CreditCardSummary(ctx, p.CardID, p.Period)
			if err != nil {
				return grid.Dataset{}, err
			}
			return grid.Dataset{Rows: BreakdownRows(core.CategoryBreakdown(summary.Transactions))}, nil
		},
	}, nil
}

// BreakdownRows lists category amounts largest first with their share of
// the total in percent.
func BreakdownRows(amounts []core.CategoryAmount) []grid.Row {
	sorted := append([]core.CategoryAmount(nil), amounts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount.GreaterThan(sorted[j].Amount) })

	total := decimal.Zero
	for _, a := range sorted {
		total = total.Add(a.Amount)
	}
	rows := make([]grid.Row, 0, len(sorted))
	for _, a := range sorted {
		share := decimal.Zero
		if !total.IsZero() {
			share = a.Amount.Div(total).Mul(decimal.NewFromInt(100))
		}
		rows = append(rows, grid.NewRow(a.Name, map[string]any{
			"category": a.Name,
			"amount":   a.Amount,
			"share":    share,
		}))
	}
	return rows
}

func cardTrendView() (*View, error) {
	cols, err := grid.NewColumns(grid.DefaultColumn(),
		grid.Column{Key: "month", Header: "Month", Width: grid.Width{Current: 140}},
		money("taxes", "Taxes", 100),
		money("emis", "EMIs", 100),
		money("expenses", "Expenses", 110),
		money("total_bill", "Total Bill", 110),
	)
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewCardTrend,
		Title:   "Credit Card Trend",
		Prefix:  "ct.",
		Columns: cols,
		ready:   func(p Params) bool { return p.CardID > 0 },
		queries: func(p Params) []core.Query { return []core.Query{core.CreditCardTrendQuery(p.CardID)} },
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			trend, err := s.CreditCardTrend(ctx, p.CardID)
			if err != nil {
				return grid.Dataset{}, err
			}
			rows := make([]grid.Row, 0, len(trend))
			for _, t := range trend {
				rows = append(rows, grid.NewRow(t.Month, map[string]any{
					"month":      t.Month,
					"taxes":      t.Taxes,
					"emis":       t.EMIs,
					"expenses":   t.Expenses,
					"total_bill": t.TotalBill,
				}))
			}
			return grid.Dataset{Rows: rows}, nil
		},
	}, nil
}

func splitwiseView() (*View, error) {
	cols, err := grid.NewColumns(grid.DefaultColumn(),
		date("date", 100),
		text("narration", "Narration", 500),
		money("debit", "Debit", 100),
		money("credit", "Credit", 100),
		text("person_name", "Person Name", 150),
		money("running_balance", "Running Balance", 130),
	)
	if err != nil {
		return nil, err
	}
	return &View{
		Name:    ViewSplitwise,
		Title:   "Splitwise",
		Prefix:  "sw.",
		Columns: cols,
		ready:   func(p Params) bool { return p.Splitwise.Ready() },
		queries: func(p Params) []core.Query { return []core.Query{core.SplitwiseTransactionsQuery(p.Splitwise)} },
		load: func(ctx context.Context, s *Service, p Params) (grid.Dataset, error) {
			txns, err := s.SplitwiseTransactions(ctx, p.Splitwise)
			if err != nil {
				return grid.Dataset{}, err
			}
			rows := make([]grid.Row, 0, len(txns))
			for i, t := range txns {
				rows = append(rows, grid.NewRow(strconv.Itoa(i), map[string]any{
					"date":            t.Date.String(),
					"narration":       t.Narration,
					"debit":           t.Debit,
					"credit":          t.Credit,
					"person_name":     t.PersonName,
					"running_balance": t.RunningBalance,
				}))
			}
			return grid.Dataset{Rows: rows}, nil
		},
	}, nil
}

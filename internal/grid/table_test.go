package grid

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
)

func ledgerTable(t *testing.T, opts ...Option) *Table {
	t.Helper()
	cols, err := NewColumns(Column{},
		Column{Key: "narration", Sortable: true, Filterable: true},
		Column{Key: "status", Sortable: true, Filterable: true},
		Column{Key: "debit", Sortable: true, Align: AlignRight, Render: func(v any, _ Row) string { return FormatMoney(v) }},
	)
	if err != nil {
		t.Fatal(err)
	}
	return NewTable(cols, opts...)
}

func ledgerRows() []Row {
	return []Row{
		NewRow("1", map[string]any{"narration": "Rent", "status": "Paid", "debit": 15000}),
		NewRow("2", map[string]any{"narration": "Groceries", "status": "Due", "debit": 2300.5}),
		NewRow("3", map[string]any{"narration": "Fuel", "status": "", "debit": 1800}),
		NewRow("4", map[string]any{"narration": "Cinema", "status": "paid"}),
	}
}

func TestPopover(t *testing.T) {
	tbl := ledgerTable(t)
	tbl.SetDataset(Dataset{Rows: ledgerRows()}, false)

	p, err := tbl.OpenPopover("status")
	if err != nil {
		t.Fatalf("OpenPopover() error = %v", err)
	}
	if want := []string{"Paid", "Due", "", "paid"}; !reflect.DeepEqual(p.Values(), want) {
		t.Errorf("Values() = %q, want %q", p.Values(), want)
	}
	if !p.AllSelected() {
		t.Error("an unfiltered column starts fully selected")
	}

	p.SetSearch("PAI")
	if want := []string{"Paid", "paid"}; !reflect.DeepEqual(p.Visible(), want) {
		t.Errorf("Visible() = %q, want %q", p.Visible(), want)
	}
	p.SetSearch("empty")
	if want := []string{""}; !reflect.DeepEqual(p.Visible(), want) {
		t.Errorf("Visible() = %q, want the (Empty) value", p.Visible())
	}

	p.SetSearch("")
	p.SelectAll(false)
	p.Toggle("Paid")
	tbl.ApplyPopover(p)

	if got := ids(tbl.Visible()); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("Visible() = %v, want [1]", got)
	}

	// Reopening starts from the active filter.
	p, _ = tbl.OpenPopover("status")
	if !p.Selected("Paid") || p.Selected("Due") {
		t.Error("reopened popover lost the active filter")
	}
	p.SelectAll(true)
	tbl.ApplyPopover(p)
	if _, filtered := tbl.State().Filters["status"]; filtered {
		t.Error("selecting every value should clear the filter")
	}

	p.SelectAll(false)
	tbl.ApplyPopover(p)
	if got := tbl.Visible(); len(got) != 0 {
		t.Errorf("Visible() = %v, want no rows for an empty selection", ids(got))
	}
}

func TestPopoverSort(t *testing.T) {
	tbl := ledgerTable(t)
	tbl.SetDataset(Dataset{Rows: ledgerRows()}, false)
	p, _ := tbl.OpenPopover("debit")

	state := tbl.State()
	p.SortDesc(&state)
	tbl.SetSort(state.Sort)
	if got := ids(tbl.Visible()); !reflect.DeepEqual(got, []string{"1", "2", "3", "4"}) {
		t.Errorf("desc = %v", got)
	}
	p.SortAsc(&state)
	tbl.SetSort(state.Sort)
	if got := ids(tbl.Visible()); !reflect.DeepEqual(got, []string{"3", "2", "1", "4"}) {
		t.Errorf("asc = %v, missing debit should stay last", got)
	}
}

func TestTableStaleResponses(t *testing.T) {
	tbl := ledgerTable(t)

	first := tbl.BeginLoad()
	second := tbl.BeginLoad()
	if tbl.Resolve(first, Dataset{Rows: ledgerRows()[:1]}, nil) {
		t.Error("stale ticket was accepted")
	}
	if tbl.Status() != StatusLoading {
		t.Errorf("Status() = %v, want loading", tbl.Status())
	}
	if !tbl.Resolve(second, Dataset{Rows: ledgerRows()}, nil) {
		t.Fatal("current ticket was rejected")
	}
	if len(tbl.Visible()) != 4 {
		t.Errorf("len(Visible()) = %d, want 4", len(tbl.Visible()))
	}

	pending := tbl.BeginLoad()
	tbl.Close()
	if tbl.Resolve(pending, Dataset{}, errors.New("late")) {
		t.Error("result delivered after Close")
	}
}

func TestTableLoadFailure(t *testing.T) {
	tbl := ledgerTable(t)
	err := tbl.Load(context.Background(), func(context.Context) (Dataset, error) {
		return Dataset{}, errors.New("upstream unavailable")
	})
	if err == nil {
		t.Fatal("Load() error = nil")
	}
	v := tbl.Render()
	if v.Status != StatusFailed || v.Err == nil || len(v.Rows) != 0 {
		t.Errorf("Render() = status %v err %v rows %d, want failed with no rows", v.Status, v.Err, len(v.Rows))
	}
}

func pivotTable(t *testing.T) *Table {
	t.Helper()
	cols, err := NewColumns(Column{},
		Column{Key: "category"},
		Column{Key: "debit", Align: AlignRight},
	)
	if err != nil {
		t.Fatal(err)
	}
	return NewTable(cols, WithHighlight(Highlight{Match: IsTotal, Color: "#7AB2D3"}))
}

func TestTablePivotExpansion(t *testing.T) {
	tbl := pivotTable(t)
	rows := []Row{
		NewRow("1", map[string]any{"category": "Food", "debit": 100}),
		NewRow("2", map[string]any{"category": "Food", "debit": 50}),
		NewRow("3", map[string]any{"category": "Travel", "debit": 30}),
	}
	pivot := GroupRows(rows, "category", "debit")
	tbl.SetDataset(Dataset{Pivot: pivot}, false)

	tbl.Toggle("Food")
	v := tbl.Render()
	if len(v.Rows) != 5 {
		t.Fatalf("len(Rows) = %d, want 5", len(v.Rows))
	}
	if !v.Rows[0].Expandable || !v.Rows[0].Expanded {
		t.Error("Food row should be expandable and expanded")
	}
	if v.Rows[1].Indent != 1 {
		t.Errorf("sub-category indent = %d, want 1", v.Rows[1].Indent)
	}
	total := v.Rows[4]
	if !total.Emphasis || total.Highlight != "#7AB2D3" || total.Cells[0].Text != TotalLabel {
		t.Errorf("total row = %+v, want emphasised, highlighted and labelled", total)
	}
	if v.Rows[0].Highlight != "" {
		t.Error("category row should not be highlighted")
	}

	tbl.BeginRefresh()
	refresh := tbl.BeginRefresh()
	tbl.Resolve(refresh, Dataset{Pivot: pivot}, nil)
	if !tbl.State().Expanded.Has("Food") {
		t.Error("refresh should keep the expanded set")
	}

	fresh := tbl.BeginLoad()
	tbl.Resolve(fresh, Dataset{Pivot: pivot}, nil)
	if len(tbl.State().Expanded) != 0 {
		t.Error("a fresh dataset should reset the expanded set")
	}
}

func TestTableRenderMissingCell(t *testing.T) {
	tbl := ledgerTable(t)
	tbl.SetDataset(Dataset{Rows: []Row{NewRow("x", map[string]any{"narration": "Only narration"})}}, false)
	v := tbl.Render()
	cells := v.Rows[0].Cells
	if cells[1].Text != "" || cells[2].Text != "" {
		t.Errorf("missing cells rendered as %q, %q, want blank", cells[1].Text, cells[2].Text)
	}
}

func TestTableResizeThroughState(t *testing.T) {
	q := url.Values{"tx.w.narration": {"999"}, "tx.w.debit": {"75"}}
	tbl := ledgerTable(t, WithState(DecodeState(q, "tx.")))
	if got := tbl.Resizer().Widths()["narration"]; got != 600 {
		t.Errorf("narration width = %d, want clamped to 600", got)
	}

	if _, err := tbl.Resizer().Begin("debit", 0); err != nil {
		t.Fatal(err)
	}
	tbl.Resizer().End(25)
	v := tbl.Render()
	if v.Headers[2].Width != 100 {
		t.Errorf("header width = %d, want 100", v.Headers[2].Width)
	}
}

func TestStateCodec(t *testing.T) {
	s := NewState()
	s.Sort = SortState{Key: "debit", Dir: Desc}
	s.Filters["status"] = NewValueSet("Paid", "")
	s.Filters["category"] = NewValueSet()
	s.Expanded["Food"] = struct{}{}
	s.Widths["narration"] = 240

	q := url.Values{"month": {"3"}, "pivot.sort": {"category"}}
	s.Encode(q, "tx.")

	if q.Get("month") != "3" || q.Get("pivot.sort") != "category" {
		t.Error("Encode touched parameters of other tables")
	}
	got := DecodeState(q, "tx.")
	if !reflect.DeepEqual(got, s) {
		t.Errorf("DecodeState(Encode(s)) = %+v, want %+v", got, s)
	}

	other := DecodeState(q, "pivot.")
	if other.Sort != (SortState{Key: "category", Dir: Asc}) {
		t.Errorf("pivot sort = %+v, want category asc", other.Sort)
	}

	NewState().Encode(q, "tx.")
	if cleared := DecodeState(q, "tx."); cleared.Sort.Active() || len(cleared.Filters) != 0 || len(cleared.Widths) != 0 {
		t.Errorf("Encode(empty) left state behind: %+v", cleared)
	}
}

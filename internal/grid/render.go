package grid

// Highlight is an optional row highlight policy supplied by the calling view.
type Highlight struct {
	Match func(Row) bool
	Color string
}

// RenderedCell is one display cell.
type RenderedCell struct {
	Key   string
	Text  string
	Width int
	Align Align
}

// RenderedRow is the render instruction for one visible row.
type RenderedRow struct {
	Key   string
	Index int
	Kind  RowKind
	Group string
	Cells []RenderedCell

	// Highlight is the background colour, empty when the policy did not match.
	Highlight  string
	Indent     int
	Emphasis   bool
	Expandable bool
	Expanded   bool
}

// RenderedHeader is the render instruction for one column header.
type RenderedHeader struct {
	Key        string
	Title      string
	Width      int
	Align      Align
	Sortable   bool
	Filterable bool
	// Sort is the active direction on this column, empty otherwise.
	Sort     Direction
	Filtered bool
}

// Renderer turns visible rows into render instructions. Widths are read from
// the resize controller's state; cells are rendered by the column's renderer,
// then Format, then Literal.
type Renderer struct {
	Columns   *Columns
	Widths    Widths
	Highlight Highlight
	Format    Formatter
}

// CellText renders one cell. A missing value renders blank.
func (r Renderer) CellText(col Column, row Row) string {
	v, ok := col.ValueOf(row)
	if !ok {
		return ""
	}
	switch {
	case col.Render != nil:
		return col.Render(v, row)
	case r.Format != nil:
		return r.Format(col.Key, v)
	default:
		return Literal(v)
	}
}

// Headers renders the header row for state.
func (r Renderer) Headers(state State) []RenderedHeader {
	out := make([]RenderedHeader, 0, r.Columns.Len())
	for _, c := range r.Columns.All() {
		h := RenderedHeader{
			Key:        c.Key,
			Title:      c.Header,
			Width:      r.Widths.Of(c),
			Align:      c.Align,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
		}
		if state.Sort.Key == c.Key {
			h.Sort = state.Sort.Dir
		}
		_, h.Filtered = state.Filters[c.Key]
		out = append(out, h)
	}
	return out
}

// Rows renders rows in order. expanded marks which category rows are open.
func (r Renderer) Rows(rows []Row, expanded Expanded) []RenderedRow {
	cols := r.Columns.All()
	out := make([]RenderedRow, 0, len(rows))
	for i, row := range rows {
		rr := RenderedRow{
			Key:   row.Key,
			Index: i,
			Kind:  row.Kind,
			Group: row.Group,
			Cells: make([]RenderedCell, 0, len(cols)),
		}
		switch row.Kind {
		case KindCategory:
			rr.Expandable = true
			rr.Expanded = expanded.Has(row.Group)
		case KindSubCategory:
			rr.Indent = 1
		case KindTotal:
			rr.Emphasis = true
		}
		if r.Highlight.Match != nil && r.Highlight.Match(row) {
			rr.Highlight = r.Highlight.Color
		}
		for _, c := range cols {
			rr.Cells = append(rr.Cells, RenderedCell{
				Key:   c.Key,
				Text:  r.CellText(c, row),
				Width: r.Widths.Of(c),
				Align: c.Align,
			})
		}
		out = append(out, rr)
	}
	return out
}

// IsTotal matches the synthetic total row of a flattened pivot.
func IsTotal(row Row) bool { return row.Kind == KindTotal }

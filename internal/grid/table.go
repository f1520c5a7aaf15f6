package grid

import (
	"context"
)

// Status is the load state of a table.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Dataset is what a data source yields: flat rows, or a pivot.
type Dataset struct {
	Rows  []Row
	Pivot *Pivot
}

// DataSource fetches a table's dataset. It is supplied by the caller; the
// table itself never performs I/O.
type DataSource func(ctx context.Context) (Dataset, error)

// Ticket identifies one load. Results carrying an outdated ticket are
// discarded.
type Ticket struct {
	gen      uint64
	preserve bool
}

// Table is one mounted table: columns, view state, resize controller and
// the last loaded dataset. A Table is owned by a single event loop and is
// not safe for concurrent use.
type Table struct {
	columns   *Columns
	state     State
	resizer   *Resizer
	highlight Highlight
	format    Formatter
	labelKey  string

	data   Dataset
	status Status
	err    error
	gen    uint64
	closed bool
}

// Option configures a Table.
type Option func(*Table)

// WithHighlight sets the row highlight policy.
func WithHighlight(h Highlight) Option { return func(t *Table) { t.highlight = h } }

// WithFormatter sets the fallback cell formatter.
func WithFormatter(f Formatter) Option { return func(t *Table) { t.format = f } }

// WithLabelKey sets the column that carries group and total labels of a
// pivot. It defaults to the first column.
func WithLabelKey(key string) Option { return func(t *Table) { t.labelKey = key } }

// WithState starts the table from an existing view state, for example one
// decoded from a URL. Widths are clamped to the column bounds.
func WithState(s State) Option { return func(t *Table) { t.state = s.Clone() } }

// NewTable mounts a table over cols.
func NewTable(cols *Columns, opts ...Option) *Table {
	t := &Table{columns: cols, state: NewState()}
	for _, opt := range opts {
		opt(t)
	}
	if t.labelKey == "" && cols.Len() > 0 {
		t.labelKey = cols.At(0).Key
	}

	widths := WidthsOf(cols)
	for key, w := range t.state.Widths {
		if col, ok := cols.Lookup(key); ok {
			widths[key] = col.Width.Clamp(w)
		}
	}
	t.state.Widths = widths
	t.resizer = NewResizer(cols, widths)
	return t
}

// Columns returns the column set.
func (t *Table) Columns() *Columns { return t.columns }

// State returns a copy of the view state.
func (t *Table) State() State { return t.state.Clone() }

// Resizer returns the table's resize controller. It shares the table's
// width state.
func (t *Table) Resizer() *Resizer { return t.resizer }

// Status returns the load state.
func (t *Table) Status() Status { return t.status }

// Err returns the error of the last failed load.
func (t *Table) Err() error { return t.err }

// SetSort replaces the active sort.
func (t *Table) SetSort(s SortState) { t.state.Sort = s }

// CycleSort moves key through ascending, descending and unsorted.
func (t *Table) CycleSort(key string) {
	switch {
	case t.state.Sort.Key != key:
		t.state.Sort = SortState{Key: key, Dir: Asc}
	case t.state.Sort.Dir == Asc:
		t.state.Sort.Dir = Desc
	default:
		t.state.Sort = SortState{}
	}
}

// SetFilter installs accepted as the filter of key.
func (t *Table) SetFilter(key string, accepted ValueSet) {
	t.state.Filters[key] = accepted.Clone()
}

// ClearFilter removes the filter of key.
func (t *Table) ClearFilter(key string) { delete(t.state.Filters, key) }

// Toggle flips the expansion of a pivot group.
func (t *Table) Toggle(group string) bool { return t.state.Expanded.Toggle(group) }

// OpenPopover opens the filter/sort popover of column key over the loaded
// rows.
func (t *Table) OpenPopover(key string) (*Popover, error) {
	return OpenPopover(key, t.data.Rows, t.columns, t.state)
}

// ApplyPopover writes a popover's selection into the view state.
func (t *Table) ApplyPopover(p *Popover) { p.Apply(&t.state) }

// BeginLoad marks the table loading and returns the ticket the result must
// carry. A new dataset resets the expanded set.
func (t *Table) BeginLoad() Ticket { return t.begin(false) }

// BeginRefresh is BeginLoad for a refetch of the same dataset: the expanded
// set survives.
func (t *Table) BeginRefresh() Ticket { return t.begin(true) }

func (t *Table) begin(preserve bool) Ticket {
	t.gen++
	t.status = StatusLoading
	t.err = nil
	return Ticket{gen: t.gen, preserve: preserve}
}

// Resolve delivers a load result. It reports false, and changes nothing,
// when the ticket is stale or the table has been closed.
func (t *Table) Resolve(ticket Ticket, ds Dataset, err error) bool {
	if t.closed || ticket.gen != t.gen {
		return false
	}
	if err != nil {
		t.status = StatusFailed
		t.err = err
		return true
	}
	t.SetDataset(ds, ticket.preserve)
	return true
}

// Load runs src synchronously and resolves its result.
func (t *Table) Load(ctx context.Context, src DataSource) error {
	ticket := t.BeginLoad()
	ds, err := src(ctx)
	t.Resolve(ticket, ds, err)
	return err
}

// SetDataset replaces the data wholesale. The expanded set is reset unless
// preserveExpanded is set.
func (t *Table) SetDataset(ds Dataset, preserveExpanded bool) {
	t.data = ds
	t.status = StatusReady
	t.err = nil
	if !preserveExpanded {
		t.state.Expanded = make(Expanded)
	}
}

// Close detaches the table. Pending loads resolve into nothing.
func (t *Table) Close() {
	t.closed = true
	t.resizer.Cancel()
}

// Dataset returns the loaded data.
func (t *Table) Dataset() Dataset { return t.data }

// Visible returns the rows to display. Pivots are flattened through the
// expanded set and keep their hierarchy; flat rows go through the
// filter/sort engine.
func (t *Table) Visible() []Row {
	if t.data.Pivot != nil {
		return Flatten(t.data.Pivot, t.state.Expanded, t.labelKey)
	}
	return ComputeVisibleRows(t.data.Rows, t.columns, t.state.Sort, t.state.Filters)
}

// Renderer returns the renderer bound to the table's widths and policies.
func (t *Table) Renderer() Renderer {
	return Renderer{
		Columns:   t.columns,
		Widths:    t.resizer.Widths(),
		Highlight: t.highlight,
		Format:    t.format,
	}
}

// AutoFit fits every column to the currently visible rows.
func (t *Table) AutoFit(measure Measure) {
	t.resizer.AutoFit(t.Visible(), t.Renderer().CellText, measure)
}

// View is a fully rendered table.
type View struct {
	Headers []RenderedHeader
	Rows    []RenderedRow
	Status  Status
	Err     error
	Guide   *Guide
}

// Render renders the headers and the visible rows.
func (t *Table) Render() View {
	r := t.Renderer()
	v := View{
		Headers: r.Headers(t.state),
		Status:  t.status,
		Err:     t.err,
	}
	if t.status == StatusReady {
		v.Rows = r.Rows(t.Visible(), t.state.Expanded)
	}
	if g, ok := t.resizer.Guide(); ok {
		v.Guide = &g
	}
	return v
}

// Package tui is the terminal front end of the dashboard. It mounts the
// same grid tables as the web pages and drives them from keyboard and
// mouse events.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"finboard/internal/core"
	"finboard/internal/grid"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// Tabs are the month-scoped views, in tab order.
var Tabs = []string{
	reports.ViewTransactions,
	reports.ViewAccounts,
	reports.ViewExpenses,
	reports.ViewPivot,
}

// doubleClick is the longest gap between two presses on the same handle
// that still counts as a double click.
const doubleClick = 400 * time.Millisecond

// chromeRows are the screen rows not available to table rows.
const chromeRows = firstRow + 3

// loadedMsg carries a finished load back into the event loop.
type loadedMsg struct {
	view   string
	ticket grid.Ticket
	ds     grid.Dataset
	err    error
}

type click struct {
	x, y int
	at   time.Time
}

// Model is the bubbletea model. Tables live behind pointers, so copies of
// a Model share them.
type Model struct {
	ctx         context.Context
	svc         *reports.Service
	invalidator reports.Invalidator
	logger      *applog.Logger
	now         func() time.Time

	views  []*reports.View
	tables map[string]*grid.Table
	loaded map[string]core.Period

	period core.Period
	active int
	col    int
	row    int
	offset int
	width  int
	height int

	filter     *filterPopover
	cancelDrag func()
	lastClick  click
	message    string
}

// Option configures a Model.
type Option func(*Model)

// WithInvalidator makes `r` drop cached responses before refetching.
func WithInvalidator(inv reports.Invalidator) Option {
	return func(m *Model) { m.invalidator = inv }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// New builds a model showing period, starting on the tab named start (the
// first tab when empty).
func New(ctx context.Context, svc *reports.Service, catalog *reports.Catalog, period core.Period, start string, opts ...Option) (Model, error) {
	if err := period.Validate(); err != nil {
		return Model{}, err
	}
	m := Model{
		ctx:    ctx,
		svc:    svc,
		logger: applog.WithComponent(applog.ComponentTUI),
		now:    time.Now,
		tables: make(map[string]*grid.Table, len(Tabs)),
		loaded: make(map[string]core.Period, len(Tabs)),
		period: period,
	}
	for i, name := range Tabs {
		v, ok := catalog.Lookup(name)
		if !ok {
			return Model{}, fmt.Errorf("view %q not in catalog", name)
		}
		m.views = append(m.views, v)
		m.tables[name] = v.NewTable(grid.NewState())
		if name == start {
			m.active = i
		}
	}
	if start != "" && Tabs[m.active] != start {
		return Model{}, fmt.Errorf("view %q is not a month view", start)
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m, nil
}

func (m Model) view() *reports.View { return m.views[m.active] }

func (m Model) table() *grid.Table { return m.tables[m.view().Name] }

func (m Model) params() reports.Params { return reports.Params{Period: m.period} }

// load starts a load of the active view. A refresh keeps expanded pivot
// groups. The returned command resolves with the load's ticket, so a
// response overtaken by a newer load is dropped.
func (m Model) load(refresh bool) tea.Cmd {
	v, t := m.view(), m.table()
	var ticket grid.Ticket
	if refresh {
		ticket = t.BeginRefresh()
	} else {
		ticket = t.BeginLoad()
	}
	m.loaded[v.Name] = m.period
	src := v.Source(m.svc, m.params())
	ctx := m.ctx
	return func() tea.Msg {
		ds, err := src(ctx)
		return loadedMsg{view: v.Name, ticket: ticket, ds: ds, err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return m.load(false)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scroll()
		return m, nil

	case tea.BlurMsg:
		if m.cancelDrag != nil {
			m.cancelDrag()
			m.cancelDrag = nil
			m.message = "resize cancelled"
		}
		return m, nil

	case loadedMsg:
		t, ok := m.tables[msg.view]
		if !ok || !t.Resolve(msg.ticket, msg.ds, msg.err) {
			m.logger.Debug("Discarded stale load", applog.FieldView, msg.view)
			return m, nil
		}
		if msg.err != nil {
			m.logger.Error("Load failed", applog.FieldView, msg.view, applog.FieldError, msg.err,
				applog.FieldYear, m.period.Year, applog.FieldMonth, m.period.Month)
		}
		m.scroll()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.filter != nil {
			return m.handlePopoverKey(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := m.table()
	headers := t.Render().Headers
	m.message = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		return m.switchTo((m.active + 1) % len(m.views))
	case "shift+tab":
		return m.switchTo((m.active + len(m.views) - 1) % len(m.views))
	case "1", "2", "3", "4":
		return m.switchTo(int(msg.String()[0] - '1'))

	case "[":
		return m.setPeriod(m.period.Prev())
	case "]":
		return m.setPeriod(m.period.Next())
	case "{":
		return m.setPeriod(core.Period{Year: m.period.Year - 1, Month: m.period.Month})
	case "}":
		return m.setPeriod(core.Period{Year: m.period.Year + 1, Month: m.period.Month})

	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l":
		if m.col < len(headers)-1 {
			m.col++
		}
	case "up", "k":
		m.row--
		m.scroll()
	case "down", "j":
		m.row++
		m.scroll()
	case "pgup":
		m.row -= m.pageSize()
		m.scroll()
	case "pgdown":
		m.row += m.pageSize()
		m.scroll()

	case "s":
		h := headers[m.col]
		if !h.Sortable {
			m.message = h.Title + " is not sortable"
			break
		}
		t.CycleSort(h.Key)
		m.scroll()
	case "f":
		h := headers[m.col]
		if !h.Filterable {
			m.message = h.Title + " is not filterable"
			break
		}
		pop, err := t.OpenPopover(h.Key)
		if err != nil {
			m.message = err.Error()
			break
		}
		m.filter = newFilterPopover(pop, h.Title)
		return m, textinput.Blink
	case "c":
		t.ClearFilter(headers[m.col].Key)
		m.scroll()

	case "enter":
		rows := t.Render().Rows
		if m.row < len(rows) && rows[m.row].Expandable {
			t.Toggle(rows[m.row].Group)
			m.scroll()
		}

	case "a":
		t.AutoFit(fitWidth)
		m.cancelDrag = nil
		m.message = "columns fitted"
	case "esc":
		if m.cancelDrag != nil {
			m.cancelDrag()
			m.cancelDrag = nil
		}

	case "r":
		return m.refresh()
	}
	return m, nil
}

func (m Model) handlePopoverKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	res, cmd := m.filter.update(msg)
	switch res {
	case popoverApplied:
		m.table().ApplyPopover(m.filter.pop)
		m.message = "filter applied to " + m.filter.title
		m.filter = nil
		m.scroll()
	case popoverClosed:
		m.filter = nil
	}
	return m, cmd
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	t := m.table()
	rs := t.Resizer()
	lay := layoutOf(t.Render().Headers)

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.row--
			m.scroll()
			return m, nil
		case tea.MouseButtonWheelDown:
			m.row++
			m.scroll()
			return m, nil
		case tea.MouseButtonLeft:
		default:
			return m, nil
		}
		if m.filter != nil {
			return m, nil
		}

		if msg.Y == headerRow {
			if key, ok := lay.borderAt(msg.X); ok {
				return m.pressHandle(key, msg.X, msg.Y), nil
			}
			if i, ok := lay.columnAt(msg.X); ok {
				m.col = i
				if h := t.Render().Headers[i]; h.Sortable {
					t.CycleSort(h.Key)
					m.scroll()
				}
			}
			return m, nil
		}
		if msg.Y >= firstRow {
			m.row = m.offset + msg.Y - firstRow
			if i, ok := lay.columnAt(msg.X); ok {
				m.col = i
			}
			m.scroll()
		}

	case tea.MouseActionMotion:
		rs.Move(msg.X * pxPerCell)

	case tea.MouseActionRelease:
		if rs.Phase() != grid.Dragging {
			return m, nil
		}
		g, _ := rs.Guide()
		width, committed := rs.End(msg.X * pxPerCell)
		m.cancelDrag = nil
		if committed {
			m.message = fmt.Sprintf("%s width %d", g.Key, width)
		}
	}
	return m, nil
}

// pressHandle starts a drag on key's handle, or auto-fits every column
// when it is the second press of a double click.
func (m Model) pressHandle(key string, x, y int) Model {
	t := m.table()
	now := m.now()
	prev := m.lastClick
	if prev.x == x && prev.y == y && !prev.at.IsZero() && now.Sub(prev.at) <= doubleClick {
		t.AutoFit(fitWidth)
		m.cancelDrag = nil
		m.lastClick = click{}
		m.message = "columns fitted"
		return m
	}
	m.lastClick = click{x: x, y: y, at: now}

	cancel, err := t.Resizer().Begin(key, x*pxPerCell)
	if err != nil {
		m.message = err.Error()
		return m
	}
	m.cancelDrag = cancel
	return m
}

func (m Model) switchTo(i int) (tea.Model, tea.Cmd) {
	if i < 0 || i >= len(m.views) || i == m.active {
		return m, nil
	}
	if m.cancelDrag != nil {
		m.cancelDrag()
		m.cancelDrag = nil
	}
	m.active = i
	m.col, m.row, m.offset = 0, 0, 0
	if p, ok := m.loaded[m.view().Name]; ok && p == m.period {
		return m, nil
	}
	return m, m.load(false)
}

func (m Model) setPeriod(p core.Period) (tea.Model, tea.Cmd) {
	if err := p.Validate(); err != nil {
		m.message = err.Error()
		return m, nil
	}
	m.period = p
	m.row, m.offset = 0, 0
	m.logger.Debug("Period changed", applog.FieldYear, p.Year, applog.FieldMonth, p.Month)
	return m, m.load(false)
}

// refresh drops the active view's cached responses and refetches it.
func (m Model) refresh() (tea.Model, tea.Cmd) {
	queries := m.view().Queries(m.params())
	if m.invalidator != nil {
		for _, q := range queries {
			m.invalidator.Invalidate(q)
		}
	}
	m.message = "refreshing"
	m.logger.Info("Refresh requested", applog.FieldView, m.view().Name, applog.FieldRows, len(queries))
	return m, m.load(true)
}

func (m Model) pageSize() int {
	if m.height <= chromeRows {
		return 10
	}
	return m.height - chromeRows
}

// scroll clamps the cursors and keeps the cursor row on screen.
func (m *Model) scroll() {
	t := m.table()
	n := len(t.Render().Rows)
	m.row = max(min(m.row, n-1), 0)
	if cols := t.Columns().Len(); m.col >= cols {
		m.col = max(cols-1, 0)
	}
	if m.height <= chromeRows {
		m.offset = 0
		return
	}
	page := m.pageSize()
	if m.row < m.offset {
		m.offset = m.row
	}
	if m.row >= m.offset+page {
		m.offset = m.row - page + 1
	}
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("finboard"))
	b.WriteString("  ")
	b.WriteString(periodStyle.Render(m.period.String()))
	b.WriteString("\n")

	tabs := make([]string, len(m.views))
	for i, v := range m.views {
		label := fmt.Sprintf("%d %s", i+1, v.Title)
		if i == m.active {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n")

	t := m.table()
	view := t.Render()
	lay := layoutOf(view.Headers)

	for i, h := range view.Headers {
		title := h.Title
		switch h.Sort {
		case grid.Asc:
			title += " ▲"
		case grid.Desc:
			title += " ▼"
		}
		if h.Filtered {
			title += " *"
		}
		cell := fit(title, lay.widths[i], h.Align)
		if i == m.col {
			b.WriteString(focusStyle.Render(cell))
		} else {
			b.WriteString(headerStyle.Render(cell))
		}
		b.WriteString(dimStyle.Render("│"))
	}
	b.WriteString("\n")

	guideX := -1
	if view.Guide != nil {
		guideX = view.Guide.X / pxPerCell
	}
	b.WriteString(lay.separator(guideX))
	b.WriteString("\n")

	end := len(view.Rows)
	if m.height > chromeRows {
		end = min(m.offset+m.pageSize(), end)
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(view.Rows[i], lay, i == m.row))
		b.WriteString("\n")
	}

	switch view.Status {
	case grid.StatusLoading:
		b.WriteString(dimStyle.Render("Loading…"))
	case grid.StatusFailed:
		b.WriteString(errorStyle.Render("Error: " + view.Err.Error()))
	case grid.StatusReady:
		if len(view.Rows) == 0 {
			b.WriteString(dimStyle.Render("No rows"))
		} else {
			b.WriteString(dimStyle.Render(fmt.Sprintf("%d rows", len(view.Rows))))
		}
	}
	if view.Guide != nil {
		b.WriteString("  ")
		b.WriteString(guideStyle.Render(fmt.Sprintf("%s → %d", view.Guide.Key, view.Guide.Width)))
	} else if m.message != "" {
		b.WriteString("  ")
		b.WriteString(m.message)
	}
	b.WriteString("\n")

	if m.filter != nil {
		b.WriteString(m.filter.view())
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render("tab view • [ ] month • { } year • s sort • f filter • c clear • enter expand • a fit • r refresh • q quit"))
	return b.String()
}

func (m Model) renderRow(r grid.RenderedRow, lay layout, selected bool) string {
	cells := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		text := c.Text
		if i == 0 {
			switch {
			case r.Expandable && r.Expanded:
				text = "▾ " + text
			case r.Expandable:
				text = "▸ " + text
			case r.Indent > 0:
				text = strings.Repeat("  ", r.Indent) + text
			}
		}
		cells[i] = fit(text, lay.widths[i], c.Align)
	}
	line := strings.Join(cells, "│") + "│"

	switch {
	case selected:
		return cursorStyle.Render(line)
	case r.Highlight != "":
		return highlightStyle(r.Highlight, r.Emphasis).Render(line)
	case r.Emphasis:
		return boldStyle.Render(line)
	}
	return line
}

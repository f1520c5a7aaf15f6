package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"finboard/internal/grid"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// Table action parameters. They are never carried into the table's own
// URL, so each request applies at most one action.
const (
	actToggle      = "toggle"
	actSort        = "sortkey"
	actPopover     = "pop"
	actOp          = "op"
	actValue       = "pv"
	actResize      = "rz"
	actResizeStart = "x0"
	actResizeEnd   = "x1"
	actFit         = "fit"
)

var errBadAction = errors.New("invalid table action")

// mountTable builds the view's table from state and loads it when the page
// carries what the view needs. A refresh ticket keeps the expanded groups
// encoded in the URL.
func (s *Server) mountTable(ctx context.Context, view *reports.View, page PageParams, state grid.State) *grid.Table {
	t := view.NewTable(state)
	params := page.Reports()
	if !view.Ready(params) {
		return t
	}
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	ticket := t.BeginRefresh()
	ds, err := view.Load(ctx, s.reports, params)
	t.Resolve(ticket, ds, err)
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Table load failed",
			applog.FieldView, view.Name,
			applog.FieldError, err)
	}
	return t
}

// applyTableAction applies the single action q names. It reports whether
// the state changed in a way worth a history entry.
func applyTableAction(t *grid.Table, q url.Values) (bool, error) {
	if group := q.Get(actToggle); group != "" {
		t.Toggle(group)
		return true, nil
	}

	if key := q.Get(actSort); key != "" {
		col, ok := t.Columns().Lookup(key)
		if !ok {
			return false, fmt.Errorf("%w: %q", grid.ErrUnknownColumn, key)
		}
		if !col.Sortable {
			return false, nil
		}
		t.CycleSort(key)
		return true, nil
	}

	if key := q.Get(actPopover); key != "" {
		return applyPopover(t, key, q)
	}

	if key := q.Get(actResize); key != "" {
		x0, err := strconv.Atoi(q.Get(actResizeStart))
		if err != nil {
			return false, fmt.Errorf("%w: resize start %q", errBadAction, q.Get(actResizeStart))
		}
		cancel, err := t.Resizer().Begin(key, x0)
		if err != nil {
			return false, err
		}
		x1, err := strconv.Atoi(q.Get(actResizeEnd))
		if err != nil {
			// The pointer stream ended without a release position.
			cancel()
			return false, nil
		}
		t.Resizer().Move(x1)
		_, committed := t.Resizer().End(x1)
		return committed, nil
	}

	if q.Get(actFit) != "" {
		t.AutoFit(pixelWidth)
		return true, nil
	}
	return false, nil
}

func applyPopover(t *grid.Table, key string, q url.Values) (bool, error) {
	switch op := q.Get(actOp); op {
	case "asc":
		if _, ok := t.Columns().Lookup(key); !ok {
			return false, fmt.Errorf("%w: %q", grid.ErrUnknownColumn, key)
		}
		t.SetSort(grid.SortState{Key: key, Dir: grid.Asc})
	case "desc":
		if _, ok := t.Columns().Lookup(key); !ok {
			return false, fmt.Errorf("%w: %q", grid.ErrUnknownColumn, key)
		}
		t.SetSort(grid.SortState{Key: key, Dir: grid.Desc})
	case "clear":
		t.ClearFilter(key)
	case "apply":
		p, err := t.OpenPopover(key)
		if err != nil {
			return false, err
		}
		known := grid.NewValueSet(p.Values()...)
		chosen := grid.NewValueSet(q[actValue]...)
		p.SelectAll(false)
		for _, v := range chosen.Values() {
			if known.Has(v) {
				p.Toggle(v)
			}
		}
		t.ApplyPopover(p)
	default:
		return false, fmt.Errorf("%w: popover op %q", errBadAction, op)
	}
	return true, nil
}

// handleTable renders one table partial after applying the action in the
// query, if any.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	view, ok := s.catalog.Lookup(chi.URLParam(r, "view"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown table")
		return
	}
	page, err := s.parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	t := s.mountTable(r.Context(), view, page, grid.DecodeState(q, view.Prefix))
	defer t.Close()

	applied, err := applyTableAction(t, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := newReply()
	if applied {
		resp.PushURL(pushURL(r, view, page, t.State()))
	}
	s.renderHTML(w, r, resp, "table.html", s.tableModel(view, page, t))
}

// tableQuery is the query that reproduces the table: page parameters plus
// the table's own state.
func tableQuery(view *reports.View, page PageParams, state grid.State) url.Values {
	q := page.Values()
	state.Encode(q, view.Prefix)
	return q
}

// pushURL is the page URL to record after an action. The state of the
// page's other tables is kept from the current URL.
func pushURL(r *http.Request, view *reports.View, page PageParams, state grid.State) string {
	path := pagePath(view.Name)
	q := url.Values{}
	if cur, err := url.Parse(r.Header.Get("HX-Current-URL")); err == nil && cur.Path == path {
		q = cur.Query()
	}
	for _, name := range pageParamNames {
		q.Del(name)
	}
	for k, v := range page.Values() {
		q[k] = v
	}
	state.Encode(q, view.Prefix)
	return withQuery(path, q)
}

type (
	tableModel struct {
		ID          string
		View        string
		Title       string
		Status      string
		Error       string
		Hint        string
		Self        string
		RefreshURL  string
		Headers     []headerModel
		Rows        []rowModel
		Exports     []exportLink
		SheetsURL   string
		GuideKey    string
		Interactive bool
	}

	headerModel struct {
		grid.RenderedHeader
		Arrow      string
		SortURL    string
		PopoverURL string
		FitURL     string
	}

	rowModel struct {
		grid.RenderedRow
		Style     template.CSS
		ToggleURL string
	}

	exportLink struct {
		Label string
		URL   string
	}
)

func (s *Server) tableModel(view *reports.View, page PageParams, t *grid.Table) tableModel {
	state := t.State()
	q := tableQuery(view, page, state)
	self := withQuery("/ui/table/"+view.Name, q)
	rendered := t.Render()

	m := tableModel{
		ID:          "tbl-" + view.Name,
		View:        view.Name,
		Title:       view.Title,
		Status:      rendered.Status.String(),
		Self:        self,
		RefreshURL:  withQuery("/refresh/"+view.Name, page.Values()),
		Interactive: view.LabelKey == "",
	}
	if rendered.Err != nil {
		m.Error = "Could not load " + view.Title + "."
	}
	if rendered.Status == grid.StatusIdle {
		m.Hint = readyHint(view.Name)
	}
	if rendered.Guide != nil {
		m.GuideKey = rendered.Guide.Key
	}

	for _, h := range rendered.Headers {
		hm := headerModel{
			RenderedHeader: h,
			SortURL:        withQuery("/ui/table/"+view.Name, cloneValues(q, actSort, h.Key)),
			PopoverURL:     withQuery("/ui/popover/"+view.Name+"/"+url.PathEscape(h.Key), q),
			FitURL:         withQuery("/ui/table/"+view.Name, cloneValues(q, actFit, "1")),
		}
		switch h.Sort {
		case grid.Asc:
			hm.Arrow = "▲"
		case grid.Desc:
			hm.Arrow = "▼"
		}
		m.Headers = append(m.Headers, hm)
	}

	for _, row := range rendered.Rows {
		rm := rowModel{RenderedRow: row, Style: backgroundStyle(row.Highlight)}
		if row.Expandable {
			rm.ToggleURL = withQuery("/ui/table/"+view.Name, cloneValues(q, actToggle, row.Group))
		}
		m.Rows = append(m.Rows, rm)
	}

	if rendered.Status == grid.StatusReady {
		for _, f := range []struct{ label, ext string }{{"CSV", "csv"}, {"Excel", "xlsx"}, {"Text", "txt"}} {
			m.Exports = append(m.Exports, exportLink{Label: f.label, URL: withQuery("/export/"+view.Name+"."+f.ext, q)})
		}
		if s.exporter != nil {
			m.SheetsURL = withQuery("/export/"+view.Name+"/sheets", q)
		}
	}
	return m
}

func readyHint(view string) string {
	switch pagePath(view) {
	case pathCreditCard:
		return "Select a credit card to see its statement."
	case pathSplitwise:
		return "Select a friend and a date range."
	default:
		return "Select a month."
	}
}

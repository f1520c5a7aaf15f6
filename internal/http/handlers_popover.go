package http

import (
	"errors"
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"

	"finboard/internal/grid"
)

// Popover form parameters.
const (
	popSearch  = "q"
	popTouched = "touched"
	popSelect  = "sel"
)

type (
	popoverModel struct {
		ID         string
		TableID    string
		Key        string
		Title      string
		TableURL   string
		PopoverURL string
		Hidden     []hiddenField
		Search     string
		Options    []popoverOption
		// Carried are checked values the search hides; they stay selected.
		Carried     []string
		AllSelected bool
		Sortable    bool
		Filterable  bool
		Empty       bool
	}

	popoverOption struct {
		Value   string
		Label   string
		Checked bool
	}

	hiddenField struct {
		Name  string
		Value string
	}
)

// handlePopover renders the sort and filter popover of one column. The
// popover is stateless: its search text and selection round-trip through
// the form.
func (s *Server) handlePopover(w http.ResponseWriter, r *http.Request) {
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

	key := chi.URLParam(r, "column")
	p, err := t.OpenPopover(key)
	if errors.Is(err, grid.ErrUnknownColumn) {
		writeError(w, http.StatusNotFound, "Unknown column")
		return
	} else if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	col, _ := t.Columns().Lookup(key)

	if q.Get(popTouched) != "" {
		p.SelectAll(false)
		known := grid.NewValueSet(p.Values()...)
		for _, v := range grid.NewValueSet(q[actValue]...).Values() {
			if known.Has(v) {
				p.Toggle(v)
			}
		}
	}
	p.SetSearch(sanitizeInput(q.Get(popSearch)))
	switch q.Get(popSelect) {
	case "all":
		p.SelectAll(true)
	case "none":
		p.SelectAll(false)
	}

	m := popoverModel{
		ID:          "pop-" + view.Name,
		TableID:     "tbl-" + view.Name,
		Key:         key,
		Title:       col.Header,
		TableURL:    "/ui/table/" + view.Name,
		PopoverURL:  "/ui/popover/" + view.Name + "/" + url.PathEscape(key),
		Hidden:      hiddenFields(tableQuery(view, page, t.State())),
		Search:      p.Search(),
		AllSelected: p.AllSelected(),
		Sortable:    col.Sortable,
		Filterable:  col.Filterable,
		Empty:       len(p.Values()) == 0,
	}
	visible := grid.NewValueSet(p.Visible()...)
	for _, v := range p.Visible() {
		m.Options = append(m.Options, popoverOption{Value: v, Label: grid.Label(v), Checked: p.Selected(v)})
	}
	for _, v := range p.Values() {
		if p.Selected(v) && !visible.Has(v) {
			m.Carried = append(m.Carried, v)
		}
	}
	s.renderHTML(w, r, newReply(), "popover.html", m)
}

// hiddenFields flattens q into form fields in a stable order.
func hiddenFields(q url.Values) []hiddenField {
	names := make([]string, 0, len(q))
	for name := range q {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []hiddenField
	for _, name := range names {
		for _, v := range q[name] {
			out = append(out, hiddenField{Name: name, Value: v})
		}
	}
	return out
}

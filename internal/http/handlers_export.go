package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finboard/internal/export"
	"finboard/internal/grid"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// loadForExport mounts and loads a view for a download or a sheet export.
// It writes the error response itself and returns nil on failure.
func (s *Server) loadForExport(w http.ResponseWriter, r *http.Request, name string) (*reports.View, PageParams, *grid.Table) {
	view, ok := s.catalog.Lookup(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown table")
		return nil, PageParams{}, nil
	}
	page, err := s.parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, PageParams{}, nil
	}
	if !view.Ready(page.Reports()) {
		writeError(w, http.StatusBadRequest, readyHint(view.Name))
		return nil, PageParams{}, nil
	}
	t := s.mountTable(r.Context(), view, page, grid.DecodeState(r.URL.Query(), view.Prefix))
	if t.Status() == grid.StatusFailed {
		writeError(w, http.StatusBadGateway, "Could not load " + view.Title + ".")
		return nil, PageParams{}, nil
	}
	return view, page, t
}

// handleExport downloads a table as /export/{view}.{csv|xlsx|txt}. The file
// holds what the table shows under the state in the query.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	dot := strings.LastIndex(file, ".")
	if dot <= 0 {
		writeError(w, http.StatusNotFound, "Unknown export")
		return
	}
	format, err := export.ParseFormat(file[dot+1:])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, _, t := s.loadForExport(w, r, file[:dot])
	if t == nil {
		return
	}
	defer t.Close()

	var buf bytes.Buffer
	if err := export.Write(&buf, format, export.FromView(view.Title, t.Render())); err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Export failed", err, applog.OpExport,
			applog.NewFields().WithView(view.Name))
		writeError(w, http.StatusInternalServerError, "Export failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(view.Name, format, s.today())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleSheetsExport replaces a spreadsheet tab with the table. The tab
// name comes from the form and defaults to the view title and month.
func (s *Server) handleSheetsExport(w http.ResponseWriter, r *http.Request) {
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "Google Sheets export is not configured")
		return
	}
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	view, page, t := s.loadForExport(w, r, chi.URLParam(r, "view"))
	if t == nil {
		return
	}
	defer t.Close()

	tab := body.Get("tab")
	if tab == "" {
		tab = view.Title + " " + page.Period.String()
	}
	sheet := export.FromView(view.Title, t.Render())
	rng, err := s.exporter.ExportTable(r.Context(), tab, sheet.Values())
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(), "Sheets export failed", err, applog.OpExport,
			applog.NewFields().WithView(view.Name).WithComponent(applog.ComponentSheets))
		writeError(w, http.StatusBadGateway, "Google Sheets export failed")
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Table exported to sheet",
		applog.FieldView, view.Name,
		applog.FieldSheetRange, rng,
		applog.FieldRows, len(sheet.Rows))

	newReply().
		Notify(NoticeSuccess, "Exported to " + rng).
		Write(w)
}

// handleRefresh drops the cached payloads behind a table and tells the page
// to reload it.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
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
	queries := view.Queries(page.Reports())
	if len(queries) == 0 {
		writeError(w, http.StatusBadRequest, readyHint(view.Name))
		return
	}

	resp := newReply().Refresh(view.Name)
	if _, err := s.refresher.Refresh(r.Context(), view.Name, queries); err != nil {
		resp.Notify(NoticeWarning, "Cache cleared; the snapshot worker was not notified")
	} else {
		resp.Notify(NoticeSuccess, "Refreshing " + view.Title)
	}
	resp.Write(w)
}

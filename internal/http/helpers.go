package http

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"

	"finboard/internal/grid"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// Page paths.
const (
	pathDashboard  = "/"
	pathCreditCard = "/credit-card"
	pathSplitwise  = "/splitwise"
)

// pagePath returns the page a view's table lives on.
func pagePath(view string) string {
	switch view {
	case reports.ViewCardTransactions, reports.ViewCardCategories, reports.ViewCardTrend:
		return pathCreditCard
	case reports.ViewSplitwise:
		return pathSplitwise
	default:
		return pathDashboard
	}
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{3,8}$`)

// backgroundStyle returns an inline style for a highlight colour, or
// nothing when c is not a hex colour.
func backgroundStyle(c string) template.CSS {
	if !hexColor.MatchString(c) {
		return ""
	}
	return template.CSS("background-color: " + c)
}

// pixelWidth measures rendered text in CSS pixels for auto-fit: display
// cells at 8px plus the cell padding.
func pixelWidth(s string) int {
	return runewidth.StringWidth(s)*8 + 24
}

func alignClass(a grid.Align) string {
	switch a {
	case grid.AlignRight:
		return "right"
	case grid.AlignCenter:
		return "center"
	default:
		return "left"
	}
}

var templateFuncs = template.FuncMap{
	"money": grid.FormatMoney,
	"label": grid.Label,
	"align": alignClass,
}

// withQuery joins path and q.
func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// cloneValues copies q and sets extra pairs on the copy.
func cloneValues(q url.Values, pairs ...string) url.Values {
	out := make(url.Values, len(q)+len(pairs)/2)
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		out.Set(pairs[i], pairs[i+1])
	}
	return out
}

// renderHTML executes a template into a buffer so a failing template never
// leaves a half-written 200.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, resp *Reply, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name,
			applog.FieldOperation, applog.OpRender)
		writeError(w, http.StatusInternalServerError, "Rendering failed")
		return
	}
	resp.HTML(buf.String()).Write(w)
}

// Package export writes a rendered grid to CSV, XLSX, plain text or
// Google Sheets. Exports carry what the table currently shows: its sort,
// filters, expanded groups and widths.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"finboard/internal/grid"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatText Format = "txt"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatCSV, FormatXLSX, FormatText:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Filename names the download of view taken at t.
func Filename(view string, f Format, t time.Time) string {
	return fmt.Sprintf("%s-%s.%s", view, t.Format("20060102-1504"), f)
}

// Column is one exported column. Width is in the host's units.
type Column struct {
	Key   string
	Title string
	Width int
	Align grid.Align
}

// Row is one exported row with its presentation hints.
type Row struct {
	Cells     []string
	Kind      grid.RowKind
	Highlight string
	Indent    int
	Emphasis  bool
}

// Sheet is a table ready for export.
type Sheet struct {
	Title   string
	Columns []Column
	Rows    []Row
}

// FromView captures a rendered table.
func FromView(title string, v grid.View) Sheet {
	s := Sheet{Title: title}
	for _, h := range v.Headers {
		s.Columns = append(s.Columns, Column{Key: h.Key, Title: h.Title, Width: h.Width, Align: h.Align})
	}
	for _, r := range v.Rows {
		row := Row{
			Kind:      r.Kind,
			Highlight: r.Highlight,
			Indent:    r.Indent,
			Emphasis:  r.Emphasis,
			Cells:     make([]string, len(r.Cells)),
		}
		for i, c := range r.Cells {
			row.Cells[i] = c.Text
		}
		s.Rows = append(s.Rows, row)
	}
	return s
}

// Titles returns the header line.
func (s Sheet) Titles() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Title
	}
	return out
}

// Records returns the rows as text, first cell indented for nested rows.
func (s Sheet) Records() [][]string {
	out := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		rec := append([]string(nil), r.Cells...)
		if r.Indent > 0 && len(rec) > 0 {
			rec[0] = strings.Repeat("  ", r.Indent) + rec[0]
		}
		out[i] = rec
	}
	return out
}

// Values is the header line followed by the records.
func (s Sheet) Values() [][]string {
	return append([][]string{s.Titles()}, s.Records()...)
}

// Write encodes s in format f.
func Write(w io.Writer, f Format, s Sheet) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, s)
	case FormatXLSX:
		return WriteXLSX(w, s)
	case FormatText:
		return WriteText(w, s)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

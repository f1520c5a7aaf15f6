package tui

import (
	"context"
	"fmt"
	"io"

	"finboard/internal/export"
	"finboard/internal/grid"
	"finboard/internal/reports"
)

// Print loads one view and writes it as a plain text table. Pivot groups
// are printed expanded.
func Print(ctx context.Context, w io.Writer, svc *reports.Service, v *reports.View, p reports.Params) error {
	t := v.NewTable(grid.NewState())
	defer t.Close()

	if err := t.Load(ctx, v.Source(svc, p)); err != nil {
		return err
	}
	if pv := t.Dataset().Pivot; pv != nil {
		for _, g := range pv.Groups {
			t.Toggle(g.Key)
		}
	}

	title := fmt.Sprintf("%s - %s", v.Title, p.Period)
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	return export.WriteText(w, export.FromView(title, t.Render()))
}

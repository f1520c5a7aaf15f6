package export

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"finboard/internal/grid"
)

// WriteText draws s as a bordered text table.
func WriteText(w io.Writer, s Sheet) error {
	aligns := make([]tw.Align, len(s.Columns))
	for i, c := range s.Columns {
		aligns[i] = textAlign(c.Align)
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeaderAutoFormat(tw.Off),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
		tablewriter.WithRowAlignmentConfig(tw.CellAlignment{PerColumn: aligns}),
	)
	header := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		header[i] = c.Title
	}
	table.Header(header...)
	if err := table.Bulk(s.Records()); err != nil {
		return fmt.Errorf("write text table: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render text table: %w", err)
	}
	return nil
}

func textAlign(a grid.Align) tw.Align {
	switch a {
	case grid.AlignRight:
		return tw.AlignRight
	case grid.AlignCenter:
		return tw.AlignCenter
	}
	return tw.AlignLeft
}

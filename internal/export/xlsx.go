package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"finboard/internal/grid"
)

const (
	headerFill   = "#1F2937"
	defaultSheet = "Sheet1"
	maxSheetName = 31
)

// WriteXLSX writes s as a one-sheet workbook: styled header row, highlight
// fills, bold totals, indented sub-rows and column widths from the view.
func WriteXLSX(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sheetName(s.Title)
	if name != defaultSheet {
		if err := f.SetSheetName(defaultSheet, name); err != nil {
			return fmt.Errorf("name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, c := range s.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(name, cell, c.Title); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(name, col, col, columnWidth(c.Width)); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	if len(s.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(s.Columns), 1)
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
		if err := f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("freeze header: %w", err)
		}
	}

	styles := map[rowStyleKey]int{}
	for r, row := range s.Rows {
		y := r + 2
		for i, text := range row.Cells {
			cell, _ := excelize.CoordinatesToCellName(i+1, y)
			if err := f.SetCellValue(name, cell, text); err != nil {
				return fmt.Errorf("write row %d: %w", r, err)
			}
			key := rowStyleKey{fill: row.Highlight, bold: row.Emphasis, align: alignOf(s.Columns, i)}
			if i == 0 {
				key.indent = row.Indent
			}
			if key == (rowStyleKey{align: key.align}) && key.align == grid.AlignLeft {
				continue
			}
			id, ok := styles[key]
			if !ok {
				id, err = f.NewStyle(key.style())
				if err != nil {
					return fmt.Errorf("row style: %w", err)
				}
				styles[key] = id
			}
			if err := f.SetCellStyle(name, cell, cell, id); err != nil {
				return fmt.Errorf("style row %d: %w", r, err)
			}
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type rowStyleKey struct {
	fill   string
	bold   bool
	indent int
	align  grid.Align
}

func (k rowStyleKey) style() *excelize.Style {
	st := &excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: xlsxAlign(k.align), Indent: k.indent, Vertical: "center"},
	}
	if k.bold {
		st.Font = &excelize.Font{Bold: true}
	}
	if k.fill != "" {
		st.Fill = excelize.Fill{Type: "pattern", Color: []string{k.fill}, Pattern: 1}
	}
	return st
}

func alignOf(cols []Column, i int) grid.Align {
	if i < len(cols) {
		return cols[i].Align
	}
	return grid.AlignLeft
}

func xlsxAlign(a grid.Align) string {
	switch a {
	case grid.AlignRight:
		return "right"
	case grid.AlignCenter:
		return "center"
	}
	return "left"
}

// columnWidth converts a width in pixels to Excel character units.
func columnWidth(px int) float64 {
	w := float64(px) / 7
	if w < 8 {
		return 8
	}
	if w > 100 {
		return 100
	}
	return w
}

func sheetName(title string) string {
	var out []rune
	for _, r := range title {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
		if len(out) == maxSheetName {
			break
		}
	}
	if len(out) == 0 {
		return defaultSheet
	}
	return string(out)
}

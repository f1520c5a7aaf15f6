package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"finboard/internal/grid"
)

// pxPerCell converts the pixel widths the views declare into terminal
// cells. Pointer positions go the other way so the Resizer keeps working
// in pixels for both front ends.
const pxPerCell = 8

// minCells keeps a squeezed column readable.
const minCells = 3

// Screen rows of the fixed chrome.
const (
	headerRow = 2
	firstRow  = 4
)

func cellsOf(px int) int {
	if c := px / pxPerCell; c > minCells {
		return c
	}
	return minCells
}

// fitWidth measures a cell for auto-fit, in pixels, with one cell of
// padding on each side.
func fitWidth(s string) int {
	return (runewidth.StringWidth(s) + 2) * pxPerCell
}

// layout is the horizontal geometry of one rendered table. Every column is
// followed by a one cell border, which is also its resize handle.
type layout struct {
	keys    []string
	widths  []int
	borders []int
}

func layoutOf(headers []grid.RenderedHeader) layout {
	l := layout{
		keys:    make([]string, len(headers)),
		widths:  make([]int, len(headers)),
		borders: make([]int, len(headers)),
	}
	x := 0
	for i, h := range headers {
		l.keys[i] = h.Key
		l.widths[i] = cellsOf(h.Width)
		x += l.widths[i]
		l.borders[i] = x
		x++
	}
	return l
}

// span is the total width including borders.
func (l layout) span() int {
	if len(l.borders) == 0 {
		return 0
	}
	return l.borders[len(l.borders)-1] + 1
}

// borderAt returns the column whose resize handle sits at x.
func (l layout) borderAt(x int) (string, bool) {
	for i, b := range l.borders {
		if b == x {
			return l.keys[i], true
		}
	}
	return "", false
}

// columnAt returns the index of the column whose body covers x.
func (l layout) columnAt(x int) (int, bool) {
	start := 0
	for i, b := range l.borders {
		if x >= start && x < b {
			return i, true
		}
		start = b + 1
	}
	return 0, false
}

// fit truncates or pads s to exactly w cells.
func fit(s string, w int, align grid.Align) string {
	if runewidth.StringWidth(s) > w {
		s = runewidth.Truncate(s, w, "…")
	}
	switch align {
	case grid.AlignRight:
		return runewidth.FillLeft(s, w)
	case grid.AlignCenter:
		pad := w - runewidth.StringWidth(s)
		return strings.Repeat(" ", pad/2) + runewidth.FillRight(s, w-pad/2)
	}
	return runewidth.FillRight(s, w)
}

// separator draws the rule under the header, with the drag guide at
// guideX when it is not negative.
func (l layout) separator(guideX int) string {
	line := []rune(strings.Repeat("─", l.span()))
	for _, b := range l.borders {
		line[b] = '┼'
	}
	if guideX < 0 || guideX >= len(line) {
		return dimStyle.Render(string(line))
	}
	return dimStyle.Render(string(line[:guideX])) +
		guideStyle.Render("┃") +
		dimStyle.Render(string(line[guideX+1:]))
}

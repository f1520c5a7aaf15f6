package grid

import (
	"errors"
	"fmt"

	"github.com/mattn/go-runewidth"
)

// ErrUnknownColumn is returned when a resize targets a key that is not in
// the column set.
var ErrUnknownColumn = errors.New("grid: unknown column")

// Widths maps a column key to its committed width.
type Widths map[string]int

// WidthsOf returns the declared widths of cols.
func WidthsOf(cols *Columns) Widths {
	w := make(Widths, cols.Len())
	for _, c := range cols.All() {
		w[c.Key] = c.Width.Current
	}
	return w
}

// Of returns the committed width of col, or its declared width.
func (w Widths) Of(col Column) int {
	if v, ok := w[col.Key]; ok {
		return v
	}
	return col.Width.Current
}

// Clone copies the map.
func (w Widths) Clone() Widths {
	out := make(Widths, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// ResizePhase is the state of a Resizer.
type ResizePhase int

const (
	Idle ResizePhase = iota
	Dragging
)

func (p ResizePhase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// Guide is the live position of a drag. The committed width does not change
// until the drag ends.
type Guide struct {
	Key   string
	X     int
	Delta int
	// Width is the width the column would get if the drag ended now.
	Width int
}

// Resizer is the column resize state machine: Idle -> Dragging -> Idle.
// It owns the Widths it was built with.
type Resizer struct {
	columns *Columns
	widths  Widths

	phase      ResizePhase
	col        Column
	startX     int
	startWidth int
	delta      int
	session    uint64
}

// NewResizer returns an idle controller. A nil widths map starts from the
// declared column widths.
func NewResizer(cols *Columns, widths Widths) *Resizer {
	if widths == nil {
		widths = WidthsOf(cols)
	}
	return &Resizer{columns: cols, widths: widths}
}

// Widths returns the committed widths.
func (r *Resizer) Widths() Widths { return r.widths }

// Phase returns the current state.
func (r *Resizer) Phase() ResizePhase { return r.phase }

// Begin starts a drag on key's handle at pointer position x. The returned
// cancel func discards the drag if it is still the active one; hosts call it
// when the pointer stream is torn down before End (focus loss, unmount).
// A Begin while dragging abandons the previous drag.
func (r *Resizer) Begin(key string, x int) (cancel func(), err error) {
	col, ok := r.columns.Lookup(key)
	if !ok {
		return func() {}, fmt.Errorf("%w: %q", ErrUnknownColumn, key)
	}
	r.reset()
	r.session++
	session := r.session

	r.phase = Dragging
	r.col = col
	r.startX = x
	r.startWidth = r.widths.Of(col)
	r.delta = 0

	return func() {
		if r.phase == Dragging && r.session == session {
			r.reset()
		}
	}, nil
}

// Move records the pointer position. It is ignored while idle.
func (r *Resizer) Move(x int) {
	if r.phase != Dragging {
		return
	}
	r.delta = x - r.startX
}

// Guide reports the live drag position; ok is false while idle.
func (r *Resizer) Guide() (g Guide, ok bool) {
	if r.phase != Dragging {
		return Guide{}, false
	}
	return Guide{
		Key:   r.col.Key,
		X:     r.startX + r.delta,
		Delta: r.delta,
		Width: r.col.Width.Clamp(r.startWidth + r.delta),
	}, true
}

// End finishes the drag at pointer position x. A zero delta is a click and
// commits nothing. Otherwise the new width, clamped to the column bounds, is
// committed for that column only.
func (r *Resizer) End(x int) (width int, committed bool) {
	if r.phase != Dragging {
		return 0, false
	}
	r.Move(x)
	defer r.reset()

	if r.delta == 0 {
		return r.startWidth, false
	}
	width = r.col.Width.Clamp(r.startWidth + r.delta)
	r.widths[r.col.Key] = width
	return width, true
}

// Cancel abandons a drag without committing.
func (r *Resizer) Cancel() { r.reset() }

func (r *Resizer) reset() {
	r.phase = Idle
	r.col = Column{}
	r.startX, r.startWidth, r.delta = 0, 0, 0
}

// Measure returns the natural width of a rendered string in host units.
type Measure func(s string) int

// CellWidth measures terminal display cells.
func CellWidth(s string) int { return runewidth.StringWidth(s) }

// AutoFit sets every column to the widest of its header and its rendered
// cells in rows, clamped to the column bounds. text renders a cell. Any
// drag in progress is abandoned.
func (r *Resizer) AutoFit(rows []Row, text func(Column, Row) string, measure Measure) {
	if measure == nil {
		measure = CellWidth
	}
	r.reset()
	for _, col := range r.columns.All() {
		w := measure(col.Header)
		for _, row := range rows {
			if cw := measure(text(col, row)); cw > w {
				w = cw
			}
		}
		r.widths[col.Key] = col.Width.Clamp(w)
	}
}

package grid

import (
	"fmt"
)

// Align is the horizontal alignment of a column's cells.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
	AlignCenter
)

// Width holds a column's width and its bounds, in host units (pixels for
// the web dashboard, cells for the terminal).
type Width struct {
	Current int
	Min     int
	Max     int
}

// Clamp bounds w to [Min, Max].
func (b Width) Clamp(w int) int {
	if w < b.Min {
		return b.Min
	}
	if b.Max > 0 && w > b.Max {
		return b.Max
	}
	return w
}

// CellRenderer maps a cell value to its display string.
type CellRenderer func(value any, row Row) string

// FilterPredicate reports whether a cell value passes the accepted set.
type FilterPredicate func(value any, accepted ValueSet) bool

// Column describes one column of a table.
type Column struct {
	Key        string
	Header     string
	Width      Width
	Sortable   bool
	Filterable bool
	Align      Align
	Render     CellRenderer
	Filter     FilterPredicate

	// Value derives the cell value from the whole row. When nil the cell is
	// Values[Key].
	Value func(Row) (any, bool)
}

// ValueOf returns the column's value in row r and whether it is present.
func (c Column) ValueOf(r Row) (any, bool) {
	if c.Value != nil {
		return c.Value(r)
	}
	return r.Get(c.Key)
}

// ConfigurationError reports an invalid column set. It is returned at table
// construction and never coerced.
type ConfigurationError struct {
	Column string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("grid: column %q: %s", e.Column, e.Reason)
}

// DefaultColumn returns the defaults applied by NewColumns when the caller
// passes a zero Column.
func DefaultColumn() Column {
	return Column{
		Width:  Width{Current: 150, Min: 60, Max: 600},
		Filter: MemberOf,
	}
}

// Columns is a validated, ordered column set. Order is the declared order
// and never changes.
type Columns struct {
	cols  []Column
	index map[string]int
}

// NewColumns validates cols and fills their zero fields from defaults: width
// bounds, filter predicate, renderer and header. It fails with a
// *ConfigurationError on an empty or duplicate key, or when Min > Max.
func NewColumns(defaults Column, cols ...Column) (*Columns, error) {
	if defaults.Width == (Width{}) {
		defaults.Width = DefaultColumn().Width
	}
	if defaults.Filter == nil {
		defaults.Filter = MemberOf
	}

	set := &Columns{
		cols:  make([]Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if c.Key == "" {
			return nil, &ConfigurationError{Column: c.Header, Reason: "empty key"}
		}
		if _, dup := set.index[c.Key]; dup {
			return nil, &ConfigurationError{Column: c.Key, Reason: "duplicate key"}
		}
		if c.Header == "" {
			c.Header = DefaultHeader(c.Key)
		}
		if c.Width.Current == 0 {
			c.Width.Current = defaults.Width.Current
		}
		if c.Width.Min == 0 {
			c.Width.Min = defaults.Width.Min
		}
		if c.Width.Max == 0 {
			c.Width.Max = defaults.Width.Max
		}
		if c.Width.Min > c.Width.Max {
			return nil, &ConfigurationError{
				Column: c.Key,
				Reason: fmt.Sprintf("min width %d exceeds max width %d", c.Width.Min, c.Width.Max),
			}
		}
		c.Width.Current = c.Width.Clamp(c.Width.Current)
		if c.Filter == nil {
			c.Filter = defaults.Filter
		}
		if c.Render == nil {
			c.Render = defaults.Render
		}
		set.index[c.Key] = len(set.cols)
		set.cols = append(set.cols, c)
	}
	return set, nil
}

// Len returns the number of columns.
func (s *Columns) Len() int { return len(s.cols) }

// At returns the i-th column in declared order.
func (s *Columns) At(i int) Column { return s.cols[i] }

// All returns a copy of the columns in declared order.
func (s *Columns) All() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// Lookup finds a column by key.
func (s *Columns) Lookup(key string) (Column, bool) {
	i, ok := s.index[key]
	if !ok {
		return Column{}, false
	}
	return s.cols[i], true
}

// Keys returns the column keys in declared order.
func (s *Columns) Keys() []string {
	keys := make([]string, len(s.cols))
	for i, c := range s.cols {
		keys[i] = c.Key
	}
	return keys
}

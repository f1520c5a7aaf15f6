package grid

import (
	"fmt"
	"strings"
)

// EmptyLabel is how the empty literal is shown in a popover.
const EmptyLabel = "(Empty)"

// Label returns the display label of a popover value.
func Label(v string) string {
	if v == "" {
		return EmptyLabel
	}
	return v
}

// Popover is the per-column filter/sort affordance. It reads the column's
// unique values from the loaded rows and writes sort and filter state.
type Popover struct {
	Key string

	values   []string
	search   string
	selected ValueSet
}

// OpenPopover collects the unique literals of column key in first-seen
// order. The selection starts from the column's active filter, or from
// every value when the column is unfiltered.
func OpenPopover(key string, rows []Row, columns *Columns, state State) (*Popover, error) {
	col, ok := columns.Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, key)
	}

	p := &Popover{Key: key}
	seen := make(map[string]struct{})
	for _, r := range rows {
		v, present := col.ValueOf(r)
		if !present {
			continue
		}
		lit := Literal(v)
		if _, dup := seen[lit]; dup {
			continue
		}
		seen[lit] = struct{}{}
		p.values = append(p.values, lit)
	}

	if accepted, filtered := state.Filters[key]; filtered {
		p.selected = accepted.Clone()
	} else {
		p.selected = NewValueSet(p.values...)
	}
	return p, nil
}

// Values returns every unique value.
func (p *Popover) Values() []string { return p.values }

// Search returns the current search text.
func (p *Popover) Search() string { return p.search }

// SetSearch sets the search text.
func (p *Popover) SetSearch(s string) { p.search = s }

// Visible returns the values whose label contains the search text, case
// insensitively.
func (p *Popover) Visible() []string {
	needle := strings.ToLower(strings.TrimSpace(p.search))
	if needle == "" {
		return p.values
	}
	out := make([]string, 0, len(p.values))
	for _, v := range p.values {
		if strings.Contains(strings.ToLower(Label(v)), needle) {
			out = append(out, v)
		}
	}
	return out
}

// Selected reports whether v is checked.
func (p *Popover) Selected(v string) bool { return p.selected.Has(v) }

// Toggle flips v.
func (p *Popover) Toggle(v string) {
	if p.selected.Has(v) {
		delete(p.selected, v)
		return
	}
	p.selected[v] = struct{}{}
}

// SelectAll checks or unchecks every visible value.
func (p *Popover) SelectAll(on bool) {
	for _, v := range p.Visible() {
		if on {
			p.selected[v] = struct{}{}
		} else {
			delete(p.selected, v)
		}
	}
}

// AllSelected reports whether every visible value is checked.
func (p *Popover) AllSelected() bool {
	visible := p.Visible()
	if len(visible) == 0 {
		return false
	}
	for _, v := range visible {
		if !p.selected.Has(v) {
			return false
		}
	}
	return true
}

// SortAsc sorts the table ascending on the popover column.
func (p *Popover) SortAsc(s *State) { s.Sort = SortState{Key: p.Key, Dir: Asc} }

// SortDesc sorts the table descending on the popover column.
func (p *Popover) SortDesc(s *State) { s.Sort = SortState{Key: p.Key, Dir: Desc} }

// Apply writes the selection as the column filter. Selecting every value
// removes the filter; selecting none installs an explicit empty set. A
// popover over no values leaves the state alone.
func (p *Popover) Apply(s *State) {
	if len(p.values) == 0 {
		return
	}
	if s.Filters == nil {
		s.Filters = make(FilterState)
	}
	all := true
	for _, v := range p.values {
		if !p.selected.Has(v) {
			all = false
			break
		}
	}
	if all {
		delete(s.Filters, p.Key)
		return
	}
	s.Filters[p.Key] = p.selected.Clone()
}

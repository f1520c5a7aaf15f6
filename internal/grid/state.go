package grid

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// State is the user-controlled view state of one table.
type State struct {
	Sort     SortState
	Filters  FilterState
	Expanded Expanded
	Widths   Widths
}

// NewState returns an empty state.
func NewState() State {
	return State{
		Filters:  make(FilterState),
		Expanded: make(Expanded),
		Widths:   make(Widths),
	}
}

// Clone deep-copies the state.
func (s State) Clone() State {
	return State{
		Sort:     s.Sort,
		Filters:  s.Filters.Clone(),
		Expanded: s.Expanded.Clone(),
		Widths:   s.Widths.Clone(),
	}
}

// Query parameter names, each prefixed with the table prefix.
const (
	paramSort   = "sort"
	paramDir    = "dir"
	paramFilter = "f."
	paramNone   = "fnone"
	paramOpen   = "open"
	paramWidth  = "w."
)

// DecodeState reads a table's state from query parameters named with
// prefix, e.g. "pivot.sort". Malformed values are ignored.
func DecodeState(q url.Values, prefix string) State {
	s := NewState()
	if key := q.Get(prefix + paramSort); key != "" {
		dir := Direction(q.Get(prefix + paramDir))
		if dir != Desc {
			dir = Asc
		}
		s.Sort = SortState{Key: key, Dir: dir}
	}
	for _, key := range q[prefix+paramNone] {
		if key != "" {
			s.Filters[key] = NewValueSet()
		}
	}
	for _, key := range q[prefix+paramOpen] {
		s.Expanded[key] = struct{}{}
	}
	filterPrefix := prefix + paramFilter
	widthPrefix := prefix + paramWidth
	for name, values := range q {
		switch {
		case strings.HasPrefix(name, filterPrefix):
			key := strings.TrimPrefix(name, filterPrefix)
			if key == "" {
				continue
			}
			if _, empty := s.Filters[key]; empty {
				continue
			}
			s.Filters[key] = NewValueSet(values...)
		case strings.HasPrefix(name, widthPrefix):
			key := strings.TrimPrefix(name, widthPrefix)
			if w, err := strconv.Atoi(values[0]); err == nil && w > 0 && key != "" {
				s.Widths[key] = w
			}
		}
	}
	return s
}

// Encode writes the state into q under prefix, replacing any previous state
// of the same table.
func (s State) Encode(q url.Values, prefix string) {
	for name := range q {
		if name == prefix+paramSort || name == prefix+paramDir || name == prefix+paramNone ||
			name == prefix+paramOpen ||
			strings.HasPrefix(name, prefix+paramFilter) || strings.HasPrefix(name, prefix+paramWidth) {
			q.Del(name)
		}
	}
	if s.Sort.Active() {
		q.Set(prefix+paramSort, s.Sort.Key)
		q.Set(prefix+paramDir, string(s.Sort.Dir))
	}
	keys := make([]string, 0, len(s.Filters))
	for k := range s.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		set := s.Filters[k]
		if len(set) == 0 {
			q.Add(prefix+paramNone, k)
			continue
		}
		q[prefix+paramFilter+k] = set.Values()
	}
	for _, k := range s.Expanded.Keys() {
		q.Add(prefix+paramOpen, k)
	}
	widths := make([]string, 0, len(s.Widths))
	for k := range s.Widths {
		widths = append(widths, k)
	}
	slices.Sort(widths)
	for _, k := range widths {
		q.Set(prefix+paramWidth+k, strconv.Itoa(s.Widths[k]))
	}
}

package grid

import (
	"cmp"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// RowKind tags rows of a flattened pivot. Flat rows carry KindData.
type RowKind string

const (
	KindData        RowKind = ""
	KindCategory    RowKind = "category"
	KindSubCategory RowKind = "sub_category"
	KindTotal       RowKind = "total"
)

// Row is one record of a table. Rows are replaced wholesale on refetch and
// never mutated in place.
type Row struct {
	// Key is an optional stable identity.
	Key   string
	Kind  RowKind
	Group string

	Values map[string]any
}

// NewRow wraps a flat record.
func NewRow(key string, values map[string]any) Row {
	return Row{Key: key, Values: values}
}

// Get returns the value stored under key and whether the row has it.
func (r Row) Get(key string) (any, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// ValueSet is a set of accepted literal values.
type ValueSet map[string]struct{}

// NewValueSet returns a set holding values. NewValueSet() is an explicit
// empty set.
func NewValueSet(values ...string) ValueSet {
	s := make(ValueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s ValueSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Values returns the members sorted.
func (s ValueSet) Values() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// Clone copies the set.
func (s ValueSet) Clone() ValueSet {
	out := make(ValueSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// MemberOf is the default filter predicate: the value's literal is one of
// the accepted values.
func MemberOf(value any, accepted ValueSet) bool {
	return accepted.Has(Literal(value))
}

// FilterState maps a column key to its accepted values. An absent key means
// no filtering on that column; a present empty set matches no row.
type FilterState map[string]ValueSet

// Clone deep-copies the state.
func (f FilterState) Clone() FilterState {
	out := make(FilterState, len(f))
	for k, v := range f {
		out[k] = v.Clone()
	}
	return out
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is the single active sort. The zero value means unsorted.
type SortState struct {
	Key string
	Dir Direction
}

// Active reports whether a sort is set.
func (s SortState) Active() bool { return s.Key != "" }

// ComputeVisibleRows filters rows with every active filter (logical AND) and
// stable-sorts the survivors by the sort column. It is pure: the inputs are
// not modified and equal inputs give equal output.
//
// A filter on a column missing from columns matches no row. A sort on a
// missing or non-sortable column leaves the order unchanged.
func ComputeVisibleRows(rows []Row, columns *Columns, sort SortState, filters FilterState) []Row {
	type activeFilter struct {
		col      Column
		accepted ValueSet
	}
	active := make([]activeFilter, 0, len(filters))
	for key, accepted := range filters {
		col, ok := columns.Lookup(key)
		if !ok || len(accepted) == 0 {
			return []Row{}
		}
		active = append(active, activeFilter{col: col, accepted: accepted})
	}

	out := make([]Row, 0, len(rows))
next:
	for _, r := range rows {
		for _, f := range active {
			v, ok := f.col.ValueOf(r)
			if !ok {
				continue next
			}
			pred := f.col.Filter
			if pred == nil {
				pred = MemberOf
			}
			if !pred(v, f.accepted) {
				continue next
			}
		}
		out = append(out, r)
	}

	if !sort.Active() {
		return out
	}
	col, ok := columns.Lookup(sort.Key)
	if !ok || !col.Sortable {
		return out
	}

	keyed := make([]keyedRow, len(out))
	for i, r := range out {
		v, present := col.ValueOf(r)
		keyed[i] = keyedRow{row: r, key: sortKeyOf(v, present)}
	}
	slices.SortStableFunc(keyed, func(a, b keyedRow) int {
		return compareKeys(a.key, b.key, sort.Dir)
	})
	for i := range keyed {
		out[i] = keyed[i].row
	}
	return out
}

const (
	rankNumber = iota
	rankText
	rankMissing
)

type sortKey struct {
	rank int
	num  float64
	// dec is set for decimals, integers and finite floats, so amounts that
	// float64 cannot tell apart still order correctly.
	dec   decimal.Decimal
	exact bool
	text  string
}

type keyedRow struct {
	row Row
	key sortKey
}

func sortKeyOf(v any, present bool) sortKey {
	if !present || v == nil {
		return sortKey{rank: rankMissing}
	}
	f, ok := toFloat(v)
	if !ok {
		return sortKey{rank: rankText, text: Literal(v)}
	}
	if math.IsNaN(f) {
		return sortKey{rank: rankMissing}
	}
	k := sortKey{rank: rankNumber, num: f}
	switch x := v.(type) {
	case decimal.Decimal:
		k.dec, k.exact = x, true
	case *decimal.Decimal:
		k.dec, k.exact = *x, true
	case int:
		k.dec, k.exact = decimal.NewFromInt(int64(x)), true
	case int64:
		k.dec, k.exact = decimal.NewFromInt(x), true
	case int32:
		k.dec, k.exact = decimal.NewFromInt(int64(x)), true
	default:
		if !math.IsInf(f, 0) {
			k.dec, k.exact = decimal.NewFromFloat(f), true
		}
	}
	return k
}

func compareNumbers(a, b sortKey) int {
	if a.exact && b.exact {
		return a.dec.Cmp(b.dec)
	}
	return cmp.Compare(a.num, b.num)
}

// compareKeys orders numbers before text; missing values stay last in both
// directions.
func compareKeys(a, b sortKey, dir Direction) int {
	if a.rank == rankMissing || b.rank == rankMissing {
		return cmp.Compare(boolRank(a.rank == rankMissing), boolRank(b.rank == rankMissing))
	}
	c := cmp.Compare(a.rank, b.rank)
	if c == 0 {
		if a.rank == rankNumber {
			c = compareNumbers(a, b)
		} else {
			c = cmp.Compare(a.text, b.text)
		}
	}
	if dir == Desc {
		return -c
	}
	return c
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

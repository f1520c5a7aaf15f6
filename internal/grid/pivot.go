package grid

import (
	"slices"

	"github.com/shopspring/decimal"
)

// TotalLabel is the label of the synthetic total row.
const TotalLabel = "Grand Total"

// Group is one category of a pivot: its aggregates and its sub-category
// leaves in their original order.
type Group struct {
	Key       string
	Aggregate map[string]any
	Leaves    []Row
}

// Pivot is a two level grouped dataset. Groups keep insertion order.
type Pivot struct {
	Groups []Group
	Total  map[string]any
	// TotalLabel overrides the label of the total row.
	TotalLabel string
}

// Expanded is the set of expanded group keys.
type Expanded map[string]struct{}

// NewExpanded returns a set holding keys.
func NewExpanded(keys ...string) Expanded {
	e := make(Expanded, len(keys))
	for _, k := range keys {
		e[k] = struct{}{}
	}
	return e
}

// Has reports whether key is expanded.
func (e Expanded) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Toggle flips key and reports whether it is now expanded. Other keys are
// untouched.
func (e Expanded) Toggle(key string) bool {
	if e.Has(key) {
		delete(e, key)
		return false
	}
	e[key] = struct{}{}
	return true
}

// Keys returns the expanded keys sorted.
func (e Expanded) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone copies the set.
func (e Expanded) Clone() Expanded {
	return NewExpanded(e.Keys()...)
}

// Flatten emits, per group in declared order, one category row followed by
// its leaves when the group is expanded, then exactly one total row. The
// group key and the total label are written under labelKey. The pivot is
// not modified.
func Flatten(p *Pivot, expanded Expanded, labelKey string) []Row {
	if p == nil {
		return nil
	}
	out := make([]Row, 0, len(p.Groups)+1)
	for _, g := range p.Groups {
		values := copyValues(g.Aggregate, 1)
		values[labelKey] = g.Key
		out = append(out, Row{Key: "cat:" + g.Key, Kind: KindCategory, Group: g.Key, Values: values})

		if !expanded.Has(g.Key) {
			continue
		}
		for _, leaf := range g.Leaves {
			leaf.Kind = KindSubCategory
			leaf.Group = g.Key
			out = append(out, leaf)
		}
	}

	label := p.TotalLabel
	if label == "" {
		label = TotalLabel
	}
	total := copyValues(p.Total, 1)
	total[labelKey] = label
	return append(out, Row{Key: "total", Kind: KindTotal, Values: total})
}

func copyValues(m map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(m)+extra)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GroupRows groups flat rows by the literal of groupKey, in first-seen order,
// summing sumKeys into each group's aggregate and into the total. Sums are
// decimals; non-numeric values are skipped. Each group's leaves are its rows.
func GroupRows(rows []Row, groupKey string, sumKeys ...string) *Pivot {
	p := &Pivot{Total: make(map[string]any, len(sumKeys))}
	totals := make(map[string]decimal.Decimal, len(sumKeys))
	index := make(map[string]int)
	sums := make([]map[string]decimal.Decimal, 0)

	for _, r := range rows {
		v, _ := r.Get(groupKey)
		key := Literal(v)
		i, ok := index[key]
		if !ok {
			i = len(p.Groups)
			index[key] = i
			p.Groups = append(p.Groups, Group{Key: key})
			sums = append(sums, make(map[string]decimal.Decimal, len(sumKeys)))
		}
		p.Groups[i].Leaves = append(p.Groups[i].Leaves, r)

		for _, k := range sumKeys {
			raw, present := r.Get(k)
			if !present {
				continue
			}
			d, ok := toDecimal(raw)
			if !ok {
				continue
			}
			sums[i][k] = sums[i][k].Add(d)
			totals[k] = totals[k].Add(d)
		}
	}

	for i := range p.Groups {
		agg := make(map[string]any, len(sumKeys))
		for _, k := range sumKeys {
			agg[k] = sums[i][k]
		}
		p.Groups[i].Aggregate = agg
	}
	for _, k := range sumKeys {
		p.Total[k] = totals[k]
	}
	return p
}

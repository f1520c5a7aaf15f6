package grid

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func kinds(rows []Row) []RowKind {
	out := make([]RowKind, len(rows))
	for i, r := range rows {
		out[i] = r.Kind
	}
	return out
}

func foodTravelRows() []Row {
	return []Row{
		NewRow("1", map[string]any{"cat": "Food", "debit": 100}),
		NewRow("2", map[string]any{"cat": "Food", "debit": 50}),
		NewRow("3", map[string]any{"cat": "Travel", "debit": 30}),
	}
}

func TestGroupRowsScenario(t *testing.T) {
	p := GroupRows(foodTravelRows(), "cat", "debit")

	if len(p.Groups) != 2 {
		t.Fatalf("len(Groups) = %d, want 2", len(p.Groups))
	}
	want := []struct {
		key   string
		debit int64
	}{{"Food", 150}, {"Travel", 30}}
	for i, w := range want {
		g := p.Groups[i]
		if g.Key != w.key {
			t.Errorf("Groups[%d].Key = %q, want %q", i, g.Key, w.key)
		}
		if got := g.Aggregate["debit"].(decimal.Decimal); !got.Equal(decimal.NewFromInt(w.debit)) {
			t.Errorf("%s debit = %s, want %d", w.key, got, w.debit)
		}
	}
	if got := p.Total["debit"].(decimal.Decimal); !got.Equal(decimal.NewFromInt(180)) {
		t.Errorf("total debit = %s, want 180", got)
	}

	collapsed := Flatten(p, NewExpanded(), "cat")
	if want := []RowKind{KindCategory, KindCategory, KindTotal}; !reflect.DeepEqual(kinds(collapsed), want) {
		t.Errorf("collapsed kinds = %v, want %v", kinds(collapsed), want)
	}

	expanded := Flatten(p, NewExpanded("Food"), "cat")
	wantKinds := []RowKind{KindCategory, KindSubCategory, KindSubCategory, KindCategory, KindTotal}
	if !reflect.DeepEqual(kinds(expanded), wantKinds) {
		t.Fatalf("expanded kinds = %v, want %v", kinds(expanded), wantKinds)
	}
	if expanded[1].Key != "1" || expanded[2].Key != "2" {
		t.Errorf("leaves = %q, %q, want 1, 2 in original order", expanded[1].Key, expanded[2].Key)
	}
	if expanded[0].Values["cat"] != "Food" || expanded[3].Values["cat"] != "Travel" {
		t.Error("category rows should carry the group label")
	}
	if expanded[4].Values["cat"] != TotalLabel {
		t.Errorf("total label = %v, want %q", expanded[4].Values["cat"], TotalLabel)
	}
}

func TestFlattenToggleRoundTrip(t *testing.T) {
	p := GroupRows(foodTravelRows(), "cat", "debit")
	expanded := NewExpanded()
	before := Flatten(p, expanded, "cat")

	for _, key := range []string{"Food", "Travel"} {
		if !expanded.Toggle(key) {
			t.Fatalf("Toggle(%q) = false, want expanded", key)
		}
		mid := Flatten(p, expanded, "cat")
		if last := mid[len(mid)-1]; last.Kind != KindTotal {
			t.Errorf("last row kind = %q, want total", last.Kind)
		}
		if expanded.Toggle(key) {
			t.Fatalf("second Toggle(%q) = true, want collapsed", key)
		}
	}

	after := Flatten(p, expanded, "cat")
	if !reflect.DeepEqual(before, after) {
		t.Error("toggling twice did not restore the flattened sequence")
	}
}

func TestToggleLeavesOtherKeys(t *testing.T) {
	e := NewExpanded("Food", "Travel")
	e.Toggle("Food")
	if e.Has("Food") || !e.Has("Travel") {
		t.Errorf("Keys() = %v, want [Travel]", e.Keys())
	}
}

func TestFlattenEmptyPivot(t *testing.T) {
	rows := Flatten(&Pivot{TotalLabel: "Total"}, nil, "label")
	if len(rows) != 1 || rows[0].Kind != KindTotal || rows[0].Values["label"] != "Total" {
		t.Errorf("Flatten(empty) = %+v, want a single total row", rows)
	}
	if Flatten(nil, nil, "label") != nil {
		t.Error("Flatten(nil) should be nil")
	}
}

func TestFlattenKeepsPivotUntouched(t *testing.T) {
	p := GroupRows(foodTravelRows(), "cat", "debit")
	Flatten(p, NewExpanded("Food", "Travel"), "cat")
	for _, g := range p.Groups {
		for _, leaf := range g.Leaves {
			if leaf.Kind != KindData {
				t.Fatalf("leaf %q kind = %q, pivot data was modified", leaf.Key, leaf.Kind)
			}
		}
		if _, ok := g.Aggregate["cat"]; ok {
			t.Fatal("aggregate gained the label key")
		}
	}
}

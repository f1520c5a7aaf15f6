package memory

import (
	"context"
	"errors"
	"testing"

	ports "finboard/internal/sheets"
)

func TestStoreExportTable(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.ExportTable(ctx, "Accounts", [][]string{{"Account", "Debit"}, {"HDFC", "₹10.00"}})
	if err != nil {
		t.Fatalf("ExportTable: %v", err)
	}
	if ref != "mem:Accounts!2x2" {
		t.Errorf("ref = %q", ref)
	}

	if _, err := s.ExportTable(ctx, "Accounts", [][]string{{"Account"}}); err != nil {
		t.Fatalf("ExportTable (replace): %v", err)
	}
	got, ok := s.Tab("Accounts")
	if !ok || len(got) != 1 || got[0][0] != "Account" {
		t.Errorf("Tab = %v, %v; want replaced contents", got, ok)
	}

	if _, err := s.ExportTable(ctx, "Pivot", nil); err != nil {
		t.Fatalf("ExportTable: %v", err)
	}
	tabs := s.Tabs()
	if len(tabs) != 2 || tabs[0] != "Accounts" || tabs[1] != "Pivot" {
		t.Errorf("Tabs = %v", tabs)
	}
}

func TestStoreRejectsEmptyTab(t *testing.T) {
	s := New()
	if _, err := s.ExportTable(context.Background(), "  ", nil); !errors.Is(err, ports.ErrEmptyTab) {
		t.Errorf("error = %v, want ErrEmptyTab", err)
	}
}

func TestStoreCopiesValues(t *testing.T) {
	s := New()
	values := [][]string{{"a"}}
	s.ExportTable(context.Background(), "T", values)
	values[0][0] = "changed"
	got, _ := s.Tab("T")
	if got[0][0] != "a" {
		t.Errorf("stored value aliased caller slice: %q", got[0][0])
	}
}

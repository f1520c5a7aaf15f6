// Package memory is an in-process spreadsheet used in development and tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ports "finboard/internal/sheets"
)

// Store keeps exported tabs in memory.
type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	order  []string
	writes int
}

var _ ports.TableExporter = (*Store)(nil)

func New() *Store {
	return &Store{tabs: map[string][][]string{}}
}

// ExportTable replaces the tab's contents.
func (s *Store) ExportTable(_ context.Context, tab string, values [][]string) (string, error) {
	tab = strings.TrimSpace(tab)
	if tab == "" {
		return "", ports.ErrEmptyTab
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[tab]; !ok {
		s.order = append(s.order, tab)
	}
	cp := make([][]string, len(values))
	for i, row := range values {
		cp[i] = append([]string(nil), row...)
	}
	s.tabs[tab] = cp
	s.writes++

	cols := 0
	for _, row := range values {
		cols = max(cols, len(row))
	}
	return fmt.Sprintf("mem:%s!%dx%d", tab, len(values), cols), nil
}

// Tab returns a copy of a tab's values.
func (s *Store) Tab(name string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.tabs[name]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(v))
	for i, row := range v {
		out[i] = append([]string(nil), row...)
	}
	return out, true
}

// Tabs lists tab names in creation order.
func (s *Store) Tabs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Package adapters holds Fetcher implementations that do not talk to the
// reporting API.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/reports"
)

// ErrFixtureNotFound is returned when no file answers a query.
var ErrFixtureNotFound = errors.New("fixture not found")

// FixtureFetcher answers queries from JSON files in a directory, for demos
// and offline development. A query is looked up under its full file name
// first, then under the endpoint alone:
//
//	transactions__month-3_year-2024.json
//	transactions.json
type FixtureFetcher struct {
	fsys   fs.FS
	logger *applog.Logger
}

var _ reports.Fetcher = (*FixtureFetcher)(nil)

// NewFixtureFetcher reads fixtures from dir.
func NewFixtureFetcher(dir string) *FixtureFetcher {
	return NewFixtureFetcherFS(os.DirFS(dir))
}

// NewFixtureFetcherFS reads fixtures from fsys.
func NewFixtureFetcherFS(fsys fs.FS) *FixtureFetcher {
	return &FixtureFetcher{fsys: fsys, logger: applog.WithComponent(applog.ComponentBackend)}
}

func (f *FixtureFetcher) Fetch(ctx context.Context, q core.Query) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, name := range FixtureNames(q) {
		body, err := fs.ReadFile(f.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", name, err)
		}
		f.logger.DebugContext(ctx, "Fixture served",
			applog.FieldQueryKey, q.Key(),
			"file", name,
			applog.FieldBytes, len(body))
		return body, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFixtureNotFound, q.Key())
}

// FixtureNames lists the file names that may answer q, most specific first.
func FixtureNames(q core.Query) []string {
	base := strings.ReplaceAll(string(q.Endpoint), "/", "_")
	if len(q.Params) == 0 {
		return []string{base + ".json"}
	}

	keys := make([]string, 0, len(q.Params))
	for k := range q.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"-"+strings.Join(q.Params[k], "+"))
	}
	specific := base + "__" + sanitizeName(strings.Join(parts, "_")) + ".json"
	return []string{specific, base + ".json"}
}

// sanitizeName keeps a file name portable.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '+' || r == '.':
			return r
		default:
			return '-'
		}
	}, s)
}

// WriteFixture stores payload under the most specific name for q.
func WriteFixture(dir string, q core.Query, payload []byte) (string, error) {
	path := filepath.Join(dir, FixtureNames(q)[0])
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("write fixture: %w", err)
	}
	return path, nil
}

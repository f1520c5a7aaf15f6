package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"finboard/internal/adapters"
	"finboard/internal/config"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

func newTestFactory() Factory {
	return NewFactory(applog.Discard())
}

func TestFromAppConfig(t *testing.T) {
	cfg := &config.Config{
		DataBackend:  "sqlite",
		APIBaseURL:   "http://localhost:8000",
		APIToken:     "t",
		APITimeout:   3 * time.Second,
		SQLiteDBPath: "/tmp/x.db",
		DataDir:      "/tmp/fixtures",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != SQLiteBackend || got.APIToken != "t" || got.APITimeout != 3*time.Second || got.DataDirectory != "/tmp/fixtures" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("FromAppConfig(sheets) error = nil")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) error = nil")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"api", Config{Type: APIBackend, APIBaseURL: "http://x"}, false},
		{"api without url", Config{Type: APIBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend, APIBaseURL: "http://x"}, true},
		{"sqlite without url", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, true},
		{"memory", Config{Type: MemoryBackend}, false},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if _, err := adapters.WriteFixture(dir, core.CreditCardsQuery(), []byte(`[]`)); err != nil {
		t.Fatal(err)
	}

	res, err := newTestFactory().CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if res.Upstream != nil || res.Snapshots != nil {
		t.Error("memory backend should have no upstream or snapshots")
	}
	body, err := res.Fetcher.Fetch(context.Background(), core.CreditCardsQuery())
	if err != nil || string(body) != `[]` {
		t.Errorf("Fetch() = %s, %v", body, err)
	}
}

func TestCreateAPIBackend(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":9}]`))
	}))
	defer upstream.Close()

	res, err := newTestFactory().CreateBackend(context.Background(), Config{
		Type:       APIBackend,
		APIBaseURL: upstream.URL,
		APIToken:   "secret",
		APITimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	body, err := res.Fetcher.Fetch(context.Background(), core.SplitwiseFriendsQuery())
	if err != nil || string(body) != `[{"id":9}]` {
		t.Errorf("Fetch() = %s, %v", body, err)
	}
	if res.Close() != nil {
		t.Error("api backend Close() should be a no-op")
	}
}

func TestCreateSQLiteBackendReadsThrough(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}))
	defer upstream.Close()

	dbPath := filepath.Join(t.TempDir(), "db", "finboard.db")
	res, err := newTestFactory().CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		APIBaseURL:   upstream.URL,
		SQLiteDBPath: dbPath,
	})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	defer res.Close()

	if res.Snapshots == nil || res.Upstream == nil {
		t.Fatal("sqlite backend should expose snapshots and upstream")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}

	q := core.CreditCardsQuery()
	for i := 0; i < 2; i++ {
		if _, err := res.Fetcher.Fetch(context.Background(), q); err != nil {
			t.Fatalf("Fetch() #%d error = %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (second read from snapshot)", calls)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := newTestFactory().CreateBackend(context.Background(), Config{Type: APIBackend}); err == nil {
		t.Error("CreateBackend() error = nil for api backend without URL")
	}
}

package backend

import (
	"context"
	"fmt"

	"finboard/internal/adapters"
	"finboard/internal/api"
	applog "finboard/internal/log"
	"finboard/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.WithComponent(applog.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case APIBackend:
		return f.createAPIBackend(ctx, config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) apiClient(config Config) (*api.Client, error) {
	var opts []api.Option
	if config.APITimeout > 0 {
		opts = append(opts, api.WithTimeout(config.APITimeout))
	}
	if config.APIToken != "" {
		opts = append(opts, api.WithToken(config.APIToken))
	}
	client, err := api.New(config.APIBaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reporting API client: %w", err)
	}
	return client, nil
}

func (f *DefaultFactory) createAPIBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := f.apiClient(config)
	if err != nil {
		return nil, err
	}

	f.logger.InfoContext(ctx, "Initialized API backend",
		applog.FieldBackend, config.Type,
		"base_url", config.APIBaseURL,
		"authenticated", config.APIToken != "")

	return &BackendResult{Fetcher: client, Upstream: client}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	client, err := f.apiClient(config)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSnapshotStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		applog.FieldBackend, config.Type,
		"db_path", config.SQLiteDBPath,
		"base_url", config.APIBaseURL)

	return &BackendResult{
		Fetcher:   storage.NewReadThrough(store, client),
		Upstream:  client,
		Snapshots: store,
		Cleanup:   store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = DefaultDataDirectory
	}

	f.logger.InfoContext(ctx, "Initialized memory backend",
		applog.FieldBackend, config.Type,
		"data_directory", dataDir)

	return &BackendResult{Fetcher: adapters.NewFixtureFetcher(dataDir)}, nil
}

package backend

import (
	"errors"
	"fmt"
	"strings"

	"finboard/internal/config"
)

// DefaultDataDirectory holds the memory backend's fixtures when none is
// configured.
const DefaultDataDirectory = "data/fixtures"

var errNilConfig = errors.New("app config is nil")

// FromAppConfig picks the backend settings out of the application config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errNilConfig
	}

	c := Config{
		Type:          BackendType(appConfig.DataBackend),
		APIBaseURL:    appConfig.APIBaseURL,
		APIToken:      appConfig.APIToken,
		APITimeout:    appConfig.APITimeout,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDir,
	}
	if !c.Type.IsValid() {
		return Config{}, unknownTypeError(c.Type)
	}
	return c, nil
}

func unknownTypeError(t BackendType) error {
	return fmt.Errorf("unknown data backend %q (want one of %s)", t, strings.Join(GetBackendTypeStrings(), ", "))
}

// Validate reports the first setting the selected backend is missing.
// The snapshot store fills misses from the API, so sqlite needs both.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return unknownTypeError(c.Type)
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		return fmt.Errorf("%s backend: database path is required", c.Type)
	}
	if c.Type != MemoryBackend && c.APIBaseURL == "" {
		return fmt.Errorf("%s backend: API base URL is required", c.Type)
	}
	return nil
}

// GetBackendTypes lists the backends in order of preference.
func GetBackendTypes() []BackendType {
	return []BackendType{APIBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings is GetBackendTypes as strings.
func GetBackendTypeStrings() []string {
	var out []string
	for _, t := range GetBackendTypes() {
		out = append(out, t.String())
	}
	return out
}

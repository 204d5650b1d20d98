// Package config provides configuration loading, validation, and
// management for the compass service.
//
// The package maintains a single global Config instance, protected by a
// mutex. GetConfig returns the config BY VALUE so callers cannot mutate
// shared state; all updates go through validated Update functions and
// persist atomically. Schema changes must increment SchemaVersion.
// Runtime state (buyer stages, completion records) belongs in the
// database, never in config.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"compass/pkg/logx"
)

// CurrentSchemaVersion must be incremented on any config shape change.
const CurrentSchemaVersion = 1

const configFileName = "config.json"

// Global config instance with mutex protection. projectDir is set once
// during LoadConfig and never changes.
//
//nolint:gochecknoglobals // Intentional singleton pattern for config management
var (
	config     *Config
	projectDir string
	logger     *logx.Logger
	mu         sync.RWMutex
)

func getLogger() *logx.Logger {
	if logger == nil {
		logger = logx.NewLogger("config")
	}
	return logger
}

// Config is the full service configuration.
type Config struct {
	SchemaVersion int             `json:"schema_version"`
	Database      DatabaseConfig  `json:"database"`
	Catalog       CatalogConfig   `json:"catalog"`
	Journey       JourneyConfig   `json:"journey"`
	Server        ServerConfig    `json:"server"`
	Telemetry     TelemetryConfig `json:"telemetry"`
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `json:"path"`
}

// CatalogConfig controls where the stage catalog is seeded from.
type CatalogConfig struct {
	// SeedPath points at a YAML stage seed. Empty means: use the
	// database catalog, falling back to the built-in ten-stage seed.
	SeedPath string `json:"seed_path,omitempty"`
}

// JourneyConfig holds journey view tunables.
type JourneyConfig struct {
	// ArtifactWindowSize is the trailing stage window for artifact
	// visibility. Negative values fall back to the built-in default.
	ArtifactWindowSize int `json:"artifact_window_size"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Addr string `json:"addr"`
}

// TelemetryConfig holds metrics settings.
type TelemetryConfig struct {
	// PrometheusURL is the Prometheus server queried by the metrics
	// dashboard endpoints. Empty disables querying; recording via
	// /metrics is always on.
	PrometheusURL string `json:"prometheus_url,omitempty"`
}

// DefaultConfig returns a config with sane defaults for a fresh install.
func DefaultConfig() Config {
	return Config{
		SchemaVersion: CurrentSchemaVersion,
		Database:      DatabaseConfig{Path: "compass.db"},
		Journey:       JourneyConfig{ArtifactWindowSize: 2},
		Server:        ServerConfig{Addr: ":8080"},
	}
}

// Validate checks config consistency.
func (c *Config) Validate() error {
	if c.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("unsupported config schema version %d (expected %d)", c.SchemaVersion, CurrentSchemaVersion)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	return nil
}

// LoadConfig loads the config file from dir, creating a default one when
// missing. Must be called once at startup before GetConfig.
func LoadConfig(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	projectDir = dir
	path := filepath.Join(dir, configFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		defaults := DefaultConfig()
		config = &defaults
		if err := persistLocked(); err != nil {
			return err
		}
		getLogger().Info("Created default config at %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	config = &loaded
	getLogger().Info("Config loaded from %s", path)
	return nil
}

// GetConfig returns the current config by value. LoadConfig must have
// been called first; calling before load is a programmer error.
func GetConfig() (Config, error) {
	mu.RLock()
	defer mu.RUnlock()

	if config == nil {
		return Config{}, fmt.Errorf("config not loaded: call LoadConfig first")
	}
	return *config, nil
}

// UpdateJourney atomically replaces the journey section with validation
// and persistence.
func UpdateJourney(journey JourneyConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if config == nil {
		return fmt.Errorf("config not loaded: call LoadConfig first")
	}

	candidate := *config
	candidate.Journey = journey
	if err := candidate.Validate(); err != nil {
		return fmt.Errorf("invalid journey config: %w", err)
	}

	config = &candidate
	return persistLocked()
}

// persistLocked writes the current config to disk. Caller holds mu.
func persistLocked() error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := filepath.Join(projectDir, configFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// GetAPIPassword returns the HTTP API password. Precedence: decrypted
// secrets file, then COMPASS_PASSWORD env var. Empty means the caller
// should generate one at startup.
func GetAPIPassword() string {
	if password, err := GetSecret("COMPASS_PASSWORD"); err == nil {
		return password
	}
	return ""
}

// ResetForTest clears the singleton. Test helper only.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	config = nil
	projectDir = ""
}

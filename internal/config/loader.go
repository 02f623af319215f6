package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/waittrace/internal/safe"
)

// Loader handles loading and saving configuration files.
type Loader struct {
	dir string
}

// NewLoader creates a new config loader.
// The config directory is resolved in this order:
//  1. WAITTRACE_CONFIG environment variable.
//  2. ~/.waittrace.
//  3. /tmp/waittrace-fallback (environments without a home dir).
func NewLoader() *Loader {
	if dir := os.Getenv("WAITTRACE_CONFIG"); dir != "" {
		return &Loader{dir: dir}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		return &Loader{dir: filepath.Join(homeDir, DefaultDir)}
	}

	// Config files won't exist here, so Load returns defaults + env overrides.
	return &Loader{dir: "/tmp/waittrace-fallback"}
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.dir, ConfigFile)
}

// Load loads the configuration from the default path.
func (l *Loader) Load() (*Config, error) {
	return LoadFile(l.ConfigPath())
}

// LoadFile loads configuration from path, layering the file over defaults and
// environment variables over the file. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := safe.ReadFile(path, safe.MaxConfigSize)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to the default path.
func (l *Loader) Save(cfg *Config) error {
	path := l.ConfigPath()

	//nolint:gosec // G301: Directory needs standard permissions for traversal
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	//nolint:gosec // G306: Config file is not sensitive
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ExpandHome replaces a leading "~/" in path with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}

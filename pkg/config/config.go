// Package config handles loading and saving clusterview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/clusterview/config.yaml
//
// Precedence is flags > environment > config file > defaults. The
// environment may also come from a .env file in the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "clusterview"

// Environment variables that override the config file.
const (
	EnvSource  = "CLUSTERVIEW_SOURCE"
	EnvTimeout = "CLUSTERVIEW_TIMEOUT"
	EnvWatch   = "CLUSTERVIEW_WATCH"
)

// SourceConfig selects where bundles come from.
type SourceConfig struct {
	Location    string        `yaml:"location,omitempty"`     // URL, bundle file/dir, or .db path
	Timeout     time.Duration `yaml:"timeout,omitempty"`      // per fetch, e.g. 30s
	Watch       bool          `yaml:"watch,omitempty"`        // reload file/sqlite sources on change
	ClusterPath string        `yaml:"cluster_path,omitempty"` // HTTP endpoint path
}

// ExportConfig holds snapshot export defaults.
type ExportConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Format string `yaml:"format,omitempty"` // svg or png
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	ShowHelp bool `yaml:"show_help,omitempty"` // Show the key help line
}

// Config is the top-level configuration for clusterview.
type Config struct {
	Source SourceConfig `yaml:"source,omitempty"`
	Export ExportConfig `yaml:"export,omitempty"`
	UI     UIConfig     `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Location:    "http://localhost:5000",
			Timeout:     30 * time.Second,
			ClusterPath: "/cluster",
		},
		Export: ExportConfig{
			Dir:    ".",
			Format: "svg",
		},
		UI: UIConfig{
			ShowHelp: true,
		},
	}
}

// ConfigDir returns the XDG config directory for clusterview.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Source.Location = expandHome(cfg.Source.Location)
	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	return cfg, cfg.Validate()
}

// ApplyEnv overlays the CLUSTERVIEW_* environment variables onto cfg.
func (c *Config) ApplyEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvSource)); v != "" {
		c.Source.Location = expandHome(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Source.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv(EnvWatch)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvWatch, err)
		}
		c.Source.Watch = b
	}
	return nil
}

// Validate checks values the CLI cannot recover from.
func (c Config) Validate() error {
	switch strings.ToLower(c.Export.Format) {
	case "", "svg", "png":
	default:
		return fmt.Errorf("export.format must be svg or png, got %q", c.Export.Format)
	}
	if c.Source.Timeout < 0 {
		return fmt.Errorf("source.timeout must not be negative")
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}
	return string(data), nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

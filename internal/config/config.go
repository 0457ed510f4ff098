// Package config loads process-level configuration for the server:
// store location, transport selection, and logging. It is distinct
// from internal/wfconfig, which loads the domain workflow/schema YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds settings for the server process.
// Precedence: environment variables > config file > defaults (§6).
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Transport TransportConfig `toml:"transport"`
	Log       LogConfig       `toml:"log"`
	Workflow  WorkflowConfig  `toml:"workflow"`
}

// WorkflowConfig points at the directory holding .workflow/config.yaml
// and .workflow/schemas.yaml (internal/wfconfig), and the TTL for the
// in-memory snapshot cache built over them.
type WorkflowConfig struct {
	Dir           string `toml:"dir"`
	CacheTTLSecs  int    `toml:"cache_ttl_seconds"`
}

// CacheTTL returns the configured snapshot TTL as a duration.
func (w WorkflowConfig) CacheTTL() time.Duration {
	return time.Duration(w.CacheTTLSecs) * time.Second
}

// DatabaseConfig points at the embedded SQLite store.
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// TransportConfig selects stdio or streamable HTTP (§6).
type TransportConfig struct {
	Mode string `toml:"mode"` // "stdio" (default) or "http"
	Host string `toml:"host"`
	Port string `toml:"port"`
}

// LogConfig holds the slog level.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
}

// Load builds a Config from an optional TOML file overlaid with
// environment variables, which always win.
func Load(configPath string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path:           "data/items.db",
			MaxConnections: 10,
		},
		Transport: TransportConfig{
			Mode: "stdio",
			Host: "0.0.0.0",
			Port: "3001",
		},
		Log: LogConfig{
			Level: "info",
		},
		Workflow: WorkflowConfig{
			Dir:          ".",
			CacheTTLSecs: 60,
		},
	}

	if err := cfg.loadFile(configPath); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(configPath string) error {
	path := resolveConfigPath(configPath)
	if path == "" {
		return nil
	}
	if _, err := toml.DecodeFile(path, c); err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv("WORKITEM_MCP_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("workitem-mcp.toml"); err == nil {
		return "workitem-mcp.toml"
	}
	return ""
}

func (c *Config) applyEnv() {
	envOverride("DATABASE_PATH", &c.Database.Path)
	envOverrideInt("DATABASE_MAX_CONNECTIONS", &c.Database.MaxConnections)
	envOverride("TRANSPORT", &c.Transport.Mode)
	envOverride("HTTP_HOST", &c.Transport.Host)
	envOverride("HTTP_PORT", &c.Transport.Port)
	envOverride("LOG_LEVEL", &c.Log.Level)
	envOverride("CONFIG_DIR", &c.Workflow.Dir)
	envOverride("WORKFLOW_DIR", &c.Workflow.Dir)
	envOverrideInt("WORKFLOW_CACHE_TTL_SECONDS", &c.Workflow.CacheTTLSecs)
}

func (c *Config) validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT: %q (must be \"stdio\" or \"http\")", c.Transport.Mode)
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("invalid DATABASE_MAX_CONNECTIONS: must be positive")
	}
	return nil
}

func envOverride(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			*dst = n
		}
	}
}

// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvDefinitions names the variable that LoadWithFallback looks for when no
// config file exists.
const EnvDefinitions = "VIZPROPS_DEFINITIONS"

// Config is the root configuration structure.
type Config struct {
	Definitions DefinitionsConfig `yaml:"definitions"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// DefinitionsConfig says where type definition files live.
type DefinitionsConfig struct {
	Dirs     []string      `yaml:"dirs"`
	Watch    bool          `yaml:"watch"`    // Reload when files change
	Debounce time.Duration `yaml:"debounce"` // Settle delay for watched reloads
}

// ServerConfig configures the introspection HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	TLS          TLSConfig     `yaml:"tls"`
}

// TLSConfig enables HTTPS with ACME certificates.
type TLSConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Domains  []string `yaml:"domains"`
	Email    string   `yaml:"email,omitempty"`
	CacheDir string   `yaml:"cache_dir"`
	HTTPAddr string   `yaml:"http_addr"` // Listener for http-01 challenges and redirects
	Staging  bool     `yaml:"staging"`   // Use the Let's Encrypt staging directory
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse builds configuration from YAML, expanding ${VAR} references and
// applying VIZPROPS_* overrides.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	VIZPROPS_DEFINITIONS         - Comma separated definition directories (required)
//	VIZPROPS_DEFINITIONS_WATCH   - Reload definitions on change (default: false)
//	VIZPROPS_SERVER_HOST         - Server host (default: 0.0.0.0)
//	VIZPROPS_SERVER_PORT         - Server port (default: 8080)
//	VIZPROPS_TLS_ENABLED         - Serve HTTPS with ACME certificates (default: false)
//	VIZPROPS_TLS_DOMAINS         - Comma separated certificate domains
//	VIZPROPS_LOG_LEVEL           - Log level: debug, info, warn, error (default: info)
//	VIZPROPS_LOG_FORMAT          - Log format: json or console (default: json)
//	VIZPROPS_METRICS_ENABLED     - Enable /metrics endpoint (default: true)
func LoadFromEnv() (*Config, error) {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set %s", EnvDefinitions)
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv(EnvDefinitions) != ""
}

// applyEnvOverrides applies VIZPROPS_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Definitions
	if v := os.Getenv(EnvDefinitions); v != "" {
		cfg.Definitions.Dirs = splitList(v)
	}
	if v := os.Getenv("VIZPROPS_DEFINITIONS_WATCH"); v != "" {
		cfg.Definitions.Watch = parseBool(v)
	}
	if v := os.Getenv("VIZPROPS_DEFINITIONS_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Definitions.Debounce = d
		}
	}

	// Server configuration
	if v := os.Getenv("VIZPROPS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VIZPROPS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VIZPROPS_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("VIZPROPS_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// TLS
	if v := os.Getenv("VIZPROPS_TLS_ENABLED"); v != "" {
		cfg.Server.TLS.Enabled = parseBool(v)
	}
	if v := os.Getenv("VIZPROPS_TLS_DOMAINS"); v != "" {
		cfg.Server.TLS.Domains = splitList(v)
	}
	if v := os.Getenv("VIZPROPS_TLS_EMAIL"); v != "" {
		cfg.Server.TLS.Email = v
	}
	if v := os.Getenv("VIZPROPS_TLS_CACHE_DIR"); v != "" {
		cfg.Server.TLS.CacheDir = v
	}
	if v := os.Getenv("VIZPROPS_TLS_HTTP_ADDR"); v != "" {
		cfg.Server.TLS.HTTPAddr = v
	}
	if v := os.Getenv("VIZPROPS_TLS_STAGING"); v != "" {
		cfg.Server.TLS.Staging = parseBool(v)
	}

	// Logging configuration
	if v := os.Getenv("VIZPROPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VIZPROPS_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("VIZPROPS_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("VIZPROPS_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Definitions.Debounce == 0 {
		cfg.Definitions.Debounce = 200 * time.Millisecond
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}
	if cfg.Server.TLS.CacheDir == "" {
		cfg.Server.TLS.CacheDir = "certs"
	}
	if cfg.Server.TLS.HTTPAddr == "" {
		cfg.Server.TLS.HTTPAddr = ":80"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if len(cfg.Definitions.Dirs) == 0 {
		return fmt.Errorf("definitions.dirs is required")
	}
	for i, dir := range cfg.Definitions.Dirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("definitions.dirs[%d] is empty", i)
		}
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.TLS.Enabled && len(cfg.Server.TLS.Domains) == 0 {
		return fmt.Errorf("server.tls.domains is required when server.tls.enabled is true")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error, got %q", cfg.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}

	return nil
}

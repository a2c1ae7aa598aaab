package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvRoot = "ENGINED_ROOT"
	EnvAddr = "ENGINED_ADDR"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Root           string   `json:"root" yaml:"root" toml:"root"`
	Platform       string   `json:"platform" yaml:"platform" toml:"platform"`
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel       string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat      string   `json:"log_format" yaml:"log_format" toml:"log_format"`
	NativeLibrary  string   `json:"native_library" yaml:"native_library" toml:"native_library"`
	BundledLibrary string   `json:"bundled_library" yaml:"bundled_library" toml:"bundled_library"`
	BundledVersion string   `json:"bundled_version" yaml:"bundled_version" toml:"bundled_version"`
	BundledGPU     *bool    `json:"bundled_gpu" yaml:"bundled_gpu" toml:"bundled_gpu"`
	HTTPTimeout    Duration `json:"http_timeout" yaml:"http_timeout" toml:"http_timeout"`
	MaxRetries     int      `json:"max_retries" yaml:"max_retries" toml:"max_retries"`
	ProgressHz     int      `json:"progress_hz" yaml:"progress_hz" toml:"progress_hz"`
	CORSEnabled    bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins    []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	// MaxBodyBytes caps admin API request bodies; 0 keeps the server default.
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	// ActivateTimeout bounds an activation request including its download; 0 disables.
	ActivateTimeout Duration `json:"activate_timeout" yaml:"activate_timeout" toml:"activate_timeout"`
}

// Defaults.
const (
	DefaultRoot        = "~/.engined"
	DefaultAddr        = "127.0.0.1:8089"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultHTTPTimeout = 10 * time.Minute
	DefaultMaxRetries  = 3
	DefaultProgressHz  = 10
)

// Defaults returns a Config with every field set to its default.
func Defaults() Config {
	return Config{}.WithDefaults()
}

// WithDefaults fills unspecified fields.
func (c Config) WithDefaults() Config {
	if c.Root == "" {
		c.Root = DefaultRoot
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = Duration(DefaultHTTPTimeout)
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.ProgressHz <= 0 {
		c.ProgressHz = DefaultProgressHz
	}
	return c
}

// ApplyEnv overrides fields from the process environment.
func (c Config) ApplyEnv() Config {
	return c.applyEnv(os.Getenv)
}

func (c Config) applyEnv(getenv func(string) string) Config {
	if v := strings.TrimSpace(getenv(EnvRoot)); v != "" {
		c.Root = v
	}
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		c.Addr = v
	}
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

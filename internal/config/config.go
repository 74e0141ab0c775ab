// Package config loads easyyaml settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/synchronizer"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "easyyaml.yaml"

// Environment variables that override file settings.
const (
	EnvLogLevel     = "EASYYAML_LOG_LEVEL"
	EnvLogFormat    = "EASYYAML_LOG_FORMAT"
	EnvMirror       = "EASYYAML_MIRROR"
	EnvStoreBackend = "EASYYAML_STORE_BACKEND"
	EnvStorePath    = "EASYYAML_STORE_PATH"
	EnvRedisAddr    = "EASYYAML_REDIS_ADDR"
	EnvHTTPPort     = "EASYYAML_HTTP_PORT"
	EnvDraftKey     = "EASYYAML_DRAFT_KEY"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the application configuration.
type Config struct {
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string          `mapstructure:"log_format" yaml:"log_format"`
	Mirror    string          `mapstructure:"mirror" yaml:"mirror"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// TemplatesConfig locates template directories.
type TemplatesConfig struct {
	BuiltinDir string `mapstructure:"builtin_dir" yaml:"builtin_dir"`
	UserDir    string `mapstructure:"user_dir" yaml:"user_dir"`
}

// StoreConfig selects the draft store.
type StoreConfig struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Path    string      `mapstructure:"path" yaml:"path"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`

	// EncryptionKey is a base64 AES-256 key. When set, draft content is
	// encrypted at rest.
	EncryptionKey string `mapstructure:"encryption_key" yaml:"encryption_key"`
	// Redact lists key patterns whose values are masked in stored drafts.
	Redact []string `mapstructure:"redact" yaml:"redact"`
}

// RedisConfig configures the redis draft store and locker.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// HTTPConfig configures the document API server.
type HTTPConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		Mirror:    synchronizer.MirrorLazy.String(),
		Templates: TemplatesConfig{
			BuiltinDir: "templates",
			UserDir:    filepath.Join(home, ".easyyaml", "templates"),
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    filepath.Join(".easyyaml", "drafts"),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "easyyaml:draft:",
			},
		},
		HTTP:    HTTPConfig{Port: 8080},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads the config file at path (DefaultPath when empty), applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func applyEnv(cfg *Config) error {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvLogLevel, &cfg.LogLevel)
	set(EnvLogFormat, &cfg.LogFormat)
	set(EnvMirror, &cfg.Mirror)
	set(EnvStoreBackend, &cfg.Store.Backend)
	set(EnvStorePath, &cfg.Store.Path)
	set(EnvRedisAddr, &cfg.Store.Redis.Addr)
	set(EnvDraftKey, &cfg.Store.EncryptionKey)

	if v := os.Getenv(EnvHTTPPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHTTPPort, v, err)
		}
		cfg.HTTP.Port = port
	}
	return nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := synchronizer.ParseMirror(c.Mirror); err != nil {
		return err
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	return nil
}

// MirrorPolicy returns the configured synchronizer mirror policy.
func (c Config) MirrorPolicy() synchronizer.Mirror {
	m, _ := synchronizer.ParseMirror(c.Mirror)
	return m
}

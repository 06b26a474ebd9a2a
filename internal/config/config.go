// Package config loads the service configuration from an optional YAML file
// with environment variable overrides (RENDERD_*).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Renderer backend names.
const (
	BackendKit     = "kit"
	BackendPreview = "preview"
)

// Cache backend names.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	// Listen is the HTTP bind address. The host extension historically
	// served on 8011, so that stays the default.
	Listen    string `yaml:"listen" env:"RENDERD_LISTEN"`
	LogLevel  string `yaml:"log_level" env:"RENDERD_LOG_LEVEL"`
	OutputDir string `yaml:"output_dir" env:"RENDERD_OUTPUT_DIR"`

	Renderer RendererConfig `yaml:"renderer"`
	Cache    CacheConfig    `yaml:"cache"`
	Launch   LaunchConfig   `yaml:"launch"`
}

// RendererConfig selects the backend. Options is backend-specific and
// decoded on demand.
type RendererConfig struct {
	Backend string         `yaml:"backend" env:"RENDERD_RENDERER"`
	Options map[string]any `yaml:"options"`
}

// KitOptions are the options understood by the kit backend.
type KitOptions struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	OutputDir      string `mapstructure:"output_dir"`
}

// KitOptions decodes the free-form options map for the kit backend.
func (r RendererConfig) KitOptions() (KitOptions, error) {
	var o KitOptions
	if r.Options == nil {
		return o, nil
	}
	if err := mapstructure.Decode(r.Options, &o); err != nil {
		return o, fmt.Errorf("renderer options: %w", err)
	}
	return o, nil
}

// Duration wraps time.Duration so it reads as "1h" in YAML and env vars.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler, used by env.Parse.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// CacheConfig selects the frame store backend.
type CacheConfig struct {
	Backend string      `yaml:"backend" env:"RENDERD_CACHE"`
	TTL     Duration    `yaml:"ttl" env:"RENDERD_CACHE_TTL"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis frame store.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"RENDERD_REDIS_ADDR"`
	Password string `yaml:"password" env:"RENDERD_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"RENDERD_REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"RENDERD_REDIS_PREFIX"`
}

// LaunchConfig describes how to start the host runtime process.
type LaunchConfig struct {
	Command string   `yaml:"command" env:"RENDERD_LAUNCH_COMMAND"`
	Args    []string `yaml:"args"`
	WorkDir string   `yaml:"work_dir" env:"RENDERD_LAUNCH_WORKDIR"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Listen:    ":8011",
		LogLevel:  "info",
		OutputDir: ".",
		Renderer:  RendererConfig{Backend: BackendKit},
		Cache:     CacheConfig{Backend: CacheMemory},
	}
}

// Load reads the file at path (optional; defaults apply when path is empty or
// the file is absent), then applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults + env only.
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum fields.
func (c *Config) Validate() error {
	switch c.Renderer.Backend {
	case BackendKit, BackendPreview:
	default:
		return fmt.Errorf("unknown renderer backend %q (want %s or %s)", c.Renderer.Backend, BackendKit, BackendPreview)
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend %q (want %s or %s)", c.Cache.Backend, CacheMemory, CacheRedis)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache backend %s requires redis.addr", CacheRedis)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8011", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BackendKit, cfg.Renderer.Backend)
	assert.Equal(t, CacheMemory, cfg.Cache.Backend)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":8011", cfg.Listen)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
log_level: debug
output_dir: /var/frames
renderer:
  backend: kit
  options:
    base_url: http://kit-host:8111
    timeout_seconds: 300
cache:
  backend: redis
  ttl: 1h
  redis:
    addr: localhost:6379
    db: 2
launch:
  command: /opt/kit/kit
  args: ["--enable", "omni.services.render"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/frames", cfg.OutputDir)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)
	assert.Equal(t, time.Hour, cfg.Cache.TTL.Std())
	assert.Equal(t, 2, cfg.Cache.Redis.DB)
	assert.Equal(t, "/opt/kit/kit", cfg.Launch.Command)
	assert.Equal(t, []string{"--enable", "omni.services.render"}, cfg.Launch.Args)

	opts, err := cfg.Renderer.KitOptions()
	require.NoError(t, err)
	assert.Equal(t, "http://kit-host:8111", opts.BaseURL)
	assert.Equal(t, 300, opts.TimeoutSeconds)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "listen: \":9000\"\n")

	t.Setenv("RENDERD_LISTEN", ":7000")
	t.Setenv("RENDERD_RENDERER", "preview")
	t.Setenv("RENDERD_LOG_LEVEL", "warn")
	t.Setenv("RENDERD_CACHE_TTL", "30m")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Listen)
	assert.Equal(t, BackendPreview, cfg.Renderer.Backend)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL.Std())
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	t.Run("renderer", func(t *testing.T) {
		cfg := Default()
		cfg.Renderer.Backend = "raytracer"
		assert.ErrorContains(t, cfg.Validate(), "renderer backend")
	})

	t.Run("cache", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = "memcached"
		assert.ErrorContains(t, cfg.Validate(), "cache backend")
	})

	t.Run("redis without addr", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Backend = CacheRedis
		assert.ErrorContains(t, cfg.Validate(), "redis.addr")
	})
}

func TestMalformedYAML(t *testing.T) {
	path := writeConfig(t, "listen: [oops\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestKitOptionsEmpty(t *testing.T) {
	opts, err := RendererConfig{Backend: BackendKit}.KitOptions()
	require.NoError(t, err)
	assert.Empty(t, opts.BaseURL)
}

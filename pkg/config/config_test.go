package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "5.131", cfg.VK.APIVersion)
	assert.Equal(t, "https://api.vk.com/method", cfg.VK.BaseURL)
	assert.Equal(t, 3, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 8, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, ".", cfg.Output.BaseDirectory)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vk:
  api_version: "5.199"
rate_limit:
  requests_per_second: 1
output:
  base_directory: /data/archive
`), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "5.199", cfg.VK.APIVersion)
	assert.Equal(t, 1, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "/data/archive", cfg.Output.BaseDirectory)
	assert.Equal(t, 8, cfg.Download.ConcurrentDownloads, "unset keys keep defaults")
}

func TestLoadFromFileMissingExplicitPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("VKDUMP_ACCESS_TOKEN", "env-token")
	t.Setenv("VKDUMP_REQUESTS_PER_SECOND", "2")
	t.Setenv("VKDUMP_CONCURRENT_DOWNLOADS", "4")
	t.Setenv("VKDUMP_OUTPUT_DIR", "/tmp/out")
	t.Setenv("VKDUMP_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, "env-token", cfg.VK.AccessToken)
	assert.Equal(t, 2, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4, cfg.Download.ConcurrentDownloads)
	assert.Equal(t, "/tmp/out", cfg.Output.BaseDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("VKDUMP_REQUESTS_PER_SECOND", "not-a-number")
	t.Setenv("VKDUMP_CONCURRENT_DOWNLOADS", "-1")

	cfg := DefaultConfig()
	cfg.LoadFromEnv()

	assert.Equal(t, 3, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 8, cfg.Download.ConcurrentDownloads)
}

func TestFlagsWinOverEnvironment(t *testing.T) {
	t.Setenv("VKDUMP_ACCESS_TOKEN", "env-token")
	t.Setenv("VKDUMP_OUTPUT_DIR", "/env/out")

	cfg, err := Load("", map[string]interface{}{
		"token":  "flag-token",
		"output": "/flag/out",
	})
	require.NoError(t, err)

	assert.Equal(t, "flag-token", cfg.VK.AccessToken)
	assert.Equal(t, "/flag/out", cfg.Output.BaseDirectory)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.VK.BaseURL = "" }},
		{"empty api version", func(c *Config) { c.VK.APIVersion = "" }},
		{"zero rate limit", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }},
		{"zero concurrency", func(c *Config) { c.Download.ConcurrentDownloads = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "chatty" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

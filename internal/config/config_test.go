package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, []string{"static", "static/deps"}, cfg.Server.StaticPaths)
	assert.True(t, cfg.Server.DisableStaticCache)
	assert.True(t, cfg.Server.IndentResponses)
	assert.False(t, cfg.Server.LogRequests)
	assert.True(t, cfg.Server.LogRoutes)
	assert.Equal(t, ":8181", cfg.Server.Addr())

	assert.Equal(t, "ws://localhost:10001", cfg.Producer.URL)
	assert.Equal(t, time.Second, cfg.Producer.PollInterval)
	assert.Empty(t, cfg.Store.Path)
}

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load("testdata/viewer.yaml")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"web"}, cfg.Server.StaticPaths)
	assert.False(t, cfg.Server.DisableStaticCache)
	assert.True(t, cfg.Server.IndentResponses, "unset fields keep defaults")

	assert.Equal(t, "ws://producer.local:10001", cfg.Producer.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Producer.PollInterval)
	assert.Equal(t, 100*time.Millisecond, cfg.Producer.Backoff.InitialDelay)
	assert.Equal(t, 2*time.Second, cfg.Producer.Backoff.MaxDelay)
	assert.Equal(t, 1.5, cfg.Producer.Backoff.Multiplier)
	assert.False(t, cfg.Producer.Backoff.Jitter)

	assert.Equal(t, "frames.db", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_TOML(t *testing.T) {
	cfg, err := Load("testdata/viewer.toml")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.False(t, cfg.Server.LogRoutes)
	assert.Equal(t, "wss://producer.local", cfg.Producer.URL)
	assert.Equal(t, 2*time.Second, cfg.Producer.PollInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Producer.Backoff.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.Producer.Backoff.MaxDelay, "unset nested fields keep defaults")
	assert.False(t, cfg.Producer.Backoff.Jitter)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "primdiff.log", cfg.Logging.File)
	assert.True(t, cfg.Logging.Compress)
}

func TestLoad_EmptyYAMLIsDefault(t *testing.T) {
	cfg, err := Load(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_UnknownFields(t *testing.T) {
	_, err := Load(writeFile(t, "bad.yaml", "server:\n  prot: 1\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[server]\nprot = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.prot")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"scheme", func(c *Config) { c.Producer.URL = "http://x" }, "ws://"},
		{"interval", func(c *Config) { c.Producer.PollInterval = 0 }, "poll_interval"},
		{"backoff", func(c *Config) { c.Producer.Backoff.MaxDelay = -1 }, "backoff"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = -1
	cfg.Logging.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
	assert.Contains(t, err.Error(), "logging.format")
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Queue.Transport)
	assert.Equal(t, "/data/corpus", cfg.Storage.Path)
	assert.Equal(t, 5*time.Second, cfg.Enrich.PollInterval)
	assert.Equal(t, 50, cfg.Embed.BatchSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  path: /tmp/corpus-test
queue:
  transport: nats
  url: nats://queue:4222
enrich:
  rate_per_second: 7.5
logging:
  level: debug
  format: text
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/corpus-test", cfg.Storage.Path)
	assert.Equal(t, "nats", cfg.Queue.Transport)
	assert.Equal(t, "nats://queue:4222", cfg.Queue.URL)
	assert.Equal(t, 7.5, cfg.Enrich.RatePerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 10, cfg.Enrich.PollBatchSize)
}

func TestLoadEnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: warn\n"), 0o600))

	t.Setenv("CORPUS_LOG_LEVEL", "error")
	t.Setenv("CORPUS_EMBED_CHUNK_SIZE", "512")
	t.Setenv("CORPUS_EXTRACT_EXCLUDED_PREFIXES", "_meta, _internal")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 512, cfg.Embed.ChunkSize)
	assert.Equal(t, []string{"_meta", "_internal"}, cfg.Extract.ExcludedPrefixes)
}

func TestLoadIgnoresUnmappedEnvironment(t *testing.T) {
	t.Setenv("CORPUS_SOMETHING_ELSE", "surprise")
	t.Setenv("PATH_MAX", "42")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, "/data/corpus", cfg.Storage.Path)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown transport", func(c *Config) { c.Queue.Transport = "kafka" }},
		{"nats without url", func(c *Config) { c.Queue.Transport = "nats"; c.Queue.URL = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"no storage path", func(c *Config) { c.Storage.Path = "" }},
		{"zero enrich rate", func(c *Config) { c.Enrich.RatePerSecond = 0 }},
		{"negative embed rate", func(c *Config) { c.Embed.RatePerSecond = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsInMemoryWithoutPath(t *testing.T) {
	cfg := Default()
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestFindConfigFileHonorsEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

	t.Setenv(ConfigPathEnvVar, path)
	assert.Equal(t, path, findConfigFile())
}

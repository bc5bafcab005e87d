package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "jina-embeddings-v3", cfg.Jina.EmbedModel)
	assert.Equal(t, "opportunities_v1", cfg.Qdrant.Collection)
	assert.Equal(t, "https://opportunitiescorners.com/", cfg.Scrape.ListingURL)
	assert.Equal(t, "opportunitiescorners", cfg.Scrape.Source)
	assert.Equal(t, "opportunities_markdown", cfg.Pipeline.DocsDir)
	assert.Equal(t, "en", cfg.Pipeline.SourceLanguage)
	assert.Equal(t, 10, cfg.Pipeline.PaceMinSecs)
	assert.Equal(t, 20, cfg.Pipeline.PaceMaxSecs)
	assert.Equal(t, 100, cfg.Pipeline.EmbedBatchSize)
	assert.Equal(t, 10, cfg.Pipeline.UpsertBatchSize)
	assert.Empty(t, cfg.Providers)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
store:
  driver: sqlite
  database_url: opportunities.db
providers:
  - name: groq
    kind: openai
    key: gk
    base_url: https://api.groq.com/openai/v1
    model: llama-3.3-70b-versatile
  - name: cerebras
    kind: openai
    key: ck
    base_url: https://api.cerebras.ai/v1
    model: llama-3.3-70b
pipeline:
  source_language: ar
`), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "opportunities.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "ar", cfg.Pipeline.SourceLanguage)

	require.Len(t, cfg.Providers, 2)
	assert.Equal(t, "groq", cfg.Providers[0].Name)
	assert.Equal(t, "llama-3.3-70b-versatile", cfg.Providers[0].Model)
	assert.Equal(t, "cerebras", cfg.Providers[1].Name)
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FURSA_STORE_DRIVER", "sqlite")
	t.Setenv("FURSA_QDRANT_COLLECTION", "opportunities_test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "opportunities_test", cfg.Qdrant.Collection)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	require.Error(t, err)

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
}

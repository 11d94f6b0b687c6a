package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "ollama", cfg.LLM.Backend)
	assert.Equal(t, 3600, cfg.Governor.BenchmarkIntervalSeconds)
	assert.Equal(t, 3, cfg.Pipelines.MaxIterations)
	assert.NotEmpty(t, cfg.Research.Topics)
}

func TestLoadLayersYAMLOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
pipelines:
  num_drafts: 5
personas:
  - name: "楽観主義者"
    persona: "常に可能性を探す"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "luca.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Pipelines.NumDrafts)
	// Untouched keys keep their defaults.
	assert.Equal(t, 8001, cfg.Server.AnalyticsPort)
	require.Len(t, cfg.Personas, 1)
	assert.Equal(t, "楽観主義者", cfg.Personas[0].Name)
}

func TestWellKnownEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7777")
	t.Setenv("BENCHMARK_INTERVAL_SECONDS", "120")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Governor.BenchmarkIntervalSeconds)
}

func TestLoadPersonasFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personas:\n  - name: a\n    persona: b\n"), 0o644))

	personas, err := LoadPersonas(path)
	require.NoError(t, err)
	require.Len(t, personas, 1)
	assert.Equal(t, "a", personas[0].Name)

	// A missing file yields an empty list, not an error.
	personas, err = LoadPersonas(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, personas)
}

package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.True(t, cfg.EnableReflection)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadSettingsReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "provider: ollama\nmodel: llama3\nmax_iterations: 4\nlogging:\n  level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, "llama3", cfg.Model)
	assert.Equal(t, 4, cfg.MaxIterations)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// unset keys keep their defaults
	assert.Equal(t, 90, cfg.MinAgeDays)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider: openai\nmax_iterations: 4\n"), 0o644))

	t.Setenv("RELIQUARY_PROVIDER", "ollama")
	t.Setenv("RELIQUARY_MAX_ITERATIONS", "7")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Provider)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("RELIQUARY_MAX_ITERATIONS", "banana")
	t.Setenv("RELIQUARY_MIN_AGE_DAYS", "-3")

	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxIterations)
	assert.Equal(t, 90, cfg.MinAgeDays)
}

func TestSaveSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultSettings()
	cfg.Provider = "ollama"
	require.NoError(t, SaveSettings(path, cfg))

	loaded, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", loaded.Provider)
	assert.Equal(t, cfg.MinSizeBytes, loaded.MinSizeBytes)
}

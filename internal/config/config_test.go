package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "sqlite", cfg.Store.Backend)
	assert.Equal(t, 3600, cfg.Session.TimeoutSeconds)
	assert.Equal(t, 5, cfg.Session.ContextMessages)
	assert.Equal(t, 100, cfg.Session.PreviewLength)
	assert.Equal(t, 2000, cfg.Guardrails.MaxInputLength)
	assert.Equal(t, 2000, cfg.Guardrails.MaxOutputLength)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.ConsoleStyle)

	// Toggles default on when unset
	assert.True(t, cfg.Guardrails.ContentFilterEnabled())
	assert.True(t, cfg.Guardrails.PIIDetectionEnabled())
	assert.True(t, cfg.Guardrails.ToxicityFilterEnabled())
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: memory
session:
  timeoutSeconds: 120
guardrails:
  maxInputLength: 500
  piiDetection: false
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 120, cfg.Session.TimeoutSeconds)
	assert.Equal(t, 500, cfg.Guardrails.MaxInputLength)
	assert.False(t, cfg.Guardrails.PIIDetectionEnabled())

	// Unset fields fall back to defaults
	assert.Equal(t, 5, cfg.Session.ContextMessages)
	assert.Equal(t, 2000, cfg.Guardrails.MaxOutputLength)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Guardrails.ContentFilterEnabled())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "store: [not: valid")

	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: sqlite
session:
  timeoutSeconds: 120
`)

	t.Setenv("PARLEY_STORE_BACKEND", "MEMORY")
	t.Setenv("PARLEY_STORE_PATH", "/tmp/override.db")
	t.Setenv("PARLEY_SESSION_TIMEOUT", "60")
	t.Setenv("PARLEY_MAX_INPUT_LENGTH", "300")
	t.Setenv("PARLEY_LOG_LEVEL", "WARN")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "/tmp/override.db", cfg.Store.Path)
	assert.Equal(t, 60, cfg.Session.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Guardrails.MaxInputLength)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_EnvOverrides_SessionAndToggles(t *testing.T) {
	t.Setenv("PARLEY_CONTEXT_MESSAGES", "3")
	t.Setenv("PARLEY_PREVIEW_LENGTH", "40")
	t.Setenv("PARLEY_CONTENT_FILTER", "0")
	t.Setenv("PARLEY_PII_DETECTION", "false")
	t.Setenv("PARLEY_TOXICITY_FILTER", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Session.ContextMessages)
	assert.Equal(t, 40, cfg.Session.PreviewLength)
	assert.False(t, cfg.Guardrails.ContentFilterEnabled())
	assert.False(t, cfg.Guardrails.PIIDetectionEnabled())
	assert.True(t, cfg.Guardrails.ToxicityFilterEnabled())
}

func TestLoad_EnvOverride_BadBool_Ignored(t *testing.T) {
	t.Setenv("PARLEY_PII_DETECTION", "nope")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.True(t, cfg.Guardrails.PIIDetectionEnabled())
}

func TestLoad_EnvOverride_BadInt_Ignored(t *testing.T) {
	t.Setenv("PARLEY_SESSION_TIMEOUT", "soon")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 3600, cfg.Session.TimeoutSeconds)
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_BadBackend(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = "redis"

	issues := Validate(&cfg)
	require.Len(t, issues, 1)
	assert.Equal(t, "store.backend", issues[0].Path)
}

func TestValidate_NegativeValues(t *testing.T) {
	cfg := Defaults()
	cfg.Session.TimeoutSeconds = -1
	cfg.Guardrails.MaxInputLength = -5

	issues := Validate(&cfg)
	require.Len(t, issues, 2)

	paths := []string{issues[0].Path, issues[1].Path}
	assert.Contains(t, paths, "session.timeoutSeconds")
	assert.Contains(t, paths, "guardrails.maxInputLength")
}

func TestValidate_BadLogging(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	cfg.Logging.ConsoleStyle = "fancy"

	issues := Validate(&cfg)
	assert.Len(t, issues, 2)
}

func TestResolvePaths_Home(t *testing.T) {
	base := t.TempDir()
	t.Setenv("PARLEY_HOME", base)

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(base, "data", "sessions.db"), paths.Sessions)
	assert.Equal(t, filepath.Join(base, "logs"), paths.Logs)
}

func TestEnsureDirs(t *testing.T) {
	t.Setenv("PARLEY_HOME", filepath.Join(t.TempDir(), "parley"))

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())

	for _, d := range []string{paths.Base, paths.Data, paths.Logs} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestParseConfigPath(t *testing.T) {
	parts, err := ParseConfigPath("store.backend")
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "backend"}, parts)

	_, err = ParseConfigPath("")
	assert.Error(t, err)

	_, err = ParseConfigPath("store..backend")
	assert.Error(t, err)

	_, err = ParseConfigPath("__proto__.polluted")
	assert.Error(t, err)
}

func TestValueAtPath(t *testing.T) {
	raw := map[string]any{}

	SetValueAtPath(raw, []string{"store", "backend"}, "memory")
	val, ok := GetValueAtPath(raw, []string{"store", "backend"})
	require.True(t, ok)
	assert.Equal(t, "memory", val)

	_, ok = GetValueAtPath(raw, []string{"store", "missing"})
	assert.False(t, ok)

	assert.True(t, UnsetValueAtPath(raw, []string{"store", "backend"}))
	assert.False(t, UnsetValueAtPath(raw, []string{"store", "backend"}))
}

func TestSaveLoadRaw_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	raw := map[string]any{"store": map[string]any{"backend": "memory"}}
	require.NoError(t, SaveRaw(path, raw))

	got, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(got, []string{"store", "backend"})
	require.True(t, ok)
	assert.Equal(t, "memory", val)
}

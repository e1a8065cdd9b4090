package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/soyeahso/parley/internal/config"
	"github.com/soyeahso/parley/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_CreatesHomeDirs(t *testing.T) {
	home := filepath.Join(t.TempDir(), "parley")
	t.Setenv("PARLEY_HOME", home)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"config", "path"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())

	for _, d := range []string{home, filepath.Join(home, "data"), filepath.Join(home, "logs")} {
		info, err := os.Stat(d)
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir())
	}
}

func TestLoadConfig_WarnsOnInvalidValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("store:\n  backend: redis\n"), 0o600))

	var buf bytes.Buffer
	log = logging.New(&buf, "warn")
	paths = config.Paths{Config: cfgPath, Sessions: filepath.Join(dir, "sessions.db")}

	cfg := loadConfig()

	// The value is kept (downstream falls back benignly) but warned about
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Contains(t, buf.String(), "store.backend")
}

func TestLoadConfig_DefaultsSessionsPath(t *testing.T) {
	dir := t.TempDir()

	log = logging.Nop()
	paths = config.Paths{
		Config:   filepath.Join(dir, "nope.yaml"),
		Sessions: filepath.Join(dir, "sessions.db"),
	}

	cfg := loadConfig()
	assert.Equal(t, paths.Sessions, cfg.Store.Path)
}

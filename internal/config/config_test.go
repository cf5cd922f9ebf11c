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
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "correlation_matrix.png", c.HeatmapPath)
	assert.Equal(t, 0.2, c.TestSize)
	assert.Equal(t, int64(42), c.Seed)
	assert.Equal(t, "skip", c.ConstantColumns)
	assert.Equal(t, 30*time.Second, c.FetchTimeout())
	assert.Equal(t, "127.0.0.1:8000", c.Addr())
	assert.NoError(t, c.Validate())
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte("seed: 7\nheatmap_path: out/corr.png\nserver_port: 9000\n"), 0o644))
	t.Setenv("TABLOOM_SERVER_PORT", "9100")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, int64(7), c.Seed)
	assert.Equal(t, "out/corr.png", c.HeatmapPath)
	assert.Equal(t, 9100, c.ServerPort)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	c.APIKey = "secret-key"
	c.ConstantColumns = "mark"
	require.NoError(t, Save(c, ""))

	info, err := os.Stat(filepath.Join(home, ".tabloom", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", again.APIKey)
	assert.Equal(t, "mark", again.ConstantColumns)
}

func TestValidate(t *testing.T) {
	base := Global{TestSize: 0.2, ConstantColumns: "skip"}
	require.NoError(t, base.Validate())

	bad := base
	bad.TestSize = 1
	assert.Error(t, bad.Validate())

	bad = base
	bad.ConstantColumns = "drop"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Delimiter = ";;"
	assert.Error(t, bad.Validate())
}

func TestDelimiterRune(t *testing.T) {
	for in, want := range map[string]rune{"": 0, "tab": '\t', ";": ';', "|": '|'} {
		c := Global{Delimiter: in}
		got, err := c.DelimiterRune()
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}

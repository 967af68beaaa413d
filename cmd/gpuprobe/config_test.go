package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig(nil, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestParseConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.toml")

	err := os.WriteFile(path, []byte(`
backend = "soft"
format = "rgba8unorm-srgb"
mips = true
power = "low"
`), 0o644)
	require.NoError(t, err)

	cfg, err := ParseConfig([]string{"-config", path, "-format", "bgra8unorm", "-verify", "-window", "-hold"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "soft", cfg.Backend)
	assert.True(t, cfg.Mips)
	assert.True(t, cfg.Verify)
	assert.True(t, cfg.Window)
	assert.True(t, cfg.Hold)

	// explicit flags win over the file
	assert.Equal(t, "bgra8unorm", cfg.Format)

	power, err := cfg.PowerPreference()
	require.NoError(t, err)
	assert.Equal(t, gputypes.PowerPreferenceLowPower, power)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]string{"-config", filepath.Join(t.TempDir(), "missing.toml")}, io.Discard)
	assert.Error(t, err)

	_, err = ParseConfig([]string{"-unknown"}, io.Discard)
	assert.Error(t, err)

	_, err = ParseConfig([]string{"extra"}, io.Discard)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("backend = "), 0o644))

	_, err = ParseConfig([]string{"-config", path}, io.Discard)
	assert.Error(t, err)
}

func TestConfigValues(t *testing.T) {
	_, err := Config{Power: "medium"}.PowerPreference()
	assert.Error(t, err)

	timeout, err := Config{Timeout: "250ms"}.TimeoutDuration()
	require.NoError(t, err)
	assert.EqualValues(t, 250_000_000, timeout)

	_, err = Config{Timeout: "soon"}.TimeoutDuration()
	assert.Error(t, err)
}

package client

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigRoundTrip(t *testing.T) {
	def := DefaultConfig()
	data, err := ConfigBytes(def)
	require.NoError(t, err)

	cfg, err := FromReader(bytes.NewReader(data), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, def, cfg)
}

func TestConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := "Endpoint = \"http://localhost:1234\"\nPageSize = 7\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := FromFile(path, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "http://localhost:1234", cfg.Endpoint)
	require.Equal(t, 7, cfg.PageSize)
	// fields absent from the file keep their defaults
	require.Equal(t, "vospace", cfg.Archive)

	_, err = FromFile(filepath.Join(dir, "missing.toml"), DefaultConfig())
	require.Error(t, err)
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("VOS_ENDPOINT", "http://override:8080")
	t.Setenv("VOS_PAGESIZE", "9")

	data, err := ConfigBytes(DefaultConfig())
	require.NoError(t, err)

	cfg, err := FromReader(bytes.NewReader(data), DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, "http://override:8080", cfg.Endpoint)
	require.Equal(t, 9, cfg.PageSize)
}

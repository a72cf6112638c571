package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMustLoadPathAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "env: local\n")

	cfg := MustLoadPath(path)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, ":5150", cfg.HTTP.Address)
	require.Equal(t, []string{"http://localhost:5173"}, cfg.HTTP.AllowedOrigins)
	require.NotEmpty(t, cfg.WebRTC.STUNServers)
	require.False(t, cfg.Room.ReapOnEmpty)
}

func TestMustLoadPathReadsValues(t *testing.T) {
	path := writeConfig(t, `env: prod
http:
  address: ":9000"
  allowed_origins:
    - "https://example.com"
webrtc:
  stun_servers:
    - "stun:stun.example.com:3478"
room:
  reap_on_empty: true
`)

	cfg := MustLoadPath(path)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, ":9000", cfg.HTTP.Address)
	require.Equal(t, []string{"https://example.com"}, cfg.HTTP.AllowedOrigins)
	require.Equal(t, []string{"stun:stun.example.com:3478"}, cfg.WebRTC.STUNServers)
	require.True(t, cfg.Room.ReapOnEmpty)
}

func TestMustLoadPathPanicsOnMissingFile(t *testing.T) {
	require.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  listen_addr: "127.0.0.1:9090"
  cert_file: /etc/streamrpc/cert.pem
  key_file: /etc/streamrpc/key.pem
  stream_pool_size: 64
  shutdown_timeout: 10s

debug:
  enabled: true
  listen_addr: "127.0.0.1:9091"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.ListenAddr)
	assert.Equal(t, "/etc/streamrpc/cert.pem", cfg.Server.CertFile)
	assert.Equal(t, "/etc/streamrpc/key.pem", cfg.Server.KeyFile)
	assert.Equal(t, 64, cfg.Server.StreamPoolSize)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, "127.0.0.1:9091", cfg.Debug.ListenAddr)
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server: {}\n"), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":8443", cfg.Server.ListenAddr)
	assert.Equal(t, 32, cfg.Server.StreamPoolSize)
	assert.True(t, cfg.Debug.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  listen_addr: "127.0.0.1:8080"
  stream_pool_size: 16
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	t.Setenv("STREAMRPC_SERVER__STREAM_POOL_SIZE", "128")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Server.StreamPoolSize)
}

func TestLoadRejectsMismatchedCertKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  listen_addr: "127.0.0.1:8080"
  cert_file: /etc/streamrpc/cert.pem
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	_, err = Load(configPath)
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TEMPORA_JWT_SECRET", testSecret)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "tempora.db", cfg.DatabasePath)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEMPORA_JWT_SECRET", testSecret)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
listen_addr: ":9090"
database_path: /var/lib/tempora/data.db
access_token_ttl: 30m
rate_limit:
  requests: 20
  window: 30s
log_level: debug
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/var/lib/tempora/data.db", cfg.DatabasePath)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 20, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Untouched fields keep their defaults.
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("TEMPORA_JWT_SECRET", testSecret)
	t.Setenv("TEMPORA_LISTEN_ADDR", ":7070")
	t.Setenv("TEMPORA_LOG_LEVEL", "warn")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`listen_addr: ":9090"`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("TEMPORA_JWT_SECRET", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt secret")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("TEMPORA_JWT_SECRET", "tooshort")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("TEMPORA_JWT_SECRET", testSecret)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToMockAPIInDev(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.True(t, cfg.API.Mock, "no base url means the in-process API")
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.GreaterOrEqual(t, len(cfg.Session.Secret), 32)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
server:
  address: ":9090"
api:
  base_url: https://api.example.com
  timeout: 5s
session:
  secret: 0123456789abcdef0123456789abcdef
storage:
  driver: sqlite
  path: /tmp/portal.db
`), 0o600))
	t.Setenv("INSURANCE_API_TIMEOUT", "2s")
	t.Setenv("INSURANCE_QUOTE_PERSIST_DRAFT", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.False(t, cfg.API.Mock)
	assert.Equal(t, 2*time.Second, cfg.API.Timeout, "env overrides the file")
	assert.True(t, cfg.Quote.PersistDraft)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("INSURANCE_ADDRESS=:7070\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("INSURANCE_ADDRESS") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INSURANCE_API_TIMEOUT", "soon")
	_, err := Load("")
	assert.ErrorContains(t, err, "INSURANCE_API_TIMEOUT")
}

func TestFinalizeRequiresSecretOutsideDev(t *testing.T) {
	cfg := Default()
	cfg.Env = "prod"
	assert.Error(t, cfg.finalize())

	cfg.Session.Secret = "short"
	assert.Error(t, cfg.finalize())
}

func TestFinalizeStorageDriver(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "redis"
	assert.Error(t, cfg.finalize())

	cfg = Default()
	cfg.Storage = StorageConfig{Driver: "SQLite"}
	assert.Error(t, cfg.finalize(), "sqlite needs a path")
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := Default()
	cfg.API.Key = "api-key-value"
	cfg.Session.Secret = "session-secret-value-0123456789ab"
	out := cfg.String()
	assert.NotContains(t, out, "api-key-value")
	assert.NotContains(t, out, "session-secret-value")
	assert.Contains(t, out, "***")
}

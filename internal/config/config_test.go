package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-tod/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{config.EnvConfigPath, config.EnvAPIKey, config.EnvBaseURL, config.EnvModel, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", cfg.AI.Model)
	require.Equal(t, 4, cfg.AI.MaxRetries)
	require.Equal(t, time.Second, cfg.AI.InitialBackoff)
	require.Equal(t, 120*time.Second, cfg.AI.Timeout)
	require.True(t, cfg.AI.Preflight)
	require.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "tod.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ai:
  apiKey: from-file
  model: gpt-4o-mini
  maxRetries: 2
  initialBackoff: 500ms
  preflight: false
input:
  path: controls.xlsx
  sheet: Controls
log:
  level: debug
  file: tod_analysis.log
server:
  port: 9090
  apiKeys:
    acme: secret
database:
  driver: postgres
  host: db
  port: 5432
  user: tod
  password: pw
  name: tod
`), 0o600))
	t.Setenv(config.EnvAPIKey, "from-env")
	t.Setenv(config.EnvModel, "gpt-4-turbo")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.AI.APIKey)
	require.Equal(t, "gpt-4-turbo", cfg.AI.Model)
	require.Equal(t, 2, cfg.AI.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.AI.InitialBackoff)
	require.Equal(t, 60*time.Second, cfg.AI.MaxBackoff)
	require.False(t, cfg.AI.Preflight)
	require.Equal(t, "Controls", cfg.Input.Sheet)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, map[string]string{"acme": "secret"}, cfg.Server.APIKeys)
	require.Equal(t, "host=db port=5432 user=tod password=pw dbname=tod sslmode=disable", cfg.PostgresDSN())
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvPath(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "env.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai:\n  model: gpt-4\n"), 0o600))
	t.Setenv(config.EnvConfigPath, path)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "gpt-4", cfg.AI.Model)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	require.ErrorContains(t, cfg.Validate(), config.EnvAPIKey)

	cfg.AI.APIKey = "sk-test"
	require.NoError(t, cfg.Validate())

	cfg.AI.MaxRetries = -1
	cfg.Database.Driver = "sqlite"
	err := cfg.Validate()
	require.ErrorContains(t, err, "maxRetries")
	require.ErrorContains(t, err, "sqlite")
}

func TestMySQLDSN(t *testing.T) {
	cfg := config.Default()
	cfg.Database.User, cfg.Database.Password = "tod", "pw"
	cfg.Database.Host, cfg.Database.Port, cfg.Database.Name = "localhost", 3306, "tod"
	require.Equal(t, "tod:pw@tcp(localhost:3306)/tod?parseTime=true&charset=utf8mb4&loc=UTC", cfg.MySQLDSN())
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoad_YAMLPartialIsNormalized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sync:
  endpoint: "  https://sync.example.com  "
server:
  backend: GCS
  sync_key: s3cret
gcs:
  bucket: meet-bucket
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sync.example.com", cfg.Sync.Endpoint)
	assert.Equal(t, 8*time.Second, cfg.Sync.Timeout())
	assert.Equal(t, "gcs", cfg.Server.Backend)
	assert.Equal(t, DefaultFilePath, cfg.Server.FilePath)
	assert.Equal(t, DefaultBranch, cfg.Server.Branch)
	assert.Equal(t, "file", cfg.Store.Driver)
	require.NoError(t, cfg.ValidateServer())
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[store]
driver = "badger"
path = "/tmp/meetdays"

[sync]
endpoint = "http://127.0.0.1:8787"
timeout_seconds = 3
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "badger", cfg.Store.Driver)
	assert.Equal(t, "/tmp/meetdays", cfg.Store.Path)
	assert.Equal(t, 3*time.Second, cfg.Sync.Timeout())
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync: [unterminated"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Sync.Endpoint = "https://sync.example.com"
			cfg.GitHub.Owner = "me"
			require.NoError(t, cfg.Save(path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sync.Endpoint = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateServer(), "github backend without owner/repo")

	cfg.Server.Backend = "memory"
	assert.NoError(t, cfg.ValidateServer())
}

func TestNormalizeLogLevel(t *testing.T) {
	for in, want := range map[string]string{"": "info", "DEBUG": "debug", " Warning ": "warn", "warn": "warn", "Error": "error"} {
		cfg := DefaultConfig()
		cfg.Log.Level = in
		cfg.Normalize()
		assert.Equal(t, want, cfg.Log.Level, in)
		assert.NoError(t, cfg.Validate(), in)
	}

	cfg := DefaultConfig()
	cfg.Log.Level = "loud"
	cfg.Normalize()
	assert.Error(t, cfg.Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"MEETDAYS_SYNC_URL":     "https://sync.example.com",
		"MEETDAYS_SYNC_KEY":     "client-key",
		"MEETDAYS_SYNC_TIMEOUT": "2",
		"SYNC_KEY":              "server-key",
		"GH_OWNER":              "octo",
		"GH_REPO":               "days",
		"GH_TOKEN":              "tok",
		"GH_FILE_PATH":          "meet/days.json",
		"GH_BRANCH":             "",
	}
	cfg := DefaultConfig()
	ApplyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "https://sync.example.com", cfg.Sync.Endpoint)
	assert.Equal(t, "client-key", cfg.Sync.Key)
	assert.Equal(t, 2*time.Second, cfg.Sync.Timeout())
	assert.Equal(t, "server-key", cfg.Server.SyncKey)
	assert.Equal(t, "octo", cfg.GitHub.Owner)
	assert.Equal(t, "days", cfg.GitHub.Repo)
	assert.Equal(t, "tok", cfg.GitHub.Token)
	assert.Equal(t, "meet/days.json", cfg.Server.FilePath)
	assert.Equal(t, DefaultBranch, cfg.Server.Branch)
	require.NoError(t, cfg.ValidateServer())
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MEETDAYS_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("MEETDAYS_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("MEETDAYS_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("MEETDAYS_TEST_DOTENV"))
}

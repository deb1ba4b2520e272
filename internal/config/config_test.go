package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Summary.Model, cfg.Summary.Model)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoadFileReadsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[notion]
api_key = "file-key"
database_id = "file-db"
type_options = ["Tech", "News"]

[comments]
min_chars = 20
`), 0600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Notion.APIKey)
	assert.Equal(t, []string{"Tech", "News"}, cfg.Notion.TypeOptions)
	assert.Equal(t, 20, cfg.Comments.MinChars)
	// untouched sections keep defaults
	assert.Equal(t, "@every 5m", cfg.Summary.Schedule)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	t.Setenv(EnvNotionAPIKey, "env-key")
	t.Setenv(EnvNotionDatabaseID, "env-db")
	t.Setenv(EnvDeepSeekAPIKey, "env-ds")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	creds := cfg.Credentials()
	assert.Equal(t, "env-key", creds.APIKey)
	assert.Equal(t, "env-db", creds.DatabaseID)
	assert.Equal(t, "env-ds", cfg.Summary.APIKey)
	assert.NoError(t, creds.Validate())
}

func TestLoadFileRejectsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[notion\napi_key ="), 0600))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

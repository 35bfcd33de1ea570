package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Storage.DataDir)
	assert.Equal(t, "https://api.notion.com/v1", cfg.Notion.APIBase)
	assert.Equal(t, 3.0, cfg.Notion.RequestsPerSec)
	assert.Equal(t, 5, cfg.HTTP.Retry.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.HTTP.Retry.BackoffBase)
	assert.Equal(t, 90*time.Second, cfg.HTTP.Retry.BackoffCap)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadExpandsEnvInYaml(t *testing.T) {
	t.Setenv("TEST_NOTION_TOKEN", "secret-token")
	path := writeConfig(t, `
notion:
  enabled: true
  token: ${TEST_NOTION_TOKEN}
  database_id: db-123
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", cfg.Notion.Token)
	assert.Equal(t, "db-123", cfg.Notion.DatabaseID)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("DOC_ASSIST_DATA_DIR", "/tmp/override")
	t.Setenv("DOC_ASSIST_NOTION_SYNC_ENABLED", "true")
	path := writeConfig(t, `
storage:
  data_dir: /tmp/from-file
notion:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.Storage.DataDir)
	assert.True(t, cfg.Notion.Enabled)
}

func TestValidateSync(t *testing.T) {
	cfg := &Config{}
	cfg.setDefaults()
	require.Error(t, cfg.ValidateSync(), "disabled sync must be rejected")

	cfg.Notion.Enabled = true
	require.Error(t, cfg.ValidateSync(), "missing token must be rejected")

	cfg.Notion.Token = "tok"
	require.Error(t, cfg.ValidateSync(), "missing database id must be rejected")

	cfg.Notion.DatabaseID = "db"
	assert.NoError(t, cfg.ValidateSync())
}

func TestStoragePaths(t *testing.T) {
	s := StorageConfig{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "index.json"), s.IndexPath())
	assert.Equal(t, filepath.Join("/data", "papers"), s.PapersDir())
	assert.Equal(t, filepath.Join("/data", "audio"), s.AudioDir())
}

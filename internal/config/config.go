package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Storage  StorageConfig `yaml:"storage"`
	Notion   NotionConfig  `yaml:"notion"`
	HTTP     HTTPConfig    `yaml:"http"`
	Sync     SyncConfig    `yaml:"sync"`
	LogLevel string        `yaml:"log_level"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

func (s StorageConfig) IndexPath() string {
	return filepath.Join(s.DataDir, "index.json")
}

func (s StorageConfig) PapersDir() string {
	return filepath.Join(s.DataDir, "papers")
}

func (s StorageConfig) AudioDir() string {
	return filepath.Join(s.DataDir, "audio")
}

func (s StorageConfig) SourcesDir() string {
	return filepath.Join(s.DataDir, "pdfs")
}

type NotionConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Token          string  `yaml:"token"`
	DatabaseID     string  `yaml:"database_id"`
	APIBase        string  `yaml:"api_base"`
	Version        string  `yaml:"version"`
	ArchiveRemote  bool    `yaml:"archive_remote"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Retry   RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	BackoffCap  time.Duration `yaml:"backoff_cap"`
}

type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file: defaults plus environment are enough.
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DOC_ASSIST_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("DOC_ASSIST_NOTION_TOKEN"); v != "" {
		c.Notion.Token = v
	}
	if v := os.Getenv("DOC_ASSIST_NOTION_DATABASE_ID"); v != "" {
		c.Notion.DatabaseID = v
	}
	if v := os.Getenv("DOC_ASSIST_NOTION_SYNC_ENABLED"); v != "" {
		c.Notion.Enabled = v == "true" || v == "1" || v == "yes"
	}
}

func (c *Config) setDefaults() {
	if c.Storage.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.Storage.DataDir = filepath.Join(home, ".doc-assistant")
	}
	if c.Notion.APIBase == "" {
		c.Notion.APIBase = "https://api.notion.com/v1"
	}
	if c.Notion.Version == "" {
		c.Notion.Version = "2022-06-28"
	}
	if c.Notion.RequestsPerSec == 0 {
		c.Notion.RequestsPerSec = 3
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 60 * time.Second
	}
	if c.HTTP.Retry.MaxRetries == 0 {
		c.HTTP.Retry.MaxRetries = 5
	}
	if c.HTTP.Retry.BackoffBase == 0 {
		c.HTTP.Retry.BackoffBase = 2 * time.Second
	}
	if c.HTTP.Retry.BackoffCap == 0 {
		c.HTTP.Retry.BackoffCap = 90 * time.Second
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = 15 * time.Minute
	}
	if c.Sync.RunTimeout == 0 {
		c.Sync.RunTimeout = 10 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// ValidateSync reports the configuration errors that must fail a sync
// invocation before any action executes.
func (c *Config) ValidateSync() error {
	if !c.Notion.Enabled {
		return errors.New("notion sync is disabled; set notion.enabled or DOC_ASSIST_NOTION_SYNC_ENABLED")
	}
	if c.Notion.Token == "" {
		return errors.New("notion token is required; set notion.token or DOC_ASSIST_NOTION_TOKEN")
	}
	if c.Notion.DatabaseID == "" {
		return errors.New("notion database id is required; set notion.database_id or DOC_ASSIST_NOTION_DATABASE_ID")
	}
	return nil
}

func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.PapersDir(), c.Storage.AudioDir(), c.Storage.SourcesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

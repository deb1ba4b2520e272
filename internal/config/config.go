package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ibeckermayer/x2notion/internal/types"
)

const appName = "x2notion"

// Environment variables that override secrets from the config file
const (
	EnvNotionAPIKey     = "NOTION_API_KEY"
	EnvNotionDatabaseID = "NOTION_DATABASE_ID"
	EnvDeepSeekAPIKey   = "DEEPSEEK_API_KEY"
)

// Config holds all application configuration
type Config struct {
	Version  int            `toml:"version"`
	Notion   NotionConfig   `toml:"notion"`
	Scraping ScrapingConfig `toml:"scraping"`
	Comments CommentsConfig `toml:"comments"`
	Summary  SummaryConfig  `toml:"summary"`
	Server   ServerConfig   `toml:"server"`
}

type NotionConfig struct {
	APIKey      string   `toml:"api_key"`
	DatabaseID  string   `toml:"database_id"`
	TypeOptions []string `toml:"type_options"`
	BaseURL     string   `toml:"base_url"`
	Version     string   `toml:"version"`
	RateLimit   float64  `toml:"rate_limit"`
}

type ScrapingConfig struct {
	Headless       bool `toml:"headless"`
	TimeoutSeconds int  `toml:"timeout_seconds"`
	SettleMillis   int  `toml:"settle_millis"`
	Concurrency    int  `toml:"concurrency"`
}

type CommentsConfig struct {
	Include  bool `toml:"include"`
	MinChars int  `toml:"min_chars"`
}

type SummaryConfig struct {
	Enabled    bool   `toml:"enabled"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	Schedule   string `toml:"schedule"`
	MaxRetries int    `toml:"max_retries"`
	Property   string `toml:"property"`
}

type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	SubmitRPS      float64  `toml:"submit_rps"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Notion: NotionConfig{
			TypeOptions: []string{},
			BaseURL:     "https://api.notion.com/v1",
			Version:     "2022-06-28",
			RateLimit:   3,
		},
		Scraping: ScrapingConfig{
			Headless:       true,
			TimeoutSeconds: 60,
			SettleMillis:   1500,
			Concurrency:    2,
		},
		Comments: CommentsConfig{
			Include:  true,
			MinChars: 10,
		},
		Summary: SummaryConfig{
			Enabled:    true,
			BaseURL:    "https://api.deepseek.com/v1",
			Model:      "deepseek-chat",
			Schedule:   "@every 5m",
			MaxRetries: 3,
			Property:   "Comments",
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			AllowedOrigins: []string{"chrome-extension://*", "https://x.com", "https://twitter.com"},
			SubmitRPS:      2,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the directory for the database, cookies and debug snapshots
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, appName), nil
}

// DatabasePath returns the sqlite file holding save records and the summary queue
func DatabasePath() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "x2notion.db"), nil
}

// Load reads config from the default location, writing defaults on first run
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads config from path. A missing file is created with defaults.
// Environment overrides are applied after decoding.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
		if err := cfg.SaveFile(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvNotionAPIKey); v != "" {
		c.Notion.APIKey = v
	}
	if v := os.Getenv(EnvNotionDatabaseID); v != "" {
		c.Notion.DatabaseID = v
	}
	if v := os.Getenv(EnvDeepSeekAPIKey); v != "" {
		c.Summary.APIKey = v
	}
}

// Credentials returns the Notion credentials
func (c *Config) Credentials() types.Credentials {
	return types.Credentials{APIKey: c.Notion.APIKey, DatabaseID: c.Notion.DatabaseID}
}

// ScrapeTimeout is the per-page capture timeout
func (c *Config) ScrapeTimeout() time.Duration {
	if c.Scraping.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Scraping.TimeoutSeconds) * time.Second
}

// Save writes config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes config to path with owner-only permissions, since it holds API keys
func (c *Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

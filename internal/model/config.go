package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIConfig holds the connection settings for the task REST API.
type APIConfig struct {
	// BaseURL is the root URL of the API (e.g., http://localhost:8080).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// PageSize is the page size used when listing tasks.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`
}

// BoardConfig holds board behavior settings.
type BoardConfig struct {
	// RestoreStatus is the column a task is reopened into when restored
	// from history.
	RestoreStatus string `mapstructure:"restore_status" yaml:"restore_status"`

	// PollIntervalSec is how often the board is refreshed in the background.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`

	// DefaultSort is the sort mode the board opens with.
	DefaultSort string `mapstructure:"default_sort" yaml:"default_sort"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// CacheConfig controls the local snapshot cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the log file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Path  string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Board   BoardConfig   `mapstructure:"board" yaml:"board"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// RestoreStatusValue parses Board.RestoreStatus, falling back to TODO.
func (c *AppConfig) RestoreStatusValue() Status {
	s, err := ParseStatus(c.Board.RestoreStatus)
	if err != nil {
		return StatusTodo
	}
	return s
}

// configDir returns ~/.config/taskboard.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "http://localhost:8080",
			TimeoutSec: 15,
			PageSize:   100,
		},
		Board: BoardConfig{
			RestoreStatus:   StatusTodo.String(),
			PollIntervalSec: 60,
			DefaultSort:     "manual",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
		Cache: CacheConfig{
			Enabled: true,
			Path:    filepath.Join(configDir(), "cache.db"),
		},
		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(configDir(), "taskboard.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with TASKBOARD_ override file values, and
// a .env file in the working directory is loaded first if present. A
// missing config file yields the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TASKBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api.base_url", def.API.BaseURL)
	v.SetDefault("api.timeout_sec", def.API.TimeoutSec)
	v.SetDefault("api.page_size", def.API.PageSize)
	v.SetDefault("board.restore_status", def.Board.RestoreStatus)
	v.SetDefault("board.poll_interval_sec", def.Board.PollIntervalSec)
	v.SetDefault("board.default_sort", def.Board.DefaultSort)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("cache.enabled", def.Cache.Enabled)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.path", def.Log.Path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// TASKBOARD_API_URL is the short form documented for the API address.
	if url := os.Getenv("TASKBOARD_API_URL"); url != "" {
		cfg.API.BaseURL = url
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if _, err := ParseStatus(cfg.Board.RestoreStatus); err != nil {
		return nil, fmt.Errorf("board.restore_status: %w", err)
	}
	if cfg.API.PageSize <= 0 {
		cfg.API.PageSize = def.API.PageSize
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("board", cfg.Board)
	v.Set("display", cfg.Display)
	v.Set("cache", cfg.Cache)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

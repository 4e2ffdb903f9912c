// Package config provides configuration management for the application.
// Values are read from environment variables (optionally via a .env file)
// and an optional YAML config file, using viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/milesbot/milesbot/internal/logger"
)

// Configuration errors.
var (
	ErrMissingTelegramToken = errors.New("TELEGRAM_BOT_TOKEN is required")
	ErrMissingTelegramChat  = errors.New("TELEGRAM_CHAT_ID is required")
	ErrInvalidMinBonus      = errors.New("MIN_BONUS must be positive")
)

// Defaults applied when neither the environment nor the config file set a value.
const (
	DefaultMinBonus      = 80
	DefaultSourcesFile   = "sources.yaml"
	DefaultSeenFile      = "seen.json"
	DefaultHistoryDB     = "milesbot.db"
	DefaultScrapeTimeout = 30 * time.Second
	DefaultServerAddress = ":8080"
)

// Telegram holds chat transport credentials.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Scan holds pipeline tuning knobs.
type Scan struct {
	// MinBonus is the minimum bonus percentage worth alerting on.
	MinBonus int `mapstructure:"min_bonus"`
	// ScrapeTimeout bounds a single plugin or source fetch.
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout"`
	// PluginsEnabled is the comma-separated plugin allow-list.
	// Unset means all plugins; set-but-empty means none.
	PluginsEnabled string `mapstructure:"plugins_enabled"`
	// PluginsEnabledSet records whether the allow-list was set at all.
	PluginsEnabledSet bool `mapstructure:"-"`
}

// Storage holds store locations and connection strings.
type Storage struct {
	// SourcesFile is the YAML source registry path.
	SourcesFile string `mapstructure:"sources_file"`
	// RedisURL is the optional shared seen-set store. Empty means file only.
	RedisURL string `mapstructure:"redis_url"`
	// SeenFile is the file-backed seen-set fallback path.
	SeenFile string `mapstructure:"seen_file"`
	// HistoryDB is the SQLite promotion history path. Empty disables history.
	HistoryDB string `mapstructure:"history_db"`
}

// Server holds the HTTP status server configuration.
type Server struct {
	Address string `mapstructure:"address"`
}

// Config represents the application configuration.
type Config struct {
	Telegram Telegram      `mapstructure:"telegram"`
	Scan     Scan          `mapstructure:"scan"`
	Storage  Storage       `mapstructure:"storage"`
	Server   Server        `mapstructure:"server"`
	Logging  logger.Config `mapstructure:"logging"`
}

// Load reads configuration from the environment and an optional config file.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.Scan.PluginsEnabledSet = v.IsSet("scan.plugins_enabled")
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills zero values with documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Scan.MinBonus == 0 {
		cfg.Scan.MinBonus = DefaultMinBonus
	}
	if cfg.Scan.ScrapeTimeout == 0 {
		cfg.Scan.ScrapeTimeout = DefaultScrapeTimeout
	}
	if cfg.Storage.SourcesFile == "" {
		cfg.Storage.SourcesFile = DefaultSourcesFile
	}
	if cfg.Storage.SeenFile == "" {
		cfg.Storage.SeenFile = DefaultSeenFile
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultServerAddress
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// ValidateCredentials checks the settings required before any scan or serve
// run may start. Commands that only touch the source registry skip this.
func (c *Config) ValidateCredentials() error {
	if c.Telegram.BotToken == "" {
		return ErrMissingTelegramToken
	}
	if c.Telegram.ChatID == "" {
		return ErrMissingTelegramChat
	}
	if c.Scan.MinBonus <= 0 {
		return ErrInvalidMinBonus
	}
	return nil
}

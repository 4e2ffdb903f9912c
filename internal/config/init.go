package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// newViper builds a viper instance wired to the environment and an optional
// config file. A missing config file is not an error; the environment alone
// is a complete configuration source.
func newViper() (*viper.Viper, error) {
	loadEnvFile()

	v := viper.New()
	v.AutomaticEnv()
	// An allow-list set to the empty string is meaningful (no plugins),
	// so empty env vars must register as set.
	v.AllowEmptyEnv(true)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	if err := bindEnvironmentVariables(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment variables: %w", err)
	}
	return v, nil
}

// loadEnvFile loads .env (ignores error if the file doesn't exist).
func loadEnvFile() {
	_ = godotenv.Load()
}

// bindEnvironmentVariables maps flat environment variable names onto the
// nested config keys. AutomaticEnv alone cannot do this because the env
// names do not carry the section prefix.
func bindEnvironmentVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"telegram.bot_token":   "TELEGRAM_BOT_TOKEN",
		"telegram.chat_id":     "TELEGRAM_CHAT_ID",
		"scan.min_bonus":       "MIN_BONUS",
		"scan.scrape_timeout":  "SCRAPE_TIMEOUT",
		"scan.plugins_enabled": "PLUGINS_ENABLED",
		"storage.sources_file": "SOURCES_FILE",
		"storage.redis_url":    "REDIS_URL",
		"storage.seen_file":    "SEEN_FILE",
		"storage.history_db":   "HISTORY_DB",
		"server.address":       "SERVER_ADDRESS",
		"logging.level":        "LOG_LEVEL",
		"logging.encoding":     "LOG_FORMAT",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

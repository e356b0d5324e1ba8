package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. BOARDNOTIFY_DATABASE_URL for database.url.
const EnvPrefix = "BOARDNOTIFY"

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span several fields.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if cfg.Mail.Transport == "ses" && cfg.Mail.FromAddress == "" {
		return fmt.Errorf("%w: mail.from_address is required for the ses transport", ErrInvalidConfig)
	}

	if _, err := cfg.Reminder.Location(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv can resolve it, including
// the keys that have no meaningful default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("reminder.enabled", true)
	v.SetDefault("reminder.dry_run", false)
	v.SetDefault("reminder.lookahead_days", 2)
	v.SetDefault("reminder.schedule", "daily at 09:00")
	v.SetDefault("reminder.trigger_secret", "")
	v.SetDefault("reminder.timezone", "UTC")
	v.SetDefault("reminder.delivery", "direct")
	v.SetDefault("reminder.app_url", "http://localhost:3000")

	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.schedule", "every 30 seconds")
	v.SetDefault("queue.send_timeout_seconds", 15)

	v.SetDefault("lock.backend", "postgres")
	v.SetDefault("lock.redis_url", "")
	v.SetDefault("lock.ttl_seconds", 300)

	v.SetDefault("mail.transport", "log")
	v.SetDefault("mail.from_address", "")
	v.SetDefault("mail.from_name", "Board")
	v.SetDefault("mail.aws_region", "")
}

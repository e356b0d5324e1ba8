package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Reminder ReminderConfig `mapstructure:"reminder" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Lock     LockConfig     `mapstructure:"lock"     validate:"required"`
	Mail     MailConfig     `mapstructure:"mail"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// Environment selects production-only behavior such as the fail-closed trigger.
	Environment string `mapstructure:"environment" validate:"required,oneof=development test staging production"`
}

// IsProduction reports whether the server runs in a production-like environment.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the settings used to authenticate callers of the
// status and enqueue endpoints. Tokens are issued by the main application
// with the same shared secret.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=1440"`
}

// ReminderConfig controls the reminder generator and its HTTP trigger.
type ReminderConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DryRun        bool   `mapstructure:"dry_run"`
	LookaheadDays int    `mapstructure:"lookahead_days" validate:"gte=0,lte=30"`
	Schedule      string `mapstructure:"schedule"       validate:"required"`
	// TriggerSecret is either the plain shared secret or its bcrypt hash.
	TriggerSecret string `mapstructure:"trigger_secret"`
	Timezone      string `mapstructure:"timezone"       validate:"required"`
	Delivery      string `mapstructure:"delivery"       validate:"required,oneof=direct queue"`
	AppURL        string `mapstructure:"app_url"        validate:"required,url"`
}

// Location resolves the configured time zone used to decide what "today" is.
func (c ReminderConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid reminder timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// QueueConfig controls the durable email queue processor.
type QueueConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	BatchSize          int    `mapstructure:"batch_size"           validate:"gt=0,lte=500"`
	MaxAttempts        int    `mapstructure:"max_attempts"         validate:"gt=0,lte=20"`
	Schedule           string `mapstructure:"schedule"             validate:"required"`
	SendTimeoutSeconds int    `mapstructure:"send_timeout_seconds" validate:"gt=0,lte=300"`
}

// SendTimeout returns the per-email transport timeout.
func (c QueueConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// LockConfig selects the backend for the named mutual-exclusion locks.
type LockConfig struct {
	Backend    string `mapstructure:"backend"     validate:"required,oneof=postgres redis memory"`
	RedisURL   string `mapstructure:"redis_url"   validate:"required_if=Backend redis"`
	TTLSeconds int    `mapstructure:"ttl_seconds" validate:"gt=0"`
}

// TTL returns the lease lifetime used by expiring lock backends.
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// MailConfig selects and configures the email transport.
type MailConfig struct {
	Transport   string `mapstructure:"transport"    validate:"required,oneof=log ses"`
	FromAddress string `mapstructure:"from_address" validate:"omitempty,email"`
	FromName    string `mapstructure:"from_name"`
	AWSRegion   string `mapstructure:"aws_region"`
}

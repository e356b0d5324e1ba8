// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the settings of the notification engine: queue processing,
// reminder generation, locking, mail transport and the HTTP shell.
package config

// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads middleware configuration using Koanf v2 with
// layered sources (highest priority wins):
//
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (STRAPI_URL, STRAPI_CONTENT_API_TOKEN,
//     STRAPI_USER_API_TOKEN, PORT, ...)
//
// The environment variable names match the ones the deployed middleware
// has always used, so an existing .env keeps working unchanged.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for the middleware process.
type Config struct {
	Strapi  StrapiConfig  `koanf:"strapi"`
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
}

// StrapiConfig describes the upstream Strapi content service and the two
// credential scopes used against it.
type StrapiConfig struct {
	// URL is the base URL of the Strapi instance, e.g. http://localhost:1337.
	URL string `koanf:"url" validate:"required,url"`

	// ContentAPIToken is the bearer token for content-scoped requests
	// (profiles, topics, sessions, classrooms, ...).
	ContentAPIToken string `koanf:"content_api_token"`

	// UserAPIToken is the bearer token for user-scoped requests
	// (the users-permissions plugin surface).
	UserAPIToken string `koanf:"user_api_token"`

	// Timeout bounds every upstream request.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxConns caps concurrent connections to Strapi. Requests beyond the
	// cap queue on the shared transport rather than fail.
	MaxConns int `koanf:"max_conns" validate:"gt=0"`
}

// ServerConfig holds the inbound HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// loaded first and then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Strapi: StrapiConfig{
			URL:             "http://localhost:1337",
			ContentAPIToken: "",
			UserAPIToken:    "",
			Timeout:         15 * time.Second,
			MaxConns:        32,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              3000,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration using go-playground/validator tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

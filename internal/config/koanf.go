// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where a config file is searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stay-middleware/config.yaml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envKeys maps the historically-used flat environment variable names to
// koanf paths. Only listed variables are honored; anything else in the
// process environment is ignored.
var envKeys = map[string]string{
	"STRAPI_URL":               "strapi.url",
	"STRAPI_CONTENT_API_TOKEN": "strapi.content_api_token",
	"STRAPI_USER_API_TOKEN":    "strapi.user_api_token",
	"STRAPI_TIMEOUT":           "strapi.timeout",
	"STRAPI_MAX_CONNS":         "strapi.max_conns",

	"HOST":                "server.host",
	"PORT":                "server.port",
	"SERVER_TIMEOUT":      "server.timeout",
	"CORS_ORIGINS":        "server.cors_origins",
	"RATE_LIMIT_REQS":     "server.rate_limit_reqs",
	"RATE_LIMIT_WINDOW":   "server.rate_limit_window",
	"RATE_LIMIT_DISABLED": "server.rate_limit_disabled",

	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",
}

// sliceKeys are koanf paths whose env value is a comma-separated list.
var sliceKeys = []string{"server.cors_origins"}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment variables have the highest priority. The transform
	// returns "" for unknown variables, which koanf skips.
	envProvider := env.Provider("", ".", func(s string) string {
		return envKeys[s]
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// processSliceFields converts comma-separated env strings into slices so
// unmarshaling into []string fields works.
func processSliceFields(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return err
		}
	}
	return nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

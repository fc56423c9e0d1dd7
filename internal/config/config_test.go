// Stay Middleware - API middleware between Stay clients and the Strapi content service
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func checkStringEqual(t *testing.T, got, want, field string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	checkNoError(t, err)

	checkStringEqual(t, cfg.Strapi.URL, "http://localhost:1337", "Strapi.URL")
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Strapi.Timeout != 15*time.Second {
		t.Errorf("Strapi.Timeout = %v, want 15s", cfg.Strapi.Timeout)
	}
	checkStringEqual(t, cfg.Logging.Level, "info", "Logging.Level")
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("Server.CORSOrigins = %v, want [*]", cfg.Server.CORSOrigins)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STRAPI_URL", "https://cms.stay.app")
	t.Setenv("STRAPI_CONTENT_API_TOKEN", "content-token")
	t.Setenv("STRAPI_USER_API_TOKEN", "user-token")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://app.stay.app, https://admin.stay.app")

	cfg, err := Load()
	checkNoError(t, err)

	checkStringEqual(t, cfg.Strapi.URL, "https://cms.stay.app", "Strapi.URL")
	checkStringEqual(t, cfg.Strapi.ContentAPIToken, "content-token", "Strapi.ContentAPIToken")
	checkStringEqual(t, cfg.Strapi.UserAPIToken, "user-token", "Strapi.UserAPIToken")
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	checkStringEqual(t, cfg.Logging.Level, "debug", "Logging.Level")
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Fatalf("Server.CORSOrigins = %v, want 2 entries", cfg.Server.CORSOrigins)
	}
	checkStringEqual(t, cfg.Server.CORSOrigins[0], "https://app.stay.app", "CORSOrigins[0]")
	checkStringEqual(t, cfg.Server.CORSOrigins[1], "https://admin.stay.app", "CORSOrigins[1]")
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("strapi:\n  url: http://cms.internal:1337\nserver:\n  port: 9090\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	checkNoError(t, err)

	checkStringEqual(t, cfg.Strapi.URL, "http://cms.internal:1337", "Strapi.URL")
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestEnvBeatsConfigFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("PORT", "8181")

	cfg, err := Load()
	checkNoError(t, err)

	if cfg.Server.Port != 8181 {
		t.Errorf("Server.Port = %d, want env override 8181", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Strapi.URL = "not a url" }},
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"zero timeout", func(c *Config) { c.Strapi.Timeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// clearEnv unsets every recognized env var so ambient environment does
// not leak into tests. t.Setenv registers restoration automatically.
func clearEnv(t *testing.T) {
	t.Helper()
	for name := range envKeys {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv(ConfigPathEnvVar, "")
	os.Unsetenv(ConfigPathEnvVar)
}

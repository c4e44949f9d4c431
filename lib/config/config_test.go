// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.HTTP.Listen != ":8080" {
		t.Errorf("expected listen=:8080, got %s", cfg.HTTP.Listen)
	}
	if cfg.Gateway.Prefix != "[/]socket" {
		t.Errorf("expected prefix=[/]socket, got %s", cfg.Gateway.Prefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when SWITCHBOARD_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "SWITCHBOARD_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_FromEnvironmentVariable(t *testing.T) {
	path := writeConfig(t, "switchboard.yaml", `
environment: staging
http:
  listen: 127.0.0.1:9000
gateway:
  call_timeout: 2s
  max_in_flight: 8
`)
	t.Setenv(EnvironmentVariable, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.HTTP.Listen != "127.0.0.1:9000" {
		t.Errorf("expected listen=127.0.0.1:9000, got %s", cfg.HTTP.Listen)
	}
	if cfg.Gateway.CallTimeout.Std() != 2*time.Second {
		t.Errorf("expected call_timeout=2s, got %s", cfg.Gateway.CallTimeout.Std())
	}
	if cfg.Gateway.MaxInFlight != 8 {
		t.Errorf("expected max_in_flight=8, got %d", cfg.Gateway.MaxInFlight)
	}
	// Unset fields keep their defaults.
	if cfg.Gateway.Prefix != "[/]socket" {
		t.Errorf("expected default prefix, got %s", cfg.Gateway.Prefix)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeConfig(t, "switchboard.jsonc", `{
  // Served alongside the gateway.
  "http": {
    "htdocs": "/srv/www",
    "redirects": {"/old": "/new",},
  },
  "debug": true,
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.HTTP.Htdocs != "/srv/www" {
		t.Errorf("expected htdocs=/srv/www, got %s", cfg.HTTP.Htdocs)
	}
	if cfg.HTTP.Redirects["/old"] != "/new" {
		t.Errorf("expected redirect /old -> /new, got %v", cfg.HTTP.Redirects)
	}
	if !cfg.Debug {
		t.Error("expected debug=true")
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "bad.yaml", "gateway:\n  call_timeout: soon\n")
	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantDebug  bool
		wantListen string
		wantLevel  string
	}{
		{
			name: "staging section applies",
			content: `
environment: staging
staging:
  http:
    listen: :9443
  log:
    level: warn
development:
  http:
    listen: :1
`,
			wantListen: ":9443",
			wantLevel:  "warn",
		},
		{
			name: "production defaults turn debug off",
			content: `
environment: production
debug: true
`,
			wantDebug:  false,
			wantListen: ":8080",
			wantLevel:  "info",
		},
		{
			name: "production section wins",
			content: `
environment: production
debug: false
production:
  debug: true
`,
			wantDebug:  true,
			wantListen: ":8080",
			wantLevel:  "info",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, "switchboard.yaml", test.content))
			if err != nil {
				t.Fatalf("LoadFile() failed: %v", err)
			}
			if cfg.Debug != test.wantDebug {
				t.Errorf("debug = %v, want %v", cfg.Debug, test.wantDebug)
			}
			if cfg.HTTP.Listen != test.wantListen {
				t.Errorf("listen = %q, want %q", cfg.HTTP.Listen, test.wantListen)
			}
			if cfg.Log.Level != test.wantLevel {
				t.Errorf("log level = %q, want %q", cfg.Log.Level, test.wantLevel)
			}
		})
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("SWITCHBOARD_TEST_ROOT", "/opt/switchboard")
	t.Setenv("SWITCHBOARD_TEST_UNSET", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${SWITCHBOARD_TEST_ROOT}/htdocs", "/opt/switchboard/htdocs"},
		{"${SWITCHBOARD_TEST_UNSET:-:8081}", ":8081"},
		{"${SWITCHBOARD_TEST_UNSET}", ""},
		{"plain", "plain"},
	}
	for _, test := range tests {
		if got := expandVars(test.input); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}

	cfg, err := Parse([]byte("http:\n  htdocs: ${SWITCHBOARD_TEST_ROOT}/www\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.HTTP.Htdocs != "/opt/switchboard/www" {
		t.Errorf("htdocs = %q, want expanded path", cfg.HTTP.Htdocs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"invalid environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"missing listen", func(c *Config) { c.HTTP.Listen = "" }, "http.listen"},
		{"relative redirect", func(c *Config) { c.HTTP.Redirects = map[string]string{"old": "/new"} }, "must start with /"},
		{"missing prefix", func(c *Config) { c.Gateway.Prefix = "" }, "gateway.prefix"},
		{"negative in-flight", func(c *Config) { c.Gateway.MaxInFlight = -1 }, "max_in_flight"},
		{"zero interval", func(c *Config) { c.Scheduler.Interval = 0 }, "scheduler.interval"},
		{"bad stats schedule", func(c *Config) { c.Scheduler.Stats = "every minute" }, "scheduler.stats"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := Default()
			test.modify(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error %q does not mention %q", err, test.wantErr)
			}
		})
	}
}

func TestLogLevel(t *testing.T) {
	cfg := Default()
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("default level = %v, want info", cfg.LogLevel())
	}
	cfg.Log.Level = "error"
	if cfg.LogLevel() != slog.LevelError {
		t.Errorf("level = %v, want error", cfg.LogLevel())
	}
	cfg.Debug = true
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("debug level = %v, want debug", cfg.LogLevel())
	}
}

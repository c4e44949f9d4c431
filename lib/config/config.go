// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/switchboard/lib/scheduler"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "SWITCHBOARD_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Duration is a time.Duration written as a Go duration string ("10s",
// "1m30s") in config files.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var text string
	if err := node.Decode(&text); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the switchboard server configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Debug enables request logging on the HTTP front and debug-level
	// logs.
	Debug bool `yaml:"debug"`

	HTTP      HTTPConfig      `yaml:"http"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides holds the fields an environment section may replace.
type Overrides struct {
	Debug *bool       `yaml:"debug,omitempty"`
	HTTP  *HTTPConfig `yaml:"http,omitempty"`
	Log   *LogConfig  `yaml:"log,omitempty"`
}

// HTTPConfig configures the HTTP front.
type HTTPConfig struct {
	// Listen is the TCP address to serve on.
	Listen string `yaml:"listen"`

	// Htdocs is a directory served as static files. Empty disables
	// static serving.
	Htdocs string `yaml:"htdocs"`

	// Redirects maps request paths to targets answered with 301.
	Redirects map[string]string `yaml:"redirects"`

	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
}

// GatewayConfig configures the connection gateway.
type GatewayConfig struct {
	// Prefix is the channel name and mount prefix. "[/]" reads as "/"
	// in the HTTP path.
	Prefix string `yaml:"prefix"`

	ReadLimit    int64    `yaml:"read_limit"`
	WriteTimeout Duration `yaml:"write_timeout"`

	// CallTimeout bounds each service invocation. Zero disables it.
	CallTimeout Duration `yaml:"call_timeout"`

	MaxInFlight    int      `yaml:"max_in_flight"`
	OriginPatterns []string `yaml:"origin_patterns"`
}

// SchedulerConfig configures the task scheduler.
type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`

	// Stats is a cron expression for the connection statistics task.
	// Empty disables the task.
	Stats string `yaml:"stats"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration used as the base for every load.
func Default() *Config {
	return &Config{
		Environment: Development,
		HTTP: HTTPConfig{
			Listen:            ":8080",
			ReadHeaderTimeout: Duration(10 * time.Second),
			ShutdownTimeout:   Duration(10 * time.Second),
		},
		Gateway: GatewayConfig{
			Prefix:       "[/]socket",
			ReadLimit:    1 << 20,
			WriteTimeout: Duration(10 * time.Second),
			MaxInFlight:  64,
		},
		Scheduler: SchedulerConfig{
			Interval: Duration(time.Second),
			Stats:    "* * * * *",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from the file named by SWITCHBOARD_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your switchboard config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, applies the matching
// environment section, and expands variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default. ext selects the format: ".json" and
// ".jsonc" are JSON with comments; anything else is YAML.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		// JSON is a subset of YAML, so once comments and trailing
		// commas are stripped the YAML decoder handles it with the
		// same field names.
		data = jsonc.ToJSON(data)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			debug := false
			overrides = &Overrides{Debug: &debug}
		}
	}
	if overrides == nil {
		return
	}

	if overrides.Debug != nil {
		c.Debug = *overrides.Debug
	}
	if http := overrides.HTTP; http != nil {
		if http.Listen != "" {
			c.HTTP.Listen = http.Listen
		}
		if http.Htdocs != "" {
			c.HTTP.Htdocs = http.Htdocs
		}
		if http.Redirects != nil {
			c.HTTP.Redirects = http.Redirects
		}
		if http.ReadHeaderTimeout != 0 {
			c.HTTP.ReadHeaderTimeout = http.ReadHeaderTimeout
		}
		if http.ShutdownTimeout != 0 {
			c.HTTP.ShutdownTimeout = http.ShutdownTimeout
		}
	}
	if log := overrides.Log; log != nil {
		if log.Level != "" {
			c.Log.Level = log.Level
		}
		if log.Format != "" {
			c.Log.Format = log.Format
		}
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func (c *Config) expandVariables() {
	c.HTTP.Listen = expandVars(c.HTTP.Listen)
	c.HTTP.Htdocs = expandVars(c.HTTP.Htdocs)
	for from, to := range c.HTTP.Redirects {
		c.HTTP.Redirects[from] = expandVars(to)
	}
}

// expandVars replaces ${VAR} and ${VAR:-default} with values from the
// environment.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]Environment{Development, Staging, Production}, c.Environment) {
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.HTTP.Listen == "" {
		errs = append(errs, errors.New("http.listen is required"))
	}
	for from := range c.HTTP.Redirects {
		if !strings.HasPrefix(from, "/") {
			errs = append(errs, fmt.Errorf("http.redirects: path %q must start with /", from))
		}
	}
	if c.Gateway.Prefix == "" {
		errs = append(errs, errors.New("gateway.prefix is required"))
	}
	if c.Gateway.ReadLimit < 0 {
		errs = append(errs, errors.New("gateway.read_limit must not be negative"))
	}
	if c.Gateway.MaxInFlight < 0 {
		errs = append(errs, errors.New("gateway.max_in_flight must not be negative"))
	}
	if c.Gateway.CallTimeout < 0 || c.Gateway.WriteTimeout < 0 {
		errs = append(errs, errors.New("gateway timeouts must not be negative"))
	}
	if c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("scheduler.interval must be positive"))
	}
	if c.Scheduler.Stats != "" {
		if _, err := scheduler.ParseSchedule(c.Scheduler.Stats); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.stats: %w", err))
		}
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// LogLevel returns the slog level for Log.Level, forced to debug when
// Debug is set.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

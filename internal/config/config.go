// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire daemon configuration. Values are resolved by viper
// with the usual precedence: explicit flags > environment (PUPPETRY_*) >
// config file > defaults.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Browser  BrowserConfig  `mapstructure:"browser" yaml:"browser"`
	Registry RegistryConfig `mapstructure:"registry" yaml:"registry"`
	Executor ExecutorConfig `mapstructure:"executor" yaml:"executor"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for console log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// ServerConfig covers the optional HTTP listener that sits beside the MCP
// stdio transport.
type ServerConfig struct {
	// HTTPAddr enables the HTTP listener when non-empty (e.g. ":9223").
	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
	// AuthSecret, when set, turns on bearer-token checks for every HTTP
	// route except the health probe. Bound to PUPPETRY_SERVER_AUTH_SECRET so
	// it stays out of config files.
	AuthSecret      string        `mapstructure:"auth_secret" yaml:"-"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// BrowserConfig holds daemon-wide defaults for new browser sessions. A
// session's open call may override the per-session fields; these values apply
// when the caller leaves them unset.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	ViewportWidth   int      `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight  int      `mapstructure:"viewport_height" yaml:"viewport_height"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	Proxy           string   `mapstructure:"proxy" yaml:"proxy"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string `mapstructure:"args" yaml:"args"`
	// DefaultVariant names the entry in Variants used when a session does not
	// ask for a specific browser.
	DefaultVariant string `mapstructure:"default_variant" yaml:"default_variant"`
	// Variants maps a browser variant name to an executable path. An empty
	// path means the driver locates the binary itself.
	Variants          map[string]string `mapstructure:"variants" yaml:"variants"`
	ConsoleBufferSize int               `mapstructure:"console_buffer_size" yaml:"console_buffer_size"`
}

// RegistryConfig tunes the session registry.
type RegistryConfig struct {
	MaxSessions int `mapstructure:"max_sessions" yaml:"max_sessions"`
	// IdleTimeout closes sessions untouched for this long; zero disables the
	// sweep.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	// DefaultPolicy picks the session returned for an empty identifier when
	// more than one is live: "most_recent" or "first_opened".
	DefaultPolicy string `mapstructure:"default_policy" yaml:"default_policy"`
}

// Default-session policies.
const (
	DefaultMostRecent  = "most_recent"
	DefaultFirstOpened = "first_opened"
)

// ExecutorConfig sets the per-kind action timeout defaults. A descriptor's
// own timeout override always wins.
type ExecutorConfig struct {
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ScriptTimeout     time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
}

// StorageConfig selects the scenario store backend.
type StorageConfig struct {
	// Backend is "files" or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Dir is the data root; scenario files live in Dir/scenarios, the sqlite
	// database at Dir/scenarios.db. Supports ~ expansion.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Storage backends.
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// PlaybackConfig tunes scenario replay.
type PlaybackConfig struct {
	// Pace inserts a minimum interval between replayed steps; zero replays at
	// full speed. A play call may override it.
	Pace time.Duration `mapstructure:"pace" yaml:"pace"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "puppetry")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Server --
	v.SetDefault("server.http_addr", "")
	v.SetDefault("server.shutdown_timeout", "15s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 720)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.default_variant", "chrome")
	v.SetDefault("browser.console_buffer_size", 500)

	// -- Registry --
	v.SetDefault("registry.max_sessions", 8)
	v.SetDefault("registry.idle_timeout", "0s")
	v.SetDefault("registry.default_policy", DefaultMostRecent)

	// -- Executor --
	v.SetDefault("executor.action_timeout", "10s")
	v.SetDefault("executor.navigation_timeout", "30s")
	v.SetDefault("executor.script_timeout", "20s")

	// -- Storage --
	v.SetDefault("storage.backend", BackendFiles)
	v.SetDefault("storage.dir", "~/.puppetry")

	// -- Playback --
	v.SetDefault("playback.pace", "0s")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static; failing to unmarshal them is a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Bind environment variables for sensitive data.
	v.BindEnv("server.auth_secret", "PUPPETRY_SERVER_AUTH_SECRET")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Registry.MaxSessions <= 0 {
		return fmt.Errorf("registry.max_sessions must be a positive integer")
	}
	switch c.Registry.DefaultPolicy {
	case DefaultMostRecent, DefaultFirstOpened:
	default:
		return fmt.Errorf("registry.default_policy must be %q or %q", DefaultMostRecent, DefaultFirstOpened)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}
	if c.Browser.ConsoleBufferSize <= 0 {
		return fmt.Errorf("browser.console_buffer_size must be a positive integer")
	}
	if c.Executor.ActionTimeout <= 0 || c.Executor.NavigationTimeout <= 0 || c.Executor.ScriptTimeout <= 0 {
		return fmt.Errorf("executor timeouts must be positive durations")
	}
	switch c.Storage.Backend {
	case BackendFiles, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be %q or %q", BackendFiles, BackendSQLite)
	}
	if c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir must not be empty")
	}
	if c.Playback.Pace < 0 {
		return fmt.Errorf("playback.pace must not be negative")
	}
	if secret := c.Server.AuthSecret; secret != "" && len(secret) < 32 {
		return fmt.Errorf("server.auth_secret must be at least 32 bytes")
	}
	return nil
}

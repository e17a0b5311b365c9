package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/vertextoedge/mediafs-sidecar/internal/adapter/remote"
)

// EnvPrefix is prepended to every environment override, e.g. MEDIAFS_SANDBOX_ROOT_DIR
const EnvPrefix = "MEDIAFS"

// Config represents the entire application configuration
type Config struct {
	Sandbox     SandboxConfig     `mapstructure:"sandbox" yaml:"sandbox"`
	HTTP        HTTPConfig        `mapstructure:"http" yaml:"http"`
	Fetch       FetchConfig       `mapstructure:"fetch" yaml:"fetch"`
	Journal     JournalConfig     `mapstructure:"journal" yaml:"journal"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance" yaml:"maintenance"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// SandboxConfig contains the managed directory tree settings
type SandboxConfig struct {
	RootDir string `mapstructure:"root_dir" yaml:"root_dir"`
}

// HTTPConfig contains HTTP server configuration
type HTTPConfig struct {
	BindAddr         string   `mapstructure:"bind_addr" yaml:"bind_addr"`
	ReadTimeout      string   `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     string   `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout      string   `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	CORSAllowOrigins []string `mapstructure:"cors_allow_origins" yaml:"cors_allow_origins"`
}

// FetchConfig contains remote download settings
type FetchConfig struct {
	BufferSizeKB int               `mapstructure:"buffer_size_kb" yaml:"buffer_size_kb"`
	Rules        []FetchRuleConfig `mapstructure:"rules" yaml:"rules"`
}

// FetchRuleConfig routes matching source URLs through a transport.
// Rules are evaluated in order; the first match wins.
type FetchRuleConfig struct {
	Name      string            `mapstructure:"name" yaml:"name"`
	Contains  string            `mapstructure:"contains" yaml:"contains,omitempty"`
	Host      string            `mapstructure:"host" yaml:"host,omitempty"`
	Proxy     string            `mapstructure:"proxy" yaml:"proxy,omitempty"`
	Headers   map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	Timeout   string            `mapstructure:"timeout" yaml:"timeout,omitempty"`
	RateLimit float64           `mapstructure:"rate_limit" yaml:"rate_limit,omitempty"`
	Breaker   bool              `mapstructure:"breaker" yaml:"breaker,omitempty"`
}

// JournalConfig contains operation journal settings
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	Retention     string `mapstructure:"retention" yaml:"retention"`
	RecentLimit   int    `mapstructure:"recent_limit" yaml:"recent_limit"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// MaintenanceConfig contains background job settings
type MaintenanceConfig struct {
	Schedule       string `mapstructure:"schedule" yaml:"schedule"`
	TempFileMaxAge string `mapstructure:"temp_file_max_age" yaml:"temp_file_max_age"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultFetchRules reproduces the built-in proxied source
func DefaultFetchRules() []FetchRuleConfig {
	return []FetchRuleConfig{
		{
			Name:     "javbus",
			Contains: "javbus",
			Proxy:    "http://127.0.0.1:7890",
			Headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
				"Referer":    "https://www.javbus.com/",
				"Accept":     "image/webp,image/apng,image/*,*/*;q=0.8",
			},
			Timeout: "30s",
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sandbox.root_dir", "./data")
	v.SetDefault("http.bind_addr", "0.0.0.0:3000")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "5m")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.cors_allow_origins", []string{"*"})
	v.SetDefault("fetch.buffer_size_kb", 256)
	v.SetDefault("fetch.rules", DefaultFetchRules())
	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", "./mediafs-sidecar.db")
	v.SetDefault("journal.retention", "720h")
	v.SetDefault("journal.recent_limit", 100)
	v.SetDefault("journal.busy_timeout_ms", 5000)
	v.SetDefault("maintenance.schedule", "@hourly")
	v.SetDefault("maintenance.temp_file_max_age", "1h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load loads configuration from configPath. An empty path looks for
// config.yaml in the working directory and falls back to defaults when
// there is none. Environment variables override both.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Sandbox.RootDir == "" {
		return fmt.Errorf("sandbox.root_dir is required")
	}

	if c.HTTP.BindAddr == "" {
		return fmt.Errorf("http.bind_addr is required")
	}
	for key, value := range map[string]string{
		"http.read_timeout":             c.HTTP.ReadTimeout,
		"http.write_timeout":            c.HTTP.WriteTimeout,
		"http.idle_timeout":             c.HTTP.IdleTimeout,
		"journal.retention":             c.Journal.Retention,
		"maintenance.temp_file_max_age": c.Maintenance.TempFileMaxAge,
	} {
		if err := validDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if c.Fetch.BufferSizeKB < 0 {
		return fmt.Errorf("fetch.buffer_size_kb must not be negative")
	}
	seen := make(map[string]bool, len(c.Fetch.Rules))
	for i, rule := range c.Fetch.Rules {
		if err := validDuration(rule.Timeout); err != nil {
			return fmt.Errorf("fetch.rules[%d]: invalid timeout: %w", i, err)
		}
		if err := rule.Rule().Validate(); err != nil {
			return fmt.Errorf("fetch.rules[%d]: %w", i, err)
		}
		if seen[rule.Name] {
			return fmt.Errorf("fetch.rules[%d]: duplicate name %q", i, rule.Name)
		}
		seen[rule.Name] = true
	}

	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}

	if c.Maintenance.Schedule != "" {
		if _, err := cron.ParseStandard(c.Maintenance.Schedule); err != nil {
			return fmt.Errorf("invalid maintenance.schedule: %w", err)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// Rule converts the config entry into a remote transport rule
func (r *FetchRuleConfig) Rule() remote.Rule {
	return remote.Rule{
		Name:      r.Name,
		Contains:  r.Contains,
		Host:      r.Host,
		Proxy:     r.Proxy,
		Headers:   r.Headers,
		Timeout:   r.GetTimeout(),
		RateLimit: r.RateLimit,
		Breaker:   r.Breaker,
	}
}

// GetRules converts every configured fetch rule, keeping their order
func (c *FetchConfig) GetRules() []remote.Rule {
	out := make([]remote.Rule, 0, len(c.Rules))
	for i := range c.Rules {
		out = append(out, c.Rules[i].Rule())
	}
	return out
}

// validDuration accepts empty strings, which fall back to defaults
func validDuration(s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, _ := time.ParseDuration(s)
	if d <= 0 {
		return fallback
	}
	return d
}

// GetTimeout returns the rule timeout, 0 when unset
func (r *FetchRuleConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(r.Timeout)
	return d
}

// GetBufferSize returns the stream copy buffer size in bytes
func (c *FetchConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 256 * 1024
	}
	return c.BufferSizeKB * 1024
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	return parseDuration(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the write timeout as time.Duration.
// Downloads run inside the request, so this bounds the slowest fetch.
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	return parseDuration(c.WriteTimeout, 5*time.Minute)
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	return parseDuration(c.IdleTimeout, 60*time.Second)
}

// GetRetention returns how long journal entries are kept.
// An explicit zero keeps them forever; unset falls back to 30 days.
func (c *JournalConfig) GetRetention() time.Duration {
	if c.Retention == "" {
		return 30 * 24 * time.Hour
	}
	d, err := time.ParseDuration(c.Retention)
	if err != nil || d < 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// GetRecentLimit returns the default number of entries for recent queries
func (c *JournalConfig) GetRecentLimit() int {
	if c.RecentLimit <= 0 {
		return 100
	}
	return c.RecentLimit
}

// GetTempFileMaxAge returns the age after which orphaned temp files are removed
func (c *MaintenanceConfig) GetTempFileMaxAge() time.Duration {
	return parseDuration(c.TempFileMaxAge, time.Hour)
}

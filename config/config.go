package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable configuration.
var ErrInvalid = errors.New("invalid configuration")

// Environment variables that override file values.
const (
	EnvAPIURL    = "STOREADMIN_API_URL"
	EnvAPIToken  = "STOREADMIN_API_TOKEN"
	EnvStoreID   = "STOREADMIN_STORE_ID"
	EnvRedisAddr = "STOREADMIN_REDIS_ADDR"
)

// APIConfig describes the admin REST API.
type APIConfig struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"`
	// TokenKeyring names the OS keyring service holding the token under
	// the user "token". It is read only when Token is empty.
	TokenKeyring string `json:"token_keyring,omitempty" yaml:"token_keyring,omitempty"`
	// Timeout bounds each request. Zero means no timeout.
	Timeout           Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	RequestsPerSecond float64  `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	Burst             int      `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// TableConfig holds table engine settings.
type TableConfig struct {
	PageSize int `json:"page_size" yaml:"page_size"`
}

// S3Config holds settings for the S3 asset backend.
type S3Config struct {
	Region string `json:"region" yaml:"region"`
	Bucket string `json:"bucket" yaml:"bucket"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	// Endpoint points at an S3-compatible service such as MinIO.
	Endpoint        string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	AccessKeyID     string `json:"access_key_id,omitempty" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `json:"secret_access_key,omitempty" yaml:"secret_access_key,omitempty"`
}

// AssetsConfig selects how record assets are removed.
type AssetsConfig struct {
	// Driver is "http" (the API's asset endpoint) or "s3".
	Driver string   `json:"driver" yaml:"driver"`
	S3     S3Config `json:"s3" yaml:"s3"`
}

// CleanupConfig selects the pending asset-deletion ledger.
type CleanupConfig struct {
	// Driver is "memory", "redis" or "sqlite".
	Driver      string `json:"driver" yaml:"driver"`
	RedisAddr   string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPrefix string `json:"redis_prefix,omitempty" yaml:"redis_prefix,omitempty"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File receives log output. Empty means stderr, except in the TUI
	// where empty discards.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// TracingConfig controls the OTLP exporter. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	ServiceName string `json:"service_name,omitempty" yaml:"service_name,omitempty"`
}

// Config is the storeadmin configuration file.
type Config struct {
	StoreID string        `json:"store_id,omitempty" yaml:"store_id,omitempty"`
	API     APIConfig     `json:"api" yaml:"api"`
	Table   TableConfig   `json:"table" yaml:"table"`
	Assets  AssetsConfig  `json:"assets" yaml:"assets"`
	Cleanup CleanupConfig `json:"cleanup" yaml:"cleanup"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		API:     APIConfig{BaseURL: "http://localhost:3000"},
		Table:   TableConfig{PageSize: 10},
		Assets:  AssetsConfig{Driver: "http"},
		Cleanup: CleanupConfig{Driver: "memory", RedisPrefix: "storeadmin:pending:", Concurrency: 4},
		Log:     LogConfig{Level: "info", Format: "text"},
		Tracing: TracingConfig{ServiceName: "storeadmin"},
	}
}

// LoadFromFile reads a YAML configuration on top of Default and applies
// environment overrides.
func LoadFromFile(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// Load returns LoadFromFile(path) when path is set, or Default with
// environment overrides otherwise.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	cfg := Default()
	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// Parse decodes YAML on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg.withDefaults(), nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookup(EnvAPIToken); ok && v != "" {
		c.API.Token = v
	}
	if v, ok := lookup(EnvStoreID); ok && v != "" {
		c.StoreID = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cleanup.RedisAddr = v
	}
}

// withDefaults fills zero values left by a partial file.
func (c *Config) withDefaults() *Config {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	if c.Table.PageSize <= 0 {
		c.Table.PageSize = d.Table.PageSize
	}
	if c.Assets.Driver == "" {
		c.Assets.Driver = d.Assets.Driver
	}
	if c.Cleanup.Driver == "" {
		c.Cleanup.Driver = d.Cleanup.Driver
	}
	if c.Cleanup.RedisPrefix == "" {
		c.Cleanup.RedisPrefix = d.Cleanup.RedisPrefix
	}
	if c.Cleanup.Concurrency <= 0 {
		c.Cleanup.Concurrency = d.Cleanup.Concurrency
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = d.Tracing.ServiceName
	}
	return c
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("%w: api.base_url %q must be an http(s) URL", ErrInvalid, c.API.BaseURL)
	}
	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: api.requests_per_second must not be negative", ErrInvalid)
	}
	switch c.Assets.Driver {
	case "http":
	case "s3":
		if c.Assets.S3.Region == "" || c.Assets.S3.Bucket == "" {
			return fmt.Errorf("%w: assets.s3 requires region and bucket", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown assets.driver %q", ErrInvalid, c.Assets.Driver)
	}
	switch c.Cleanup.Driver {
	case "memory":
	case "redis":
		if c.Cleanup.RedisAddr == "" {
			return fmt.Errorf("%w: cleanup.redis_addr is required for the redis driver", ErrInvalid)
		}
	case "sqlite":
		if c.Cleanup.SQLitePath == "" {
			return fmt.Errorf("%w: cleanup.sqlite_path is required for the sqlite driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown cleanup.driver %q", ErrInvalid, c.Cleanup.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Duration is a time.Duration that reads YAML strings such as "5s".
type Duration time.Duration

// UnmarshalYAML accepts a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

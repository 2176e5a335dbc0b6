// Package config provides configuration loading for the netops agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ethpandaops/netops/pkg/defaults"
)

// Config is the main configuration structure.
type Config struct {
	Run           RunConfig           `yaml:"run"`
	Runbooks      RunbooksConfig      `yaml:"runbooks"`
	Storage       StorageConfig       `yaml:"storage"`
	Actions       ActionsConfig       `yaml:"actions"`
	Observability ObservabilityConfig `yaml:"observability"`
	Server        ServerConfig        `yaml:"server"`
}

// RunConfig controls a workflow run.
type RunConfig struct {
	// Seed makes synthetic fixtures reproducible.
	Seed uint64 `yaml:"seed"`
	// DeviceCount is the number of synthetic devices to generate.
	DeviceCount int `yaml:"device_count"`
	// IncidentCount is the number of incidents sampled from the interfaces.
	IncidentCount int `yaml:"incident_count"`
	// FailureRate is the fraction of incidents marked for injected validation failure.
	FailureRate float64 `yaml:"failure_rate"`
	// Workers is the number of incidents processed concurrently.
	Workers int `yaml:"workers"`
	// LogPath, when set, receives every workflow event as a JSON line.
	LogPath string `yaml:"log_path,omitempty"`
}

// RunbooksConfig configures the runbook source.
type RunbooksConfig struct {
	// Path is an optional YAML file overriding the embedded runbooks.
	Path string `yaml:"path,omitempty"`
}

// StorageConfig holds the ticket sink configuration.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// ActionsConfig holds the device boundary policy for action execution.
type ActionsConfig struct {
	// Timeout bounds a single action attempt. Zero disables the timeout.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of retries after the first failed attempt.
	MaxRetries int `yaml:"max_retries"`
	// Backoff is the delay before the first retry; it doubles on each retry.
	Backoff time.Duration `yaml:"backoff"`
	// RateLimit throttles actions sent to devices.
	RateLimit RateLimitRule `yaml:"rate_limit"`
}

// RateLimitRule defines token bucket parameters.
type RateLimitRule struct {
	Enabled bool `yaml:"enabled"`
	// RequestsPerSecond is the sustained rate (token bucket fill rate).
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	// RequestsPerMinute is an alternative to RequestsPerSecond.
	// If both are set, RequestsPerSecond takes precedence.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	// BurstSize is the bucket capacity.
	BurstSize int `yaml:"burst_size"`
}

// GetRequestsPerSecond returns the effective requests per second rate.
func (r RateLimitRule) GetRequestsPerSecond() float64 {
	if r.RequestsPerSecond > 0 {
		return r.RequestsPerSecond
	}
	if r.RequestsPerMinute > 0 {
		return float64(r.RequestsPerMinute) / 60.0
	}
	return 1.0
}

// GetBurstSize returns the effective burst size.
func (r RateLimitRule) GetBurstSize() int {
	if r.BurstSize > 0 {
		return r.BurstSize
	}
	burst := int(r.GetRequestsPerSecond())
	if burst < 1 {
		return 1
	}
	return burst
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	Logging        LoggingConfig `yaml:"logging"`
	MetricsEnabled bool          `yaml:"metrics_enabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputPath string `yaml:"output_path,omitempty"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig throttles API clients by IP.
type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Default RateLimitRule `yaml:"default"`
	// PerRoute overrides Default for named routes such as "search".
	PerRoute map[string]RateLimitRule `yaml:"per_route,omitempty"`
	// TrustedProxies are IPs or CIDRs whose X-Forwarded-For is honored.
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`
}

// Address returns host:port.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load loads configuration from a YAML file with environment variable substitution.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "config.yaml"
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	substituted, err := substituteEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("substituting env vars: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)

	return cfg
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}

	return godotenv.Load(".env")
}

// envVarWithDefaultPattern matches ${VAR_NAME:-default} patterns.
var envVarWithDefaultPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} patterns with environment variable values.
// Lines that are comments (starting with #) are skipped.
func substituteEnvVars(content string) (string, error) {
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		lines[i] = envVarWithDefaultPattern.ReplaceAllStringFunc(line, func(match string) string {
			parts := envVarWithDefaultPattern.FindStringSubmatch(match)

			if value := os.Getenv(parts[1]); value != "" {
				return value
			}

			return parts[2]
		})
	}

	return strings.Join(lines, "\n"), nil
}

// ApplyDefaults sets default values for unset configuration fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Run.Seed == 0 {
		cfg.Run.Seed = defaults.Seed
	}

	if cfg.Run.DeviceCount == 0 {
		cfg.Run.DeviceCount = defaults.DeviceCount
	}

	if cfg.Run.IncidentCount == 0 {
		cfg.Run.IncidentCount = defaults.IncidentCount
	}

	if cfg.Run.Workers == 0 {
		cfg.Run.Workers = 1
	}

	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = defaults.DBPath
	}

	if cfg.Actions.Backoff == 0 {
		cfg.Actions.Backoff = 200 * time.Millisecond
	}

	if cfg.Observability.Logging.Level == "" {
		cfg.Observability.Logging.Level = "info"
	}

	if cfg.Observability.Logging.Format == "" {
		cfg.Observability.Logging.Format = "text"
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = defaults.ServerHost
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.ServerPort
	}
}

// MaxWorkers is the upper bound on concurrent incident workers.
const MaxWorkers = 64

// MaxActionRetries is the upper bound on actions.max_retries.
const MaxActionRetries = 10

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Run.FailureRate < 0 || c.Run.FailureRate > 1 {
		return errors.New("run.failure_rate must be between 0 and 1")
	}

	if c.Run.Workers < 1 || c.Run.Workers > MaxWorkers {
		return fmt.Errorf("run.workers must be between 1 and %d", MaxWorkers)
	}

	if c.Run.IncidentCount < 0 {
		return errors.New("run.incident_count cannot be negative")
	}

	if c.Actions.MaxRetries < 0 || c.Actions.MaxRetries > MaxActionRetries {
		return fmt.Errorf("actions.max_retries must be between 0 and %d", MaxActionRetries)
	}

	if c.Actions.Backoff < 0 {
		return errors.New("actions.backoff cannot be negative")
	}

	if c.Actions.Timeout < 0 {
		return errors.New("actions.timeout cannot be negative")
	}

	return nil
}

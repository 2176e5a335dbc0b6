package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expectError bool
	}{
		{
			name: "valid minimal config",
			content: `
run:
  seed: 7
`,
			expectError: false,
		},
		{
			name: "config with env substitution",
			content: `
run:
  workers: ${WORKERS:-4}
storage:
  db_path: ${DB_PATH:-/tmp/netops.db}
`,
			expectError: false,
		},
		{
			name: "failure rate above one",
			content: `
run:
  failure_rate: 1.5
`,
			expectError: true,
		},
		{
			name: "too many workers",
			content: `
run:
  workers: 65
`,
			expectError: true,
		},
		{
			name: "negative retries",
			content: `
actions:
  max_retries: -1
`,
			expectError: true,
		},
		{
			name:        "invalid yaml",
			content:     "run: [",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.content), 0644)
			require.NoError(t, err)

			os.Unsetenv("WORKERS")
			os.Unsetenv("DB_PATH")

			cfg, err := Load(configPath)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.NotNil(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestLoadWithEnvVars(t *testing.T) {
	content := `
run:
  workers: ${TEST_WORKERS:-2}
storage:
  db_path: ${TEST_DB_PATH:-fallback.db}
actions:
  timeout: 5s
  max_retries: 2
  rate_limit:
    enabled: true
    requests_per_minute: 120
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte(content), 0644)
	require.NoError(t, err)

	t.Setenv("TEST_WORKERS", "8")
	t.Setenv("TEST_DB_PATH", "custom.db")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Run.Workers)
	assert.Equal(t, "custom.db", cfg.Storage.DBPath)
	assert.Equal(t, 5*time.Second, cfg.Actions.Timeout)
	assert.Equal(t, 2, cfg.Actions.MaxRetries)
	assert.True(t, cfg.Actions.RateLimit.Enabled)
	assert.Equal(t, 2.0, cfg.Actions.RateLimit.GetRequestsPerSecond())
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}

	ApplyDefaults(cfg)

	assert.Equal(t, uint64(42), cfg.Run.Seed)
	assert.Equal(t, 6, cfg.Run.DeviceCount)
	assert.Equal(t, 3, cfg.Run.IncidentCount)
	assert.Equal(t, 1, cfg.Run.Workers)
	assert.Equal(t, "outputs/netops.db", cfg.Storage.DBPath)
	assert.Equal(t, 200*time.Millisecond, cfg.Actions.Backoff)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
	assert.Equal(t, "0.0.0.0:2580", cfg.Server.Address())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:        "negative failure rate",
			mutate:      func(c *Config) { c.Run.FailureRate = -0.1 },
			expectError: true,
		},
		{
			name:   "failure rate at boundary",
			mutate: func(c *Config) { c.Run.FailureRate = 1 },
		},
		{
			name:        "zero workers",
			mutate:      func(c *Config) { c.Run.Workers = 0 },
			expectError: true,
		},
		{
			name:   "workers at max boundary",
			mutate: func(c *Config) { c.Run.Workers = MaxWorkers },
		},
		{
			name:        "negative timeout",
			mutate:      func(c *Config) { c.Actions.Timeout = -time.Second },
			expectError: true,
		},
		{
			name:   "retries at max boundary",
			mutate: func(c *Config) { c.Actions.MaxRetries = MaxActionRetries },
		},
		{
			name:        "retries above max",
			mutate:      func(c *Config) { c.Actions.MaxRetries = 100 },
			expectError: true,
		},
		{
			name:        "negative backoff",
			mutate:      func(c *Config) { c.Actions.Backoff = -time.Millisecond },
			expectError: true,
		},
		{
			name:        "negative incident count",
			mutate:      func(c *Config) { c.Run.IncidentCount = -1 },
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRateLimitRule(t *testing.T) {
	tests := []struct {
		name      string
		rule      RateLimitRule
		wantRate  float64
		wantBurst int
	}{
		{
			name:      "defaults",
			rule:      RateLimitRule{},
			wantRate:  1,
			wantBurst: 1,
		},
		{
			name:      "per second wins over per minute",
			rule:      RateLimitRule{RequestsPerSecond: 5, RequestsPerMinute: 600},
			wantRate:  5,
			wantBurst: 5,
		},
		{
			name:      "per minute below one per second",
			rule:      RateLimitRule{RequestsPerMinute: 30},
			wantRate:  0.5,
			wantBurst: 1,
		},
		{
			name:      "explicit burst",
			rule:      RateLimitRule{RequestsPerSecond: 2, BurstSize: 10},
			wantRate:  2,
			wantBurst: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantRate, tt.rule.GetRequestsPerSecond())
			assert.Equal(t, tt.wantBurst, tt.rule.GetBurstSize())
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		envVars  map[string]string
		expected string
	}{
		{
			name:     "no substitution needed",
			content:  "key: value",
			expected: "key: value",
		},
		{
			name:     "simple substitution",
			content:  "key: ${TEST_VAR}",
			envVars:  map[string]string{"TEST_VAR": "replaced"},
			expected: "key: replaced",
		},
		{
			name:     "substitution with default",
			content:  "key: ${MISSING_VAR:-default_value}",
			expected: "key: default_value",
		},
		{
			name:     "missing without default is empty",
			content:  "key: ${MISSING_VAR}",
			expected: "key: ",
		},
		{
			name:     "comment lines skipped",
			content:  "# ${IGNORED}\nkey: value",
			expected: "# ${IGNORED}\nkey: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			if _, exists := tt.envVars["TEST_VAR"]; !exists {
				os.Unsetenv("TEST_VAR")
			}
			os.Unsetenv("MISSING_VAR")

			result, err := substituteEnvVars(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

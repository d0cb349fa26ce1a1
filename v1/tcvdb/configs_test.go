package tcvdb

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, 8, cfg.MaxRedirectAttempts)
	assert.Equal(t, 60, cfg.DefaultRRFK)
	assert.Equal(t, 1000, cfg.Batch.MaxDocuments)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)

	assert.Error(t, cfg.Validate(), "endpoint is required")
	assert.NoError(t, FromEndpoint("10.0.0.1:80").Validate())
}

func TestLoadConfig_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, "tcvdb.yaml", `
endpoint: http://10.0.0.1:80
username: root
api_key: from-file
protocol: http
timeout: 3s
read_consistency: strongConsistency
max_redirect_attempts: 4
retry:
  max_attempts: 5
  initial_backoff: 50ms
batch:
  max_documents: 200
`)
	t.Setenv("TCVDB_API_KEY", "from-env")
	t.Setenv("TCVDB_RETRY_JITTER", "0.5")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "http://10.0.0.1:80", cfg.Endpoint)
	assert.Equal(t, "root", cfg.Username)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, "strongConsistency", cfg.ReadConsistency)
	assert.Equal(t, 4, cfg.MaxRedirectAttempts)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 2*time.Second, cfg.Retry.MaxBackoff)
	assert.InDelta(t, 0.5, cfg.Retry.Jitter, 1e-9)
	assert.Equal(t, 200, cfg.Batch.MaxDocuments)
	assert.Equal(t, 64<<20, cfg.Batch.MaxBytes)
}

func TestLoadConfig_Dotenv(t *testing.T) {
	env := writeFile(t, ".env", "TCVDB_ENDPOINT=10.0.0.9:80\nTCVDB_USERNAME=svc\n")
	t.Setenv("TCVDB_USERNAME", "already-set")

	cfg, err := LoadConfig("", env)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9:80", cfg.Endpoint)
	assert.Equal(t, "already-set", cfg.Username)

	// godotenv sets variables process-wide.
	t.Cleanup(func() { _ = os.Unsetenv("TCVDB_ENDPOINT") })
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "endpoint: [unterminated")
	_, err = LoadConfig(bad)
	assert.Error(t, err)

	invalid := writeFile(t, "invalid.yaml", "endpoint: 10.0.0.1:80\nprotocol: smtp\n")
	_, err = LoadConfig(invalid)
	assert.ErrorContains(t, err, "unknown protocol")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }, "timeout"},
		{"no redirects", func(c *Config) { c.MaxRedirectAttempts = 0 }, "max_redirect_attempts"},
		{"rrf k", func(c *Config) { c.DefaultRRFK = 0 }, "default_rrf_k"},
		{"search fan-out", func(c *Config) { c.MaxConcurrentSearches = 0 }, "max_concurrent_searches"},
		{"retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "retry.max_attempts"},
		{"backoff", func(c *Config) { c.Retry.MaxBackoff = -1 }, "backoff"},
		{"multiplier", func(c *Config) { c.Retry.Multiplier = 0.5 }, "multiplier"},
		{"jitter", func(c *Config) { c.Retry.Jitter = 1.5 }, "jitter"},
		{"batch size", func(c *Config) { c.Batch.MaxDocuments = 0 }, "batch.max_documents"},
		{"batch bytes", func(c *Config) { c.Batch.MaxBytes = -1 }, "batch.max_bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEndpoint("10.0.0.1:80")
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfig_Builders(t *testing.T) {
	cfg := FromEndpoint("10.0.0.1:80").
		WithCredentials("root", "key").
		WithProtocol(ProtocolHTTP).
		WithTimeout(time.Second).
		WithReadConsistency("eventualConsistency").
		WithMaxRedirectAttempts(3).
		WithBatchCeiling(10, 1024).
		WithDefaultRRFK(20).
		WithMaxConcurrentSearches(2)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, Ceiling{MaxDocuments: 10, MaxBytes: 1024}, cfg.Ceiling())
	assert.Equal(t, 20, cfg.DefaultRRFK)
	assert.Equal(t, 2, cfg.MaxConcurrentSearches)
}

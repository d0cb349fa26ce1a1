package tcvdb

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/Aleph-Alpha/vdbclient/v1/vectordb"
)

// Protocol selects the transport used to reach the service.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
)

const (
	defaultTimeout               = 10 * time.Second
	defaultMaxRedirectAttempts   = 8
	defaultMaxBatchDocuments     = 1000
	defaultMaxBatchBytes         = 64 << 20
	defaultMaxMessageSize        = 100 << 20
	defaultMaxConcurrentSearches = 10
)

// RetryConfig bounds how transport failures are retried within one call.
type RetryConfig struct {
	// MaxAttempts is the number of transport failures tolerated by one call
	// before it fails with a TransportError. 1 disables retrying.
	MaxAttempts int `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration `yaml:"initial_backoff" envconfig:"INITIAL_BACKOFF"`

	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration `yaml:"max_backoff" envconfig:"MAX_BACKOFF"`

	// Multiplier grows the delay after every retry.
	Multiplier float64 `yaml:"multiplier" envconfig:"MULTIPLIER"`

	// Jitter randomizes each delay by ±Jitter of its value (0 to 1).
	Jitter float64 `yaml:"jitter" envconfig:"JITTER"`
}

// BatchConfig is the per-request ceiling for write payloads.
type BatchConfig struct {
	// MaxDocuments is the largest number of documents sent in one request.
	MaxDocuments int `yaml:"max_documents" envconfig:"MAX_DOCUMENTS"`

	// MaxBytes is the largest encoded document payload sent in one request.
	// Zero disables the byte ceiling.
	MaxBytes int `yaml:"max_bytes" envconfig:"MAX_BYTES"`
}

// Config holds connection and behavior settings for the vector database client.
//
// Example (programmatic):
//
//	cfg := tcvdb.DefaultConfig()
//	cfg.Endpoint = "10.0.0.1:80"
//	cfg.Username = "root"
//	cfg.APIKey = os.Getenv("TCVDB_API_KEY")
//
// Example (builder style):
//
//	cfg := tcvdb.FromEndpoint("10.0.0.1:80").
//	    WithCredentials("root", os.Getenv("TCVDB_API_KEY")).
//	    WithTimeout(5 * time.Second)
//
// Example (file and environment):
//
//	cfg, err := tcvdb.LoadConfig("config/tcvdb.yaml", ".env")
type Config struct {
	// Endpoint is the initial target of every call, "host:port" for gRPC
	// or a URL for HTTP.
	Endpoint string `yaml:"endpoint" envconfig:"TCVDB_ENDPOINT"`

	// Username is the account name sent in the authorization header.
	Username string `yaml:"username" envconfig:"TCVDB_USERNAME"`

	// APIKey is the key sent in the authorization header.
	APIKey string `yaml:"api_key" envconfig:"TCVDB_API_KEY"`

	Protocol Protocol `yaml:"protocol" envconfig:"TCVDB_PROTOCOL"`

	// Timeout bounds a single attempt. Zero leaves attempts bounded only by
	// the caller's context.
	Timeout time.Duration `yaml:"timeout" envconfig:"TCVDB_TIMEOUT"`

	// ReadConsistency is sent verbatim on reads, e.g. "eventualConsistency".
	ReadConsistency string `yaml:"read_consistency" envconfig:"TCVDB_READ_CONSISTENCY"`

	// MaxRedirectAttempts is the number of attempts one call may make while
	// being redirected before failing with a RedirectLoopError.
	MaxRedirectAttempts int `yaml:"max_redirect_attempts" envconfig:"TCVDB_MAX_REDIRECT_ATTEMPTS"`

	// DefaultRRFK replaces vectordb.DefaultRRFK when a search resolves rank fusion.
	DefaultRRFK int `yaml:"default_rrf_k" envconfig:"TCVDB_DEFAULT_RRF_K"`

	// MaxConcurrentSearches bounds MultiSearch fan-out.
	MaxConcurrentSearches int `yaml:"max_concurrent_searches" envconfig:"TCVDB_MAX_CONCURRENT_SEARCHES"`

	// MaxMessageSize bounds gRPC messages in both directions.
	MaxMessageSize int `yaml:"max_message_size" envconfig:"TCVDB_MAX_MESSAGE_SIZE"`

	Retry RetryConfig `yaml:"retry" envconfig:"TCVDB_RETRY"`
	Batch BatchConfig `yaml:"batch" envconfig:"TCVDB_BATCH"`
}

// DefaultConfig provides sensible defaults for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Protocol:              ProtocolGRPC,
		Timeout:               defaultTimeout,
		MaxRedirectAttempts:   defaultMaxRedirectAttempts,
		DefaultRRFK:           vectordb.DefaultRRFK,
		MaxConcurrentSearches: defaultMaxConcurrentSearches,
		MaxMessageSize:        defaultMaxMessageSize,
		Retry: RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Multiplier:     2,
			Jitter:         0.2,
		},
		Batch: BatchConfig{
			MaxDocuments: defaultMaxBatchDocuments,
			MaxBytes:     defaultMaxBatchBytes,
		},
	}
}

// FromEndpoint returns a default config pre-filled with a specific endpoint.
func FromEndpoint(endpoint string) *Config {
	cfg := DefaultConfig()
	cfg.Endpoint = endpoint
	return cfg
}

// LoadConfig builds a config from defaults, then the YAML file at path (if
// not empty), then the environment. Dotenv files, when given, are loaded
// into the environment first; variables already set are not overridden.
func LoadConfig(path string, dotenvFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("[TCVDB] read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("[TCVDB] parse config %s: %w", path, err)
		}
	}

	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil {
			return nil, fmt.Errorf("[TCVDB] load dotenv: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("[TCVDB] environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that would make the client misbehave.
func (c *Config) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("[TCVDB] config: endpoint is required")
	case c.Protocol != ProtocolGRPC && c.Protocol != ProtocolHTTP:
		return fmt.Errorf("[TCVDB] config: unknown protocol %q", c.Protocol)
	case c.Timeout < 0:
		return fmt.Errorf("[TCVDB] config: timeout must not be negative")
	case c.MaxRedirectAttempts < 1:
		return fmt.Errorf("[TCVDB] config: max_redirect_attempts must be at least 1")
	case c.DefaultRRFK < 1:
		return fmt.Errorf("[TCVDB] config: default_rrf_k must be at least 1")
	case c.MaxConcurrentSearches < 1:
		return fmt.Errorf("[TCVDB] config: max_concurrent_searches must be at least 1")
	case c.Retry.MaxAttempts < 1:
		return fmt.Errorf("[TCVDB] config: retry.max_attempts must be at least 1")
	case c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0:
		return fmt.Errorf("[TCVDB] config: retry backoff must not be negative")
	case c.Retry.Multiplier < 1:
		return fmt.Errorf("[TCVDB] config: retry.multiplier must be at least 1")
	case c.Retry.Jitter < 0 || c.Retry.Jitter > 1:
		return fmt.Errorf("[TCVDB] config: retry.jitter must be within [0, 1]")
	case c.Batch.MaxDocuments < 1:
		return fmt.Errorf("[TCVDB] config: batch.max_documents must be at least 1")
	case c.Batch.MaxBytes < 0:
		return fmt.Errorf("[TCVDB] config: batch.max_bytes must not be negative")
	}
	return nil
}

// Ceiling returns the batch ceiling described by the config.
func (c *Config) Ceiling() Ceiling {
	return Ceiling{MaxDocuments: c.Batch.MaxDocuments, MaxBytes: c.Batch.MaxBytes}
}

// Builder-style helpers

func (c *Config) WithCredentials(username, apiKey string) *Config {
	c.Username = username
	c.APIKey = apiKey
	return c
}

func (c *Config) WithProtocol(p Protocol) *Config {
	c.Protocol = p
	return c
}

func (c *Config) WithTimeout(d time.Duration) *Config {
	c.Timeout = d
	return c
}

func (c *Config) WithReadConsistency(level string) *Config {
	c.ReadConsistency = level
	return c
}

func (c *Config) WithMaxRedirectAttempts(n int) *Config {
	c.MaxRedirectAttempts = n
	return c
}

func (c *Config) WithRetry(r RetryConfig) *Config {
	c.Retry = r
	return c
}

func (c *Config) WithBatchCeiling(maxDocuments, maxBytes int) *Config {
	c.Batch = BatchConfig{MaxDocuments: maxDocuments, MaxBytes: maxBytes}
	return c
}

func (c *Config) WithDefaultRRFK(k int) *Config {
	c.DefaultRRFK = k
	return c
}

func (c *Config) WithMaxConcurrentSearches(n int) *Config {
	c.MaxConcurrentSearches = n
	return c
}

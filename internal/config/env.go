package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.embedsync
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the local database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/embedsync.db
	DBURL string `envconfig:"DB_URL"`

	// ContentDBURL is the CMS database connection URL.
	// Env: CONTENT_DB_URL
	ContentDBURL string `envconfig:"CONTENT_DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// APIKeys is a comma-separated list of keys accepted on write routes.
	// Env: API_KEYS
	APIKeys string `envconfig:"API_KEYS"`

	// SettingsFile is an optional YAML file overriding sync settings.
	// Env: SETTINGS_FILE
	SettingsFile string `envconfig:"SETTINGS_FILE"`

	// VectorClientPlugin selects the vector backend (pinecone or milvus).
	// Env: VECTOR_CLIENT_PLUGIN
	VectorClientPlugin string `envconfig:"VECTOR_CLIENT_PLUGIN"`

	// EmbeddingEndpoint configures the embedding service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Pinecone configures the Pinecone backend.
	Pinecone PineconeEnv `envconfig:"PINECONE"`

	// Milvus configures the Milvus backend.
	Milvus MilvusEnv `envconfig:"MILVUS"`

	// Sync configures content selection and text cleaning.
	Sync SyncEnv `envconfig:"SYNC"`

	// NATS configures the message trigger.
	NATS NATSEnv `envconfig:"NATS"`

	// Worker configures the background queue workers.
	Worker WorkerEnv `envconfig:"WORKER"`
}

// EndpointEnv holds environment configuration for the embedding endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL of an OpenAI-compatible API.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: *_MODEL (default: text-embedding-ada-002)
	Model string `envconfig:"MODEL" default:"text-embedding-ada-002"`

	// APIKey is the API key. Accepts env:NAME and file:/path references.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`
}

// PineconeEnv holds environment configuration for Pinecone.
type PineconeEnv struct {
	Hostname         string  `envconfig:"HOSTNAME"`
	APIKey           string  `envconfig:"API_KEY"`
	DisableNamespace bool    `envconfig:"DISABLE_NAMESPACE" default:"false"`
	Timeout          float64 `envconfig:"TIMEOUT" default:"30"`
}

// MilvusEnv holds environment configuration for Milvus.
type MilvusEnv struct {
	Hostname  string  `envconfig:"HOSTNAME"`
	Token     string  `envconfig:"TOKEN"`
	Dimension int     `envconfig:"DIMENSION" default:"1536"`
	Timeout   float64 `envconfig:"TIMEOUT" default:"30"`
}

// SyncEnv holds environment configuration for the sync worker.
type SyncEnv struct {
	// NodeTypes is a comma-separated bundle allow-list.
	// Env: SYNC_NODE_TYPES
	NodeTypes string `envconfig:"NODE_TYPES"`

	// Stopwords is a comma-separated list of words removed before embedding.
	// Env: SYNC_STOPWORDS
	Stopwords string `envconfig:"STOPWORDS"`

	// StripElements is a comma-separated list of extra HTML elements to drop.
	// Env: SYNC_STRIP_ELEMENTS
	StripElements string `envconfig:"STRIP_ELEMENTS"`

	// MaxLength is the prepared text length limit.
	// Env: SYNC_MAX_LENGTH (default: 8000)
	MaxLength int `envconfig:"MAX_LENGTH" default:"8000"`

	// ReindexSeconds re-enqueues every allowed entity on this period.
	// Env: SYNC_REINDEX_SECONDS (default: 0, disabled)
	ReindexSeconds float64 `envconfig:"REINDEX_SECONDS" default:"0"`
}

// NATSEnv holds environment configuration for the message trigger.
type NATSEnv struct {
	URL     string `envconfig:"URL"`
	Subject string `envconfig:"SUBJECT" default:"embedsync.content.changed"`
}

// WorkerEnv holds environment configuration for queue workers.
type WorkerEnv struct {
	// Count is the number of concurrent workers.
	// Env: WORKER_COUNT (default: 1)
	Count int `envconfig:"COUNT" default:"1"`

	// PollSeconds is the idle poll period.
	// Env: WORKER_POLL_SECONDS (default: 1)
	PollSeconds float64 `envconfig:"POLL_SECONDS" default:"1"`

	// MaxAttempts is how many times a failing task is tried.
	// Env: WORKER_MAX_ATTEMPTS (default: 3)
	MaxAttempts int `envconfig:"MAX_ATTEMPTS" default:"3"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "EMBEDSYNC" would require EMBEDSYNC_DB_URL instead of DB_URL.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// Normalize trims whitespace from free-form values and strips trailing
// slashes from host URLs.
func (e EnvConfig) Normalize() EnvConfig {
	e.Host = strings.TrimSpace(e.Host)
	e.DBURL = strings.TrimSpace(e.DBURL)
	e.ContentDBURL = strings.TrimSpace(e.ContentDBURL)
	e.VectorClientPlugin = strings.ToLower(strings.TrimSpace(e.VectorClientPlugin))
	e.EmbeddingEndpoint.BaseURL = strings.TrimRight(strings.TrimSpace(e.EmbeddingEndpoint.BaseURL), "/")
	e.EmbeddingEndpoint.Model = strings.TrimSpace(e.EmbeddingEndpoint.Model)
	e.EmbeddingEndpoint.APIKey = strings.TrimSpace(e.EmbeddingEndpoint.APIKey)
	e.Pinecone.Hostname = strings.TrimRight(strings.TrimSpace(e.Pinecone.Hostname), "/")
	e.Pinecone.APIKey = strings.TrimSpace(e.Pinecone.APIKey)
	e.Milvus.Hostname = strings.TrimRight(strings.TrimSpace(e.Milvus.Hostname), "/")
	e.Milvus.Token = strings.TrimSpace(e.Milvus.Token)
	e.NATS.URL = strings.TrimSpace(e.NATS.URL)
	return e
}

// ResolveSecrets replaces env: and file: references in credential fields
// with the values they point to.
func (e EnvConfig) ResolveSecrets() (EnvConfig, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{"EMBEDDING_ENDPOINT_API_KEY", &e.EmbeddingEndpoint.APIKey},
		{"PINECONE_API_KEY", &e.Pinecone.APIKey},
		{"MILVUS_TOKEN", &e.Milvus.Token},
		{"API_KEYS", &e.APIKeys},
	}
	for _, f := range fields {
		resolved, err := ResolveSecret(*f.value)
		if err != nil {
			return EnvConfig{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.value = resolved
	}
	return e, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.ContentDBURL != "" {
		cfg = applyOption(cfg, WithContentDBURL(e.ContentDBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}
	if e.APIKeys != "" {
		cfg = applyOption(cfg, WithAPIKeys(ParseAPIKeys(e.APIKeys)))
	}

	cfg = applyOption(cfg, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	cfg = applyOption(cfg, WithVectorConfig(e.toVectorConfig()))
	cfg = applyOption(cfg, WithSyncConfig(e.Sync.ToSyncConfig()))
	cfg = applyOption(cfg, WithMessagingConfig(e.NATS.ToMessagingConfig()))

	cfg = applyOption(cfg, WithWorkerCount(e.Worker.Count))
	cfg = applyOption(cfg, WithWorkerPollInterval(seconds(e.Worker.PollSeconds)))
	cfg = applyOption(cfg, WithWorkerMaxAttempts(e.Worker.MaxAttempts))

	return cfg
}

// applyOption applies an option to the config.
func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithTimeout(seconds(e.Timeout)),
	}
	if e.Model != "" {
		opts = append(opts, WithModel(e.Model))
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

func (e EnvConfig) toVectorConfig() VectorConfig {
	return NewVectorConfig().
		WithPlugin(e.VectorClientPlugin).
		WithPinecone(NewPineconeConfig().
			WithHostname(e.Pinecone.Hostname).
			WithAPIKey(e.Pinecone.APIKey).
			WithDisableNamespace(e.Pinecone.DisableNamespace).
			WithTimeout(seconds(e.Pinecone.Timeout))).
		WithMilvus(NewMilvusConfig().
			WithHostname(e.Milvus.Hostname).
			WithToken(e.Milvus.Token).
			WithDimension(e.Milvus.Dimension).
			WithTimeout(seconds(e.Milvus.Timeout)))
}

// ToSyncConfig converts SyncEnv to SyncConfig.
func (s SyncEnv) ToSyncConfig() SyncConfig {
	return NewSyncConfig().
		WithNodeTypes(ParseList(s.NodeTypes)).
		WithStopwords(ParseList(s.Stopwords)).
		WithStripElements(ParseList(s.StripElements)).
		WithMaxLength(s.MaxLength).
		WithReindexInterval(seconds(s.ReindexSeconds))
}

// ToMessagingConfig converts NATSEnv to MessagingConfig.
func (n NATSEnv) ToMessagingConfig() MessagingConfig {
	return NewMessagingConfig().WithURL(n.URL).WithSubject(n.Subject)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

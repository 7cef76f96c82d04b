// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost               = "0.0.0.0"
	DefaultPort               = 8080
	DefaultLogLevel           = "INFO"
	DefaultWorkerCount        = 1
	DefaultWorkerPollInterval = time.Second
	DefaultWorkerMaxAttempts  = 3
	DefaultSearchLimit        = 5
	DefaultEmbeddingModel     = "text-embedding-ada-002"
	DefaultEndpointTimeout    = 60 * time.Second
	DefaultVectorTimeout      = 30 * time.Second
	DefaultMilvusDimension    = 1536
	DefaultSyncMaxLength      = 8000
	DefaultNATSSubject        = "embedsync.content.changed"
	DefaultDBFile             = "embedsync.db"
)

// Vector store plugin names.
const (
	PluginPinecone = "pinecone"
	PluginMilvus   = "milvus"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures the embedding service.
type Endpoint struct {
	baseURL string
	model   string
	apiKey  string
	timeout time.Duration
}

// NewEndpoint creates a new Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		model:   DefaultEmbeddingModel,
		timeout: DefaultEndpointTimeout,
	}
}

// BaseURL returns the base URL for the endpoint. Empty means the
// provider's public API.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// IsConfigured returns true if the endpoint has credentials and a model.
func (e Endpoint) IsConfigured() bool {
	return e.apiKey != "" && e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// PineconeConfig configures the Pinecone backend.
type PineconeConfig struct {
	hostname         string
	apiKey           string
	disableNamespace bool
	timeout          time.Duration
}

// NewPineconeConfig creates a PineconeConfig with defaults.
func NewPineconeConfig() PineconeConfig {
	return PineconeConfig{timeout: DefaultVectorTimeout}
}

// Hostname returns the index host URL.
func (p PineconeConfig) Hostname() string { return p.hostname }

// APIKey returns the API key.
func (p PineconeConfig) APIKey() string { return p.apiKey }

// DisableNamespace reports whether whole-namespace deletes are forbidden.
func (p PineconeConfig) DisableNamespace() bool { return p.disableNamespace }

// Timeout returns the request timeout.
func (p PineconeConfig) Timeout() time.Duration { return p.timeout }

// WithHostname returns a copy with the given hostname.
func (p PineconeConfig) WithHostname(h string) PineconeConfig {
	p.hostname = h
	return p
}

// WithAPIKey returns a copy with the given API key.
func (p PineconeConfig) WithAPIKey(k string) PineconeConfig {
	p.apiKey = k
	return p
}

// WithDisableNamespace returns a copy with the namespace guard set.
func (p PineconeConfig) WithDisableNamespace(disabled bool) PineconeConfig {
	p.disableNamespace = disabled
	return p
}

// WithTimeout returns a copy with the given timeout.
func (p PineconeConfig) WithTimeout(d time.Duration) PineconeConfig {
	if d > 0 {
		p.timeout = d
	}
	return p
}

// MilvusConfig configures the Milvus backend.
type MilvusConfig struct {
	hostname  string
	token     string
	dimension int
	timeout   time.Duration
}

// NewMilvusConfig creates a MilvusConfig with defaults.
func NewMilvusConfig() MilvusConfig {
	return MilvusConfig{dimension: DefaultMilvusDimension, timeout: DefaultVectorTimeout}
}

// Hostname returns the cluster host URL.
func (m MilvusConfig) Hostname() string { return m.hostname }

// Token returns the bearer token.
func (m MilvusConfig) Token() string { return m.token }

// Dimension returns the vector dimension used when creating collections.
func (m MilvusConfig) Dimension() int { return m.dimension }

// Timeout returns the request timeout.
func (m MilvusConfig) Timeout() time.Duration { return m.timeout }

// WithHostname returns a copy with the given hostname.
func (m MilvusConfig) WithHostname(h string) MilvusConfig {
	m.hostname = h
	return m
}

// WithToken returns a copy with the given token.
func (m MilvusConfig) WithToken(t string) MilvusConfig {
	m.token = t
	return m
}

// WithDimension returns a copy with the given dimension.
func (m MilvusConfig) WithDimension(d int) MilvusConfig {
	if d > 0 {
		m.dimension = d
	}
	return m
}

// WithTimeout returns a copy with the given timeout.
func (m MilvusConfig) WithTimeout(d time.Duration) MilvusConfig {
	if d > 0 {
		m.timeout = d
	}
	return m
}

// VectorConfig selects and configures the vector store backend.
type VectorConfig struct {
	plugin   string
	pinecone PineconeConfig
	milvus   MilvusConfig
}

// NewVectorConfig creates a VectorConfig with defaults. No plugin is selected.
func NewVectorConfig() VectorConfig {
	return VectorConfig{
		pinecone: NewPineconeConfig(),
		milvus:   NewMilvusConfig(),
	}
}

// Plugin returns the selected backend name.
func (v VectorConfig) Plugin() string { return v.plugin }

// Pinecone returns the Pinecone settings.
func (v VectorConfig) Pinecone() PineconeConfig { return v.pinecone }

// Milvus returns the Milvus settings.
func (v VectorConfig) Milvus() MilvusConfig { return v.milvus }

// WithPlugin returns a copy with the given backend selected.
func (v VectorConfig) WithPlugin(plugin string) VectorConfig {
	v.plugin = strings.ToLower(strings.TrimSpace(plugin))
	return v
}

// WithPinecone returns a copy with the given Pinecone settings.
func (v VectorConfig) WithPinecone(p PineconeConfig) VectorConfig {
	v.pinecone = p
	return v
}

// WithMilvus returns a copy with the given Milvus settings.
func (v VectorConfig) WithMilvus(m MilvusConfig) VectorConfig {
	v.milvus = m
	return v
}

// SyncConfig controls which content is embedded and how its text is cleaned.
type SyncConfig struct {
	nodeTypes       []string
	stopwords       []string
	stripElements   []string
	maxLength       int
	reindexInterval time.Duration
}

// NewSyncConfig creates a SyncConfig with defaults. The bundle allow-list
// starts empty, which allows nothing.
func NewSyncConfig() SyncConfig {
	return SyncConfig{maxLength: DefaultSyncMaxLength}
}

// NodeTypes returns the allowed bundles.
func (s SyncConfig) NodeTypes() []string { return copyStrings(s.nodeTypes) }

// Stopwords returns the words removed before embedding.
func (s SyncConfig) Stopwords() []string { return copyStrings(s.stopwords) }

// StripElements returns extra HTML elements removed with their content.
func (s SyncConfig) StripElements() []string { return copyStrings(s.stripElements) }

// MaxLength returns the maximum prepared text length in characters.
func (s SyncConfig) MaxLength() int { return s.maxLength }

// ReindexInterval returns how often every allowed entity is re-enqueued.
// Zero disables periodic reindexing.
func (s SyncConfig) ReindexInterval() time.Duration { return s.reindexInterval }

// Allows reports whether the bundle is in the allow-list.
func (s SyncConfig) Allows(bundle string) bool {
	for _, b := range s.nodeTypes {
		if b == bundle {
			return true
		}
	}
	return false
}

// WithNodeTypes returns a copy with the given bundle allow-list.
func (s SyncConfig) WithNodeTypes(types []string) SyncConfig {
	s.nodeTypes = copyStrings(types)
	return s
}

// WithStopwords returns a copy with the given stop-words.
func (s SyncConfig) WithStopwords(words []string) SyncConfig {
	s.stopwords = copyStrings(words)
	return s
}

// WithStripElements returns a copy with the given extra strip elements.
func (s SyncConfig) WithStripElements(elements []string) SyncConfig {
	s.stripElements = copyStrings(elements)
	return s
}

// WithMaxLength returns a copy with the given max length.
func (s SyncConfig) WithMaxLength(n int) SyncConfig {
	if n > 0 {
		s.maxLength = n
	}
	return s
}

// WithReindexInterval returns a copy with the given reindex interval.
func (s SyncConfig) WithReindexInterval(d time.Duration) SyncConfig {
	if d >= 0 {
		s.reindexInterval = d
	}
	return s
}

// MessagingConfig configures the optional NATS trigger.
type MessagingConfig struct {
	url     string
	subject string
}

// NewMessagingConfig creates a MessagingConfig with defaults.
func NewMessagingConfig() MessagingConfig {
	return MessagingConfig{subject: DefaultNATSSubject}
}

// URL returns the NATS server URL.
func (m MessagingConfig) URL() string { return m.url }

// Subject returns the subscribed subject.
func (m MessagingConfig) Subject() string { return m.subject }

// Enabled returns true when a server URL is configured.
func (m MessagingConfig) Enabled() bool { return m.url != "" }

// WithURL returns a copy with the given server URL.
func (m MessagingConfig) WithURL(url string) MessagingConfig {
	m.url = url
	return m
}

// WithSubject returns a copy with the given subject.
func (m MessagingConfig) WithSubject(subject string) MessagingConfig {
	if subject != "" {
		m.subject = subject
	}
	return m
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host               string
	port               int
	dataDir            string
	dbURL              string
	contentDBURL       string
	logLevel           string
	logFormat          LogFormat
	apiKeys            []string
	embeddingEndpoint  Endpoint
	vector             VectorConfig
	sync               SyncConfig
	messaging          MessagingConfig
	workerCount        int
	workerPollInterval time.Duration
	workerMaxAttempts  int
	searchLimit        int
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".embedsync"
	}
	return filepath.Join(home, ".embedsync")
}

// PrepareDataDir creates the data directory if it does not exist and returns it.
func PrepareDataDir(dataDir string) (string, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dataDir, nil
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:               DefaultHost,
		port:               DefaultPort,
		dataDir:            dataDir,
		dbURL:              "sqlite:///" + filepath.Join(dataDir, DefaultDBFile),
		logLevel:           DefaultLogLevel,
		logFormat:          LogFormatPretty,
		apiKeys:            []string{},
		embeddingEndpoint:  NewEndpoint(),
		vector:             NewVectorConfig(),
		sync:               NewSyncConfig(),
		messaging:          NewMessagingConfig(),
		workerCount:        DefaultWorkerCount,
		workerPollInterval: DefaultWorkerPollInterval,
		workerMaxAttempts:  DefaultWorkerMaxAttempts,
		searchLimit:        DefaultSearchLimit,
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the local database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// ContentDBURL returns the CMS database URL. Empty means content is read
// from the local database.
func (c AppConfig) ContentDBURL() string { return c.contentDBURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// APIKeys returns a copy of the API keys.
func (c AppConfig) APIKeys() []string { return copyStrings(c.apiKeys) }

// EmbeddingEndpoint returns the embedding endpoint.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embeddingEndpoint }

// Vector returns the vector store settings.
func (c AppConfig) Vector() VectorConfig { return c.vector }

// Sync returns the sync settings.
func (c AppConfig) Sync() SyncConfig { return c.sync }

// Messaging returns the NATS trigger settings.
func (c AppConfig) Messaging() MessagingConfig { return c.messaging }

// WorkerCount returns the number of background workers.
func (c AppConfig) WorkerCount() int { return c.workerCount }

// WorkerPollInterval returns how often an idle worker polls the queue.
func (c AppConfig) WorkerPollInterval() time.Duration { return c.workerPollInterval }

// WorkerMaxAttempts returns how many times a failing task is tried.
func (c AppConfig) WorkerMaxAttempts() int { return c.workerMaxAttempts }

// SearchLimit returns the default number of search matches.
func (c AppConfig) SearchLimit() int { return c.searchLimit }

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || strings.HasSuffix(c.dbURL, DefaultDBFile) {
			c.dbURL = "sqlite:///" + filepath.Join(dir, DefaultDBFile)
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithContentDBURL sets the CMS database URL.
func WithContentDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.contentDBURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithAPIKeys sets the API keys.
func WithAPIKeys(keys []string) AppConfigOption {
	return func(c *AppConfig) { c.apiKeys = copyStrings(keys) }
}

// WithEmbeddingEndpoint sets the embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = e }
}

// WithEmbeddingModel overrides only the embedding model.
func WithEmbeddingModel(model string) AppConfigOption {
	return func(c *AppConfig) {
		if model != "" {
			c.embeddingEndpoint.model = model
		}
	}
}

// WithVectorConfig sets the vector store settings.
func WithVectorConfig(v VectorConfig) AppConfigOption {
	return func(c *AppConfig) { c.vector = v }
}

// WithVectorPlugin overrides only the selected vector backend.
func WithVectorPlugin(plugin string) AppConfigOption {
	return func(c *AppConfig) {
		if plugin != "" {
			c.vector = c.vector.WithPlugin(plugin)
		}
	}
}

// WithSyncConfig sets the sync settings.
func WithSyncConfig(s SyncConfig) AppConfigOption {
	return func(c *AppConfig) { c.sync = s }
}

// WithMessagingConfig sets the NATS trigger settings.
func WithMessagingConfig(m MessagingConfig) AppConfigOption {
	return func(c *AppConfig) { c.messaging = m }
}

// WithWorkerCount sets the number of background workers.
func WithWorkerCount(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithWorkerPollInterval sets the idle poll period.
func WithWorkerPollInterval(d time.Duration) AppConfigOption {
	return func(c *AppConfig) {
		if d > 0 {
			c.workerPollInterval = d
		}
	}
}

// WithWorkerMaxAttempts sets the per-task attempt limit.
func WithWorkerMaxAttempts(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.workerMaxAttempts = n
		}
	}
}

// WithSearchLimit sets the default search result limit.
func WithSearchLimit(n int) AppConfigOption {
	return func(c *AppConfig) {
		if n > 0 {
			c.searchLimit = n
		}
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
// Credentials are reported only as present or absent.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("log_level", c.logLevel),
		slog.String("db_url", maskURL(c.dbURL)),
		slog.String("content_db_url", maskURL(c.contentDBURL)),
		slog.String("embedding_base_url", c.embeddingEndpoint.BaseURL()),
		slog.String("embedding_model", c.embeddingEndpoint.Model()),
		slog.Bool("embedding_api_key_set", c.embeddingEndpoint.APIKey() != ""),
		slog.String("vector_plugin", c.vector.Plugin()),
		slog.String("pinecone_hostname", c.vector.Pinecone().Hostname()),
		slog.Bool("pinecone_disable_namespace", c.vector.Pinecone().DisableNamespace()),
		slog.String("milvus_hostname", c.vector.Milvus().Hostname()),
		slog.Any("node_types", c.sync.NodeTypes()),
		slog.Int("stopwords_count", len(c.sync.stopwords)),
		slog.Int("api_keys_count", len(c.apiKeys)),
		slog.Int("worker_count", c.workerCount),
		slog.Bool("nats_enabled", c.messaging.Enabled()),
	}
}

func maskURL(url string) string {
	switch {
	case url == "":
		return "(default)"
	case strings.HasPrefix(url, "sqlite:"):
		return url
	default:
		return "postgres://***@***"
	}
}

// ParseList parses a comma-separated string, trimming entries and dropping
// empty ones.
func ParseList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// ParseAPIKeys parses a comma-separated string of API keys.
func ParseAPIKeys(s string) []string {
	return ParseList(s)
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

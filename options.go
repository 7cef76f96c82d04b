package embedsync

import (
	"io"
	"log/slog"
	"time"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/infrastructure/metrics"
	"github.com/helixml/embedsync/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	dbURL              string
	contentDBURL       string
	dataDir            string
	endpoint           config.Endpoint
	vector             config.VectorConfig
	sync               config.SyncConfig
	messaging          config.MessagingConfig
	contentSource      content.Source
	embedder           embedding.Embedder
	vectorStore        vector.Store
	metrics            *metrics.Metrics
	logger             *slog.Logger
	apiKeys            []string
	workerCount        int
	workerPollPeriod   time.Duration
	workerMaxAttempts  int
	searchLimit        int
	backgroundDisabled bool
	closers            []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
// This ensures all defaults come from the single source of truth.
func newClientConfig() *clientConfig {
	return &clientConfig{
		dataDir:           config.DefaultDataDir(),
		endpoint:          config.NewEndpoint(),
		vector:            config.NewVectorConfig(),
		sync:              config.NewSyncConfig(),
		messaging:         config.NewMessagingConfig(),
		workerCount:       config.DefaultWorkerCount,
		workerPollPeriod:  config.DefaultWorkerPollInterval,
		workerMaxAttempts: config.DefaultWorkerMaxAttempts,
		searchLimit:       config.DefaultSearchLimit,
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithAppConfig applies every setting of a loaded AppConfig.
func WithAppConfig(app config.AppConfig) Option {
	return func(cfg *clientConfig) {
		cfg.dbURL = app.DBURL()
		cfg.contentDBURL = app.ContentDBURL()
		cfg.dataDir = app.DataDir()
		cfg.endpoint = app.EmbeddingEndpoint()
		cfg.vector = app.Vector()
		cfg.sync = app.Sync()
		cfg.messaging = app.Messaging()
		cfg.apiKeys = app.APIKeys()
		cfg.workerCount = app.WorkerCount()
		cfg.workerPollPeriod = app.WorkerPollInterval()
		cfg.workerMaxAttempts = app.WorkerMaxAttempts()
		cfg.searchLimit = app.SearchLimit()
	}
}

// WithSQLite stores queue and mirror tables in a SQLite file.
func WithSQLite(path string) Option {
	return func(cfg *clientConfig) {
		cfg.dbURL = "sqlite:///" + path
	}
}

// WithPostgres stores queue and mirror tables in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(cfg *clientConfig) {
		cfg.dbURL = dsn
	}
}

// WithDatabaseURL sets the local database URL (sqlite:/// or postgres://).
func WithDatabaseURL(url string) Option {
	return func(cfg *clientConfig) {
		cfg.dbURL = url
	}
}

// WithContentDatabaseURL reads CMS content from a separate database. When
// unset, content tables are read from the local database.
func WithContentDatabaseURL(url string) Option {
	return func(cfg *clientConfig) {
		cfg.contentDBURL = url
	}
}

// WithContentSource replaces the database-backed content source.
func WithContentSource(s content.Source) Option {
	return func(cfg *clientConfig) {
		cfg.contentSource = s
	}
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) Option {
	return func(cfg *clientConfig) {
		cfg.dataDir = dir
	}
}

// WithOpenAI configures the OpenAI embedding endpoint with an API key.
func WithOpenAI(apiKey string) Option {
	return func(cfg *clientConfig) {
		cfg.endpoint = config.NewEndpointWithOptions(
			config.WithAPIKey(apiKey),
			config.WithModel(cfg.endpoint.Model()),
			config.WithTimeout(cfg.endpoint.Timeout()),
		)
	}
}

// WithEmbeddingEndpoint configures the embedding endpoint.
func WithEmbeddingEndpoint(e config.Endpoint) Option {
	return func(cfg *clientConfig) {
		cfg.endpoint = e
	}
}

// WithEmbedder replaces the OpenAI embedder.
func WithEmbedder(e embedding.Embedder) Option {
	return func(cfg *clientConfig) {
		cfg.embedder = e
	}
}

// WithVectorConfig configures the vector store backend.
func WithVectorConfig(v config.VectorConfig) Option {
	return func(cfg *clientConfig) {
		cfg.vector = v
	}
}

// WithVectorStore replaces the configured vector store backend.
func WithVectorStore(s vector.Store) Option {
	return func(cfg *clientConfig) {
		cfg.vectorStore = s
	}
}

// WithSyncConfig sets the content selection and cleaning settings.
func WithSyncConfig(s config.SyncConfig) Option {
	return func(cfg *clientConfig) {
		cfg.sync = s
	}
}

// WithMessagingConfig enables the NATS trigger when the URL is set.
func WithMessagingConfig(m config.MessagingConfig) Option {
	return func(cfg *clientConfig) {
		cfg.messaging = m
	}
}

// WithMetrics sets the metrics registry. A fresh one is created otherwise.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *clientConfig) {
		cfg.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *clientConfig) {
		cfg.logger = l
	}
}

// WithAPIKeys sets the keys accepted on write routes.
func WithAPIKeys(keys ...string) Option {
	return func(cfg *clientConfig) {
		cfg.apiKeys = keys
	}
}

// WithWorkerCount sets the number of concurrent queue workers.
func WithWorkerCount(n int) Option {
	return func(cfg *clientConfig) {
		if n > 0 {
			cfg.workerCount = n
		}
	}
}

// WithWorkerPollPeriod sets how often idle workers check the queue.
func WithWorkerPollPeriod(d time.Duration) Option {
	return func(cfg *clientConfig) {
		if d > 0 {
			cfg.workerPollPeriod = d
		}
	}
}

// WithWorkerMaxAttempts sets how many times a failing task is tried.
func WithWorkerMaxAttempts(n int) Option {
	return func(cfg *clientConfig) {
		if n > 0 {
			cfg.workerMaxAttempts = n
		}
	}
}

// WithSearchLimit sets the default number of search matches.
func WithSearchLimit(n int) Option {
	return func(cfg *clientConfig) {
		if n > 0 {
			cfg.searchLimit = n
		}
	}
}

// WithBackgroundDisabled skips starting the queue worker, periodic reindex
// and NATS subscriber. Used by one-shot CLI commands.
func WithBackgroundDisabled() Option {
	return func(cfg *clientConfig) {
		cfg.backgroundDisabled = true
	}
}

// WithCloser registers a resource closed with the client.
func WithCloser(c io.Closer) Option {
	return func(cfg *clientConfig) {
		cfg.closers = append(cfg.closers, c)
	}
}

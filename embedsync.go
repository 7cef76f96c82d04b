// Package embedsync keeps CMS content embedded in an external vector
// database.
//
// For every content entity it cleans the text of each eligible field value,
// embeds it through an OpenAI-compatible endpoint, upserts the vector into
// Pinecone or Milvus and mirrors it into a local table keyed by
// (entity, field, delta).
//
// Basic usage:
//
//	client, err := embedsync.New(
//	    embedsync.WithSQLite(".embedsync/embedsync.db"),
//	    embedsync.WithOpenAI(os.Getenv("OPENAI_API_KEY")),
//	    embedsync.WithVectorConfig(config.NewVectorConfig().
//	        WithPlugin(config.PluginPinecone).
//	        WithPinecone(config.NewPineconeConfig().
//	            WithHostname("https://idx.svc.pinecone.io").
//	            WithAPIKey(os.Getenv("PINECONE_API_KEY")))),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Queue an entity for embedding
//	err = client.Queue.EnqueueSync(ctx, content.NewRef("node", 42, "article"), task.PriorityUserInitiated)
//
//	// Semantic search
//	matches, err := client.Search.Query(ctx, service.SearchRequest{Text: "climate policy"})
package embedsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	entityhandler "github.com/helixml/embedsync/application/handler/entity"
	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/infrastructure/messaging"
	"github.com/helixml/embedsync/infrastructure/metrics"
	"github.com/helixml/embedsync/infrastructure/persistence"
	"github.com/helixml/embedsync/infrastructure/provider"
	"github.com/helixml/embedsync/infrastructure/vectorstore"
	"github.com/helixml/embedsync/internal/config"
	"github.com/helixml/embedsync/internal/database"
)

// ErrClientClosed indicates the client has been closed.
var ErrClientClosed = service.ErrClientClosed

// Client is the main entry point for the embedsync library.
// The background worker starts automatically on creation.
//
// Access operations via struct fields:
//
//	client.Sync.SyncEntity(ctx, ref)
//	client.Queue.EnqueueDelete(ctx, ref, task.PriorityNormal)
//	client.Vectors.Stats(ctx, "node")
type Client struct {
	Sync    *service.Sync
	Queue   *service.Queue
	Search  *service.Search
	Vectors *service.Vectors
	Reindex *service.Reindex

	db         database.Database
	contentDB  *database.Database
	registry   *service.Registry
	worker     *service.Worker
	subscriber *messaging.Subscriber
	metrics    *metrics.Metrics
	closers    []io.Closer
	configErrs []error

	logger     *slog.Logger
	apiKeys    []string
	background bool
	closed     atomic.Bool
	mu         sync.Mutex
}

// New creates a new Client with the given options.
// Unless disabled, the queue worker, periodic reindex and NATS subscriber
// are started.
func New(opts ...Option) (*Client, error) {
	cfg := newClientConfig()

	for _, opt := range opts {
		opt(cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.dbURL == "" {
		dataDir, err := config.PrepareDataDir(cfg.dataDir)
		if err != nil {
			return nil, err
		}
		cfg.dbURL = "sqlite:///" + filepath.Join(dataDir, config.DefaultDBFile)
	}

	ctx := context.Background()
	db, err := database.NewDatabaseWithLogger(ctx, cfg.dbURL, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	if err := persistence.ValidateSchema(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("validate schema: %w", err), errClose)
	}

	client := &Client{
		db:         db,
		metrics:    cfg.metrics,
		closers:    cfg.closers,
		logger:     logger,
		apiKeys:    cfg.apiKeys,
		background: !cfg.backgroundDisabled,
	}
	if client.metrics == nil {
		client.metrics = metrics.New()
	}

	source, err := client.buildContentSource(ctx, cfg)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	embedder, embedErr := buildEmbedder(cfg, logger)
	vectors, vectorErr := buildVectorStore(cfg, logger)
	for _, err := range []error{embedErr, vectorErr} {
		if err != nil {
			client.configErrs = append(client.configErrs, err)
		}
	}

	taskStore := persistence.NewTaskStore(db)
	recordStore := persistence.NewEmbeddingRecordStore(db)

	client.Queue = service.NewQueue(taskStore, logger)
	client.Sync = service.NewSync(source, embedder, vectors, recordStore, cfg.sync, logger).
		WithMetrics(client.metrics)
	client.Search = service.NewSearch(embedder, vectors, logger).WithDefaultLimit(cfg.searchLimit)
	client.Vectors = service.NewVectors(vectors, logger)
	client.Reindex = service.NewReindex(cfg.sync, source, client.Queue, logger)

	client.registry = service.NewRegistry()
	client.registerHandlers()
	if err := client.registry.Validate(); err != nil {
		_ = client.closeDatabases()
		return nil, fmt.Errorf("register handlers: %w", err)
	}

	client.worker = service.NewWorker(taskStore, client.registry, logger).
		WithCount(cfg.workerCount).
		WithPollPeriod(cfg.workerPollPeriod).
		WithMaxAttempts(cfg.workerMaxAttempts).
		WithMetrics(client.metrics)

	if cfg.messaging.Enabled() {
		client.subscriber = messaging.NewSubscriber(cfg.messaging, client.Queue, logger)
	}

	if client.background {
		if err := client.start(ctx); err != nil {
			_ = client.closeDatabases()
			return nil, err
		}
	}

	return client, nil
}

func (c *Client) start(ctx context.Context) error {
	c.worker.Start(ctx)
	c.Reindex.Start(ctx)
	if c.subscriber != nil {
		if err := c.subscriber.Start(ctx); err != nil {
			c.Reindex.Stop()
			c.worker.Stop()
			return fmt.Errorf("start message subscriber: %w", err)
		}
	}
	return nil
}

func (c *Client) registerHandlers() {
	c.registry.Register(task.OperationSyncEntity, entityhandler.NewSync(c.Sync, c.logger))
	c.registry.Register(task.OperationDeleteEntity, entityhandler.NewDelete(c.Sync, c.logger))
}

func (c *Client) buildContentSource(ctx context.Context, cfg *clientConfig) (content.Source, error) {
	if cfg.contentSource != nil {
		return cfg.contentSource, nil
	}
	if cfg.contentDBURL == "" || cfg.contentDBURL == cfg.dbURL {
		return persistence.NewContentSource(c.db), nil
	}

	contentDB, err := database.NewDatabaseWithLogger(ctx, cfg.contentDBURL, c.logger)
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}
	c.contentDB = &contentDB
	return persistence.NewContentSource(contentDB), nil
}

// buildEmbedder returns the configured embedder. Missing settings do not
// stop the client: every Embed call reports the configuration error instead.
func buildEmbedder(cfg *clientConfig, logger *slog.Logger) (embedding.Embedder, error) {
	if cfg.embedder != nil {
		return cfg.embedder, nil
	}
	embedder, err := provider.NewOpenAIEmbedder(cfg.endpoint)
	if err != nil {
		logger.Warn("embedding endpoint not configured", slog.String("error", err.Error()))
		return unconfiguredEmbedder{err: err}, err
	}
	return embedder, nil
}

// buildVectorStore returns the configured backend, or one that reports the
// configuration error on every call.
func buildVectorStore(cfg *clientConfig, logger *slog.Logger) (vector.Store, error) {
	if cfg.vectorStore != nil {
		return cfg.vectorStore, nil
	}
	store, err := vectorstore.New(cfg.vector, logger)
	if err != nil {
		logger.Warn("vector store not configured", slog.String("error", err.Error()))
		return unconfiguredStore{err: err}, err
	}
	return store, nil
}

// Close stops background processing and releases the databases.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.background {
		if c.subscriber != nil {
			c.subscriber.Stop()
		}
		c.Reindex.Stop()
		c.worker.Stop()
	}

	for _, closer := range c.closers {
		if err := closer.Close(); err != nil {
			c.logger.Error("failed to close resource", slog.Any("error", err))
		}
	}

	if err := c.closeDatabases(); err != nil {
		return err
	}

	c.logger.Info("embedsync client closed")
	return nil
}

func (c *Client) closeDatabases() error {
	var errs []error
	if c.contentDB != nil {
		if err := c.contentDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close content database: %w", err))
		}
	}
	if err := c.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

// ProcessQueue runs queued tasks in the calling goroutine until the queue is
// empty. It returns how many tasks were processed.
func (c *Client) ProcessQueue(ctx context.Context) (int, error) {
	processed := 0
	for {
		found, err := c.worker.ProcessOne(ctx)
		if err != nil {
			return processed, err
		}
		if !found {
			return processed, nil
		}
		processed++
	}
}

// Metrics returns the client's metrics registry.
func (c *Client) Metrics() *metrics.Metrics {
	return c.metrics
}

// APIKeys returns the keys accepted on write routes.
func (c *Client) APIKeys() []string {
	return append([]string(nil), c.apiKeys...)
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Ready reports whether embedding and vector storage are configured. The
// returned error matches failure.ErrConfiguration.
func (c *Client) Ready() error {
	return errors.Join(c.configErrs...)
}

type unconfiguredEmbedder struct {
	err error
}

func (u unconfiguredEmbedder) Embed(context.Context, string, string) (embedding.Vector, error) {
	return embedding.Vector{}, u.err
}

type unconfiguredStore struct {
	err error
}

func (u unconfiguredStore) Name() string { return "unconfigured" }

func (u unconfiguredStore) Upsert(context.Context, string, []vector.Record) error { return u.err }

func (u unconfiguredStore) Delete(context.Context, string, []string, vector.Filter) error {
	return u.err
}

func (u unconfiguredStore) DeleteAll(context.Context, string) error { return u.err }

func (u unconfiguredStore) Query(context.Context, vector.Query) ([]vector.Match, error) {
	return nil, u.err
}

func (u unconfiguredStore) Fetch(context.Context, string, []string) ([]vector.Record, error) {
	return nil, u.err
}

func (u unconfiguredStore) Stats(context.Context, string) ([]vector.PartitionStats, error) {
	return nil, u.err
}


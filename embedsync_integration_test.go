package embedsync_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
	"github.com/helixml/embedsync/internal/database"
)

const testPollPeriod = 20 * time.Millisecond

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text, _ string) (embedding.Vector, error) {
	return embedding.NewVector([]float64{float64(len(text)), 1}, "stub", embedding.NewUsage(2, 2)), nil
}

type memoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]vector.Record
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]map[string]vector.Record{}}
}

func (m *memoryStore) Name() string { return "memory" }

func (m *memoryStore) Upsert(_ context.Context, collection string, records []vector.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[collection] == nil {
		m.records[collection] = map[string]vector.Record{}
	}
	for _, r := range records {
		m.records[collection][r.ID()] = r
	}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, collection string, _ []string, filter vector.Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.records[collection] {
		for _, v := range filter[embedding.MetaEntityID] {
			if r.Metadata()[embedding.MetaEntityID] == v {
				delete(m.records[collection], id)
			}
		}
	}
	return nil
}

func (m *memoryStore) DeleteAll(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, collection)
	return nil
}

func (m *memoryStore) Query(context.Context, vector.Query) ([]vector.Match, error) {
	return nil, nil
}

func (m *memoryStore) Fetch(context.Context, string, []string) ([]vector.Record, error) {
	return nil, nil
}

func (m *memoryStore) Stats(_ context.Context, collection string) ([]vector.PartitionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []vector.PartitionStats{{Name: collection, RecordCount: int64(len(m.records[collection]))}}, nil
}

func (m *memoryStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[collection])
}

// seedDrupal creates a SQLite file holding a minimal Drupal content schema.
func seedDrupal(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "site.db")
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite:///"+path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	statements := []string{
		`CREATE TABLE node (nid INTEGER PRIMARY KEY, type TEXT NOT NULL)`,
		`CREATE TABLE field_config (field_name TEXT PRIMARY KEY, type TEXT NOT NULL)`,
		`CREATE TABLE field_config_instance (id INTEGER PRIMARY KEY, field_name TEXT, entity_type TEXT, bundle TEXT)`,
		`CREATE TABLE field_data_body (entity_type TEXT, entity_id INTEGER, delta INTEGER, body_value TEXT, deleted INTEGER NOT NULL DEFAULT 0)`,
		`INSERT INTO node (nid, type) VALUES (1, 'article'), (2, 'article'), (3, 'page')`,
		`INSERT INTO field_config (field_name, type) VALUES ('body', 'text_with_summary')`,
		`INSERT INTO field_config_instance (id, field_name, entity_type, bundle) VALUES (1, 'body', 'node', 'article'), (2, 'body', 'node', 'page')`,
		`INSERT INTO field_data_body (entity_type, entity_id, delta, body_value) VALUES
			('node', 1, 0, '<p>Renewable energy targets</p>'),
			('node', 1, 1, '<p>Offshore wind</p>'),
			('node', 2, 0, '<p>Local elections</p>'),
			('node', 3, 0, '<p>About us</p>')`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Session(ctx).Exec(stmt).Error, stmt)
	}
	return path
}

func newClient(t *testing.T, store vector.Store, opts ...embedsync.Option) *embedsync.Client {
	t.Helper()
	base := []embedsync.Option{
		embedsync.WithSQLite(seedDrupal(t)),
		embedsync.WithDataDir(t.TempDir()),
		embedsync.WithEmbedder(stubEmbedder{}),
		embedsync.WithVectorStore(store),
		embedsync.WithSyncConfig(config.NewSyncConfig().WithNodeTypes([]string{"article"})),
		embedsync.WithWorkerPollPeriod(testPollPeriod),
	}
	client, err := embedsync.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClient_QueuedSyncReachesVectorStore(t *testing.T) {
	store := newMemoryStore()
	client := newClient(t, store)
	ctx := context.Background()

	require.NoError(t, client.Queue.EnqueueSync(ctx, content.NewRef("node", 1, "article"), task.PriorityUserInitiated))

	require.Eventually(t, func() bool {
		return store.count("node") == 2
	}, 5*time.Second, testPollPeriod)

	require.Eventually(t, func() bool {
		n, err := client.Queue.Count(ctx)
		return err == nil && n == 0
	}, 5*time.Second, testPollPeriod)
}

func TestClient_ReindexAndProcessInline(t *testing.T) {
	store := newMemoryStore()
	client := newClient(t, store, embedsync.WithBackgroundDisabled())
	ctx := context.Background()

	queued, err := client.Reindex.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, queued, "page bundle is not enabled")

	processed, err := client.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	assert.Equal(t, 3, store.count("node"))

	require.NoError(t, client.Queue.EnqueueDelete(ctx, content.NewRef("node", 1, "article"), task.PriorityNormal))
	_, err = client.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, store.count("node"))
}

func TestClient_SyncNow(t *testing.T) {
	client := newClient(t, newMemoryStore(), embedsync.WithBackgroundDisabled())

	result, err := client.Sync.SyncEntity(context.Background(), content.NewRef("node", 3, ""))
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Equal(t, "page", result.Ref.Bundle())
}

func TestClient_UnconfiguredBackendsReportConfigurationErrors(t *testing.T) {
	client, err := embedsync.New(
		embedsync.WithSQLite(seedDrupal(t)),
		embedsync.WithDataDir(t.TempDir()),
		embedsync.WithBackgroundDisabled(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.ErrorIs(t, client.Ready(), failure.ErrConfiguration)

	_, err = client.Search.Query(context.Background(), service.SearchRequest{Text: "wind"})
	assert.ErrorIs(t, err, failure.ErrConfiguration)

	_, err = client.Vectors.Stats(context.Background(), "")
	assert.ErrorIs(t, err, failure.ErrConfiguration)
}

func TestClient_CloseTwice(t *testing.T) {
	client, err := embedsync.New(
		embedsync.WithSQLite(seedDrupal(t)),
		embedsync.WithDataDir(t.TempDir()),
		embedsync.WithEmbedder(stubEmbedder{}),
		embedsync.WithVectorStore(newMemoryStore()),
	)
	require.NoError(t, err)
	require.NoError(t, client.Close())
	assert.ErrorIs(t, client.Close(), embedsync.ErrClientClosed)
}

package v1_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
	"github.com/helixml/embedsync/internal/database"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text, _ string) (embedding.Vector, error) {
	return embedding.NewVector([]float64{float64(len(text)), 1}, "stub", embedding.NewUsage(1, 1)), nil
}

// memoryStore is a vector store kept in a map. Purging "protected" is
// refused the way a Pinecone index without namespaces refuses it.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]map[string]vector.Record
	lastQ   vector.Query
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

func (m *memoryStore) Delete(context.Context, string, []string, vector.Filter) error { return nil }

func (m *memoryStore) DeleteAll(_ context.Context, collection string) error {
	if collection == "protected" {
		return failure.NewGuardRejection("memory", "delete_all", "namespace disabled")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, collection)
	return nil
}

func (m *memoryStore) Query(_ context.Context, q vector.Query) ([]vector.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQ = q
	return []vector.Match{
		vector.NewMatch("entity:1:node:article:body:0", 0.9, map[string]any{"entity_id": int64(1)}),
	}, nil
}

func (m *memoryStore) Fetch(context.Context, string, []string) ([]vector.Record, error) {
	return nil, nil
}

func (m *memoryStore) Stats(_ context.Context, collection string) ([]vector.PartitionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return []vector.PartitionStats{{Name: "node", RecordCount: int64(len(m.records["node"]))}}, nil
}

func (m *memoryStore) count(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[collection])
}

// newTestClient returns a client over a SQLite file that also holds a small
// Drupal schema with article node 1.
func newTestClient(t *testing.T, store vector.Store) *embedsync.Client {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite:///"+path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE node (nid INTEGER PRIMARY KEY, type TEXT NOT NULL)`,
		`CREATE TABLE field_config (field_name TEXT PRIMARY KEY, type TEXT NOT NULL)`,
		`CREATE TABLE field_config_instance (id INTEGER PRIMARY KEY, field_name TEXT, entity_type TEXT, bundle TEXT)`,
		`CREATE TABLE field_data_body (entity_type TEXT, entity_id INTEGER, delta INTEGER, body_value TEXT, deleted INTEGER NOT NULL DEFAULT 0)`,
		`INSERT INTO node (nid, type) VALUES (1, 'article')`,
		`INSERT INTO field_config (field_name, type) VALUES ('body', 'text_long')`,
		`INSERT INTO field_config_instance (id, field_name, entity_type, bundle) VALUES (1, 'body', 'node', 'article')`,
		`INSERT INTO field_data_body (entity_type, entity_id, delta, body_value) VALUES ('node', 1, 0, '<p>Tidal power</p>')`,
	} {
		require.NoError(t, db.Session(ctx).Exec(stmt).Error, stmt)
	}
	require.NoError(t, db.Close())

	client, err := embedsync.New(
		embedsync.WithSQLite(path),
		embedsync.WithDataDir(t.TempDir()),
		embedsync.WithEmbedder(stubEmbedder{}),
		embedsync.WithVectorStore(store),
		embedsync.WithSyncConfig(config.NewSyncConfig().WithNodeTypes([]string{"article"})),
		embedsync.WithBackgroundDisabled(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

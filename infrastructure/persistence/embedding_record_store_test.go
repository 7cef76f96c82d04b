package persistence

import (
	"context"
	"testing"

	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id int64, field string, delta int, values ...float64) embedding.Record {
	target := embedding.NewTarget("node", id, "article", field, delta)
	return embedding.NewRecord(target, embedding.NewVector(values, "text-embedding-ada-002", embedding.NewUsage(4, 4)))
}

func TestEmbeddingRecordStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewEmbeddingRecordStore(newTestDB(t))

	require.NoError(t, store.Upsert(ctx, newRecord(42, "body", 0, 0.1, 0.2)))
	require.NoError(t, store.Upsert(ctx, newRecord(42, "body", 0, 0.3, 0.4)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	records, err := store.Find(ctx, repository.WithEntityID(42))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []float64{0.3, 0.4}, records[0].Vector().Values())
	assert.Equal(t, "text-embedding-ada-002", records[0].Vector().Model())
	assert.Equal(t, 4, records[0].Vector().Usage().TotalTokens())
	assert.Equal(t, "entity:42:node:article:body:0", records[0].Target().SourceID())
}

func TestEmbeddingRecordStore_StoredJSONShape(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewEmbeddingRecordStore(db)

	require.NoError(t, store.Upsert(ctx, newRecord(7, "title", 0, 0.5, 0.25)))

	var row struct {
		Embedding string
		Data      string
	}
	require.NoError(t, db.Session(ctx).Raw("SELECT embedding, data FROM embedding_records").Scan(&row).Error)
	assert.JSONEq(t, `{"data":[0.5,0.25]}`, row.Embedding)
	assert.JSONEq(t, `{"usage":{"prompt_tokens":4,"total_tokens":4},"model":"text-embedding-ada-002"}`, row.Data)
}

func TestEmbeddingRecordStore_DeltasAreDistinctRows(t *testing.T) {
	ctx := context.Background()
	store := NewEmbeddingRecordStore(newTestDB(t))

	for delta := 0; delta < 3; delta++ {
		require.NoError(t, store.Upsert(ctx, newRecord(42, "body", delta, float64(delta))))
	}

	count, err := store.Count(ctx, repository.WithFieldName("body"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	records, err := store.Find(ctx, repository.WithFieldDelta(2))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].Target().Delta())
}

func TestEmbeddingRecordStore_DeleteByEntity(t *testing.T) {
	ctx := context.Background()
	store := NewEmbeddingRecordStore(newTestDB(t))

	require.NoError(t, store.Upsert(ctx, newRecord(1, "body", 0, 1)))
	require.NoError(t, store.Upsert(ctx, newRecord(1, "title", 0, 1)))
	require.NoError(t, store.Upsert(ctx, newRecord(2, "body", 0, 1)))

	require.NoError(t, store.DeleteByEntity(ctx, "node", 1))

	remaining, err := store.Find(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].Target().EntityID())
}

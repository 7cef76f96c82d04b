package vectorstore

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/helixml/embedsync/domain/failure"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPinecone(t *testing.T, url string, disableNamespace bool) *Pinecone {
	t.Helper()
	cfg := config.NewPineconeConfig().
		WithHostname(url + "/").
		WithAPIKey(" pk-test ").
		WithDisableNamespace(disableNamespace)
	p, err := NewPinecone(cfg, nil)
	require.NoError(t, err)
	return p
}

func okJSON(_ recordedRequest) (int, any) {
	return http.StatusOK, map[string]any{}
}

func sampleRecord() vector.Record {
	return vector.NewRecord("entity:42:node:article:body:0", []float64{0.1, 0.2}, map[string]any{
		"entity_id":   int64(42),
		"entity_type": "node",
		"bundle":      "article",
		"field_name":  "body",
		"field_delta": 0,
	})
}

func TestNewPinecone_Configuration(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PineconeConfig
	}{
		{"missing host", config.NewPineconeConfig().WithAPIKey("k")},
		{"relative host", config.NewPineconeConfig().WithHostname("index.pinecone.io").WithAPIKey("k")},
		{"bad scheme", config.NewPineconeConfig().WithHostname("ftp://index.pinecone.io").WithAPIKey("k")},
		{"missing key", config.NewPineconeConfig().WithHostname("https://index.pinecone.io").WithAPIKey("  ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPinecone(tt.cfg, nil)
			assert.ErrorIs(t, err, failure.ErrConfiguration)
		})
	}
}

func TestPinecone_Upsert(t *testing.T) {
	api := newFakeAPI(t, okJSON)
	p := newTestPinecone(t, api.URL, false)

	require.NoError(t, p.Upsert(context.Background(), "node", []vector.Record{sampleRecord()}))

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/vectors/upsert", reqs[0].Path)
	assert.Equal(t, "pk-test", reqs[0].Header.Get("API-Key"))
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.JSONEq(t, `{
		"vectors": [{
			"id": "entity:42:node:article:body:0",
			"values": [0.1, 0.2],
			"metadata": {"entity_id": 42, "entity_type": "node", "bundle": "article", "field_name": "body", "field_delta": 0}
		}],
		"namespace": "node"
	}`, reqs[0].Body)
}

func TestPinecone_UpsertWithoutNamespace(t *testing.T) {
	api := newFakeAPI(t, okJSON)
	p := newTestPinecone(t, api.URL, true)

	require.NoError(t, p.Upsert(context.Background(), "node", []vector.Record{sampleRecord()}))
	assert.NotContains(t, api.Requests()[0].Body, "namespace")
}

func TestPinecone_UpsertEmptyIsNoop(t *testing.T) {
	api := newFakeAPI(t, okJSON)
	p := newTestPinecone(t, api.URL, false)

	require.NoError(t, p.Upsert(context.Background(), "node", nil))
	assert.Empty(t, api.Requests())
}

func TestPinecone_Query(t *testing.T) {
	api := newFakeAPI(t, func(recordedRequest) (int, any) {
		return http.StatusOK, map[string]any{
			"matches": []map[string]any{
				{"id": "entity:1:node:article:body:0", "score": 0.91, "metadata": map[string]any{"bundle": "article"}},
				{"id": "entity:2:node:article:body:0", "score": 0.52},
			},
		}
	})
	p := newTestPinecone(t, api.URL, false)

	matches, err := p.Query(context.Background(), vector.Query{
		Collection:      "node",
		Vector:          []float64{0.5},
		Filter:          vector.Filter{"bundle": {"article"}},
		IncludeMetadata: true,
	})
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, "entity:1:node:article:body:0", matches[0].ID())
	assert.InDelta(t, 0.91, matches[0].Score(), 1e-9)
	assert.Equal(t, "article", matches[0].Metadata()["bundle"])

	req := api.Requests()[0]
	assert.Equal(t, "/query", req.Path)
	assert.JSONEq(t, `{
		"vector": [0.5],
		"topK": 5,
		"includeMetadata": true,
		"includeValues": false,
		"namespace": "node",
		"filter": {"bundle": {"$in": ["article"]}}
	}`, req.Body)
}

func TestPinecone_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("by ids", func(t *testing.T) {
		api := newFakeAPI(t, okJSON)
		p := newTestPinecone(t, api.URL, false)
		require.NoError(t, p.Delete(ctx, "node", []string{"a", "b"}, nil))
		assert.JSONEq(t, `{"ids":["a","b"],"namespace":"node"}`, api.Requests()[0].Body)
		assert.Equal(t, "/vectors/delete", api.Requests()[0].Path)
	})

	t.Run("by filter", func(t *testing.T) {
		api := newFakeAPI(t, okJSON)
		p := newTestPinecone(t, api.URL, false)
		require.NoError(t, p.Delete(ctx, "node", nil, vector.Filter{"entity_id": {int64(42)}}))
		assert.JSONEq(t, `{"filter":{"entity_id":{"$in":[42]}},"namespace":"node"}`, api.Requests()[0].Body)
	})

	t.Run("neither", func(t *testing.T) {
		api := newFakeAPI(t, okJSON)
		p := newTestPinecone(t, api.URL, false)
		assert.ErrorIs(t, p.Delete(ctx, "node", nil, nil), failure.ErrVectorStore)
		assert.Empty(t, api.Requests())
	})

	t.Run("both", func(t *testing.T) {
		api := newFakeAPI(t, okJSON)
		p := newTestPinecone(t, api.URL, false)
		err := p.Delete(ctx, "node", []string{"a"}, vector.Filter{"bundle": {"page"}})
		assert.ErrorIs(t, err, failure.ErrVectorStore)
		assert.Empty(t, api.Requests())
	})
}

func TestPinecone_DeleteAll(t *testing.T) {
	api := newFakeAPI(t, okJSON)
	p := newTestPinecone(t, api.URL, false)

	require.NoError(t, p.DeleteAll(context.Background(), "node"))
	assert.JSONEq(t, `{"deleteAll":true,"namespace":"node"}`, api.Requests()[0].Body)
}

func TestPinecone_DeleteAllGuardedWhenNamespacesDisabled(t *testing.T) {
	api := newFakeAPI(t, okJSON)
	p := newTestPinecone(t, api.URL, true)

	err := p.DeleteAll(context.Background(), "node")
	assert.ErrorIs(t, err, failure.ErrGuardRejected)
	assert.Empty(t, api.Requests(), "guard must reject before any network call")
}

func TestPinecone_Fetch(t *testing.T) {
	api := newFakeAPI(t, func(recordedRequest) (int, any) {
		return http.StatusOK, map[string]any{
			"vectors": map[string]any{
				"b": map[string]any{"id": "b", "values": []float64{2}},
				"a": map[string]any{"id": "a", "values": []float64{1}, "metadata": map[string]any{"bundle": "page"}},
			},
		}
	})
	p := newTestPinecone(t, api.URL, false)

	records, err := p.Fetch(context.Background(), "node", []string{"a", "b", "missing"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID())
	assert.Equal(t, []float64{1}, records[0].Values())
	assert.Equal(t, "page", records[0].Metadata()["bundle"])

	req := api.Requests()[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/vectors/fetch", req.Path)
	assert.Equal(t, []string{"a", "b", "missing"}, req.Query["ids"])
	assert.Equal(t, "node", req.Query.Get("namespace"))
}

func TestPinecone_Stats(t *testing.T) {
	api := newFakeAPI(t, func(recordedRequest) (int, any) {
		return http.StatusOK, map[string]any{
			"namespaces": map[string]any{
				"":     map[string]any{"vectorCount": 3},
				"node": map[string]any{"vectorCount": 12},
			},
		}
	})
	p := newTestPinecone(t, api.URL, false)

	stats, err := p.Stats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []vector.PartitionStats{
		{Name: NoNamespaceLabel, RecordCount: 3},
		{Name: "node", RecordCount: 12},
	}, stats)
	assert.Equal(t, "/describe_index_stats", api.Requests()[0].Path)

	stats, err = p.Stats(context.Background(), "node")
	require.NoError(t, err)
	assert.Equal(t, []vector.PartitionStats{{Name: "node", RecordCount: 12}}, stats)
}

func TestPinecone_HTTPErrorIsVectorStoreError(t *testing.T) {
	api := newFakeAPI(t, func(recordedRequest) (int, any) {
		return http.StatusUnauthorized, map[string]any{"message": "invalid api key"}
	})
	p := newTestPinecone(t, api.URL, false)

	err := p.Upsert(context.Background(), "node", []vector.Record{sampleRecord()})
	require.ErrorIs(t, err, failure.ErrVectorStore)

	var vsErr *failure.VectorStoreError
	require.True(t, errors.As(err, &vsErr))
	assert.Equal(t, http.StatusUnauthorized, vsErr.StatusCode())
	assert.Equal(t, "upsert", vsErr.Operation())
	assert.Contains(t, vsErr.Message(), "invalid api key")
}

package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.FieldValue(FieldEmbedded)
	m.FieldValue(FieldEmbedded)
	m.FieldValue(FieldFailed)
	m.Item(ItemSynced)
	m.Tokens(12)
	m.Tokens(-1)
	m.QueueDepth(4)
	m.ObserveItem("embedsync.entity.sync", 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fieldValues.WithLabelValues(FieldEmbedded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fieldValues.WithLabelValues(FieldFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.items.WithLabelValues(ItemSynced)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.tokens))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.itemDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FieldValue(FieldSkipped)
		m.Item(ItemFailed)
		m.Tokens(3)
		m.QueueDepth(1)
		m.ObserveItem("x", time.Second)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Item(ItemDeleted)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `embedsync_items_total{outcome="deleted"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

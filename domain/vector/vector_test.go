package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_LimitDefaultsToFive(t *testing.T) {
	assert.Equal(t, 5, Query{}.Limit())
	assert.Equal(t, 5, Query{TopK: -1}.Limit())
	assert.Equal(t, 12, Query{TopK: 12}.Limit())
}

func TestFilter_KeysSorted(t *testing.T) {
	f := Filter{"field_name": {"body"}, "bundle": {"article"}, "entity_id": {int64(1)}}
	assert.Equal(t, []string{"bundle", "entity_id", "field_name"}, f.Keys())
	assert.False(t, f.Empty())
	assert.True(t, Filter{}.Empty())
}

func TestRecord_CopiesInput(t *testing.T) {
	values := []float64{1, 2}
	meta := map[string]any{"bundle": "page"}
	r := NewRecord("entity:1:node:page:body:0", values, meta)

	values[0] = 0
	meta["bundle"] = "article"

	assert.Equal(t, []float64{1, 2}, r.Values())
	assert.Equal(t, "page", r.Metadata()["bundle"])
}

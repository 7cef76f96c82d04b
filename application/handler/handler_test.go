package handler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInt64(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int64
		wantErr bool
	}{
		{"int64", int64(7), 7, false},
		{"int", 7, 7, false},
		{"float64 from json", float64(7), 7, false},
		{"json number", json.Number("7"), 7, false},
		{"bad json number", json.Number("7.5"), 0, true},
		{"string", "7", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractInt64(map[string]any{"id": tt.value}, "id")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ExtractInt64(map[string]any{}, "id")
	assert.ErrorContains(t, err, "missing required field: id")
}

func TestExtractString(t *testing.T) {
	got, err := ExtractString(map[string]any{"k": "v"}, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	_, err = ExtractString(map[string]any{"k": 1}, "k")
	assert.ErrorContains(t, err, "expected string")
}

func TestExtractRef(t *testing.T) {
	ref, err := ExtractRef(map[string]any{"entity_type": "node", "entity_id": float64(42), "bundle": "article"})
	require.NoError(t, err)
	assert.Equal(t, "node", ref.EntityType())
	assert.Equal(t, int64(42), ref.EntityID())
	assert.Equal(t, "article", ref.Bundle())

	ref, err = ExtractRef(map[string]any{"entity_type": "node", "entity_id": 3})
	require.NoError(t, err)
	assert.Empty(t, ref.Bundle())

	_, err = ExtractRef(map[string]any{"entity_type": "node", "entity_id": 0})
	assert.Error(t, err)

	_, err = ExtractRef(map[string]any{"entity_id": 3})
	assert.Error(t, err)
}

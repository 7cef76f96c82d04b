package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask_DedupKeyUsesEntityTarget(t *testing.T) {
	payload := map[string]any{"entity_type": "node", "entity_id": int64(42), "bundle": "article"}

	sync := NewTask(OperationSyncEntity, int(PriorityNormal), payload)
	del := NewTask(OperationDeleteEntity, int(PriorityNormal), payload)

	assert.Equal(t, "embedsync.entity.sync:node:42", sync.DedupKey())
	assert.Equal(t, "embedsync.entity.delete:node:42", del.DedupKey())
}

func TestNewTask_DedupKeyIgnoresBundle(t *testing.T) {
	a := NewTask(OperationSyncEntity, 0, map[string]any{"entity_type": "node", "entity_id": 1, "bundle": "page"})
	b := NewTask(OperationSyncEntity, 0, map[string]any{"entity_type": "node", "entity_id": 1, "bundle": "article"})
	assert.Equal(t, a.DedupKey(), b.DedupKey())
}

func TestNewTask_DedupKeyWithoutTargetIsStable(t *testing.T) {
	payload := map[string]any{"b": 2, "a": 1, "c": 3}
	for range 10 {
		assert.Equal(t, "embedsync.entity.sync:1:2:3", NewTask(OperationSyncEntity, 0, payload).DedupKey())
	}
}

func TestNewTask_PayloadIsCopied(t *testing.T) {
	payload := map[string]any{"entity_type": "node", "entity_id": 1}
	task := NewTask(OperationSyncEntity, 0, payload)
	payload["entity_type"] = "user"

	got := task.Payload()
	assert.Equal(t, "node", got["entity_type"])

	got["entity_type"] = "comment"
	assert.Equal(t, "node", task.Payload()["entity_type"])
}

func TestTask_Retry(t *testing.T) {
	task := NewTask(OperationSyncEntity, int(PriorityNormal), map[string]any{"entity_type": "node", "entity_id": 9}).WithID(17)

	retried := task.Retry()
	assert.Equal(t, int64(0), retried.ID())
	assert.Equal(t, 1, retried.Attempts())
	assert.Equal(t, task.DedupKey(), retried.DedupKey())
	assert.Equal(t, 2, retried.Retry().Attempts())
	assert.Equal(t, 0, task.Attempts())
}

func TestTask_PayloadJSON(t *testing.T) {
	task := NewTask(OperationDeleteEntity, 0, map[string]any{"entity_type": "node", "entity_id": 5})
	data, err := task.PayloadJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity_type":"node","entity_id":5}`, string(data))
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		in   string
		want Operation
		ok   bool
	}{
		{"", OperationSyncEntity, true},
		{"sync", OperationSyncEntity, true},
		{"DELETE", OperationDeleteEntity, true},
		{"embedsync.entity.delete", OperationDeleteEntity, true},
		{"purge", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseOperation(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestOperation_IsEntityOperation(t *testing.T) {
	for _, op := range AllOperations() {
		assert.True(t, op.IsEntityOperation(), op.String())
	}
	assert.False(t, Operation("other.thing").IsEntityOperation())
}

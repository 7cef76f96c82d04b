package entity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/content"
)

type fakeSyncer struct {
	refs []content.Ref
	err  error
}

func (f *fakeSyncer) SyncEntity(_ context.Context, ref content.Ref) (service.SyncResult, error) {
	f.refs = append(f.refs, ref)
	return service.SyncResult{Ref: ref, Embedded: 1}, f.err
}

func (f *fakeSyncer) DeleteEntity(_ context.Context, ref content.Ref) error {
	f.refs = append(f.refs, ref)
	return f.err
}

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSync_Execute(t *testing.T) {
	syncer := &fakeSyncer{}
	h := NewSync(syncer, logger())

	err := h.Execute(context.Background(), map[string]any{"entity_type": "node", "entity_id": float64(5), "bundle": "page"})
	require.NoError(t, err)
	require.Len(t, syncer.refs, 1)
	assert.Equal(t, content.NewRef("node", 5, "page"), syncer.refs[0])
}

func TestSync_ExecutePropagatesErrors(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("provider down")}
	h := NewSync(syncer, logger())

	err := h.Execute(context.Background(), map[string]any{"entity_type": "node", "entity_id": 5})
	assert.EqualError(t, err, "provider down")

	err = h.Execute(context.Background(), map[string]any{"entity_type": "node"})
	assert.ErrorContains(t, err, "entity_id")
}

func TestDelete_Execute(t *testing.T) {
	deleter := &fakeSyncer{}
	h := NewDelete(deleter, logger())

	require.NoError(t, h.Execute(context.Background(), map[string]any{"entity_type": "node", "entity_id": int64(8)}))
	require.Len(t, deleter.refs, 1)
	assert.Equal(t, int64(8), deleter.refs[0].EntityID())
}

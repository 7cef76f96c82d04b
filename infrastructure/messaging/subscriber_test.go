package messaging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/internal/config"
)

type enqueued struct {
	op  task.Operation
	ref content.Ref
}

type fakeEnqueuer struct {
	calls []enqueued
	err   error
}

func (f *fakeEnqueuer) EnqueueSync(_ context.Context, ref content.Ref, _ task.Priority) error {
	f.calls = append(f.calls, enqueued{task.OperationSyncEntity, ref})
	return f.err
}

func (f *fakeEnqueuer) EnqueueDelete(_ context.Context, ref content.Ref, _ task.Priority) error {
	f.calls = append(f.calls, enqueued{task.OperationDeleteEntity, ref})
	return f.err
}

func newTestSubscriber(enqueuer Enqueuer) *Subscriber {
	cfg := config.NewMessagingConfig().WithURL("nats://127.0.0.1:1")
	return NewSubscriber(cfg, enqueuer, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSubscriber_HandleEnqueuesByOp(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	s := newTestSubscriber(enqueuer)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, []byte(`{"entity_type":"node","entity_id":42,"bundle":"article"}`)))
	require.NoError(t, s.Handle(ctx, []byte(`{"entity_type":"node","entity_id":43,"bundle":"page","op":"delete"}`)))

	require.Len(t, enqueuer.calls, 2)
	assert.Equal(t, task.OperationSyncEntity, enqueuer.calls[0].op)
	assert.Equal(t, content.NewRef("node", 42, "article"), enqueuer.calls[0].ref)
	assert.Equal(t, task.OperationDeleteEntity, enqueuer.calls[1].op)
	assert.Equal(t, int64(43), enqueuer.calls[1].ref.EntityID())
}

func TestSubscriber_HandleMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `entity 42`},
		{"unknown op", `{"entity_type":"node","entity_id":1,"op":"purge"}`},
		{"missing id", `{"entity_type":"node"}`},
		{"missing type", `{"entity_id":5}`},
		{"string id", `{"entity_type":"node","entity_id":"5"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enqueuer := &fakeEnqueuer{}
			err := newTestSubscriber(enqueuer).Handle(context.Background(), []byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedEvent)
			assert.Empty(t, enqueuer.calls)
		})
	}
}

func TestSubscriber_HandleEnqueueFailure(t *testing.T) {
	enqueuer := &fakeEnqueuer{err: errors.New("database is locked")}
	err := newTestSubscriber(enqueuer).Handle(context.Background(), []byte(`{"entity_type":"node","entity_id":1}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedEvent)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSubscriber_StartFailsWithoutServer(t *testing.T) {
	s := newTestSubscriber(&fakeEnqueuer{})
	err := s.Start(context.Background())
	assert.ErrorContains(t, err, "connect to nats")
	assert.Equal(t, config.DefaultNATSSubject, s.Subject())
	s.Stop()
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/repository"
	"github.com/helixml/embedsync/domain/task"
)

// TaskListParams configures task listing.
type TaskListParams struct {
	Operation *task.Operation
	Limit     int
	Offset    int
}

// Queue provides the main interface for enqueuing and managing tasks.
type Queue struct {
	store  task.TaskStore
	logger *slog.Logger
}

// NewQueue creates a new queue service.
func NewQueue(store task.TaskStore, logger *slog.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger,
	}
}

// Enqueue adds a task to the queue.
// If a task with the same dedup_key exists, it updates the priority instead.
func (s *Queue) Enqueue(ctx context.Context, t task.Task) error {
	_, err := s.store.Save(ctx, t)
	if err != nil {
		return err
	}

	s.logger.Debug("task enqueued",
		slog.String("dedup_key", t.DedupKey()),
		slog.String("operation", t.Operation().String()),
		slog.Int("attempts", t.Attempts()),
	)
	return nil
}

// EnqueueSync queues an embedding sync of one entity.
func (s *Queue) EnqueueSync(ctx context.Context, ref content.Ref, priority task.Priority) error {
	return s.enqueueRef(ctx, task.OperationSyncEntity, ref, priority)
}

// EnqueueDelete queues removal of one entity's vectors and mirror rows.
func (s *Queue) EnqueueDelete(ctx context.Context, ref content.Ref, priority task.Priority) error {
	return s.enqueueRef(ctx, task.OperationDeleteEntity, ref, priority)
}

// EnqueueRefs queues the same operation for many entities. It stops at the
// first failure and reports how many were queued.
func (s *Queue) EnqueueRefs(ctx context.Context, operation task.Operation, refs []content.Ref, priority task.Priority) (int, error) {
	for i, ref := range refs {
		if err := s.enqueueRef(ctx, operation, ref, priority); err != nil {
			return i, err
		}
	}
	return len(refs), nil
}

func (s *Queue) enqueueRef(ctx context.Context, operation task.Operation, ref content.Ref, priority task.Priority) error {
	if err := ref.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRef, err)
	}
	return s.Enqueue(ctx, task.NewTask(operation, int(priority), RefPayload(ref)))
}

// RefPayload builds the task payload that identifies an entity.
func RefPayload(ref content.Ref) map[string]any {
	return map[string]any{
		task.KeyEntityType: ref.EntityType(),
		task.KeyEntityID:   ref.EntityID(),
		task.KeyBundle:     ref.Bundle(),
	}
}

// List returns tasks matching the given params.
// Tasks are sorted by priority (highest first) then by created_at (oldest first).
func (s *Queue) List(ctx context.Context, params *TaskListParams) ([]task.Task, error) {
	var options []repository.Option

	if params != nil && params.Operation != nil {
		options = append(options, repository.WithOperation(params.Operation.String()))
	}
	if params != nil && params.Limit > 0 {
		options = append(options, repository.WithPagination(params.Limit, params.Offset)...)
	}

	return s.store.FindPending(ctx, options...)
}

// Count returns the total number of pending tasks.
func (s *Queue) Count(ctx context.Context) (int64, error) {
	return s.store.CountPending(ctx)
}

// Get retrieves a task by ID.
func (s *Queue) Get(ctx context.Context, id int64) (task.Task, error) {
	return s.store.Get(ctx, id)
}

// Clear removes every pending task.
func (s *Queue) Clear(ctx context.Context) error {
	if err := s.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	s.logger.Info("queue cleared")
	return nil
}

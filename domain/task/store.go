package task

import (
	"context"

	"github.com/helixml/embedsync/domain/repository"
)

// TaskStore defines operations for persisting and retrieving tasks.
type TaskStore interface {
	// Get retrieves a task by ID.
	Get(ctx context.Context, id int64) (Task, error)

	// FindAll retrieves all tasks.
	FindAll(ctx context.Context) ([]Task, error)

	// FindPending retrieves pending tasks ordered by priority.
	FindPending(ctx context.Context, options ...repository.Option) ([]Task, error)

	// Save creates a new task or updates an existing one. A task whose
	// dedup_key is already queued updates the queued row instead.
	Save(ctx context.Context, task Task) (Task, error)

	// SaveBulk creates or updates multiple tasks.
	SaveBulk(ctx context.Context, tasks []Task) ([]Task, error)

	// Delete removes a task.
	Delete(ctx context.Context, task Task) error

	// DeleteAll removes all tasks.
	DeleteAll(ctx context.Context) error

	// CountPending returns the number of pending tasks.
	CountPending(ctx context.Context, options ...repository.Option) (int64, error)

	// Exists checks if a task with the given ID exists.
	Exists(ctx context.Context, id int64) (bool, error)

	// Dequeue retrieves and removes the highest priority task.
	Dequeue(ctx context.Context) (Task, bool, error)

	// DequeueByOperation retrieves and removes the highest priority task
	// of the given operation.
	DequeueByOperation(ctx context.Context, operation Operation) (Task, bool, error)
}

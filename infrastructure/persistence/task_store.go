package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/helixml/embedsync/domain/repository"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// queueOrder is the order in which pending tasks are handed out.
const queueOrder = "priority DESC, created_at ASC, id ASC"

// dedupConflict upserts on the dedup key so a re-enqueued item replaces the
// queued row rather than duplicating it.
var dedupConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "dedup_key"}},
	DoUpdates: clause.AssignmentColumns([]string{"priority", "attempts", "updated_at"}),
}

// TaskStore implements task.TaskStore using GORM.
type TaskStore struct {
	db     database.Database
	mapper TaskMapper
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(db database.Database) TaskStore {
	return TaskStore{
		db:     db,
		mapper: TaskMapper{},
	}
}

// Get retrieves a task by ID.
func (s TaskStore) Get(ctx context.Context, id int64) (task.Task, error) {
	var model TaskModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return task.Task{}, fmt.Errorf("%w: task id %d", database.ErrNotFound, id)
		}
		return task.Task{}, fmt.Errorf("get task: %w", result.Error)
	}
	return s.mapper.ToDomain(model)
}

// FindAll retrieves all tasks.
func (s TaskStore) FindAll(ctx context.Context) ([]task.Task, error) {
	var models []TaskModel
	if err := s.db.Session(ctx).Order(queueOrder).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find all tasks: %w", err)
	}
	return s.toDomains(models)
}

// FindPending retrieves pending tasks ordered by priority.
func (s TaskStore) FindPending(ctx context.Context, options ...repository.Option) ([]task.Task, error) {
	var models []TaskModel
	db := database.ApplyOptions(s.db.Session(ctx).Order(queueOrder), options...)
	if err := db.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("find pending tasks: %w", err)
	}
	return s.toDomains(models)
}

// Save creates a new task or updates the queued task with the same dedup key.
func (s TaskStore) Save(ctx context.Context, t task.Task) (task.Task, error) {
	model, err := s.mapper.ToModel(t)
	if err != nil {
		return task.Task{}, err
	}

	if err := s.db.Session(ctx).Clauses(dedupConflict).Create(&model).Error; err != nil {
		return task.Task{}, fmt.Errorf("save task: %w", err)
	}
	return s.mapper.ToDomain(model)
}

// SaveBulk creates or updates multiple tasks.
func (s TaskStore) SaveBulk(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	if len(tasks) == 0 {
		return []task.Task{}, nil
	}

	models := make([]TaskModel, len(tasks))
	for i, t := range tasks {
		model, err := s.mapper.ToModel(t)
		if err != nil {
			return nil, err
		}
		models[i] = model
	}

	if err := s.db.Session(ctx).Clauses(dedupConflict).Create(&models).Error; err != nil {
		return nil, fmt.Errorf("save tasks bulk: %w", err)
	}
	return s.toDomains(models)
}

// Delete removes a task.
func (s TaskStore) Delete(ctx context.Context, t task.Task) error {
	if err := s.db.Session(ctx).Delete(&TaskModel{}, t.ID()).Error; err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// DeleteAll removes all tasks.
func (s TaskStore) DeleteAll(ctx context.Context) error {
	if err := s.db.Session(ctx).Where("1 = 1").Delete(&TaskModel{}).Error; err != nil {
		return fmt.Errorf("delete all tasks: %w", err)
	}
	return nil
}

// CountPending returns the number of pending tasks.
func (s TaskStore) CountPending(ctx context.Context, options ...repository.Option) (int64, error) {
	var count int64
	db := database.ApplyConditions(s.db.Session(ctx).Model(&TaskModel{}), options...)
	if err := db.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count pending tasks: %w", err)
	}
	return count, nil
}

// Exists checks if a task with the given ID exists.
func (s TaskStore) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	if err := s.db.Session(ctx).Model(&TaskModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check task exists: %w", err)
	}
	return count > 0, nil
}

// Dequeue retrieves and removes the highest priority task. The row is gone
// once claimed; a crash while the task runs loses it until the next reindex.
func (s TaskStore) Dequeue(ctx context.Context) (task.Task, bool, error) {
	return s.dequeue(ctx, func(tx *gorm.DB) *gorm.DB { return tx })
}

// DequeueByOperation retrieves and removes the highest priority task of a
// specific operation.
func (s TaskStore) DequeueByOperation(ctx context.Context, operation task.Operation) (task.Task, bool, error) {
	return s.dequeue(ctx, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("type = ?", operation.String())
	})
}

func (s TaskStore) dequeue(ctx context.Context, scope func(*gorm.DB) *gorm.DB) (task.Task, bool, error) {
	model, err := database.WithTransactionResult(ctx, s.db, func(tx *gorm.DB) (TaskModel, error) {
		var model TaskModel
		result := scope(tx).Order(queueOrder).First(&model)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return TaskModel{}, nil
			}
			return TaskModel{}, result.Error
		}
		return model, tx.Delete(&model).Error
	})
	if err != nil {
		return task.Task{}, false, fmt.Errorf("dequeue task: %w", err)
	}

	if model.ID == 0 {
		return task.Task{}, false, nil
	}

	t, err := s.mapper.ToDomain(model)
	if err != nil {
		return task.Task{}, false, err
	}
	return t, true, nil
}

func (s TaskStore) toDomains(models []TaskModel) ([]task.Task, error) {
	tasks := make([]task.Task, len(models))
	for i, model := range models {
		t, err := s.mapper.ToDomain(model)
		if err != nil {
			return nil, err
		}
		tasks[i] = t
	}
	return tasks, nil
}

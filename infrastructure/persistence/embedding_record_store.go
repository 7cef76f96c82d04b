package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/repository"
	"github.com/helixml/embedsync/internal/database"
	"gorm.io/gorm/clause"
)

// EmbeddingRecordStore implements embedding.RecordStore using GORM.
type EmbeddingRecordStore struct {
	database.Repository[embedding.Record, EmbeddingRecordModel]
}

// NewEmbeddingRecordStore creates a new EmbeddingRecordStore.
func NewEmbeddingRecordStore(db database.Database) EmbeddingRecordStore {
	return EmbeddingRecordStore{
		Repository: database.NewRepository[embedding.Record, EmbeddingRecordModel](db, EmbeddingRecordMapper{}, "embedding record"),
	}
}

// Upsert writes the record, replacing the vector and metadata of any row
// with the same (entity_id, entity_type, bundle, field_name, field_delta).
func (s EmbeddingRecordStore) Upsert(ctx context.Context, record embedding.Record) error {
	model := s.Mapper().ToModel(record)
	now := time.Now().UTC()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = now
	}
	model.UpdatedAt = now

	err := s.DB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "entity_id"},
			{Name: "entity_type"},
			{Name: "bundle"},
			{Name: "field_name"},
			{Name: "field_delta"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "data", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("upsert embedding record %s: %w", record.Target().SourceID(), err)
	}
	return nil
}

// DeleteByEntity removes every row belonging to one entity.
func (s EmbeddingRecordStore) DeleteByEntity(ctx context.Context, entityType string, entityID int64) error {
	return s.DeleteBy(ctx,
		repository.WithEntityType(entityType),
		repository.WithEntityID(entityID),
	)
}

package persistence

import (
	"encoding/json"
	"time"
)

// EmbeddingVector is the JSON document stored in embedding_records.embedding.
type EmbeddingVector struct {
	Data []float64 `json:"data"`
}

// EmbeddingUsage is the token accounting nested in EmbeddingData.
type EmbeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// EmbeddingData is the JSON document stored in embedding_records.data.
type EmbeddingData struct {
	Usage EmbeddingUsage `json:"usage"`
	Model string         `json:"model"`
}

// EmbeddingRecordModel mirrors one vector pushed to the external store.
type EmbeddingRecordModel struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	EntityID   int64           `gorm:"column:entity_id;not null;uniqueIndex:idx_embedding_records_target,priority:1"`
	EntityType string          `gorm:"column:entity_type;type:varchar(32);not null;uniqueIndex:idx_embedding_records_target,priority:2"`
	Bundle     string          `gorm:"column:bundle;type:varchar(128);not null;uniqueIndex:idx_embedding_records_target,priority:3"`
	FieldName  string          `gorm:"column:field_name;type:varchar(32);not null;uniqueIndex:idx_embedding_records_target,priority:4"`
	FieldDelta int             `gorm:"column:field_delta;not null;uniqueIndex:idx_embedding_records_target,priority:5"`
	Embedding  EmbeddingVector `gorm:"column:embedding;type:text;serializer:json"`
	Data       EmbeddingData   `gorm:"column:data;type:text;serializer:json"`
	CreatedAt  time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;not null"`
}

// TableName returns the table name.
func (EmbeddingRecordModel) TableName() string {
	return "embedding_records"
}

// TaskModel represents a queued work item in the database.
type TaskModel struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	DedupKey  string          `gorm:"column:dedup_key;type:varchar(255);uniqueIndex;not null"`
	Type      string          `gorm:"column:type;type:varchar(255);index;not null"`
	Payload   json.RawMessage `gorm:"column:payload;type:jsonb"`
	Priority  int             `gorm:"column:priority;not null"`
	Attempts  int             `gorm:"column:attempts;not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name.
func (TaskModel) TableName() string {
	return "tasks"
}

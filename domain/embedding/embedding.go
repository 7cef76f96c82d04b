// Package embedding holds the embedding target key, the vectors produced for
// it and the local mirror record.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/repository"
)

// Metadata keys attached to every vector record.
const (
	MetaEntityID   = "entity_id"
	MetaEntityType = "entity_type"
	MetaBundle     = "bundle"
	MetaFieldName  = "field_name"
	MetaFieldDelta = "field_delta"
)

// Target is one field value of one entity: the unit of embedding.
type Target struct {
	entityType string
	entityID   int64
	bundle     string
	fieldName  string
	delta      int
}

// NewTarget creates a Target.
func NewTarget(entityType string, entityID int64, bundle, fieldName string, delta int) Target {
	return Target{
		entityType: entityType,
		entityID:   entityID,
		bundle:     bundle,
		fieldName:  fieldName,
		delta:      delta,
	}
}

// TargetFor builds the target for a field value of the referenced entity.
func TargetFor(ref content.Ref, fieldName string, delta int) Target {
	return NewTarget(ref.EntityType(), ref.EntityID(), ref.Bundle(), fieldName, delta)
}

// EntityType returns the entity type.
func (t Target) EntityType() string { return t.entityType }

// EntityID returns the entity id.
func (t Target) EntityID() int64 { return t.entityID }

// Bundle returns the bundle.
func (t Target) Bundle() string { return t.bundle }

// FieldName returns the field name.
func (t Target) FieldName() string { return t.fieldName }

// Delta returns the field value index.
func (t Target) Delta() int { return t.delta }

// SourceID returns the deterministic vector record id for the target,
// e.g. "entity:42:node:article:body:0".
func (t Target) SourceID() string {
	return fmt.Sprintf("entity:%d:%s:%s:%s:%d", t.entityID, t.entityType, t.bundle, t.fieldName, t.delta)
}

// Collection returns the vector collection (namespace) for the target.
func (t Target) Collection() string {
	return CollectionFor(t.entityType)
}

// Metadata returns the metadata stored alongside the vector.
func (t Target) Metadata() map[string]any {
	return map[string]any{
		MetaEntityID:   t.entityID,
		MetaEntityType: t.entityType,
		MetaBundle:     t.bundle,
		MetaFieldName:  t.fieldName,
		MetaFieldDelta: t.delta,
	}
}

// CollectionFor maps an entity type to its collection. All fields and deltas
// of one entity type share a collection.
func CollectionFor(entityType string) string {
	return entityType
}

// Usage records token accounting for one embedding call.
type Usage struct {
	promptTokens int
	totalTokens  int
}

// NewUsage creates a Usage.
func NewUsage(promptTokens, totalTokens int) Usage {
	return Usage{promptTokens: promptTokens, totalTokens: totalTokens}
}

// PromptTokens returns the prompt token count.
func (u Usage) PromptTokens() int { return u.promptTokens }

// TotalTokens returns the total token count.
func (u Usage) TotalTokens() int { return u.totalTokens }

// Vector is an immutable embedding produced by a model.
type Vector struct {
	values []float64
	model  string
	usage  Usage
}

// NewVector creates a Vector. The values are copied.
func NewVector(values []float64, model string, usage Usage) Vector {
	v := make([]float64, len(values))
	copy(v, values)
	return Vector{values: v, model: model, usage: usage}
}

// Values returns a copy of the vector values.
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.values))
	copy(out, v.values)
	return out
}

// Dimension returns the vector length.
func (v Vector) Dimension() int { return len(v.values) }

// Model returns the model that produced the vector.
func (v Vector) Model() string { return v.model }

// Usage returns the token usage.
func (v Vector) Usage() Usage { return v.usage }

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text, model string) (Vector, error)
}

// Record is the local mirror row for one target.
type Record struct {
	id        int64
	target    Target
	vector    Vector
	createdAt time.Time
	updatedAt time.Time
}

// NewRecord creates a Record for a freshly computed vector.
func NewRecord(target Target, vector Vector) Record {
	return Record{target: target, vector: vector}
}

// NewRecordWithID reconstructs a stored Record.
func NewRecordWithID(id int64, target Target, vector Vector, createdAt, updatedAt time.Time) Record {
	return Record{
		id:        id,
		target:    target,
		vector:    vector,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the row id.
func (r Record) ID() int64 { return r.id }

// Target returns the target key.
func (r Record) Target() Target { return r.target }

// Vector returns the stored vector.
func (r Record) Vector() Vector { return r.vector }

// CreatedAt returns when the row was first written.
func (r Record) CreatedAt() time.Time { return r.createdAt }

// UpdatedAt returns when the row was last overwritten.
func (r Record) UpdatedAt() time.Time { return r.updatedAt }

// RecordStore is the local relational mirror of computed embeddings.
type RecordStore interface {
	// Upsert writes the record, overwriting any row with the same target key.
	Upsert(ctx context.Context, record Record) error
	Find(ctx context.Context, options ...repository.Option) ([]Record, error)
	Count(ctx context.Context, options ...repository.Option) (int64, error)
	// DeleteByEntity removes every row of one entity.
	DeleteByEntity(ctx context.Context, entityType string, entityID int64) error
}

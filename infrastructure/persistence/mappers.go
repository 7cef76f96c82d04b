package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/helixml/embedsync/domain/embedding"
	"github.com/helixml/embedsync/domain/task"
)

// EmbeddingRecordMapper maps between embedding.Record and EmbeddingRecordModel.
type EmbeddingRecordMapper struct{}

// ToDomain converts an EmbeddingRecordModel to an embedding.Record.
func (m EmbeddingRecordMapper) ToDomain(e EmbeddingRecordModel) embedding.Record {
	target := embedding.NewTarget(e.EntityType, e.EntityID, e.Bundle, e.FieldName, e.FieldDelta)
	usage := embedding.NewUsage(e.Data.Usage.PromptTokens, e.Data.Usage.TotalTokens)
	vec := embedding.NewVector(e.Embedding.Data, e.Data.Model, usage)
	return embedding.NewRecordWithID(e.ID, target, vec, e.CreatedAt, e.UpdatedAt)
}

// ToModel converts an embedding.Record to an EmbeddingRecordModel.
func (m EmbeddingRecordMapper) ToModel(r embedding.Record) EmbeddingRecordModel {
	target := r.Target()
	vec := r.Vector()
	return EmbeddingRecordModel{
		ID:         r.ID(),
		EntityID:   target.EntityID(),
		EntityType: target.EntityType(),
		Bundle:     target.Bundle(),
		FieldName:  target.FieldName(),
		FieldDelta: target.Delta(),
		Embedding:  EmbeddingVector{Data: vec.Values()},
		Data: EmbeddingData{
			Usage: EmbeddingUsage{
				PromptTokens: vec.Usage().PromptTokens(),
				TotalTokens:  vec.Usage().TotalTokens(),
			},
			Model: vec.Model(),
		},
		CreatedAt: r.CreatedAt(),
		UpdatedAt: r.UpdatedAt(),
	}
}

// TaskMapper maps between domain Task and persistence TaskModel.
type TaskMapper struct{}

// ToDomain converts a TaskModel to a domain Task.
func (m TaskMapper) ToDomain(e TaskModel) (task.Task, error) {
	var payload map[string]any
	if len(e.Payload) > 0 {
		if err := json.Unmarshal(e.Payload, &payload); err != nil {
			return task.Task{}, fmt.Errorf("unmarshal task payload: %w", err)
		}
	}
	if payload == nil {
		payload = make(map[string]any)
	}

	return task.NewTaskWithID(
		e.ID,
		e.DedupKey,
		task.Operation(e.Type),
		e.Priority,
		e.Attempts,
		payload,
		e.CreatedAt,
		e.UpdatedAt,
	), nil
}

// ToModel converts a domain Task to a TaskModel.
func (m TaskMapper) ToModel(t task.Task) (TaskModel, error) {
	payloadJSON, err := t.PayloadJSON()
	if err != nil {
		return TaskModel{}, fmt.Errorf("marshal task payload: %w", err)
	}

	return TaskModel{
		ID:        t.ID(),
		DedupKey:  t.DedupKey(),
		Type:      t.Operation().String(),
		Payload:   payloadJSON,
		Priority:  t.Priority(),
		Attempts:  t.Attempts(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}, nil
}

package entity

import (
	"context"
	"log/slog"

	"github.com/helixml/embedsync/application/handler"
	"github.com/helixml/embedsync/domain/content"
)

// Deleter removes the embeddings of one content entity.
type Deleter interface {
	DeleteEntity(ctx context.Context, ref content.Ref) error
}

// Delete handles the embedsync.entity.delete task operation.
type Delete struct {
	deleter Deleter
	logger  *slog.Logger
}

// NewDelete creates a new Delete handler.
func NewDelete(deleter Deleter, logger *slog.Logger) *Delete {
	return &Delete{deleter: deleter, logger: logger}
}

// Execute processes the delete task.
func (h *Delete) Execute(ctx context.Context, payload map[string]any) error {
	ref, err := handler.ExtractRef(payload)
	if err != nil {
		return err
	}
	return h.deleter.DeleteEntity(ctx, ref)
}

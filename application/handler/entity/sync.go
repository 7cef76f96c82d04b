// Package entity handles queued operations on single content entities.
package entity

import (
	"context"
	"log/slog"

	"github.com/helixml/embedsync/application/handler"
	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/content"
)

// Syncer embeds one content entity.
type Syncer interface {
	SyncEntity(ctx context.Context, ref content.Ref) (service.SyncResult, error)
}

// Sync handles the embedsync.entity.sync task operation.
type Sync struct {
	syncer Syncer
	logger *slog.Logger
}

// NewSync creates a new Sync handler.
func NewSync(syncer Syncer, logger *slog.Logger) *Sync {
	return &Sync{syncer: syncer, logger: logger}
}

// Execute processes the sync task.
func (h *Sync) Execute(ctx context.Context, payload map[string]any) error {
	ref, err := handler.ExtractRef(payload)
	if err != nil {
		return err
	}

	result, err := h.syncer.SyncEntity(ctx, ref)
	if err != nil {
		return err
	}

	h.logger.Debug("sync task done",
		slog.String("entity", result.Ref.String()),
		slog.Int("embedded", result.Embedded),
		slog.Bool("skipped", result.Skipped),
	)
	return nil
}

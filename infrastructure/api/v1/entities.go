// Package v1 implements the version 1 HTTP API routes.
package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/content"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/infrastructure/api/middleware"
	"github.com/helixml/embedsync/infrastructure/api/v1/dto"
)

var priorities = map[string]task.Priority{
	"background": task.PriorityBackground,
	"normal":     task.PriorityNormal,
	"user":       task.PriorityUserInitiated,
	"critical":   task.PriorityCritical,
}

// EntitiesRouter queues and runs entity syncs.
type EntitiesRouter struct {
	client *embedsync.Client
	logger *slog.Logger
}

// NewEntitiesRouter creates a new EntitiesRouter.
func NewEntitiesRouter(client *embedsync.Client) *EntitiesRouter {
	return &EntitiesRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for entity endpoints.
func (r *EntitiesRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/sync", r.Sync)
	router.Post("/delete", r.Delete)
	router.Post("/sync-now", r.SyncNow)

	return router
}

// Sync handles POST /api/v1/entities/sync.
func (r *EntitiesRouter) Sync(w http.ResponseWriter, req *http.Request) {
	r.enqueue(w, req, task.OperationSyncEntity, r.client.Queue.EnqueueSync)
}

// Delete handles POST /api/v1/entities/delete.
func (r *EntitiesRouter) Delete(w http.ResponseWriter, req *http.Request) {
	r.enqueue(w, req, task.OperationDeleteEntity, r.client.Queue.EnqueueDelete)
}

type enqueueFunc func(ctx context.Context, ref content.Ref, priority task.Priority) error

func (r *EntitiesRouter) enqueue(w http.ResponseWriter, req *http.Request, op task.Operation, fn enqueueFunc) {
	body, ref, err := decodeEntity(w, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	priority, err := parsePriority(body.Priority)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	if err := fn(req.Context(), ref, priority); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, dto.EnqueuedResponse{
		Operation: op.String(),
		Entity:    refDTO(ref),
		Priority:  int(priority),
	})
}

// SyncNow handles POST /api/v1/entities/sync-now. The entity is synced in
// the request and the outcome returned.
func (r *EntitiesRouter) SyncNow(w http.ResponseWriter, req *http.Request) {
	_, ref, err := decodeEntity(w, req)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	result, err := r.client.Sync.SyncEntity(req.Context(), ref)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.SyncResultResponse{
		Entity:   refDTO(result.Ref),
		Embedded: result.Embedded,
		Failed:   result.Failed,
		Skipped:  result.Skipped,
		Tokens:   result.Tokens,
	})
}

func decodeEntity(w http.ResponseWriter, req *http.Request) (dto.EntityRequest, content.Ref, error) {
	var body dto.EntityRequest
	if err := decodeJSON(w, req, &body); err != nil {
		return body, content.Ref{}, err
	}
	ref := content.NewRef(body.EntityType, body.EntityID, body.Bundle)
	if err := ref.Validate(); err != nil {
		return body, content.Ref{}, fmt.Errorf("%w: %w", service.ErrInvalidRef, err)
	}
	return body, ref, nil
}

func parsePriority(name string) (task.Priority, error) {
	if name == "" {
		return task.PriorityUserInitiated, nil
	}
	p, ok := priorities[strings.ToLower(name)]
	if !ok {
		return 0, middleware.NewAPIError(http.StatusBadRequest, fmt.Sprintf("unknown priority %q", name), nil)
	}
	return p, nil
}

func refDTO(ref content.Ref) dto.EntityRef {
	return dto.EntityRef{
		EntityType: ref.EntityType(),
		EntityID:   ref.EntityID(),
		Bundle:     ref.Bundle(),
	}
}

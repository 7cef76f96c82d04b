package v1

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/task"
	"github.com/helixml/embedsync/infrastructure/api/middleware"
	"github.com/helixml/embedsync/infrastructure/api/v1/dto"
)

// QueueRouter exposes the pending task queue.
type QueueRouter struct {
	client *embedsync.Client
	logger *slog.Logger
}

// NewQueueRouter creates a new QueueRouter.
func NewQueueRouter(client *embedsync.Client) *QueueRouter {
	return &QueueRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for queue endpoints.
func (r *QueueRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", r.List)
	router.Get("/{id}", r.Get)

	return router
}

// List handles GET /api/v1/queue. Tasks are ordered by priority, highest
// first; ?operation= narrows the list.
func (r *QueueRouter) List(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	pagination := ParsePagination(req)

	params := &service.TaskListParams{
		Limit:  pagination.Limit(),
		Offset: pagination.Offset(),
	}
	if name := req.URL.Query().Get("operation"); name != "" {
		op, ok := task.ParseOperation(name)
		if !ok {
			middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "unknown operation "+strconv.Quote(name), nil), r.logger)
			return
		}
		params.Operation = &op
	}

	tasks, err := r.client.Queue.List(ctx, params)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	total, err := r.client.Queue.Count(ctx)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.TaskResponse, len(tasks))
	for i, t := range tasks {
		data[i] = taskDTO(t)
	}

	middleware.WriteJSON(w, http.StatusOK, dto.TaskListResponse{
		Data: data,
		Meta: pagination.Meta(total),
	})
}

// Get handles GET /api/v1/queue/{id}.
func (r *QueueRouter) Get(w http.ResponseWriter, req *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, req, middleware.NewAPIError(http.StatusBadRequest, "invalid task id", err), r.logger)
		return
	}

	t, err := r.client.Queue.Get(req.Context(), id)
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, taskDTO(t))
}

func taskDTO(t task.Task) dto.TaskResponse {
	return dto.TaskResponse{
		ID:        t.ID(),
		Operation: t.Operation().String(),
		Priority:  t.Priority(),
		Attempts:  t.Attempts(),
		DedupKey:  t.DedupKey(),
		Payload:   t.Payload(),
		CreatedAt: t.CreatedAt(),
		UpdatedAt: t.UpdatedAt(),
	}
}

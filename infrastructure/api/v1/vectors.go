package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/infrastructure/api/middleware"
	"github.com/helixml/embedsync/infrastructure/api/v1/dto"
)

// VectorsRouter exposes vector store administration.
type VectorsRouter struct {
	client *embedsync.Client
	logger *slog.Logger
}

// NewVectorsRouter creates a new VectorsRouter.
func NewVectorsRouter(client *embedsync.Client) *VectorsRouter {
	return &VectorsRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for vector endpoints.
func (r *VectorsRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/stats", r.Stats)
	router.Delete("/{collection}", r.Purge)

	return router
}

// Stats handles GET /api/v1/vectors/stats?collection=.
func (r *VectorsRouter) Stats(w http.ResponseWriter, req *http.Request) {
	stats, err := r.client.Vectors.Stats(req.Context(), req.URL.Query().Get("collection"))
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	partitions := make([]dto.PartitionResponse, len(stats))
	for i, s := range stats {
		partitions[i] = dto.PartitionResponse{
			Name:         s.Name,
			RecordCount:  s.RecordCount,
			Shards:       s.Shards,
			DynamicField: s.DynamicField,
			Fields:       s.Fields,
		}
	}

	middleware.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		Backend:    r.client.Vectors.Backend(),
		Partitions: partitions,
	})
}

// Purge handles DELETE /api/v1/vectors/{collection}.
func (r *VectorsRouter) Purge(w http.ResponseWriter, req *http.Request) {
	if err := r.client.Vectors.Purge(req.Context(), chi.URLParam(req, "collection")); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package v1

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helixml/embedsync"
	"github.com/helixml/embedsync/application/service"
	"github.com/helixml/embedsync/domain/vector"
	"github.com/helixml/embedsync/infrastructure/api/middleware"
	"github.com/helixml/embedsync/infrastructure/api/v1/dto"
)

// SearchRouter handles semantic search.
type SearchRouter struct {
	client *embedsync.Client
	logger *slog.Logger
}

// NewSearchRouter creates a new SearchRouter.
func NewSearchRouter(client *embedsync.Client) *SearchRouter {
	return &SearchRouter{
		client: client,
		logger: client.Logger(),
	}
}

// Routes returns the chi router for search endpoints.
func (r *SearchRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", r.Search)

	return router
}

// Search handles POST /api/v1/search.
func (r *SearchRouter) Search(w http.ResponseWriter, req *http.Request) {
	var body dto.SearchRequest
	if err := decodeJSON(w, req, &body); err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	matches, err := r.client.Search.Query(req.Context(), service.SearchRequest{
		Text:       body.Text,
		EntityType: body.EntityType,
		TopK:       body.TopK,
		Filter:     vector.Filter(body.Filter),
	})
	if err != nil {
		middleware.WriteError(w, req, err, r.logger)
		return
	}

	data := make([]dto.SearchMatch, len(matches))
	for i, m := range matches {
		data[i] = dto.SearchMatch{
			ID:       m.ID(),
			Score:    m.Score(),
			Metadata: m.Metadata(),
		}
	}

	middleware.WriteJSON(w, http.StatusOK, dto.SearchResponse{Data: data})
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/helixml/embedsync"
	apimiddleware "github.com/helixml/embedsync/infrastructure/api/middleware"
	v1 "github.com/helixml/embedsync/infrastructure/api/v1"
	mcpinternal "github.com/helixml/embedsync/internal/mcp"
)

// APIServer provides an HTTP API backed by an embedsync Client.
type APIServer struct {
	client       *embedsync.Client
	apiKeys      []string
	version      string
	server       *Server
	router       chi.Router
	routerCalled bool
	logger       *slog.Logger
}

// NewAPIServer creates a new APIServer wired to the given Client.
// apiKeys configures write-protection: mutating endpoints on
// /api/v1/entities and /api/v1/vectors require a valid key. Search, queue
// reads, health, metrics and MCP remain open.
func NewAPIServer(client *embedsync.Client, apiKeys []string) *APIServer {
	return &APIServer{
		client:  client,
		apiKeys: apiKeys,
		version: "dev",
		logger:  client.Logger(),
	}
}

// WithVersion sets the version reported by /health and MCP.
func (a *APIServer) WithVersion(version string) *APIServer {
	if version != "" {
		a.version = version
	}
	return a
}

// Router returns the chi router for customization before starting.
// Call this first, add custom middleware with router.Use(), then call MountRoutes().
func (a *APIServer) Router() chi.Router {
	if a.router != nil {
		return a.router
	}

	a.router = chi.NewRouter()
	a.routerCalled = true
	return a.router
}

// MountRoutes wires up all routes on the router.
func (a *APIServer) MountRoutes() {
	if a.router == nil {
		a.Router()
	}
	a.mountRoutes(a.router)
}

func (a *APIServer) mountRoutes(router chi.Router) {
	c := a.client

	router.Get("/health", a.health)
	router.Handle("/metrics", c.Metrics().Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Mount("/search", v1.NewSearchRouter(c).Routes())
		r.Mount("/queue", v1.NewQueueRouter(c).Routes())

		r.Group(func(r chi.Router) {
			r.Use(apimiddleware.WriteProtectAuth(a.apiKeys))
			r.Mount("/entities", v1.NewEntitiesRouter(c).Routes())
			r.Mount("/vectors", v1.NewVectorsRouter(c).Routes())
		})
	})

	// No timeout middleware: MCP streams and keeps session state in
	// response headers.
	mcpSrv := mcpinternal.NewServer(c.Search, c.Vectors, a.version, a.logger)
	router.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Error   string `json:"error,omitempty"`
}

// health reports 200 when the embedder and vector store are configured and
// 503 otherwise.
func (a *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	if err := a.client.Ready(); err != nil {
		apimiddleware.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "unconfigured",
			Version: a.version,
			Error:   err.Error(),
		})
		return
	}
	apimiddleware.WriteJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: a.version})
}

// ListenAndServe starts the HTTP server on the given address.
func (a *APIServer) ListenAndServe(addr string) error {
	srv := NewServer(addr, a.logger)
	a.server = &srv

	if a.routerCalled && a.router != nil {
		srv.Router().Mount("/", a.router)
	} else {
		a.mountRoutes(srv.Router())
	}

	return srv.Start()
}

// Shutdown gracefully shuts down the server.
func (a *APIServer) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Handler returns the router as an http.Handler for use with custom servers.
func (a *APIServer) Handler() http.Handler {
	if a.router == nil {
		a.Router()
		a.MountRoutes()
	}
	return a.router
}

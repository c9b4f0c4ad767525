package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/gatherkit/gatherd/internal/api"
)

// setupRoutes creates the chi router with transport middleware and the API
// mounted under /api.
func (s *Server) setupRoutes(apiHandler http.Handler) chi.Router {
	r := chi.NewRouter()

	// Always-on transport middleware (order is invariant):
	// RequestID -> access log -> recoverer
	r.Use(chimw.RequestID)
	r.Use(accessLogMiddleware(s.logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		api.WriteMessage(w, http.StatusOK, "ok")
	})

	r.Mount("/api", apiHandler)

	return r
}

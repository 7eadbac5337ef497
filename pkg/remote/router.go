package remote

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts Handler under a chi router with request IDs, request
// logging, panic recovery, and a per-request timeout of requestTimeout
// (30s when requestTimeout is zero or negative). The same timeout applies
// to every operation: ls/rm return almost immediately, while a fleet
// request whose orchestration outlasts it has its context canceled.
func NewRouter(h *Handler, requestTimeout time.Duration) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Post("/", h.ServeHTTP)

	return r
}

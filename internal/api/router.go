package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/curator/internal/vaultservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *vaultservice.Service, authEnabled bool, token string, sseHandler http.Handler, rate RateLimitConfig) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(RateLimit(rate))
	r.Use(AuthMiddleware(authEnabled, token))

	// Graph.
	r.Get("/orphans", h.Orphans)
	r.Get("/broken-links", h.BrokenLinks)
	r.Get("/backlinks/*", h.Backlinks)

	// Quality.
	r.Get("/quality", h.QualityReport)
	r.Get("/quality/*", h.Quality)

	// Related notes.
	r.Get("/related/*", h.Related)
	r.Post("/related/*", h.AppendRelated)

	// Invariants.
	r.Get("/invariants", h.Invariants)
	r.Post("/invariants/check/*", h.CheckInvariants)

	// Improvement runs.
	r.Post("/analyze", h.Analyze)
	r.Post("/improvements/apply", h.Apply)
	r.Get("/changes", h.Changes)
	r.Get("/activity", h.Activity)
	r.Post("/summary/weekly", h.WeeklySummary)

	// Search.
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

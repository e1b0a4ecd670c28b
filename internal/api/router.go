package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/chalkbook/internal/climbstore"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(store *climbstore.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Climbs.
	r.Get("/climbs", h.ListClimbs)
	r.Post("/climbs", h.CreateClimb)
	r.Delete("/climbs/at/{index}", h.DeleteClimbAt)
	r.Get("/climbs/{id}", h.GetClimb)
	r.Get("/climbs/{id}/photo", h.ClimbPhoto)
	r.Delete("/climbs/{id}", h.DeleteClimb)

	// Calendar.
	r.Get("/days/{date}", h.ClimbsOnDay)
	r.Get("/calendar/{month}", h.Calendar)

	// Statistics and reference data.
	r.Get("/stats", h.Stats)
	r.Get("/grades", h.Grades)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

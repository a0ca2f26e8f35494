package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexikon/internal/registerservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *registerservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Volume registers.
	r.Get("/volumes", h.ListVolumes)
	r.Get("/volumes/{name}", h.GetVolume)
	r.Put("/volumes/{name}", h.SeedVolume)
	r.Delete("/volumes/{name}", h.DropVolume)
	r.Get("/volumes/{name}/table", h.GetVolumeTable)

	// Alphabetic registers.
	r.Get("/alphabetic", h.ListAlphabetic)
	r.Get("/alphabetic/{start}/table", h.GetAlphabeticTable)

	r.Get("/lemmas", h.LookupLemmas)
	r.Get("/referrers", h.Referrers)

	r.Post("/updates", h.ApplyUpdates)
	r.Get("/check", h.Check)
	r.Get("/export", h.Export)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

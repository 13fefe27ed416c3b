package assets

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/nearby", h.Nearby)
	r.Get("/{id}", h.GetAsset)

	return r
}

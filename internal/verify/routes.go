package verify

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes adds POST /verify at the router's root, wrapped in write.
func RegisterRoutes(r chi.Router, h *Handler, write func(http.Handler) http.Handler) {
	r.With(write).Post("/verify", h.Verify)
}

// SetupReportRoutes is mounted at /reports.
func SetupReportRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Get("/user/{userId}", h.UserReports)
	r.Get("/recent", h.RecentReports)
	r.Get("/nearby", h.NearbyReports)

	return r
}

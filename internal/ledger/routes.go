package ledger

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes adds the ledger endpoints at the router's root. write
// wraps mutating endpoints (rate limiting), admin guards reconciliation.
func RegisterRoutes(r chi.Router, h *Handler, write, admin func(http.Handler) http.Handler) {
	r.With(write).Post("/award-points", h.AwardPoints)
	r.Get("/badge-progress/{userId}", h.BadgeProgress)
	r.Get("/user-badges/{userId}", h.UserBadges)
	r.Get("/leaderboard", h.Leaderboard)
	r.With(admin).Post("/check-milestones/{userId}", h.CheckMilestones)
}

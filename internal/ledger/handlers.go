package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/httputil"
)

type Handler struct {
	ledger *Ledger
	log    *zap.Logger
}

func NewHandler(l *Ledger, log *zap.Logger) *Handler {
	return &Handler{ledger: l, log: log.Named("ledger")}
}

type awardRequest struct {
	UserID string   `json:"userId" validate:"required,max=64"`
	Points int64    `json:"points" validate:"gt=0,lte=1000"`
	Lat    *float64 `json:"lat" validate:"omitempty,latitude"`
	Lng    *float64 `json:"lng" validate:"omitempty,longitude"`
}

// AwardPoints handles POST /award-points
func (h *Handler) AwardPoints(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	if (req.Lat == nil) != (req.Lng == nil) {
		httputil.Error(w, h.log, apperr.Invalid("incomplete_coordinate", "lat and lng must be given together"))
		return
	}

	var (
		res AwardResult
		err error
	)
	if req.Lat != nil {
		res, err = h.ledger.AwardPoints(r.Context(), req.UserID, req.Points, geo.Coordinate{Lat: *req.Lat, Lng: *req.Lng})
	} else {
		res, err = h.ledger.AwardPointsLabeled(r.Context(), req.UserID, req.Points, "")
	}
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// BadgeProgress handles GET /badge-progress/{userId}
func (h *Handler) BadgeProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.ledger.Progress(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, p)
}

type badgesResponse struct {
	UserID      string      `json:"userId"`
	TotalBadges int         `json:"totalBadges"`
	Badges      []UserBadge `json:"badges"`
}

// UserBadges handles GET /user-badges/{userId}
func (h *Handler) UserBadges(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	badges, err := h.ledger.Badges(r.Context(), userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, badgesResponse{UserID: userID, TotalBadges: len(badges), Badges: badges})
}

type reconcileResponse struct {
	UserID     string        `json:"userId"`
	Reconciled []EarnedBadge `json:"reconciled"`
}

// CheckMilestones handles POST /check-milestones/{userId}
func (h *Handler) CheckMilestones(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	added, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, reconcileResponse{UserID: userID, Reconciled: added})
}

const defaultLeaderboard = 10

type leaderboardResponse struct {
	Count   int        `json:"count"`
	Leaders []Standing `json:"leaders"`
}

// Leaderboard handles GET /leaderboard?limit=
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboard
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Error(w, h.log, apperr.Invalid("invalid_limit", "limit must be an integer"))
			return
		}
		limit = n
	}
	leaders, err := h.ledger.Leaderboard(r.Context(), limit)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, leaderboardResponse{Count: len(leaders), Leaders: leaders})
}

package verify

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/httputil"
)

const (
	defaultRecentLimit = 20
	defaultNearbyKm    = 1.0
	maxNearbyRadiusKm  = 25.0
	metersPerKilometer = 1000.0
)

type Handler struct {
	svc *Service
	log *zap.Logger
}

func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.Named("verify")}
}

// Verify handles POST /verify. Accepted verifications answer 201, gate
// rejections 200 with allowed=false.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httputil.Decode(r, &req); err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	out, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	status := http.StatusOK
	if out.Allowed {
		status = http.StatusCreated
	}
	httputil.JSON(w, status, out)
}

type userReportsResponse struct {
	UserID       string   `json:"userId"`
	TotalReports int      `json:"totalReports"`
	Reports      []Report `json:"reports"`
}

// UserReports handles GET /reports/user/{userId}
func (h *Handler) UserReports(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	rs, err := h.svc.UserReports(r.Context(), userID)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, userReportsResponse{UserID: userID, TotalReports: len(rs), Reports: rs})
}

// RecentReports handles GET /reports/recent?limit=
func (h *Handler) RecentReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Error(w, h.log, apperr.Invalid("invalid_limit", "limit must be an integer"))
			return
		}
		limit = n
	}
	rs, err := h.svc.RecentReports(r.Context(), limit)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rs)
}

type nearbyReportsResponse struct {
	Lat          float64        `json:"lat"`
	Lng          float64        `json:"lng"`
	RadiusKm     float64        `json:"radiusKm"`
	TotalReports int            `json:"totalReports"`
	Reports      []NearbyReport `json:"reports"`
}

// NearbyReports handles GET /reports/nearby?lat=&lng=&radius_km=
func (h *Handler) NearbyReports(w http.ResponseWriter, r *http.Request) {
	lat, err := httputil.QueryFloat(r, "lat")
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	lng, err := httputil.QueryFloat(r, "lng")
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	km, err := httputil.QueryFloatOr(r, "radius_km", defaultNearbyKm)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if km > maxNearbyRadiusKm {
		httputil.Error(w, h.log, apperr.Invalid("invalid_radius", "radius_km must be at most 25"))
		return
	}

	rs, err := h.svc.NearbyReports(r.Context(), geo.Coordinate{Lat: lat, Lng: lng}, km*metersPerKilometer)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, nearbyReportsResponse{
		Lat: lat, Lng: lng, RadiusKm: km, TotalReports: len(rs), Reports: rs,
	})
}

package assets

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/httputil"
)

const (
	// half a mile, the radius the map view asks for
	defaultRadiusMeters = 804.67
	maxRadiusMeters     = 5000
)

type Handler struct {
	index *Index
	log   *zap.Logger
}

func NewHandler(index *Index, log *zap.Logger) *Handler {
	return &Handler{index: index, log: log.Named("assets")}
}

type nearbyResponse struct {
	Center       geo.Coordinate `json:"center"`
	RadiusMeters float64        `json:"radius_meters"`
	Count        int            `json:"count"`
	Candidates   []Candidate    `json:"candidates"`
}

// Nearby handles GET /assets/nearby?lat=&lng=&radius=&type=
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
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
	radius, err := httputil.QueryFloatOr(r, "radius", defaultRadiusMeters)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	if radius > maxRadiusMeters {
		httputil.Error(w, h.log, apperr.Invalid("invalid_radius", "radius must be at most 5000 meters"))
		return
	}

	var assetType AssetType
	if raw := r.URL.Query().Get("type"); raw != "" {
		if assetType, err = ParseAssetType(raw); err != nil {
			httputil.Error(w, h.log, apperr.InvalidWrap("invalid_type", err))
			return
		}
	}

	center := geo.Coordinate{Lat: lat, Lng: lng}
	cands, err := h.index.FindNearby(r.Context(), center, radius, assetType)
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}

	httputil.JSON(w, http.StatusOK, nearbyResponse{
		Center:       center,
		RadiusMeters: radius,
		Count:        len(cands),
		Candidates:   cands,
	})
}

// GetAsset handles GET /assets/{id}
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.index.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, h.log, err)
		return
	}
	httputil.JSON(w, http.StatusOK, a)
}

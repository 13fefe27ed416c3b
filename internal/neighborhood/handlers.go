package neighborhood

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/httputil"
)

type Handler struct {
	chain *Chain
	log   *zap.Logger
}

func NewHandler(chain *Chain, log *zap.Logger) *Handler {
	return &Handler{chain: chain, log: log.Named("neighborhood")}
}

func SetupRoutes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Identify)
	return r
}

type lookupResponse struct {
	Resolved     bool   `json:"resolved"`
	Neighborhood string `json:"neighborhood,omitempty"`
	Source       string `json:"source"`
	Cached       bool   `json:"cached,omitempty"`
}

// Identify handles GET /neighborhood?lat=&lng=
func (h *Handler) Identify(w http.ResponseWriter, r *http.Request) {
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
	c := geo.Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		httputil.Error(w, h.log, apperr.InvalidWrap("invalid_coordinate", err))
		return
	}

	res := h.chain.Resolve(r.Context(), c)
	httputil.JSON(w, http.StatusOK, lookupResponse{
		Resolved:     res.OK(),
		Neighborhood: res.Name,
		Source:       res.Source,
		Cached:       res.Cached,
	})
}

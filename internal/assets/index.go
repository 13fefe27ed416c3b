package assets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/StreetCred/SC-Backend/internal/apperr"
	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/geo"
)

// ErrNotFound is returned by Store.Get for an unknown id.
var ErrNotFound = errors.New("asset not found")

// Store is the asset backing store. WithinBoxes is the coarse filter: it must
// return every asset inside any of the boxes (it may return more).
type Store interface {
	WithinBoxes(ctx context.Context, boxes []geo.Box, assetType AssetType) ([]Asset, error)
	Get(ctx context.Context, id string) (Asset, error)
}

// Index answers radius queries over a Store, ranking by exact distance.
type Index struct {
	store   Store
	timeout time.Duration
}

func NewIndex(store Store, timeout time.Duration) *Index {
	return &Index{store: store, timeout: timeout}
}

// FindNearby returns every asset whose haversine distance from center is
// <= radiusMeters, nearest first, ties by ascending id. An empty assetType
// matches every type.
func (ix *Index) FindNearby(ctx context.Context, center geo.Coordinate, radiusMeters float64, assetType AssetType) ([]Candidate, error) {
	if err := center.Validate(); err != nil {
		return nil, apperr.InvalidWrap("invalid_coordinate", err)
	}
	if radiusMeters < 0 {
		return nil, apperr.Invalid("invalid_radius", fmt.Sprintf("radius must not be negative, got %v", radiusMeters))
	}
	if assetType != "" && !assetType.Valid() {
		return nil, apperr.Invalid("invalid_type", fmt.Sprintf("unknown asset type %q", assetType))
	}

	ctx, cancel := ix.withTimeout(ctx)
	defer cancel()

	rows, err := ix.store.WithinBoxes(ctx, geo.Bounds(center, radiusMeters), assetType)
	if err != nil {
		return nil, storeError("spatial query", err)
	}

	out := make([]Candidate, 0, len(rows))
	for _, a := range rows {
		if assetType != "" && a.Type != assetType {
			continue
		}
		d := geo.Distance(center, a.Coordinate())
		if d <= radiusMeters {
			out = append(out, Candidate{Asset: a, DistanceMeters: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].Asset.ID < out[j].Asset.ID
	})
	return out, nil
}

// Nearest returns the closest asset within radiusMeters, or ok=false.
func (ix *Index) Nearest(ctx context.Context, center geo.Coordinate, radiusMeters float64, assetType AssetType) (Candidate, bool, error) {
	cands, err := ix.FindNearby(ctx, center, radiusMeters, assetType)
	if err != nil || len(cands) == 0 {
		return Candidate{}, false, err
	}
	return cands[0], true, nil
}

// Get looks up one asset by id.
func (ix *Index) Get(ctx context.Context, id string) (Asset, error) {
	ctx, cancel := ix.withTimeout(ctx)
	defer cancel()

	a, err := ix.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Asset{}, apperr.NotFound("asset_not_found", fmt.Sprintf("asset %q does not exist", id))
	}
	if err != nil {
		return Asset{}, storeError("asset lookup", err)
	}
	return a, nil
}

func (ix *Index) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ix.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, ix.timeout)
}

func storeError(op string, err error) error {
	if db.IsTransient(err) {
		return apperr.Unavailable(op+" timed out or lost its connection", err)
	}
	return apperr.Internal(op+" failed", err)
}

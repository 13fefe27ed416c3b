package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/StreetCred/SC-Backend/internal/geo"
)

// PostgresStore keeps assets in streetcred.assets.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(d *gorm.DB) *PostgresStore {
	return &PostgresStore{db: d}
}

func (s *PostgresStore) WithinBoxes(ctx context.Context, boxes []geo.Box, assetType AssetType) ([]Asset, error) {
	if len(boxes) == 0 {
		return nil, nil
	}

	var conds []string
	var args []interface{}
	for _, b := range boxes {
		conds = append(conds, "(lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?)")
		args = append(args, b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
	}

	q := s.db.WithContext(ctx).Where(strings.Join(conds, " OR "), args...)
	if assetType != "" {
		q = q.Where("type = ANY(?)", pq.Array([]string{string(assetType)}))
	}

	var out []Asset
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("assets within boxes: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Asset, error) {
	var a Asset
	err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Asset{}, ErrNotFound
	}
	if err != nil {
		return Asset{}, fmt.Errorf("get asset %s: %w", id, err)
	}
	return a, nil
}

// Upsert inserts or refreshes assets keyed by id.
func (s *PostgresStore) Upsert(ctx context.Context, batch []Asset) error {
	if len(batch) == 0 {
		return nil
	}
	for i := range batch {
		batch[i].Geohash = geo.Geohash(batch[i].Coordinate(), 9)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"type", "name", "lat", "lon", "geohash", "updated_at"}),
	}).CreateInBatches(&batch, 500).Error
}

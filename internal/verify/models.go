package verify

import (
	"time"

	"github.com/google/uuid"

	"github.com/StreetCred/SC-Backend/internal/assets"
	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/geo"
)

// Report is one accepted verification. Rows are written once and never
// updated.
type Report struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string           `gorm:"size:64;not null;index" json:"userId"`
	AssetID         *string          `gorm:"size:64;index" json:"assetId,omitempty"`
	Type            assets.AssetType `gorm:"size:32;not null" json:"type"`
	Lat             float64          `gorm:"not null;index:idx_reports_lat_lon,priority:1" json:"lat"`
	Lng             float64          `gorm:"column:lon;not null;index:idx_reports_lat_lon,priority:2" json:"lng"`
	ConditionRating int              `gorm:"not null;check:condition_rating BETWEEN 1 AND 10" json:"conditionRating"`
	Functional      bool             `gorm:"not null" json:"functional"`
	Description     string           `gorm:"type:text" json:"description"`
	PhotoRef        string           `gorm:"size:512" json:"photoRef,omitempty"`
	Neighborhood    string           `gorm:"size:128" json:"neighborhood,omitempty"`
	AccuracyMeters  *float64         `json:"accuracyMeters,omitempty"`
	DistanceMeters  float64          `gorm:"not null" json:"distanceMeters"`
	PointsAwarded   int64            `gorm:"not null" json:"pointsAwarded"`
	CreatedAt       time.Time        `gorm:"not null;index" json:"createdAt"`
}

func (Report) TableName() string { return db.Schema + ".reports" }

func (r Report) Coordinate() geo.Coordinate { return geo.Coordinate{Lat: r.Lat, Lng: r.Lng} }

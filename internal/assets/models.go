package assets

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/StreetCred/SC-Backend/internal/db"
	"github.com/StreetCred/SC-Backend/internal/geo"
)

// AssetType is the closed set of infrastructure a user can report on.
type AssetType string

const (
	Hydrant      AssetType = "hydrant"
	Pothole      AssetType = "pothole"
	Streetlight  AssetType = "streetlight"
	TrafficLight AssetType = "traffic-light"
	StopSign     AssetType = "stop-sign"
	Crosswalk    AssetType = "crosswalk"
)

// Types lists every AssetType in display order.
var Types = []AssetType{Hydrant, Pothole, Streetlight, TrafficLight, StopSign, Crosswalk}

var displayNames = map[AssetType]string{
	Hydrant:      "Fire Hydrant",
	Pothole:      "Pothole",
	Streetlight:  "Street Light",
	TrafficLight: "Traffic Light",
	StopSign:     "Stop Sign",
	Crosswalk:    "Crosswalk",
}

// ParseAssetType accepts the canonical names plus underscore spellings
// ("traffic_light") and is case-insensitive.
func ParseAssetType(s string) (AssetType, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	t := AssetType(norm)
	if !t.Valid() {
		return "", fmt.Errorf("unknown asset type %q", s)
	}
	return t, nil
}

func (t AssetType) Valid() bool {
	_, ok := displayNames[t]
	return ok
}

// DisplayName is the human label used in responses.
func (t AssetType) DisplayName() string {
	return displayNames[t]
}

func (t *AssetType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseAssetType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Asset is a seeded piece of reportable infrastructure. Coordinates live in
// plain indexed columns so the coarse bounding-box filter is an index range
// scan.
type Asset struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Type      AssetType `gorm:"size:32;not null;index" json:"type"`
	Name      string    `json:"name,omitempty"`
	Lat       float64   `gorm:"not null;index:idx_assets_lat_lon,priority:1" json:"lat"`
	Lng       float64   `gorm:"column:lon;not null;index:idx_assets_lat_lon,priority:2" json:"lng"`
	Geohash   string    `gorm:"size:12;index" json:"geohash,omitempty"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Asset) TableName() string { return db.Schema + ".assets" }

func (a Asset) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: a.Lat, Lng: a.Lng}
}

// Candidate is an asset together with its exact distance from the query
// point. It only lives for one request.
type Candidate struct {
	Asset          Asset   `json:"asset"`
	DistanceMeters float64 `json:"distance_meters"`
}

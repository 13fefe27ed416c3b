// Package geo holds the coordinate type and the great-circle math shared by
// the asset index, the proximity gate and the neighborhood resolver.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// EarthRadiusMeters is the mean earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

// MetersPerFoot is the international foot.
const MetersPerFoot = 0.3048

// ErrInvalidCoordinate is returned (wrapped) by Coordinate.Validate.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewCoordinate builds a coordinate and validates it.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lng: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports whether the coordinate is finite and within range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidCoordinate)
	}
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, c.Lng)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", c.Lat, c.Lng)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)
	sLat := math.Sin(dLat / 2)
	sLng := math.Sin(dLng / 2)
	h := sLat*sLat + math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*sLng*sLng
	// rounding can push h a hair outside [0, 1]
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// MetersToFeet converts meters to international feet.
func MetersToFeet(m float64) float64 {
	return m / MetersPerFoot
}

// FeetToMeters converts international feet to meters.
func FeetToMeters(ft float64) float64 {
	return ft * MetersPerFoot
}

// Destination returns the point reached by travelling distanceMeters from
// start along the initial bearing (degrees clockwise from north).
func Destination(start Coordinate, bearingDeg, distanceMeters float64) Coordinate {
	delta := distanceMeters / EarthRadiusMeters
	theta := radians(bearingDeg)
	lat1 := radians(start.Lat)
	lng1 := radians(start.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)
	lng := math.Mod(degrees(lng2)+540, 360) - 180
	return Coordinate{Lat: degrees(lat2), Lng: lng}
}

package geo

import "math"

// boxMarginDeg pads every box edge so float rounding in the haversine
// comparison downstream can never turn a boundary point into a false negative.
const boxMarginDeg = 1e-6

// Box is an axis-aligned latitude/longitude rectangle with inclusive edges.
// MinLng <= MaxLng always holds; boxes crossing the antimeridian are split.
type Box struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether c lies inside the box, edges included.
func (b Box) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// Bounds returns one or two boxes that together cover every point whose
// haversine distance from center is <= radiusMeters. The cover is never
// tighter than the true circle; it is a coarse prefilter only.
func Bounds(center Coordinate, radiusMeters float64) []Box {
	if radiusMeters < 0 {
		radiusMeters = 0
	}
	delta := radiusMeters / EarthRadiusMeters // angular radius
	if delta >= math.Pi {
		return []Box{{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}}
	}

	deltaDeg := degrees(delta) + boxMarginDeg
	minLat := center.Lat - deltaDeg
	maxLat := center.Lat + deltaDeg

	// A pole inside the circle means every longitude is reachable.
	if minLat <= -90 || maxLat >= 90 {
		return []Box{{
			MinLat: math.Max(minLat, -90),
			MaxLat: math.Min(maxLat, 90),
			MinLng: -180,
			MaxLng: 180,
		}}
	}

	ratio := math.Sin(delta) / math.Cos(radians(center.Lat))
	if ratio >= 1 {
		return []Box{{MinLat: minLat, MaxLat: maxLat, MinLng: -180, MaxLng: 180}}
	}
	dLngDeg := degrees(math.Asin(ratio)) + boxMarginDeg
	minLng := center.Lng - dLngDeg
	maxLng := center.Lng + dLngDeg

	switch {
	case maxLng-minLng >= 360:
		return []Box{{MinLat: minLat, MaxLat: maxLat, MinLng: -180, MaxLng: 180}}
	case minLng < -180:
		return []Box{
			{MinLat: minLat, MaxLat: maxLat, MinLng: -180, MaxLng: maxLng},
			{MinLat: minLat, MaxLat: maxLat, MinLng: minLng + 360, MaxLng: 180},
		}
	case maxLng > 180:
		return []Box{
			{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: 180},
			{MinLat: minLat, MaxLat: maxLat, MinLng: -180, MaxLng: maxLng - 360},
		}
	}
	return []Box{{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}}
}

// AnyContains reports whether any of boxes contains c.
func AnyContains(boxes []Box, c Coordinate) bool {
	for _, b := range boxes {
		if b.Contains(c) {
			return true
		}
	}
	return false
}

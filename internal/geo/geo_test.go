package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timesSquare = Coordinate{Lat: 40.7580, Lng: -73.9855}

func randomCoordinate(r *rand.Rand) Coordinate {
	return Coordinate{Lat: r.Float64()*180 - 90, Lng: r.Float64()*360 - 180}
}

func TestDistance_SymmetricAndZero(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		a, b := randomCoordinate(r), randomCoordinate(r)
		assert.Equal(t, Distance(a, b), Distance(b, a), "distance must be symmetric for %v %v", a, b)
		assert.Zero(t, Distance(a, a))
	}
}

func TestDistance_KnownValues(t *testing.T) {
	// One degree of latitude on the mean sphere.
	oneDeg := Distance(Coordinate{0, 0}, Coordinate{1, 0})
	assert.InDelta(t, 2*math.Pi*EarthRadiusMeters/360, oneDeg, 1e-6)

	// Antipodes are half the circumference apart.
	assert.InDelta(t, math.Pi*EarthRadiusMeters, Distance(Coordinate{0, 0}, Coordinate{0, 180}), 1e-3)

	// Times Square to Central Park South is roughly 800 m.
	d := Distance(timesSquare, Coordinate{Lat: 40.7648, Lng: -73.9808})
	assert.InDelta(t, 850, d, 100)
}

func TestDestination_RoundTrip(t *testing.T) {
	for _, bearing := range []float64{0, 45, 90, 180, 270, 333} {
		p := Destination(timesSquare, bearing, 10)
		assert.InDelta(t, 10, Distance(timesSquare, p), 1e-6, "bearing %v", bearing)
	}
}

func TestFeetConversion(t *testing.T) {
	assert.InDelta(t, 100, MetersToFeet(30.48), 1e-9)
	assert.InDelta(t, 30.48, FeetToMeters(100), 1e-9)
	assert.InDelta(t, 164.04, MetersToFeet(50), 0.01)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		c    Coordinate
		ok   bool
	}{
		{"times square", timesSquare, true},
		{"north pole", Coordinate{90, 0}, true},
		{"antimeridian", Coordinate{0, -180}, true},
		{"lat too high", Coordinate{90.0001, 0}, false},
		{"lng too low", Coordinate{0, -180.5}, false},
		{"nan", Coordinate{math.NaN(), 0}, false},
		{"inf", Coordinate{0, math.Inf(1)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.c.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
			}
		})
	}
}

func TestBounds_NoFalseNegatives(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	centers := []Coordinate{
		timesSquare,
		{Lat: 89.9999, Lng: 10},
		{Lat: -89.99, Lng: -170},
		{Lat: 0, Lng: 179.9999},
		{Lat: 12, Lng: -179.99},
	}
	radii := []float64{0, 1, 30.48, 500, 25000, 3e6}
	for _, c := range centers {
		for _, radius := range radii {
			boxes := Bounds(c, radius)
			require.NotEmpty(t, boxes)
			for i := 0; i < 500; i++ {
				p := Destination(c, r.Float64()*360, r.Float64()*radius)
				if Distance(c, p) > radius {
					continue
				}
				assert.True(t, AnyContains(boxes, p), "center %v radius %v point %v escaped %v", c, radius, p, boxes)
			}
			// points exactly on the circle as well
			for b := 0.0; b < 360; b += 15 {
				p := Destination(c, b, radius)
				if Distance(c, p) <= radius {
					assert.True(t, AnyContains(boxes, p), "boundary point %v escaped", p)
				}
			}
		}
	}
}

func TestBounds_SplitsAtAntimeridian(t *testing.T) {
	boxes := Bounds(Coordinate{Lat: 0, Lng: 179.9999}, 1000)
	require.Len(t, boxes, 2)
	for _, b := range boxes {
		assert.LessOrEqual(t, b.MinLng, b.MaxLng)
	}
}

func TestBounds_PoleCoversAllLongitudes(t *testing.T) {
	boxes := Bounds(Coordinate{Lat: 89.9999, Lng: 0}, 1000)
	require.Len(t, boxes, 1)
	assert.Equal(t, -180.0, boxes[0].MinLng)
	assert.Equal(t, 180.0, boxes[0].MaxLng)
}

func TestGeohash(t *testing.T) {
	assert.Equal(t, "u4pruydqqvj", Geohash(Coordinate{Lat: 57.64911, Lng: 10.40744}, 11))
	assert.Equal(t, "", Geohash(timesSquare, 0))
	assert.Len(t, Geohash(timesSquare, 7), 7)
}

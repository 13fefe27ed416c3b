package verify

import (
	"github.com/StreetCred/SC-Backend/internal/geo"
)

const (
	ThresholdFeet   = 100
	ThresholdMeters = ThresholdFeet * geo.MetersPerFoot
)

// Decision is the proximity gate's answer for one user/asset pair.
type Decision struct {
	Allowed        bool    `json:"allowed"`
	DistanceMeters float64 `json:"distanceMeters"`
	DistanceFeet   float64 `json:"distanceFeet"`
	// AccuracyMeters is echoed from the device. It is never used to
	// tighten or loosen the threshold.
	AccuracyMeters           *float64 `json:"accuracyMeters,omitempty"`
	AccuracyExceedsThreshold bool     `json:"accuracyExceedsThreshold,omitempty"`
}

// FeetToGo is how much closer the user has to get, zero when allowed.
func (d Decision) FeetToGo() float64 {
	if d.Allowed {
		return 0
	}
	return d.DistanceFeet - ThresholdFeet
}

// Within reports whether a distance passes the gate. The boundary counts.
func Within(distanceMeters float64) bool {
	return distanceMeters <= ThresholdMeters
}

// CanVerify decides whether a user standing at user may report on the
// asset at asset.
func CanVerify(user, asset geo.Coordinate, accuracyMeters *float64) Decision {
	d := geo.Distance(user, asset)
	dec := Decision{
		Allowed:        Within(d),
		DistanceMeters: d,
		DistanceFeet:   geo.MetersToFeet(d),
		AccuracyMeters: accuracyMeters,
	}
	if accuracyMeters != nil && *accuracyMeters > ThresholdMeters {
		dec.AccuracyExceedsThreshold = true
	}
	return dec
}

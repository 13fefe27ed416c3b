package geo

const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Geohash encodes c with the given number of base32 characters. Precision 7
// gives cells of roughly 150 m, which is what the resolver cache keys on.
func Geohash(c Coordinate, precision int) string {
	if precision <= 0 {
		return ""
	}
	latLo, latHi := -90.0, 90.0
	lngLo, lngHi := -180.0, 180.0
	out := make([]byte, 0, precision)
	even := true
	bit, ch := 0, 0
	for len(out) < precision {
		if even {
			mid := (lngLo + lngHi) / 2
			if c.Lng >= mid {
				ch |= 1 << (4 - bit)
				lngLo = mid
			} else {
				lngHi = mid
			}
		} else {
			mid := (latLo + latHi) / 2
			if c.Lat >= mid {
				ch |= 1 << (4 - bit)
				latLo = mid
			} else {
				latHi = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
			continue
		}
		out = append(out, geohashAlphabet[ch])
		bit, ch = 0, 0
	}
	return string(out)
}

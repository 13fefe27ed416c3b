package assetimport

import (
	"strconv"

	"github.com/google/uuid"
)

func v5(ns uuid.UUID, name string) uuid.UUID {
	return uuid.NewSHA1(ns, []byte(name))
}

// AssetID is stable across imports: the same namespace and row always map
// to the same id, so re-running an import updates rather than duplicates.
// Rows without an external id are keyed by type and position to 1e-6°.
func AssetID(ns uuid.UUID, r Row) string {
	if r.ExternalID != "" {
		return v5(ns, "asset:"+string(r.Type)+":"+r.ExternalID).String()
	}
	pos := strconv.FormatFloat(r.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(r.Lng, 'f', 6, 64)
	return v5(ns, "asset:"+string(r.Type)+"@"+pos).String()
}

package assetimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/StreetCred/SC-Backend/internal/assets"
	"github.com/StreetCred/SC-Backend/internal/geo"
)

type Row struct {
	ExternalID string
	Type       assets.AssetType
	Name       string
	Lat        float64
	Lng        float64
}

// Parsed is the outcome of reading one export.
type Parsed struct {
	Rows []Row
	// Skipped counts rows without coordinates, which open-data exports
	// contain for decommissioned assets.
	Skipped int
}

// column aliases, first match wins
var (
	latCols  = []string{"lat", "latitude"}
	lngCols  = []string{"lon", "lng", "longitude"}
	idCols   = []string{"id", "external_id", "unitid"}
	typeCols = []string{"type", "asset_type"}
	nameCols = []string{"name"}
)

func ParseFile(path string, defaultType assets.AssetType) (Parsed, error) {
	f, err := os.Open(path)
	if err != nil {
		return Parsed{}, err
	}
	defer f.Close()
	return ParseCSV(f, defaultType)
}

// ParseCSV reads an asset export. The type column may be omitted when
// defaultType is set; it then applies to every row.
func ParseCSV(src io.Reader, defaultType assets.AssetType) (Parsed, error) {
	r := csv.NewReader(bufio.NewReader(src))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return Parsed{}, err
	}
	if len(records) < 2 {
		return Parsed{}, errors.New("csv has no data rows")
	}

	header := records[0]
	// Handle BOM on first header cell
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	find := func(names []string) (int, bool) {
		for _, n := range names {
			if i, ok := col[n]; ok {
				return i, true
			}
		}
		return -1, false
	}

	latIdx, ok := find(latCols)
	if !ok {
		return Parsed{}, errors.New("missing required column: lat")
	}
	lngIdx, ok := find(lngCols)
	if !ok {
		return Parsed{}, errors.New("missing required column: lon")
	}
	typeIdx, hasType := find(typeCols)
	if !hasType && defaultType == "" {
		return Parsed{}, errors.New("missing required column: type (or pass a default type)")
	}
	idIdx, _ := find(idCols)
	nameIdx, _ := find(nameCols)

	seenIDs := map[string]int{}
	var out Parsed

	for rowIdx := 1; rowIdx < len(records); rowIdx++ {
		rec := records[rowIdx]
		get := func(i int) string {
			if i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		line := rowIdx + 1

		latRaw, lngRaw := get(latIdx), get(lngIdx)
		if latRaw == "" || lngRaw == "" {
			out.Skipped++
			continue
		}
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil {
			return Parsed{}, fmt.Errorf("row %d: lat %q is not a number", line, latRaw)
		}
		lng, err := strconv.ParseFloat(lngRaw, 64)
		if err != nil {
			return Parsed{}, fmt.Errorf("row %d: lon %q is not a number", line, lngRaw)
		}
		if err := (geo.Coordinate{Lat: lat, Lng: lng}).Validate(); err != nil {
			return Parsed{}, fmt.Errorf("row %d: %w", line, err)
		}

		t := defaultType
		if raw := get(typeIdx); raw != "" {
			if t, err = assets.ParseAssetType(raw); err != nil {
				return Parsed{}, fmt.Errorf("row %d: %w", line, err)
			}
		}
		if t == "" {
			return Parsed{}, fmt.Errorf("row %d: type is required", line)
		}

		extID := get(idIdx)
		if extID != "" {
			key := string(t) + ":" + extID
			if prev, dup := seenIDs[key]; dup {
				return Parsed{}, fmt.Errorf("row %d: duplicate id %q (first seen on row %d)", line, extID, prev)
			}
			seenIDs[key] = line
		}

		out.Rows = append(out.Rows, Row{
			ExternalID: extID,
			Type:       t,
			Name:       get(nameIdx),
			Lat:        lat,
			Lng:        lng,
		})
	}

	return out, nil
}

package neighborhood

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/StreetCred/SC-Backend/internal/geo"
)

const SourceFallback = "fallback"

//go:embed boxes.yaml
var defaultBoxesYAML []byte

// NamedBox is one row of the fallback table. Bounds are inclusive.
type NamedBox struct {
	Name   string  `yaml:"name"`
	LatMin float64 `yaml:"latMin"`
	LatMax float64 `yaml:"latMax"`
	LngMin float64 `yaml:"lngMin"`
	LngMax float64 `yaml:"lngMax"`
}

func (b NamedBox) Contains(c geo.Coordinate) bool {
	return c.Lat >= b.LatMin && c.Lat <= b.LatMax &&
		c.Lng >= b.LngMin && c.Lng <= b.LngMax
}

// Table is the ordered fallback strategy. The first containing box wins,
// so overlapping boxes are resolved by position.
type Table struct {
	boxes []NamedBox
}

// DefaultTable returns the built-in Manhattan table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultBoxesYAML)
	if err != nil {
		panic(fmt.Sprintf("neighborhood: embedded table: %v", err))
	}
	return t
}

// LoadTable reads a YAML table from path, or the built-in one when path is
// empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading neighborhood table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func ParseTable(data []byte) (*Table, error) {
	var boxes []NamedBox
	if err := yaml.UnmarshalWithOptions(data, &boxes, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing neighborhood table: %w", err)
	}
	return NewTable(boxes)
}

// NewTable validates boxes and keeps their order.
func NewTable(boxes []NamedBox) (*Table, error) {
	var errs []error
	for i, b := range boxes {
		b.Name = strings.TrimSpace(b.Name)
		boxes[i] = b
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("box %d: name is required", i))
		}
		if b.LatMin > b.LatMax || b.LngMin > b.LngMax {
			errs = append(errs, fmt.Errorf("box %d (%s): min bound exceeds max bound", i, b.Name))
		}
		if b.LatMin < -90 || b.LatMax > 90 || b.LngMin < -180 || b.LngMax > 180 {
			errs = append(errs, fmt.Errorf("box %d (%s): bounds out of range", i, b.Name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Table{boxes: append([]NamedBox(nil), boxes...)}, nil
}

func (t *Table) Len() int { return len(t.boxes) }

// Find returns the first box containing c.
func (t *Table) Find(c geo.Coordinate) (string, bool) {
	for _, b := range t.boxes {
		if b.Contains(c) {
			return b.Name, true
		}
	}
	return "", false
}

func (t *Table) Name() string { return SourceFallback }

func (t *Table) Resolve(_ context.Context, c geo.Coordinate) Result {
	if name, ok := t.Find(c); ok {
		return Resolved(SourceFallback, name)
	}
	return Unresolved(SourceFallback)
}

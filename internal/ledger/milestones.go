package ledger

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed milestones.yaml
var defaultMilestonesYAML []byte

// Milestone awards BadgeID when a user's total reaches Points.
type Milestone struct {
	Points  int64  `yaml:"milestone" json:"milestone"`
	BadgeID string `yaml:"badgeId" json:"badgeId"`
	Name    string `yaml:"name" json:"name,omitempty"`
}

type milestoneFile struct {
	Milestones  []Milestone `yaml:"milestones"`
	Every       int64       `yaml:"every"`
	UpTo        int64       `yaml:"upTo"`
	BadgePrefix string      `yaml:"badgePrefix"`
}

// Milestones is a validated table: thresholds positive and strictly
// increasing, badge ids unique. It is immutable after construction.
type Milestones struct {
	rows []Milestone
}

// DefaultMilestones is the built-in every-5-points table.
func DefaultMilestones() *Milestones {
	m, err := ParseMilestones(defaultMilestonesYAML)
	if err != nil {
		panic(fmt.Sprintf("ledger: embedded milestones: %v", err))
	}
	return m
}

// LoadMilestones reads path, or returns the built-in table when path is
// empty.
func LoadMilestones(path string) (*Milestones, error) {
	if path == "" {
		return DefaultMilestones(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading milestones: %w", err)
	}
	m, err := ParseMilestones(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func ParseMilestones(data []byte) (*Milestones, error) {
	var f milestoneFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("parsing milestones: %w", err)
	}

	rows := append([]Milestone(nil), f.Milestones...)
	if f.Every != 0 || f.UpTo != 0 {
		if f.Every <= 0 || f.UpTo < f.Every {
			return nil, fmt.Errorf("every must be positive and upTo at least every, got every=%d upTo=%d", f.Every, f.UpTo)
		}
		prefix := f.BadgePrefix
		if prefix == "" {
			prefix = "milestone-"
		}
		for p := f.Every; p <= f.UpTo; p += f.Every {
			rows = append(rows, Milestone{Points: p, BadgeID: fmt.Sprintf("%s%d", prefix, p)})
		}
		// explicit rows and generated ones may interleave
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Points < rows[j].Points })
	}
	return NewMilestones(rows)
}

// NewMilestones validates rows as given; it does not sort them, so an
// out-of-order table is rejected rather than silently reordered.
func NewMilestones(rows []Milestone) (*Milestones, error) {
	if len(rows) == 0 {
		return nil, errors.New("milestone table is empty")
	}
	var errs []error
	seen := make(map[string]int, len(rows))
	for i, r := range rows {
		r.BadgeID = strings.TrimSpace(r.BadgeID)
		rows[i] = r
		if r.Points <= 0 {
			errs = append(errs, fmt.Errorf("row %d: milestone must be positive, got %d", i, r.Points))
		}
		if i > 0 && r.Points <= rows[i-1].Points {
			errs = append(errs, fmt.Errorf("row %d: milestone %d does not increase on %d", i, r.Points, rows[i-1].Points))
		}
		if r.BadgeID == "" {
			errs = append(errs, fmt.Errorf("row %d: badgeId is required", i))
			continue
		}
		if prev, dup := seen[r.BadgeID]; dup {
			errs = append(errs, fmt.Errorf("row %d: badgeId %q already used by row %d", i, r.BadgeID, prev))
		}
		seen[r.BadgeID] = i
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &Milestones{rows: append([]Milestone(nil), rows...)}, nil
}

func (m *Milestones) All() []Milestone { return append([]Milestone(nil), m.rows...) }

func (m *Milestones) Len() int { return len(m.rows) }

// Crossed returns the milestones with from < points <= to, ascending.
func (m *Milestones) Crossed(from, to int64) []Milestone {
	lo := sort.Search(len(m.rows), func(i int) bool { return m.rows[i].Points > from })
	hi := sort.Search(len(m.rows), func(i int) bool { return m.rows[i].Points > to })
	if lo >= hi {
		return nil
	}
	return append([]Milestone(nil), m.rows[lo:hi]...)
}

// Reached returns every milestone <= points.
func (m *Milestones) Reached(points int64) []Milestone {
	return m.Crossed(0, points)
}

// Next returns the first milestone above points, or ok=false past the end
// of the table.
func (m *Milestones) Next(points int64) (Milestone, bool) {
	i := sort.Search(len(m.rows), func(i int) bool { return m.rows[i].Points > points })
	if i == len(m.rows) {
		return Milestone{}, false
	}
	return m.rows[i], true
}

// previous returns the highest milestone <= points, or 0.
func (m *Milestones) previous(points int64) int64 {
	i := sort.Search(len(m.rows), func(i int) bool { return m.rows[i].Points > points })
	if i == 0 {
		return 0
	}
	return m.rows[i-1].Points
}

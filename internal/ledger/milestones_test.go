package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMilestones(t *testing.T) {
	m := DefaultMilestones()
	require.Equal(t, 100, m.Len())
	all := m.All()
	assert.Equal(t, Milestone{Points: 5, BadgeID: "milestone-5"}, all[0])
	assert.Equal(t, Milestone{Points: 500, BadgeID: "milestone-500"}, all[99])
}

func TestMilestones_Crossed(t *testing.T) {
	m, err := NewMilestones([]Milestone{{Points: 5, BadgeID: "a"}, {Points: 10, BadgeID: "b"}, {Points: 20, BadgeID: "c"}})
	require.NoError(t, err)

	assert.Empty(t, m.Crossed(0, 4))
	assert.Equal(t, []Milestone{{Points: 5, BadgeID: "a"}}, m.Crossed(0, 5), "upper bound is inclusive")
	assert.Empty(t, m.Crossed(5, 9), "lower bound is exclusive")
	assert.Equal(t, []Milestone{{Points: 10, BadgeID: "b"}, {Points: 20, BadgeID: "c"}}, m.Crossed(5, 100))
	assert.Equal(t, []Milestone{{Points: 5, BadgeID: "a"}, {Points: 10, BadgeID: "b"}}, m.Reached(19))

	next, ok := m.Next(10)
	assert.True(t, ok)
	assert.EqualValues(t, 20, next.Points)
	_, ok = m.Next(20)
	assert.False(t, ok)
	assert.EqualValues(t, 10, m.previous(19))
	assert.EqualValues(t, 0, m.previous(4))
}

func TestNewMilestones_Rejects(t *testing.T) {
	for name, rows := range map[string][]Milestone{
		"empty":          nil,
		"zero threshold": {{Points: 0, BadgeID: "a"}},
		"decreasing":     {{Points: 10, BadgeID: "a"}, {Points: 5, BadgeID: "b"}},
		"equal":          {{Points: 5, BadgeID: "a"}, {Points: 5, BadgeID: "b"}},
		"duplicate id":   {{Points: 5, BadgeID: "a"}, {Points: 10, BadgeID: "a"}},
		"blank id":       {{Points: 5, BadgeID: " "}},
	} {
		_, err := NewMilestones(rows)
		assert.Error(t, err, name)
	}
}

func TestParseMilestones(t *testing.T) {
	m, err := ParseMilestones([]byte(`
milestones:
  - milestone: 1
    badgeId: first-report
  - milestone: 12
    badgeId: dozen
every: 5
upTo: 15
`))
	require.NoError(t, err)
	assert.Equal(t, []Milestone{
		{Points: 1, BadgeID: "first-report"},
		{Points: 5, BadgeID: "milestone-5"},
		{Points: 10, BadgeID: "milestone-10"},
		{Points: 12, BadgeID: "dozen"},
		{Points: 15, BadgeID: "milestone-15"},
	}, m.All())

	for name, doc := range map[string]string{
		"unknown key":      "milestones: []\nevry: 5\n",
		"collides":         "milestones:\n  - {milestone: 5, badgeId: x}\nevery: 5\nupTo: 10\n",
		"bad generator":    "every: 0\nupTo: 10\n",
		"out of order":     "milestones:\n  - {milestone: 10, badgeId: a}\n  - {milestone: 5, badgeId: b}\n",
		"no rows at all":   "milestones: []\n",
		"negative upTo":    "every: 5\nupTo: -5\n",
		"threshold string": "milestones:\n  - {milestone: five, badgeId: a}\n",
	} {
		_, err := ParseMilestones([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadMilestones(t *testing.T) {
	m, err := LoadMilestones("")
	require.NoError(t, err)
	assert.Equal(t, DefaultMilestones().All(), m.All())

	path := filepath.Join(t.TempDir(), "milestones.yaml")
	require.NoError(t, os.WriteFile(path, []byte("milestones:\n  - milestone: 5\n    badgeId: badgeA\n"), 0o600))
	m, err = LoadMilestones(path)
	require.NoError(t, err)
	assert.Equal(t, []Milestone{{Points: 5, BadgeID: "badgeA"}}, m.All())

	_, err = LoadMilestones(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowRunDuration(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		run      WorkflowRun
		expected string
	}{
		{
			name:     "minutes and seconds",
			run:      WorkflowRun{StartedAt: &start, UpdatedAt: start.Add(2*time.Minute + 5*time.Second)},
			expected: "2m 5s",
		},
		{
			name:     "seconds only",
			run:      WorkflowRun{StartedAt: &start, UpdatedAt: start.Add(42 * time.Second)},
			expected: "42s",
		},
		{
			name:     "unknown start",
			run:      WorkflowRun{UpdatedAt: start},
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.run.Duration())
		})
	}
}

func TestSplitFullName(t *testing.T) {
	owner, repo := SplitFullName("octo/hello")
	assert.Equal(t, "octo", owner)
	assert.Equal(t, "hello", repo)

	owner, repo = SplitFullName("lonely")
	assert.Empty(t, owner)
	assert.Equal(t, "lonely", repo)
}

func TestNewSortPrefs(t *testing.T) {
	prefs := NewSortPrefs("bogus", "sideways", 0)
	assert.Equal(t, SortPrefs{Key: SortUpdated, Order: OrderDesc, MaxRepos: DefaultMaxRepos}, prefs)

	prefs = NewSortPrefs("stars", "asc", 3)
	assert.Equal(t, SortPrefs{Key: SortStars, Order: OrderAsc, MaxRepos: 3}, prefs)
}

func TestSortRepositories(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repos := func() []Repository {
		return []Repository{
			{ID: 1, Name: "beta", Stars: 5, UpdatedAt: base.Add(2 * time.Hour)},
			{ID: 2, Name: "Alpha", Stars: 9, UpdatedAt: base},
			{ID: 3, Name: "gamma", Stars: 1, UpdatedAt: base.Add(time.Hour)},
		}
	}
	ids := func(rs []Repository) []int64 {
		out := make([]int64, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.ID)
		}
		return out
	}

	testCases := []struct {
		name     string
		prefs    SortPrefs
		expected []int64
	}{
		{"stars desc", SortPrefs{Key: SortStars, Order: OrderDesc}, []int64{2, 1, 3}},
		{"name asc is case insensitive", SortPrefs{Key: SortName, Order: OrderAsc}, []int64{2, 1, 3}},
		{"updated desc", SortPrefs{Key: SortUpdated, Order: OrderDesc}, []int64{1, 3, 2}},
		{"truncated", SortPrefs{Key: SortStars, Order: OrderAsc, MaxRepos: 2}, []int64{3, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ids(SortRepositories(repos(), tc.prefs)))
		})
	}
}

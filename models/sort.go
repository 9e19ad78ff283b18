package models

import (
	"sort"
	"strings"
)

// SortKey selects the repository ordering.
type SortKey string

const (
	SortUpdated SortKey = "updated"
	SortStars   SortKey = "stars"
	SortName    SortKey = "name"
	SortCreated SortKey = "created"
	SortPushed  SortKey = "pushed"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// DefaultMaxRepos is used when no positive limit is configured.
const DefaultMaxRepos = 10

// SortPrefs controls ordering and truncation of the repository list
type SortPrefs struct {
	Key      SortKey   `json:"key"`
	Order    SortOrder `json:"order"`
	MaxRepos int       `json:"max_repos"`
}

// NewSortPrefs creates SortPrefs with validated values.
// Unknown keys fall back to "updated", unknown orders to "desc",
// and a non-positive limit to DefaultMaxRepos.
func NewSortPrefs(key, order string, maxRepos int) SortPrefs {
	k := SortKey(key)
	switch k {
	case SortUpdated, SortStars, SortName, SortCreated, SortPushed:
	default:
		k = SortUpdated
	}
	o := SortOrder(order)
	if o != OrderAsc {
		o = OrderDesc
	}
	if maxRepos < 1 {
		maxRepos = DefaultMaxRepos
	}
	return SortPrefs{Key: k, Order: o, MaxRepos: maxRepos}
}

// SortRepositories orders repos in place according to prefs and returns
// the slice truncated to prefs.MaxRepos when that is positive.
func SortRepositories(repos []Repository, prefs SortPrefs) []Repository {
	less := func(a, b Repository) bool {
		switch prefs.Key {
		case SortStars:
			return a.Stars < b.Stars
		case SortName:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		case SortCreated:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortPushed:
			return a.PushedAt.Before(b.PushedAt)
		default:
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	}

	sort.SliceStable(repos, func(i, j int) bool {
		if prefs.Order == OrderAsc {
			return less(repos[i], repos[j])
		}
		return less(repos[j], repos[i])
	})

	if prefs.MaxRepos > 0 && len(repos) > prefs.MaxRepos {
		return repos[:prefs.MaxRepos]
	}
	return repos
}

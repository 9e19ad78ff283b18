// Package diff compares two generations of polled GitHub data and reports
// what grew in between. Every function here is pure.
package diff

import (
	"sort"

	"githubtray/models"
)

// Delta is a positive change of one counter on one repository.
type Delta struct {
	RepoName string `json:"repo_name"`
	Delta    int    `json:"delta"`
}

// RepoChanges is the repository part of a ChangeSet.
type RepoChanges struct {
	TotalNewStars int
	StarsGained   []Delta
	NewIssues     []Delta
	NewForks      []Delta
}

// TransitionKind names a workflow run state change worth announcing.
type TransitionKind string

const (
	TransitionStarted   TransitionKind = "started"
	TransitionSucceeded TransitionKind = "succeeded"
	TransitionFailed    TransitionKind = "failed"
	TransitionCancelled TransitionKind = "cancelled"
)

// Transition is a workflow run that changed state between two polls.
type Transition struct {
	Repo     string             `json:"repo"`
	RepoName string             `json:"repo_name"`
	Run      models.WorkflowRun `json:"run"`
	Kind     TransitionKind     `json:"kind"`
}

// ChangeSet is everything one comparison found.
type ChangeSet struct {
	TotalNewStars       int               `json:"total_new_stars"`
	StarsGained         []Delta           `json:"stars_gained,omitempty"`
	NewIssues           []Delta           `json:"new_issues,omitempty"`
	NewForks            []Delta           `json:"new_forks,omitempty"`
	NewFollowers        []models.Follower `json:"new_followers,omitempty"`
	WorkflowTransitions []Transition      `json:"workflow_transitions,omitempty"`
}

// IsEmpty reports whether there is nothing to announce.
func (c *ChangeSet) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.TotalNewStars == 0 &&
		len(c.StarsGained) == 0 &&
		len(c.NewIssues) == 0 &&
		len(c.NewForks) == 0 &&
		len(c.NewFollowers) == 0 &&
		len(c.WorkflowTransitions) == 0
}

type counters struct {
	stars, issues, forks int
}

// Repositories returns the positive counter deltas per repository, keyed by
// repository ID. It returns nil when oldRepos is nil (no prior generation).
// Repositories absent from oldRepos are skipped.
func Repositories(newRepos, oldRepos []models.Repository) *RepoChanges {
	if oldRepos == nil {
		return nil
	}

	old := make(map[int64]counters, len(oldRepos))
	for _, r := range oldRepos {
		old[r.ID] = counters{stars: r.Stars, issues: r.OpenIssues, forks: r.Forks}
	}

	changes := &RepoChanges{}
	for _, r := range newRepos {
		prev, ok := old[r.ID]
		if !ok {
			continue
		}
		if d := r.Stars - prev.stars; d > 0 {
			changes.StarsGained = append(changes.StarsGained, Delta{RepoName: r.Name, Delta: d})
			changes.TotalNewStars += d
		}
		if d := r.OpenIssues - prev.issues; d > 0 {
			changes.NewIssues = append(changes.NewIssues, Delta{RepoName: r.Name, Delta: d})
		}
		if d := r.Forks - prev.forks; d > 0 {
			changes.NewForks = append(changes.NewForks, Delta{RepoName: r.Name, Delta: d})
		}
	}
	return changes
}

// Followers returns the followers in newFollowers whose ID is not in
// oldFollowers, preserving order. It returns nil when oldFollowers is nil and
// a non-nil, possibly empty, slice otherwise.
func Followers(newFollowers, oldFollowers []models.Follower) []models.Follower {
	if oldFollowers == nil {
		return nil
	}

	seen := make(map[int64]struct{}, len(oldFollowers))
	for _, f := range oldFollowers {
		seen[f.ID] = struct{}{}
	}

	added := []models.Follower{}
	for _, f := range newFollowers {
		if _, ok := seen[f.ID]; !ok {
			added = append(added, f)
		}
	}
	return added
}

// WorkflowRuns classifies state changes between two run lists of the same
// repository. Runs first seen already completed are not reported.
func WorkflowRuns(newRuns, oldRuns []models.WorkflowRun, repoFullName string) []Transition {
	old := make(map[int64]models.WorkflowRun, len(oldRuns))
	for _, r := range oldRuns {
		old[r.ID] = r
	}

	_, repoName := models.SplitFullName(repoFullName)
	var out []Transition
	emit := func(run models.WorkflowRun, kind TransitionKind) {
		out = append(out, Transition{Repo: repoFullName, RepoName: repoName, Run: run, Kind: kind})
	}

	for _, run := range newRuns {
		prev, seen := old[run.ID]
		if !seen {
			if run.Status == models.RunInProgress {
				emit(run, TransitionStarted)
			}
			continue
		}
		if prev.Status == run.Status {
			continue
		}
		switch run.Status {
		case models.RunInProgress:
			emit(run, TransitionStarted)
		case models.RunCompleted:
			if kind, ok := conclusionKind(run.Conclusion); ok {
				emit(run, kind)
			}
		}
	}
	return out
}

func conclusionKind(c models.RunConclusion) (TransitionKind, bool) {
	switch c {
	case models.ConclusionSuccess:
		return TransitionSucceeded, true
	case models.ConclusionFailure:
		return TransitionFailed, true
	case models.ConclusionCancelled:
		return TransitionCancelled, true
	default:
		return "", false
	}
}

// Detect compares the repository and follower parts of two snapshots.
// It returns nil when there is no previous repository generation.
func Detect(current, previous *models.Snapshot) *ChangeSet {
	if current == nil || previous == nil || previous.Repositories == nil {
		return nil
	}

	cs := &ChangeSet{}
	if rc := Repositories(current.Repositories, previous.Repositories); rc != nil {
		cs.TotalNewStars = rc.TotalNewStars
		cs.StarsGained = rc.StarsGained
		cs.NewIssues = rc.NewIssues
		cs.NewForks = rc.NewForks
	}
	cs.NewFollowers = Followers(current.Followers, previous.Followers)
	return cs
}

// DetectWorkflows compares two run maps keyed by repository full name.
// Repositories without previous runs only seed state and report nothing.
func DetectWorkflows(current, previous map[string][]models.WorkflowRun) *ChangeSet {
	if current == nil || previous == nil {
		return nil
	}

	repos := make([]string, 0, len(current))
	for repo := range current {
		repos = append(repos, repo)
	}
	sort.Strings(repos)

	cs := &ChangeSet{}
	for _, repo := range repos {
		oldRuns := previous[repo]
		if len(oldRuns) == 0 {
			continue
		}
		cs.WorkflowTransitions = append(cs.WorkflowTransitions, WorkflowRuns(current[repo], oldRuns, repo)...)
	}
	return cs
}

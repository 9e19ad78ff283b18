// Package snapshot keeps the current and previous generation of polled data.
package snapshot

import (
	"maps"
	"sync"
	"time"

	"githubtray/models"
)

// Store holds at most two generations. Snapshots handed out are never
// mutated afterwards; every commit builds a new one.
type Store struct {
	mu       sync.RWMutex
	current  *models.Snapshot
	previous *models.Snapshot
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Current returns the latest generation or nil.
func (s *Store) Current() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Previous returns the generation before Current or nil.
func (s *Store) Previous() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previous
}

// Commit makes next the current generation and demotes the old current.
// It returns the demoted and the new generation.
func (s *Store) Commit(next *models.Snapshot) (prev, cur *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next.TakenAt.IsZero() {
		next.TakenAt = s.now()
	}
	s.previous, s.current = s.current, next
	return s.previous, s.current
}

// CommitRepositories commits a repository/follower generation, carrying the
// workflow runs of the current generation forward.
func (s *Store) CommitRepositories(username string, profile *models.Profile, repos []models.Repository, followers []models.Follower) (prev, cur *models.Snapshot) {
	if repos == nil {
		repos = []models.Repository{}
	}
	if followers == nil {
		followers = []models.Follower{}
	}
	return s.update(func(base *models.Snapshot) *models.Snapshot {
		next := &models.Snapshot{
			Username:     username,
			Profile:      profile,
			Repositories: repos,
			Followers:    followers,
		}
		if base != nil {
			next.WorkflowRunsByRepo = base.WorkflowRunsByRepo
		}
		return next
	})
}

// CommitWorkflowRuns merges freshly fetched run lists into a new generation.
// Repositories missing from runs keep their previous lists.
func (s *Store) CommitWorkflowRuns(runs map[string][]models.WorkflowRun) (prev, cur *models.Snapshot) {
	return s.update(func(base *models.Snapshot) *models.Snapshot {
		next := &models.Snapshot{WorkflowRunsByRepo: make(map[string][]models.WorkflowRun, len(runs))}
		if base != nil {
			next.Username = base.Username
			next.Profile = base.Profile
			next.Repositories = base.Repositories
			next.Followers = base.Followers
			maps.Copy(next.WorkflowRunsByRepo, base.WorkflowRunsByRepo)
		}
		maps.Copy(next.WorkflowRunsByRepo, runs)
		return next
	})
}

func (s *Store) update(build func(base *models.Snapshot) *models.Snapshot) (prev, cur *models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := build(s.current)
	next.TakenAt = s.now()
	s.previous, s.current = s.current, next
	return s.previous, s.current
}

// Reset drops both generations.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current, s.previous = nil, nil
}

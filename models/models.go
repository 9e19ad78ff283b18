// Package models defines the core data structures used throughout the application.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Repository represents a GitHub repository as seen by one poll
type Repository struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	FullName    string    `db:"full_name" json:"full_name"`
	Description string    `db:"description" json:"description"`
	Stars       int       `db:"stars" json:"stargazers_count"`
	OpenIssues  int       `db:"open_issues" json:"open_issues_count"`
	Forks       int       `db:"forks" json:"forks_count"`
	IsFork      bool      `db:"is_fork" json:"fork"`
	ParentURL   string    `db:"parent_url" json:"parent_url,omitempty"`
	Language    string    `db:"language" json:"language"`
	HTMLURL     string    `db:"html_url" json:"html_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	PushedAt    time.Time `db:"pushed_at" json:"pushed_at"`
}

// Owner returns the owner part of the full name.
func (r Repository) Owner() string {
	owner, _ := SplitFullName(r.FullName)
	return owner
}

// SplitFullName splits "owner/repo" into its parts.
func SplitFullName(fullName string) (owner, repo string) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found {
		return "", fullName
	}
	return owner, repo
}

// Follower is a user following the authenticated account
type Follower struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Profile holds the summary numbers shown next to the avatar.
type Profile struct {
	AvatarURL   string `json:"avatar_url"`
	Followers   int    `json:"followers"`
	PublicRepos int    `json:"public_repos"`
}

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
)

// RunConclusion is only meaningful once a run is completed.
type RunConclusion string

const (
	ConclusionNone      RunConclusion = ""
	ConclusionSuccess   RunConclusion = "success"
	ConclusionFailure   RunConclusion = "failure"
	ConclusionCancelled RunConclusion = "cancelled"
	ConclusionSkipped   RunConclusion = "skipped"
)

// WorkflowRun represents one GitHub Actions run
type WorkflowRun struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	Status             RunStatus     `json:"status"`
	Conclusion         RunConclusion `json:"conclusion"`
	HeadBranch         string        `json:"head_branch"`
	RunAttempt         int           `json:"run_attempt"`
	UpdatedAt          time.Time     `json:"updated_at"`
	StartedAt          *time.Time    `json:"run_started_at,omitempty"`
	RepositoryFullName string        `json:"repository_full_name"`
	HTMLURL            string        `json:"html_url"`
}

// Duration renders the elapsed time between start and last update,
// e.g. "2m 5s" or "42s". Empty when the start time is unknown.
func (r WorkflowRun) Duration() string {
	if r.StartedAt == nil || r.UpdatedAt.IsZero() {
		return ""
	}
	secs := int(r.UpdatedAt.Sub(*r.StartedAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	if mins := secs / 60; mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs%60)
	}
	return fmt.Sprintf("%ds", secs)
}

// Issue is an open issue shown in a repository submenu
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	HTMLURL   string    `json:"html_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is one item from the GitHub notification feed
type Notification struct {
	ID                 string    `json:"id"`
	Reason             string    `json:"reason"`
	SubjectType        string    `json:"subject_type"`
	Title              string    `json:"title"`
	RepositoryFullName string    `json:"repository_full_name"`
	URL                string    `json:"url"`
	Unread             bool      `json:"unread"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Snapshot is one immutable generation of polled data. A nil Repositories
// slice means no repository generation has been committed yet.
type Snapshot struct {
	Username           string                   `json:"username"`
	Profile            *Profile                 `json:"profile,omitempty"`
	Repositories       []Repository             `json:"repositories"`
	Followers          []Follower               `json:"followers"`
	WorkflowRunsByRepo map[string][]WorkflowRun `json:"workflow_runs_by_repo"`
	TakenAt            time.Time                `json:"taken_at"`
}

// DeliveredNotification is a row of the delivery history
type DeliveredNotification struct {
	ID          int64     `db:"id" json:"id"`
	Lane        string    `db:"lane" json:"lane"`
	Title       string    `db:"title" json:"title"`
	Body        string    `db:"body" json:"body"`
	DeliveredAt time.Time `db:"-" json:"delivered_at"`
}

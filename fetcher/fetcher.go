// Package fetcher defines the remote data contract the refresh loop depends on.
package fetcher

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"githubtray/models"
)

// Fetcher is every GitHub read and write the application performs. All
// methods block until the request completes and fail on non-2xx answers.
type Fetcher interface {
	FetchRepositories(ctx context.Context, token, username string, prefs models.SortPrefs) ([]models.Repository, error)
	FetchUserProfile(ctx context.Context, token, username string) (*models.Profile, error)
	FetchFollowers(ctx context.Context, token string) ([]models.Follower, error)
	FetchWorkflowRuns(ctx context.Context, token, owner, repo string, maxCount int) ([]models.WorkflowRun, error)
	FetchIssues(ctx context.Context, token, owner, repo string, maxCount int) ([]models.Issue, error)
	FetchNotifications(ctx context.Context, token string, maxCount int) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, token, notificationID string) error
	RerunWorkflow(ctx context.Context, token, owner, repo string, runID int64) error
}

// Limited throttles every call of the wrapped Fetcher through one token
// bucket so a burst of cycles cannot hammer the API.
type Limited struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewLimited wraps next with a limiter allowing perSecond requests and a
// burst of one. A non-positive rate disables throttling.
func NewLimited(next Fetcher, perSecond float64) *Limited {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Limited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

func (l *Limited) wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (l *Limited) FetchRepositories(ctx context.Context, token, username string, prefs models.SortPrefs) ([]models.Repository, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.FetchRepositories(ctx, token, username, prefs)
}

func (l *Limited) FetchUserProfile(ctx context.Context, token, username string) (*models.Profile, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.FetchUserProfile(ctx, token, username)
}

func (l *Limited) FetchFollowers(ctx context.Context, token string) ([]models.Follower, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.FetchFollowers(ctx, token)
}

func (l *Limited) FetchWorkflowRuns(ctx context.Context, token, owner, repo string, maxCount int) ([]models.WorkflowRun, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.FetchWorkflowRuns(ctx, token, owner, repo, maxCount)
}

func (l *Limited) FetchIssues(ctx context.Context, token, owner, repo string, maxCount int) ([]models.Issue, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.FetchIssues(ctx, token, owner, repo, maxCount)
}

func (l *Limited) FetchNotifications(ctx context.Context, token string, maxCount int) ([]models.Notification, error) {
	if err := l.wait(ctx); err != nil {
		return nil, err
	}
	return l.next.FetchNotifications(ctx, token, maxCount)
}

func (l *Limited) MarkNotificationRead(ctx context.Context, token, notificationID string) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.next.MarkNotificationRead(ctx, token, notificationID)
}

func (l *Limited) RerunWorkflow(ctx context.Context, token, owner, repo string, runID int64) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.next.RerunWorkflow(ctx, token, owner, repo, runID)
}

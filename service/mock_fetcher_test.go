package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"githubtray/models"
)

// MockFetcher is a mock implementation of the fetcher.Fetcher interface
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchRepositories(ctx context.Context, token, username string, prefs models.SortPrefs) ([]models.Repository, error) {
	args := m.Called(ctx, token, username, prefs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Repository), args.Error(1)
}

func (m *MockFetcher) FetchUserProfile(ctx context.Context, token, username string) (*models.Profile, error) {
	args := m.Called(ctx, token, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockFetcher) FetchFollowers(ctx context.Context, token string) ([]models.Follower, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Follower), args.Error(1)
}

func (m *MockFetcher) FetchWorkflowRuns(ctx context.Context, token, owner, repo string, maxCount int) ([]models.WorkflowRun, error) {
	args := m.Called(ctx, token, owner, repo, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkflowRun), args.Error(1)
}

func (m *MockFetcher) FetchIssues(ctx context.Context, token, owner, repo string, maxCount int) ([]models.Issue, error) {
	args := m.Called(ctx, token, owner, repo, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Issue), args.Error(1)
}

func (m *MockFetcher) FetchNotifications(ctx context.Context, token string, maxCount int) ([]models.Notification, error) {
	args := m.Called(ctx, token, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockFetcher) MarkNotificationRead(ctx context.Context, token, notificationID string) error {
	return m.Called(ctx, token, notificationID).Error(0)
}

func (m *MockFetcher) RerunWorkflow(ctx context.Context, token, owner, repo string, runID int64) error {
	return m.Called(ctx, token, owner, repo, runID).Error(0)
}

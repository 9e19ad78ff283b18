package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"githubtray/config"
	"githubtray/logger"
	"githubtray/models"
)

const (
	feedPageSize        = 50
	feedRefillThreshold = 5
	feedTitle           = "GitHub Notifications"
	minFeedInterval     = 10 * time.Second
)

// feed is the filtered notification buffer and its unread count.
type feed struct {
	mu     sync.Mutex
	items  []models.Notification
	unread int
}

func (f *feed) snapshot() []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

func (f *feed) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items, f.unread = nil, 0
}

// Unread returns the badge count.
func (s *Service) Unread() int {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	return s.feed.unread
}

// filterFeed drops the categories switched off in toggles. Reasons take
// precedence over subject types.
func filterFeed(items []models.Notification, toggles config.NotifyToggles) []models.Notification {
	out := make([]models.Notification, 0, len(items))
	for _, n := range items {
		if feedAllowed(n, toggles) {
			out = append(out, n)
		}
	}
	return out
}

func feedAllowed(n models.Notification, t config.NotifyToggles) bool {
	switch n.Reason {
	case "review_requested":
		return t.ReviewRequests
	case "mention", "team_mention":
		return t.Mentions
	case "assign":
		return t.Assignments
	}
	switch n.SubjectType {
	case "PullRequest", "PullRequestReview", "PullRequestReviewComment":
		return t.PRComments
	case "Issue", "IssueComment":
		return t.IssueComments
	}
	return true
}

func countUnread(items []models.Notification) int {
	n := 0
	for _, item := range items {
		if item.Unread {
			n++
		}
	}
	return n
}

// startFeed (re)arms the feed cycle when the feed is enabled, loading it
// immediately, and stops it otherwise.
func (s *Service) startFeed() {
	cfg := s.cfg.Current()
	if !cfg.ShowNotifications {
		s.feedTicker.Stop()
		return
	}
	go func() { s.logCycle("feed", s.LoadFeed(false)) }()
	s.feedTicker.Start(max(cfg.NotificationInterval, minFeedInterval), func() {
		if s.cfg.Current().ShowNotifications {
			s.logCycle("feed", s.LoadFeed(false))
		}
	})
}

// LoadFeed fetches the notification feed. In merge mode only unseen items
// are appended to the buffer; otherwise the buffer is replaced, the badge
// updated and a desktop notification raised when the unread count grew.
func (s *Service) LoadFeed(merge bool) error {
	cfg := s.cfg.Current()
	if cfg.GitHubToken == "" {
		return ErrNotConfigured
	}

	items, err := s.fetcher.FetchNotifications(s.ctx, cfg.GitHubToken, feedPageSize)
	if err != nil {
		return fmt.Errorf("failed to load notifications: %w", err)
	}
	items = filterFeed(items, cfg.Notify)

	s.feed.mu.Lock()
	if merge && len(s.feed.items) > 0 {
		seen := make(map[string]bool, len(s.feed.items))
		for _, n := range s.feed.items {
			seen[n.ID] = true
		}
		for _, n := range items {
			if !seen[n.ID] {
				s.feed.items = append(s.feed.items, n)
			}
		}
		s.feed.mu.Unlock()
		return nil
	}
	oldUnread := s.feed.unread
	unread := countUnread(items)
	s.feed.items = items
	s.feed.unread = unread
	s.feed.mu.Unlock()

	s.presenter.UpdateBadge(unread)
	logger.Debug("Notification feed loaded", zap.Int("items", len(items)), zap.Int("unread", unread))

	if newCount := unread - oldUnread; newCount > 0 && cfg.DesktopNotifications {
		body := fmt.Sprintf("%d new notifications", newCount)
		if newCount == 1 {
			body = "1 new notification"
		}
		s.notify(feedTitle, body)
	}
	return nil
}

// MarkNotificationRead marks one feed item read, drops it from the buffer
// and tops the buffer up when it runs low.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	cfg := s.cfg.Current()
	if cfg.GitHubToken == "" {
		return ErrNotConfigured
	}
	if err := s.fetcher.MarkNotificationRead(ctx, cfg.GitHubToken, id); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}

	s.feed.mu.Lock()
	s.feed.items = slices.DeleteFunc(s.feed.items, func(n models.Notification) bool { return n.ID == id })
	s.feed.unread = max(0, s.feed.unread-1)
	unread, remaining := s.feed.unread, len(s.feed.items)
	s.feed.mu.Unlock()

	s.presenter.UpdateBadge(unread)
	s.presenter.UpdateMenu(s.menuContent(s.store.Current()))

	if remaining < feedRefillThreshold {
		if err := s.LoadFeed(true); err != nil {
			logger.Warn("Error refilling notification feed", zap.Error(err))
			return nil
		}
		s.presenter.UpdateMenu(s.menuContent(s.store.Current()))
	}
	return nil
}

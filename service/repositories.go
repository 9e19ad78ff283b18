package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"githubtray/logger"
	"githubtray/models"
)

const (
	errorNotificationTitle = "GitHub Tray"
	issuesPerRepo          = 10
)

// loadRepositories runs one repository cycle. It reports whether this was
// the first repository generation committed to the store.
func (s *Service) loadRepositories(manual bool) (bool, error) {
	cfg := s.cfg.Current()
	if !cfg.HasCredentials() {
		s.presenter.ShowMessage(MsgConfigure)
		return false, ErrNotConfigured
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	if s.inFlight {
		s.mu.Unlock()
		return false, ErrRefreshInFlight
	}
	s.inFlight = true
	gen := s.generation
	ctx, cancel := context.WithCancel(s.ctx)
	s.cycleCancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.cycleCancel = nil
		s.mu.Unlock()
		cancel()
	}()

	wasOpen := s.presenter.IsOpen()
	if !wasOpen {
		s.presenter.ShowMessage(MsgLoading)
	}

	logger.Info("Fetching repositories",
		zap.String("username", cfg.Username),
		zap.Bool("manual", manual))

	var (
		repos     []models.Repository
		profile   *models.Profile
		followers []models.Follower
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		repos, err = s.fetcher.FetchRepositories(gctx, cfg.GitHubToken, cfg.Username, cfg.SortPrefs())
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = s.fetcher.FetchUserProfile(gctx, cfg.GitHubToken, cfg.Username)
		return err
	})
	g.Go(func() error {
		var err error
		followers, err = s.fetcher.FetchFollowers(gctx, cfg.GitHubToken)
		return err
	})

	if err := g.Wait(); err != nil {
		if s.stale(gen) {
			return false, ErrStaleCycle
		}
		s.presenter.ShowMessage(MsgLoadError)
		if manual {
			s.notify(errorNotificationTitle, fmt.Sprintf("Failed to fetch repositories: %s", err))
		}
		return false, fmt.Errorf("failed to load repositories for %s: %w", cfg.Username, err)
	}

	repos = models.SortRepositories(repos, cfg.SortPrefs())

	s.mu.Lock()
	if s.generation != gen || s.closed {
		s.mu.Unlock()
		return false, ErrStaleCycle
	}
	prev, cur := s.store.CommitRepositories(cfg.Username, profile, repos, followers)
	s.mu.Unlock()

	logger.Info("Repositories loaded",
		zap.Int("repositories", len(cur.Repositories)),
		zap.Int("followers", len(cur.Followers)))

	content := s.menuContent(cur)
	if manual && wasOpen {
		// the user asked for it from the open menu
		s.presenter.UpdateMenu(content)
	} else {
		s.present(content)
	}

	firstLoad := prev == nil || prev.Repositories == nil
	if !firstLoad {
		s.scheduler.ScheduleRepositories(cur, prev)
	}
	return firstLoad, nil
}

func (s *Service) stale(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation != gen || s.closed
}

// FetchIssues lists the open issues of a repository for the menu. Errors
// yield an empty list.
func (s *Service) FetchIssues(ctx context.Context, fullName string) []models.Issue {
	cfg := s.cfg.Current()
	if cfg.GitHubToken == "" {
		return []models.Issue{}
	}
	owner, repo := models.SplitFullName(fullName)
	issues, err := s.fetcher.FetchIssues(ctx, cfg.GitHubToken, owner, repo, issuesPerRepo)
	if err != nil {
		logger.Warn("Error fetching issues", zap.String("repo", fullName), zap.Error(err))
		return []models.Issue{}
	}
	return issues
}

// OpenLocalProject opens the mapped folder of fullName in the configured editor.
func (s *Service) OpenLocalProject(ctx context.Context, fullName string) error {
	cfg := s.cfg.Current()
	path, ok := cfg.LocalProjects.Path(fullName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotMonitored, fullName)
	}
	if s.launcher == nil {
		return fmt.Errorf("no launcher configured for %s", fullName)
	}
	return s.launcher.OpenPath(ctx, cfg.LocalEditor, path)
}

// OpenURL opens url in the browser.
func (s *Service) OpenURL(ctx context.Context, url string) error {
	if s.launcher == nil {
		return fmt.Errorf("no launcher configured for %s", url)
	}
	return s.launcher.OpenURL(ctx, url)
}

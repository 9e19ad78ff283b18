package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"githubtray/config"
	"githubtray/logger"
	"githubtray/models"
)

const (
	monitoredRunsPerRepo   = 5
	defaultWorkflowRunsMax = 10
)

func monitoredRepositories(snap *models.Snapshot, lp config.LocalProjects) []models.Repository {
	if snap == nil {
		return nil
	}
	var out []models.Repository
	for _, repo := range snap.Repositories {
		if _, ok := lp.Path(repo.FullName); ok {
			out = append(out, repo)
		}
	}
	return out
}

// RefreshWorkflows reloads the latest runs of every monitored repository,
// one repository at a time. A failing repository does not abort the rest;
// all failures are returned joined.
func (s *Service) RefreshWorkflows() error {
	cfg := s.cfg.Current()
	if cfg.GitHubToken == "" {
		return ErrNotConfigured
	}
	monitored := monitoredRepositories(s.store.Current(), cfg.LocalProjects)
	if len(monitored) == 0 {
		return nil
	}

	s.workflowMu.Lock()
	defer s.workflowMu.Unlock()

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	logger.Debug("Loading monitored workflow runs", zap.Int("repositories", len(monitored)))

	runs := make(map[string][]models.WorkflowRun, len(monitored))
	var errs []error
	for _, repo := range monitored {
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		owner, name := models.SplitFullName(repo.FullName)
		list, err := s.fetcher.FetchWorkflowRuns(s.ctx, cfg.GitHubToken, owner, name, monitoredRunsPerRepo)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo.FullName, err))
			continue
		}
		runs[repo.FullName] = list
	}

	if len(runs) > 0 {
		s.mu.Lock()
		if s.generation != gen || s.closed {
			s.mu.Unlock()
			return ErrStaleCycle
		}
		prev, cur := s.store.CommitWorkflowRuns(runs)
		s.mu.Unlock()

		var prevRuns map[string][]models.WorkflowRun
		if prev != nil {
			prevRuns = prev.WorkflowRunsByRepo
		}
		s.scheduler.ScheduleWorkflows(cur.WorkflowRunsByRepo, prevRuns)
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to load workflow runs: %w", err)
	}
	return nil
}

// FetchWorkflowRuns lists recent runs of one repository for the menu.
// Errors yield an empty list.
func (s *Service) FetchWorkflowRuns(ctx context.Context, fullName string) []models.WorkflowRun {
	cfg := s.cfg.Current()
	if cfg.GitHubToken == "" {
		return []models.WorkflowRun{}
	}
	limit := cfg.WorkflowRunsMax
	if limit <= 0 {
		limit = defaultWorkflowRunsMax
	}
	owner, repo := models.SplitFullName(fullName)
	runs, err := s.fetcher.FetchWorkflowRuns(ctx, cfg.GitHubToken, owner, repo, limit)
	if err != nil {
		logger.Warn("Error fetching workflow runs", zap.String("repo", fullName), zap.Error(err))
		return []models.WorkflowRun{}
	}
	return runs
}

// RerunWorkflow re-runs the failed jobs of run and reloads the monitored
// runs shortly after.
func (s *Service) RerunWorkflow(ctx context.Context, run models.WorkflowRun) error {
	cfg := s.cfg.Current()
	if cfg.GitHubToken == "" {
		return ErrNotConfigured
	}
	owner, repo := models.SplitFullName(run.RepositoryFullName)
	if err := s.fetcher.RerunWorkflow(ctx, cfg.GitHubToken, owner, repo, run.ID); err != nil {
		return fmt.Errorf("failed to rerun workflow %d: %w", run.ID, err)
	}
	logger.Info("Workflow rerun requested",
		zap.String("repo", run.RepositoryFullName),
		zap.Int64("run_id", run.ID))

	s.rerunTimer.Schedule(RerunReloadDelay, func() {
		s.logCycle("workflows", s.RefreshWorkflows())
	})
	return nil
}

package service

import (
	"context"

	"githubtray/config"
	"githubtray/models"
)

// Status lines shown by the presentation surface.
const (
	MsgConfigure      = "Configure token and username in settings"
	MsgLoading        = "Loading repositories..."
	MsgLoadError      = "Error loading repositories"
	MsgWaitingNetwork = "Waiting for network connection..."
)

// Presenter renders the menu and reports whether it is open.
type Presenter interface {
	IsOpen() bool
	UpdateMenu(content MenuContent)
	ShowMessage(text string)
	UpdateBadge(unread int)
}

// Launcher opens local folders and remote pages.
type Launcher interface {
	OpenPath(ctx context.Context, editor, path string) error
	OpenURL(ctx context.Context, url string) error
}

// MenuContent is everything the menu shows for one refresh.
type MenuContent struct {
	Username      string
	Profile       *models.Profile
	Repositories  []models.Repository
	Followers     int
	Notifications []models.Notification
	WorkflowRuns  map[string][]models.WorkflowRun
	LocalProjects config.LocalProjects
}

// Monitored reports whether fullName has a local project mapping.
func (m MenuContent) Monitored(fullName string) bool {
	_, ok := m.LocalProjects.Path(fullName)
	return ok
}

func (s *Service) menuContent(snap *models.Snapshot) MenuContent {
	content := MenuContent{
		Notifications: s.feed.snapshot(),
		LocalProjects: s.cfg.Current().LocalProjects.Clone(),
	}
	if snap == nil {
		return content
	}
	content.Username = snap.Username
	content.Profile = snap.Profile
	content.Repositories = snap.Repositories
	content.Followers = len(snap.Followers)
	content.WorkflowRuns = snap.WorkflowRunsByRepo
	return content
}

// present pushes content to the surface, or parks it while the surface is
// open so the user is not disturbed mid-interaction.
func (s *Service) present(content MenuContent) {
	if s.presenter.IsOpen() {
		s.mu.Lock()
		s.pendingMenu = &content
		s.mu.Unlock()
		return
	}
	s.presenter.UpdateMenu(content)
}

// MenuClosed applies a parked menu update and releases held notifications
// once the surface has stayed closed for the settle delay.
func (s *Service) MenuClosed() {
	s.scheduler.MenuClosed()

	s.mu.Lock()
	pending := s.pendingMenu != nil
	s.mu.Unlock()
	if !pending {
		return
	}
	s.settleTimer.Schedule(s.settleDelay, func() {
		if s.presenter.IsOpen() {
			return
		}
		s.mu.Lock()
		content := s.pendingMenu
		s.pendingMenu = nil
		s.mu.Unlock()
		if content != nil {
			s.presenter.UpdateMenu(*content)
		}
	})
}

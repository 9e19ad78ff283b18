package tui

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"githubtray/config"
	"githubtray/models"
	"githubtray/service"
)

type fakeActions struct {
	mu       sync.Mutex
	closed   int
	refresh  int
	read     []string
	reruns   []int64
	opened   []string
	issues   []models.Issue
	runs     []models.WorkflowRun
	lastRepo string
}

func (a *fakeActions) Refresh() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.refresh++
	return nil
}

func (a *fakeActions) MenuClosed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed++
}

func (a *fakeActions) FetchIssues(_ context.Context, fullName string) []models.Issue {
	a.lastRepo = fullName
	return a.issues
}

func (a *fakeActions) FetchWorkflowRuns(_ context.Context, fullName string) []models.WorkflowRun {
	a.lastRepo = fullName
	return a.runs
}

func (a *fakeActions) RerunWorkflow(_ context.Context, run models.WorkflowRun) error {
	a.reruns = append(a.reruns, run.ID)
	return nil
}

func (a *fakeActions) MarkNotificationRead(_ context.Context, id string) error {
	a.read = append(a.read, id)
	return nil
}

func (a *fakeActions) OpenLocalProject(_ context.Context, fullName string) error {
	a.opened = append(a.opened, "local:"+fullName)
	return nil
}

func (a *fakeActions) OpenURL(_ context.Context, url string) error {
	a.opened = append(a.opened, url)
	return nil
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msg to m and runs the returned command, feeding its result
// back, the way the program loop would.
func press(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, quit := out.(tea.QuitMsg); !quit {
				next, _ = m.Update(out)
				m = next.(Model)
			}
		}
	}
	return m
}

func testContent() service.MenuContent {
	return service.MenuContent{
		Username: "octo",
		Profile:  &models.Profile{PublicRepos: 2, Followers: 7},
		Repositories: []models.Repository{
			{ID: 1, Name: "app", FullName: "octo/app", Stars: 5, HTMLURL: "https://github.com/octo/app"},
			{ID: 2, Name: "lib", FullName: "octo/lib", Stars: 1, HTMLURL: "https://github.com/octo/lib"},
		},
		Notifications: []models.Notification{
			{ID: "n1", Title: "Review requested", RepositoryFullName: "octo/app", Unread: true},
		},
		LocalProjects: config.LocalProjects{"octo/app": "/src/app"},
	}
}

func TestToggleMenuReportsOpenState(t *testing.T) {
	surface := NewSurface()
	actions := &fakeActions{}
	m := NewModel(surface, actions)

	m = press(t, m, runes("m"))
	assert.True(t, surface.IsOpen())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.False(t, surface.IsOpen())
	assert.Equal(t, 1, actions.closed, "closing the menu notifies the service")

	press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.Equal(t, 1, actions.closed, "keys other than toggle are ignored while closed")
}

func TestMenuContentRendering(t *testing.T) {
	surface := NewSurface()
	m := NewModel(surface, &fakeActions{})

	m = press(t, m, statusMsg(service.MsgLoading))
	assert.Contains(t, m.View(), service.MsgLoading)

	m = press(t, m, menuMsg(testContent()))
	m = press(t, m, badgeMsg(3))
	m = press(t, m, runes("m"))

	view := m.View()
	assert.NotContains(t, view, service.MsgLoading)
	assert.Contains(t, view, "octo")
	assert.Contains(t, view, "app")
	assert.Contains(t, view, "lib")
	assert.Contains(t, view, "3")
}

func TestRepositoryActions(t *testing.T) {
	surface := NewSurface()
	actions := &fakeActions{
		issues: []models.Issue{{Number: 12, Title: "Crash on start", Author: "bob"}},
		runs:   []models.WorkflowRun{{ID: 77, Name: "CI", Conclusion: models.ConclusionFailure, Status: models.RunCompleted}},
	}
	m := NewModel(surface, actions)
	m = press(t, m, menuMsg(testContent()))
	m = press(t, m, runes("m"))

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, []string{"https://github.com/octo/app"}, actions.opened)

	m = press(t, m, runes("o"))
	assert.Equal(t, "local:octo/app", actions.opened[1])

	m = press(t, m, runes("i"))
	assert.Equal(t, sectionIssues, m.section)
	assert.Contains(t, m.View(), "Crash on start")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	assert.Equal(t, sectionRepositories, m.section)
	assert.True(t, surface.IsOpen())

	m = press(t, m, runes("w"))
	require.Equal(t, sectionRuns, m.section)
	m = press(t, m, runes("R"))
	assert.Equal(t, []int64{77}, actions.reruns)
	assert.Contains(t, m.View(), "Rerun requested")
}

func TestRunsOnlyForMonitoredRepositories(t *testing.T) {
	actions := &fakeActions{}
	m := NewModel(NewSurface(), actions)
	m = press(t, m, menuMsg(testContent()))
	m = press(t, m, runes("m"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m = press(t, m, runes("w"))
	assert.Equal(t, sectionRepositories, m.section)
	assert.Empty(t, actions.lastRepo)
}

func TestMarkNotificationRead(t *testing.T) {
	actions := &fakeActions{}
	m := NewModel(NewSurface(), actions)
	m = press(t, m, menuMsg(testContent()))
	m = press(t, m, runes("m"))
	m = press(t, m, runes("n"))
	require.Equal(t, sectionNotifications, m.section)

	press(t, m, runes("x"))
	assert.Equal(t, []string{"n1"}, actions.read)
}

func TestRefreshWorksWhileClosed(t *testing.T) {
	actions := &fakeActions{}
	m := NewModel(NewSurface(), actions)

	m = press(t, m, runes("r"))
	assert.Equal(t, 1, actions.refresh)
	assert.Contains(t, m.View(), "Refreshed")
}

func TestQuit(t *testing.T) {
	m := NewModel(NewSurface(), &fakeActions{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSurfaceWithoutProgram(t *testing.T) {
	s := NewSurface()
	assert.NotPanics(t, func() {
		s.UpdateMenu(testContent())
		s.ShowMessage("hello")
		s.UpdateBadge(1)
	})
	assert.False(t, s.IsOpen())
}

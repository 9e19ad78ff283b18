// Package tui is the terminal presentation surface: a collapsed status line
// that expands into the repository and notification menu.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"githubtray/models"
	"githubtray/service"
)

const actionTimeout = 30 * time.Second

// Actions are the operations the menu can trigger.
type Actions interface {
	Refresh() error
	MenuClosed()
	FetchIssues(ctx context.Context, fullName string) []models.Issue
	FetchWorkflowRuns(ctx context.Context, fullName string) []models.WorkflowRun
	RerunWorkflow(ctx context.Context, run models.WorkflowRun) error
	MarkNotificationRead(ctx context.Context, id string) error
	OpenLocalProject(ctx context.Context, fullName string) error
	OpenURL(ctx context.Context, url string) error
}

type section int

const (
	sectionRepositories section = iota
	sectionNotifications
	sectionIssues
	sectionRuns
)

// Key bindings
var keys = struct {
	Quit    key.Binding
	Toggle  key.Binding
	Back    key.Binding
	Up      key.Binding
	Down    key.Binding
	Refresh key.Binding
	Feed    key.Binding
	Issues  key.Binding
	Runs    key.Binding
	Local   key.Binding
	Browser key.Binding
	Read    key.Binding
	Rerun   key.Binding
}{
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c")),
	Toggle:  key.NewBinding(key.WithKeys("m", "tab")),
	Back:    key.NewBinding(key.WithKeys("esc")),
	Up:      key.NewBinding(key.WithKeys("up", "k")),
	Down:    key.NewBinding(key.WithKeys("down", "j")),
	Refresh: key.NewBinding(key.WithKeys("r")),
	Feed:    key.NewBinding(key.WithKeys("n")),
	Issues:  key.NewBinding(key.WithKeys("i")),
	Runs:    key.NewBinding(key.WithKeys("w")),
	Local:   key.NewBinding(key.WithKeys("o")),
	Browser: key.NewBinding(key.WithKeys("enter")),
	Read:    key.NewBinding(key.WithKeys("x")),
	Rerun:   key.NewBinding(key.WithKeys("R")),
}

type issuesMsg struct {
	repo   string
	issues []models.Issue
}

type runsMsg struct {
	repo string
	runs []models.WorkflowRun
}

type resultMsg struct {
	text string
	err  error
}

// Model is the bubbletea model of the menu.
type Model struct {
	surface *Surface
	actions Actions

	content service.MenuContent
	status  string
	unread  int
	notice  string
	failed  bool

	section  section
	cursor   int
	repoName string
	issues   []models.Issue
	runs     []models.WorkflowRun
	width    int
}

func NewModel(surface *Surface, actions Actions) Model {
	return Model{surface: surface, actions: actions}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) open() bool { return m.surface.IsOpen() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case menuMsg:
		m.content = service.MenuContent(msg)
		m.status = ""
		m.clampCursor()
	case statusMsg:
		m.status = string(msg)
	case badgeMsg:
		m.unread = int(msg)
	case issuesMsg:
		if msg.repo == m.repoName {
			m.issues = msg.issues
			m.section, m.cursor = sectionIssues, 0
		}
	case runsMsg:
		if msg.repo == m.repoName {
			m.runs = msg.runs
			m.section, m.cursor = sectionRuns, 0
		}
	case resultMsg:
		m.notice, m.failed = msg.text, msg.err != nil
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Refresh):
		m.notice = ""
		return m, m.run("Refreshed", func(context.Context) error { return m.actions.Refresh() })
	case key.Matches(msg, keys.Toggle):
		if m.open() {
			return m.closeMenu()
		}
		m.surface.open.Store(true)
		m.section, m.cursor = sectionRepositories, 0
		return m, nil
	}

	if !m.open() {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Back):
		if m.section == sectionIssues || m.section == sectionRuns {
			m.section, m.cursor = sectionRepositories, 0
			return m, nil
		}
		return m.closeMenu()
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < m.rows()-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Feed):
		if m.section == sectionNotifications {
			m.section = sectionRepositories
		} else {
			m.section = sectionNotifications
		}
		m.cursor = 0
	case key.Matches(msg, keys.Issues):
		if repo, ok := m.selectedRepo(); ok {
			m.repoName = repo.FullName
			return m, m.fetchIssues(repo.FullName)
		}
	case key.Matches(msg, keys.Runs):
		if repo, ok := m.selectedRepo(); ok && m.content.Monitored(repo.FullName) {
			m.repoName = repo.FullName
			return m, m.fetchRuns(repo.FullName)
		}
	case key.Matches(msg, keys.Local):
		if repo, ok := m.selectedRepo(); ok {
			name := repo.FullName
			return m, m.run("Opened "+name, func(ctx context.Context) error { return m.actions.OpenLocalProject(ctx, name) })
		}
	case key.Matches(msg, keys.Browser):
		if url := m.selectedURL(); url != "" {
			return m, m.run("Opened "+url, func(ctx context.Context) error { return m.actions.OpenURL(ctx, url) })
		}
	case key.Matches(msg, keys.Read):
		if m.section == sectionNotifications && m.cursor < len(m.content.Notifications) {
			id := m.content.Notifications[m.cursor].ID
			return m, m.run("Marked as read", func(ctx context.Context) error { return m.actions.MarkNotificationRead(ctx, id) })
		}
	case key.Matches(msg, keys.Rerun):
		if m.section == sectionRuns && m.cursor < len(m.runs) && m.runs[m.cursor].Conclusion == models.ConclusionFailure {
			run := m.runs[m.cursor]
			return m, m.run("Rerun requested", func(ctx context.Context) error { return m.actions.RerunWorkflow(ctx, run) })
		}
	}
	return m, nil
}

func (m Model) closeMenu() (tea.Model, tea.Cmd) {
	m.surface.open.Store(false)
	m.section, m.cursor = sectionRepositories, 0
	actions := m.actions
	return m, func() tea.Msg {
		actions.MenuClosed()
		return nil
	}
}

func (m Model) run(done string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return resultMsg{text: done, err: fn(ctx)}
	}
}

func (m Model) fetchIssues(repo string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return issuesMsg{repo: repo, issues: actions.FetchIssues(ctx, repo)}
	}
}

func (m Model) fetchRuns(repo string) tea.Cmd {
	actions := m.actions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return runsMsg{repo: repo, runs: actions.FetchWorkflowRuns(ctx, repo)}
	}
}

func (m Model) rows() int {
	switch m.section {
	case sectionNotifications:
		return len(m.content.Notifications)
	case sectionIssues:
		return len(m.issues)
	case sectionRuns:
		return len(m.runs)
	}
	return len(m.content.Repositories)
}

func (m *Model) clampCursor() {
	if n := m.rows(); m.cursor >= n {
		m.cursor = max(0, n-1)
	}
}

func (m Model) selectedRepo() (models.Repository, bool) {
	if m.section != sectionRepositories || m.cursor >= len(m.content.Repositories) {
		return models.Repository{}, false
	}
	return m.content.Repositories[m.cursor], true
}

func (m Model) selectedURL() string {
	switch m.section {
	case sectionRepositories:
		if repo, ok := m.selectedRepo(); ok {
			return repo.HTMLURL
		}
	case sectionNotifications:
		if m.cursor < len(m.content.Notifications) {
			return m.content.Notifications[m.cursor].URL
		}
	case sectionIssues:
		if m.cursor < len(m.issues) {
			return m.issues[m.cursor].HTMLURL
		}
	case sectionRuns:
		if m.cursor < len(m.runs) {
			return m.runs[m.cursor].HTMLURL
		}
	}
	return ""
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}
	if m.notice != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.notice))
		} else {
			b.WriteString(dimStyle.Render(m.notice))
		}
		b.WriteString("\n")
	}

	if !m.open() {
		b.WriteString(dimStyle.Render("m: menu • r: refresh • q: quit"))
		return b.String()
	}

	var body []string
	switch m.section {
	case sectionRepositories:
		body = m.repositoryRows()
	case sectionNotifications:
		body = m.notificationRows()
	case sectionIssues:
		body = m.issueRows()
	case sectionRuns:
		body = m.runRows()
	}
	if len(body) == 0 {
		body = []string{dimStyle.Render("nothing here")}
	}
	for i, row := range body {
		if i == m.cursor {
			body[i] = selectedStyle.Render(row)
		}
	}
	style := menuStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	b.WriteString(style.Render(strings.Join(body, "\n")))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m Model) header() string {
	title := "GitHub Tray"
	if m.content.Username != "" {
		title += " · " + m.content.Username
	}
	h := titleStyle.Render(title)
	if p := m.content.Profile; p != nil {
		h += dimStyle.Render(fmt.Sprintf("  %d repos · %d followers", p.PublicRepos, p.Followers))
	}
	if m.unread > 0 {
		h += " " + badgeStyle.Render(fmt.Sprintf("%d", m.unread))
	}
	return h
}

func (m Model) help() string {
	switch m.section {
	case sectionNotifications:
		return "↑/↓ move • enter open • x mark read • n repositories • esc close"
	case sectionIssues:
		return "↑/↓ move • enter open • esc back"
	case sectionRuns:
		return "↑/↓ move • enter open • R rerun failed • esc back"
	}
	return "↑/↓ move • enter open • i issues • w runs • o local project • n notifications • esc close"
}

func (m Model) repositoryRows() []string {
	rows := make([]string, 0, len(m.content.Repositories))
	for _, r := range m.content.Repositories {
		marker := "  "
		if m.content.Monitored(r.FullName) {
			marker = "◆ "
		}
		row := fmt.Sprintf("%s%-30s ★ %-5d ⑂ %-4d ! %d", marker, r.Name, r.Stars, r.Forks, r.OpenIssues)
		if r.IsFork {
			row += dimStyle.Render(" fork")
		}
		rows = append(rows, row)
	}
	return rows
}

func (m Model) notificationRows() []string {
	rows := make([]string, 0, len(m.content.Notifications))
	for _, n := range m.content.Notifications {
		dot := "  "
		if n.Unread {
			dot = "● "
		}
		rows = append(rows, fmt.Sprintf("%s%s %s", dot, dimStyle.Render(n.RepositoryFullName), n.Title))
	}
	return rows
}

func (m Model) issueRows() []string {
	rows := make([]string, 0, len(m.issues))
	for _, is := range m.issues {
		rows = append(rows, fmt.Sprintf("#%-5d %s %s", is.Number, is.Title, dimStyle.Render("@"+is.Author)))
	}
	return rows
}

func (m Model) runRows() []string {
	rows := make([]string, 0, len(m.runs))
	for _, r := range m.runs {
		rows = append(rows, fmt.Sprintf("%s %s %s %s", runGlyph(r), r.Name, dimStyle.Render(r.HeadBranch), r.Duration()))
	}
	return rows
}

func runGlyph(r models.WorkflowRun) string {
	switch {
	case r.Status == models.RunInProgress:
		return runningStyle.Render("●")
	case r.Status == models.RunQueued:
		return runningStyle.Render("○")
	case r.Conclusion == models.ConclusionSuccess:
		return successStyle.Render("✓")
	case r.Conclusion == models.ConclusionFailure:
		return failureStyle.Render("✗")
	}
	return dimStyle.Render("⊘")
}

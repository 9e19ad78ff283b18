package tui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"githubtray/service"
)

type menuMsg service.MenuContent

type statusMsg string

type badgeMsg int

// Surface is the presentation sink backed by a running bubbletea program.
// The open flag is owned by the model and read by the service from other
// goroutines.
type Surface struct {
	open atomic.Bool

	mu      sync.Mutex
	program *tea.Program
}

func NewSurface() *Surface {
	return &Surface{}
}

// Attach routes later updates to p. Updates sent before are dropped.
func (s *Surface) Attach(p *tea.Program) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.program = p
}

func (s *Surface) send(msg tea.Msg) {
	s.mu.Lock()
	p := s.program
	s.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (s *Surface) IsOpen() bool { return s.open.Load() }

func (s *Surface) UpdateMenu(content service.MenuContent) { s.send(menuMsg(content)) }

func (s *Surface) ShowMessage(text string) { s.send(statusMsg(text)) }

func (s *Surface) UpdateBadge(unread int) { s.send(badgeMsg(unread)) }

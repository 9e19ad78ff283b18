// Package presenter holds the presentation surface used when no terminal UI
// is attached.
package presenter

import (
	"sync"

	"go.uber.org/zap"

	"githubtray/logger"
	"githubtray/service"
)

// Headless logs menu updates. It is never open, so updates and
// notifications are delivered straight away.
type Headless struct {
	mu      sync.Mutex
	last    service.MenuContent
	message string
	unread  int
}

func NewHeadless() *Headless {
	return &Headless{}
}

func (h *Headless) IsOpen() bool { return false }

func (h *Headless) UpdateMenu(content service.MenuContent) {
	h.mu.Lock()
	h.last = content
	h.message = ""
	h.mu.Unlock()

	monitored := 0
	for _, r := range content.Repositories {
		if content.Monitored(r.FullName) {
			monitored++
		}
	}
	logger.Info("Menu updated",
		zap.String("username", content.Username),
		zap.Int("repositories", len(content.Repositories)),
		zap.Int("monitored", monitored),
		zap.Int("followers", content.Followers),
		zap.Int("notifications", len(content.Notifications)))
}

func (h *Headless) ShowMessage(text string) {
	h.mu.Lock()
	h.message = text
	h.mu.Unlock()
	logger.Info("Status", zap.String("message", text))
}

func (h *Headless) UpdateBadge(unread int) {
	h.mu.Lock()
	changed := h.unread != unread
	h.unread = unread
	h.mu.Unlock()
	if changed {
		logger.Info("Unread notifications", zap.Int("unread", unread))
	}
}

// State returns the last menu content, status line and unread count.
func (h *Headless) State() (service.MenuContent, string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.message, h.unread
}

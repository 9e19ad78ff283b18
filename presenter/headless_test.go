package presenter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"githubtray/config"
	"githubtray/models"
	"githubtray/service"
)

func TestHeadless(t *testing.T) {
	h := NewHeadless()
	assert.False(t, h.IsOpen())

	h.ShowMessage(service.MsgLoading)
	_, msg, _ := h.State()
	assert.Equal(t, service.MsgLoading, msg)

	content := service.MenuContent{
		Username:      "octo",
		Repositories:  []models.Repository{{ID: 1, Name: "app", FullName: "octo/app"}},
		LocalProjects: config.LocalProjects{"octo/app": "/src/app"},
	}
	h.UpdateMenu(content)
	h.UpdateBadge(3)

	last, msg, unread := h.State()
	assert.Equal(t, content, last)
	assert.Empty(t, msg, "a fresh menu replaces the status line")
	assert.Equal(t, 3, unread)
}

// Package notify delivers desktop notifications.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"githubtray/logger"
)

const (
	DefaultCommand = "notify-send"
	AppName        = "githubtray"

	commandTimeout = 5 * time.Second
)

// Desktop shows notifications through a notify-send compatible command.
type Desktop struct {
	command string
	icon    string
}

// Option configures a Desktop sink
type Option func(*Desktop)

// WithCommand replaces the notify-send binary.
func WithCommand(name string) Option { return func(d *Desktop) { d.command = name } }

// WithIcon sets the icon name or path passed to the command.
func WithIcon(icon string) Option { return func(d *Desktop) { d.icon = icon } }

// NewDesktop creates a sink using notify-send unless overridden.
func NewDesktop(opts ...Option) *Desktop {
	d := &Desktop{command: DefaultCommand}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Available reports whether the notification command can be found.
func (d *Desktop) Available() bool {
	_, err := exec.LookPath(d.command)
	return err == nil
}

func (d *Desktop) args(summary, body string) []string {
	args := []string{"--app-name=" + AppName}
	if d.icon != "" {
		args = append(args, "--icon="+d.icon)
	}
	return append(args, summary, body)
}

// Notify runs the command once; it is not retried on failure.
func (d *Desktop) Notify(summary, body string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	args := d.args(summary, body)
	out, err := exec.CommandContext(ctx, d.command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", d.command, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Log writes notifications to the application log instead of the desktop.
type Log struct{}

func (Log) Notify(summary, body string) error {
	logger.Info("Notification", zap.String("summary", summary), zap.String("body", body))
	return nil
}

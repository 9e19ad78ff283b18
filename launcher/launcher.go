// Package launcher opens local project folders and web pages.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"githubtray/logger"
)

const DefaultEditor = "code"

// Launcher errors
var (
	ErrPathNotFound = fmt.Errorf("local project path not found")
	ErrEmptyCommand = fmt.Errorf("empty command")
)

// Launcher starts external programs without waiting for them to exit.
type Launcher struct {
	opener string
}

// Option configures a Launcher
type Option func(*Launcher)

// WithOpener replaces the platform URL opener.
func WithOpener(name string) Option { return func(l *Launcher) { l.opener = name } }

// New creates a launcher using the platform URL opener.
func New(opts ...Option) *Launcher {
	l := &Launcher{opener: defaultOpener()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func defaultOpener() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

// OpenPath opens path with editor. The editor may carry extra arguments,
// e.g. "code -n".
func (l *Launcher) OpenPath(ctx context.Context, editor, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		fields = []string{DefaultEditor}
	}
	return l.start(ctx, fields[0], append(fields[1:], path)...)
}

// OpenURL opens url in the default browser.
func (l *Launcher) OpenURL(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: no url", ErrEmptyCommand)
	}
	return l.start(ctx, l.opener, url)
}

func (l *Launcher) start(_ context.Context, name string, args ...string) error {
	if name == "" {
		return ErrEmptyCommand
	}
	// the launched program outlives ctx
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	logger.Debug("Launched", zap.String("cmd", name), zap.Strings("args", args), zap.Int("pid", cmd.Process.Pid))
	go func() {
		if err := cmd.Wait(); err != nil {
			logger.Warn("Launched program exited with error", zap.String("cmd", name), zap.Error(err))
		}
	}()
	return nil
}

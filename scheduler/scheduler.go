// Package scheduler turns pairs of snapshots into desktop notifications.
//
// Each lane debounces bursts of requests into one comparison of the oldest
// base against the newest snapshot. When the presentation surface is open at
// that moment the result is parked and delivered once the surface has been
// closed for a short settling delay.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"githubtray/diff"
	"githubtray/logger"
	"githubtray/models"
	"githubtray/timer"
)

const (
	DefaultDebounceWindow = 100 * time.Millisecond
	DefaultSettleDelay    = 300 * time.Millisecond

	ledgerTimeout = 5 * time.Second
)

// Lane names, also stored in the delivery history.
const (
	LaneRepositories = "repositories"
	LaneWorkflows    = "workflows"
)

// UIState reports whether the presentation surface is open.
type UIState interface {
	IsOpen() bool
}

// Notifier shows one desktop notification.
type Notifier interface {
	Notify(summary, body string) error
}

// Ledger persists deliveries. ClaimTransition returns true only for the
// first claim of a (run, attempt, kind) triple.
type Ledger interface {
	RecordNotification(ctx context.Context, n models.DeliveredNotification) error
	ClaimTransition(ctx context.Context, runID int64, attempt int, kind, repo string) (bool, error)
}

// Scheduler owns the repository and workflow lanes.
type Scheduler struct {
	ui             UIState
	notifier       Notifier
	ledger         Ledger
	clock          clock.Clock
	debounceWindow time.Duration
	settleDelay    time.Duration
	allowWorkflow  func(diff.TransitionKind) bool

	repos     *lane[*models.Snapshot]
	workflows *lane[map[string][]models.WorkflowRun]
}

// Option configures a Scheduler
type Option func(*Scheduler)

func WithClock(c clock.Clock) Option { return func(s *Scheduler) { s.clock = c } }

func WithDebounceWindow(d time.Duration) Option { return func(s *Scheduler) { s.debounceWindow = d } }

func WithSettleDelay(d time.Duration) Option { return func(s *Scheduler) { s.settleDelay = d } }

// WithLedger records deliveries and deduplicates workflow transitions.
func WithLedger(l Ledger) Option { return func(s *Scheduler) { s.ledger = l } }

// WithWorkflowFilter gates workflow notifications per transition kind.
func WithWorkflowFilter(allow func(diff.TransitionKind) bool) Option {
	return func(s *Scheduler) { s.allowWorkflow = allow }
}

// New creates a scheduler delivering through notifier.
func New(ui UIState, notifier Notifier, opts ...Option) *Scheduler {
	s := &Scheduler{
		ui:             ui,
		notifier:       notifier,
		clock:          clock.RealClock{},
		debounceWindow: DefaultDebounceWindow,
		settleDelay:    DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.repos = newLane(s, LaneRepositories, diff.Detect)
	s.workflows = newLane(s, LaneWorkflows, diff.DetectWorkflows)
	return s
}

// ScheduleRepositories requests a repository and follower comparison.
func (s *Scheduler) ScheduleRepositories(current, previous *models.Snapshot) {
	s.repos.request(current, previous)
}

// ScheduleWorkflows requests a workflow run comparison.
func (s *Scheduler) ScheduleWorkflows(current, previous map[string][]models.WorkflowRun) {
	s.workflows.request(current, previous)
}

// MenuClosed starts the settling delay for every lane holding a pending result.
func (s *Scheduler) MenuClosed() {
	s.repos.menuClosed()
	s.workflows.menuClosed()
}

// HasPending reports whether any lane holds an undelivered result.
func (s *Scheduler) HasPending() bool {
	return s.repos.hasPending() || s.workflows.hasPending()
}

// Stop cancels every timer. No callback fires afterwards.
func (s *Scheduler) Stop() {
	s.repos.stop()
	s.workflows.stop()
}

func (s *Scheduler) deliver(laneName string, cs *diff.ChangeSet) {
	ctx, cancel := context.WithTimeout(context.Background(), ledgerTimeout)
	defer cancel()

	for _, msg := range RepositoryMessages(cs) {
		s.send(ctx, laneName, msg)
	}
	for _, t := range cs.WorkflowTransitions {
		if s.allowWorkflow != nil && !s.allowWorkflow(t.Kind) {
			continue
		}
		if !s.claim(ctx, t) {
			logger.Debug("Skipping already delivered transition",
				zap.Int64("run_id", t.Run.ID),
				zap.String("kind", string(t.Kind)))
			continue
		}
		s.send(ctx, laneName, WorkflowMessage(t))
	}
}

func (s *Scheduler) claim(ctx context.Context, t diff.Transition) bool {
	if s.ledger == nil {
		return true
	}
	ok, err := s.ledger.ClaimTransition(ctx, t.Run.ID, t.Run.RunAttempt, string(t.Kind), t.Repo)
	if err != nil {
		logger.Warn("Failed to claim workflow transition", zap.Error(err), zap.Int64("run_id", t.Run.ID))
		return true
	}
	return ok
}

// send never fails; delivery errors are logged and dropped.
func (s *Scheduler) send(ctx context.Context, laneName string, msg Message) {
	if err := s.notifier.Notify(msg.Title, msg.Body); err != nil {
		logger.Warn("Failed to deliver notification",
			zap.Error(err),
			zap.String("lane", laneName),
			zap.String("title", msg.Title))
		return
	}
	logger.Info("Notification delivered", zap.String("lane", laneName), zap.String("title", msg.Title))

	if s.ledger == nil {
		return
	}
	record := models.DeliveredNotification{
		Lane:        laneName,
		Title:       msg.Title,
		Body:        msg.Body,
		DeliveredAt: s.clock.Now(),
	}
	if err := s.ledger.RecordNotification(ctx, record); err != nil {
		logger.Warn("Failed to record notification", zap.Error(err))
	}
}

// Pending is a result parked while the surface was open.
type Pending[T any] struct {
	Changes  *diff.ChangeSet
	Current  T
	Previous T
}

type lane[T any] struct {
	name     string
	s        *Scheduler
	detect   func(current, previous T) *diff.ChangeSet
	debounce *timer.Scoped
	settle   *timer.Scoped

	mu      sync.Mutex
	armed   bool
	base    T
	latest  T
	pending *Pending[T]
	stopped bool
}

func newLane[T any](s *Scheduler, name string, detect func(current, previous T) *diff.ChangeSet) *lane[T] {
	return &lane[T]{
		name:     name,
		s:        s,
		detect:   detect,
		debounce: timer.NewScoped(s.clock),
		settle:   timer.NewScoped(s.clock),
	}
}

func (l *lane[T]) request(current, previous T) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	if !l.armed {
		l.base = previous
		l.armed = true
	}
	l.latest = current
	l.mu.Unlock()

	l.debounce.Schedule(l.s.debounceWindow, l.fire)
}

func (l *lane[T]) fire() {
	l.mu.Lock()
	if !l.armed || l.stopped {
		l.mu.Unlock()
		return
	}
	current, previous := l.latest, l.base
	var zero T
	l.base, l.latest, l.armed = zero, zero, false
	l.mu.Unlock()

	cs := l.detect(current, previous)
	if cs.IsEmpty() {
		logger.Debug("No changes detected", zap.String("lane", l.name))
		return
	}

	if l.s.ui.IsOpen() {
		l.mu.Lock()
		if !l.stopped {
			l.pending = &Pending[T]{Changes: cs, Current: current, Previous: previous}
		}
		l.mu.Unlock()
		logger.Debug("Surface open, holding notifications", zap.String("lane", l.name))
		return
	}
	l.s.deliver(l.name, cs)
}

func (l *lane[T]) menuClosed() {
	if !l.hasPending() {
		return
	}
	l.settle.Schedule(l.s.settleDelay, l.flush)
}

func (l *lane[T]) flush() {
	if l.s.ui.IsOpen() {
		return
	}
	l.mu.Lock()
	p := l.pending
	l.pending = nil
	stopped := l.stopped
	l.mu.Unlock()

	if p == nil || stopped {
		return
	}
	l.s.deliver(l.name, p.Changes)
}

func (l *lane[T]) hasPending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending != nil
}

func (l *lane[T]) stop() {
	l.mu.Lock()
	l.stopped = true
	l.pending = nil
	l.armed = false
	l.mu.Unlock()
	l.debounce.Cancel()
	l.settle.Cancel()
}

package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"githubtray/config"
	"githubtray/diff"
	"githubtray/fetcher"
	"githubtray/logger"
	"githubtray/scheduler"
	"githubtray/snapshot"
	"githubtray/timer"
)

// Refresh cadence and delays.
const (
	RepositoryRefreshInterval = 300 * time.Second
	WorkflowRefreshInterval   = 300 * time.Second
	SettingsDebounce          = 1500 * time.Millisecond
	RerunReloadDelay          = 2 * time.Second
	NetworkRetryInterval      = 5 * time.Second

	networkProbeAddr    = "api.github.com:443"
	networkProbeTimeout = 3 * time.Second
)

// Ledger is the delivery history the service owns and closes.
type Ledger interface {
	scheduler.Ledger
	Close() error
}

// Dependencies are the collaborators the service drives.
type Dependencies struct {
	Fetcher   fetcher.Fetcher
	Presenter Presenter
	Notifier  scheduler.Notifier
	Config    *config.Source
	// Optional.
	Ledger   Ledger
	Launcher Launcher
}

// Option tunes a Service
type Option func(*Service)

// WithClock drives every timer from c.
func WithClock(c clock.WithTicker) Option { return func(s *Service) { s.clock = c } }

// WithNetworkProbe replaces the connectivity check run before the first load.
func WithNetworkProbe(probe func(ctx context.Context) error) Option {
	return func(s *Service) { s.probe = probe }
}

// WithSettleDelay sets how long the menu must stay closed before parked
// updates and notifications are released.
func WithSettleDelay(d time.Duration) Option { return func(s *Service) { s.settleDelay = d } }

// Service represents the main application service
type Service struct {
	fetcher   fetcher.Fetcher
	presenter Presenter
	notifier  scheduler.Notifier
	cfg       *config.Source
	ledger    Ledger
	launcher  Launcher
	clock     clock.WithTicker
	probe     func(ctx context.Context) error

	store       *snapshot.Store
	scheduler   *scheduler.Scheduler
	feed        *feed
	settleDelay time.Duration

	repoTicker     *timer.Periodic
	feedTicker     *timer.Periodic
	workflowTicker *timer.Periodic
	settingsTimer  *timer.Scoped
	settleTimer    *timer.Scoped
	rerunTimer     *timer.Scoped

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	generation  uint64
	inFlight    bool
	cycleCancel context.CancelFunc
	pendingMenu *MenuContent
	closed      bool

	workflowMu sync.Mutex
}

// NewService creates a new service instance
func NewService(deps Dependencies, opts ...Option) (*Service, error) {
	if deps.Fetcher == nil || deps.Presenter == nil || deps.Notifier == nil || deps.Config == nil {
		return nil, fmt.Errorf("%w: fetcher, presenter, notifier and config are required", ErrServiceInit)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		fetcher:     deps.Fetcher,
		presenter:   deps.Presenter,
		notifier:    deps.Notifier,
		cfg:         deps.Config,
		ledger:      deps.Ledger,
		launcher:    deps.Launcher,
		clock:       clock.RealClock{},
		probe:       dialProbe,
		store:       snapshot.NewStore(),
		feed:        &feed{},
		settleDelay: scheduler.DefaultSettleDelay,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	schedOpts := []scheduler.Option{
		scheduler.WithClock(s.clock),
		scheduler.WithSettleDelay(s.settleDelay),
		scheduler.WithWorkflowFilter(s.workflowAllowed),
	}
	if s.ledger != nil {
		schedOpts = append(schedOpts, scheduler.WithLedger(s.ledger))
	}
	s.scheduler = scheduler.New(s.presenter, s.notifier, schedOpts...)

	s.repoTicker = timer.NewPeriodic(s.clock)
	s.feedTicker = timer.NewPeriodic(s.clock)
	s.workflowTicker = timer.NewPeriodic(s.clock)
	s.settingsTimer = timer.NewScoped(s.clock)
	s.settleTimer = timer.NewScoped(s.clock)
	s.rerunTimer = timer.NewScoped(s.clock)

	s.cfg.OnChange(s.onSettingsChanged)

	cfg := s.cfg.Current()
	logger.Info("Service initialized successfully",
		zap.String("username", cfg.Username),
		zap.Bool("credentials", cfg.HasCredentials()),
		zap.Bool("history", s.ledger != nil))

	return s, nil
}

// Start arms the periodic cycles and kicks off the first load once the
// network is reachable. It does not block.
func (s *Service) Start() error {
	if s.isClosed() {
		return ErrClosed
	}
	logger.Info("Starting refresh cycles",
		zap.Duration("repositories", RepositoryRefreshInterval),
		zap.Duration("workflows", WorkflowRefreshInterval))

	s.repoTicker.Start(RepositoryRefreshInterval, func() { s.logCycle("repositories", s.refresh(false)) })
	s.workflowTicker.Start(WorkflowRefreshInterval, func() { s.logCycle("workflows", s.RefreshWorkflows()) })
	s.startFeed()

	go s.waitForNetworkAndLoad()
	return nil
}

// Refresh is the user-initiated reload of repositories and the feed.
func (s *Service) Refresh() error {
	err := s.refresh(true)
	if ferr := s.LoadFeed(false); ferr != nil && !errors.Is(ferr, ErrNotConfigured) {
		logger.Warn("Error loading notification feed", zap.Error(ferr))
	}
	return err
}

func (s *Service) refresh(manual bool) error {
	firstLoad, err := s.loadRepositories(manual)
	if err != nil {
		return err
	}
	if firstLoad {
		s.logCycle("workflows", s.RefreshWorkflows())
	}
	return nil
}

// waitForNetworkAndLoad probes connectivity until it succeeds, then loads.
func (s *Service) waitForNetworkAndLoad() {
	if err := s.probe(s.ctx); err != nil {
		logger.Info("Network unreachable, waiting", zap.Error(err))
		s.presenter.ShowMessage(MsgWaitingNetwork)

		ticker := s.clock.NewTicker(NetworkRetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C():
			}
			if err := s.probe(s.ctx); err == nil {
				break
			}
		}
	}
	s.logCycle("repositories", s.refresh(false))
}

func dialProbe(ctx context.Context) error {
	d := net.Dialer{Timeout: networkProbeTimeout}
	conn, err := d.DialContext(ctx, "tcp", networkProbeAddr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// invalidate discards the result of any running repository cycle.
func (s *Service) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cycleCancel != nil {
		s.cycleCancel()
	}
}

// resetAccount drops the stored generations together with any cycle still
// running for the previous account, so that cycle cannot commit afterwards.
func (s *Service) resetAccount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cycleCancel != nil {
		s.cycleCancel()
	}
	s.store.Reset()
}

var refreshKeys = []string{
	config.KeyGitHubToken,
	config.KeyUsername,
	config.KeySortBy,
	config.KeySortOrder,
	config.KeyMaxRepos,
}

func (s *Service) onSettingsChanged(old, new *config.Config) {
	if s.isClosed() {
		return
	}
	keys := config.Changed(old, new)
	if len(keys) == 0 {
		return
	}
	logger.Info("Settings changed", zap.Strings("keys", keys))

	if slices.Contains(keys, config.KeyGitHubToken) || slices.Contains(keys, config.KeyUsername) {
		s.resetAccount()
		s.feed.reset()
		s.presenter.UpdateBadge(0)
	}
	if slices.ContainsFunc(keys, func(k string) bool { return slices.Contains(refreshKeys, k) }) {
		s.invalidate()
		s.settingsTimer.Schedule(SettingsDebounce, func() {
			s.logCycle("repositories", s.refresh(false))
		})
	}
	if slices.Contains(keys, config.KeyShowNotifications) || slices.Contains(keys, config.KeyNotificationInterval) {
		s.startFeed()
	}
	if slices.Contains(keys, config.KeyLocalProjects) {
		s.present(s.menuContent(s.store.Current()))
	}
}

func (s *Service) workflowAllowed(kind diff.TransitionKind) bool {
	n := s.cfg.Current().Notify
	switch kind {
	case diff.TransitionStarted:
		return n.WorkflowStarted
	case diff.TransitionSucceeded:
		return n.WorkflowSuccess
	case diff.TransitionFailed:
		return n.WorkflowFailure
	case diff.TransitionCancelled:
		return n.WorkflowCancelled
	}
	return false
}

// notify sends a one-off desktop notification outside the scheduler lanes.
func (s *Service) notify(summary, body string) {
	if err := s.notifier.Notify(summary, body); err != nil {
		logger.Warn("Failed to deliver notification", zap.Error(err), zap.String("title", summary))
	}
}

func (s *Service) logCycle(name string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ErrRefreshInFlight), errors.Is(err, ErrStaleCycle):
		logger.Debug("Cycle skipped", zap.String("cycle", name), zap.Error(err))
	case errors.Is(err, ErrNotConfigured), errors.Is(err, context.Canceled):
	default:
		logger.Warn("Cycle failed", zap.String("cycle", name), zap.Error(err))
	}
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops every timer and the scheduler, then closes the history ledger.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	logger.Info("Closing service")
	s.cancel()
	s.repoTicker.Stop()
	s.feedTicker.Stop()
	s.workflowTicker.Stop()
	s.settingsTimer.Cancel()
	s.settleTimer.Cancel()
	s.rerunTimer.Cancel()
	s.scheduler.Stop()

	if s.ledger != nil {
		if err := s.ledger.Close(); err != nil {
			return fmt.Errorf("%w: failed to close history: %v", ErrServiceShutdown, err)
		}
	}
	return nil
}

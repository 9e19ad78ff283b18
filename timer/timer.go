// Package timer provides cancellable one-shot and periodic timers over an
// injectable clock.
package timer

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// Scoped is a one-shot timer handle. Scheduling again cancels the earlier
// schedule, so at most one callback is ever pending.
type Scoped struct {
	clock clock.Clock

	mu   sync.Mutex
	gen  uint64
	stop chan struct{}
}

// NewScoped creates an idle timer.
func NewScoped(c clock.Clock) *Scoped {
	return &Scoped{clock: c}
}

// Schedule runs fn on its own goroutine after d unless cancelled or
// rescheduled first.
func (s *Scoped) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	s.cancelLocked()
	gen := s.gen
	stop := make(chan struct{})
	s.stop = stop
	t := s.clock.NewTimer(d)
	s.mu.Unlock()

	go func() {
		defer t.Stop()
		select {
		case <-stop:
			return
		case <-t.C():
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.stop = nil
		s.mu.Unlock()
		fn()
	}()
}

// Cancel drops the pending callback. It reports whether one was pending.
func (s *Scoped) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked()
}

// Pending reports whether a callback is scheduled and has not fired yet.
func (s *Scoped) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Scoped) cancelLocked() bool {
	s.gen++
	if s.stop == nil {
		return false
	}
	close(s.stop)
	s.stop = nil
	return true
}

// Periodic runs a callback on every tick of an interval until stopped.
type Periodic struct {
	clock clock.WithTicker

	mu   sync.Mutex
	stop chan struct{}
}

// NewPeriodic creates a stopped ticker loop.
func NewPeriodic(c clock.WithTicker) *Periodic {
	return &Periodic{clock: c}
}

// Start begins calling fn every interval, replacing any running loop.
// Ticks that arrive while fn is still running are dropped.
func (p *Periodic) Start(interval time.Duration, fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	stop := make(chan struct{})
	p.stop = stop
	ticker := p.clock.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C():
				select {
				case <-stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Stop ends the loop. A callback already running is not interrupted.
func (p *Periodic) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Running reports whether a loop is active.
func (p *Periodic) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

func (p *Periodic) stopLocked() {
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

package notify

import (
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DefaultBackoffBase is the first reconnect delay.
	DefaultBackoffBase = 2 * time.Second
	// DefaultBackoffCap bounds the reconnect delay growth.
	DefaultBackoffCap = 30 * time.Second
)

// ReconnectSupervisor schedules re-subscribe attempts after transport
// failures with bounded exponential backoff: base, 2*base, 4*base, ...
// capped. The attempt counter resets on every externally-triggered fresh
// subscribe. Failures are never surfaced to the caller; by default the
// supervisor retries forever at the capped interval.
type ReconnectSupervisor struct {
	base        time.Duration
	cap         time.Duration
	maxAttempts int

	// afterFunc is swappable so tests can observe delays synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer

	mu      sync.Mutex
	attempt int
	backoff retry.Backoff
	timer   *time.Timer
	stopped bool
}

// NewReconnectSupervisor creates a supervisor with the given backoff bounds.
// maxAttempts (= 0) means retry indefinitely.
func NewReconnectSupervisor(base, capDelay time.Duration, maxAttempts int) *ReconnectSupervisor {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if capDelay <= 0 {
		capDelay = DefaultBackoffCap
	}
	s := &ReconnectSupervisor{
		base:        base,
		cap:         capDelay,
		maxAttempts: maxAttempts,
		afterFunc:   time.AfterFunc,
	}
	s.backoff = s.newBackoff()
	return s
}

func (s *ReconnectSupervisor) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(s.cap, retry.NewExponential(s.base))
}

// Reset clears the attempt counter and backoff progression. Called on every
// fresh externally-triggered subscribe so no backoff state carries over.
func (s *ReconnectSupervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt = 0
	s.backoff = s.newBackoff()
	s.stopped = false
}

// ScheduleRetry arms a timer for the next attempt and invokes do when it
// fires. It reports false when a configured attempt ceiling is exhausted, in
// which case nothing was scheduled.
func (s *ReconnectSupervisor) ScheduleRetry(do func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if s.maxAttempts > 0 && s.attempt >= s.maxAttempts {
		return false
	}
	delay, stop := s.backoff.Next()
	if stop {
		return false
	}
	s.attempt++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.afterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		stopped := s.stopped
		s.mu.Unlock()
		// Cancel may race an already-fired timer; the attempt stays
		// suppressed either way.
		if stopped {
			return
		}
		do()
	})
	return true
}

// Cancel clears any pending retry timer and refuses new retries until the
// next Reset, so no retry fires after teardown. Safe to call repeatedly.
func (s *ReconnectSupervisor) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Attempt returns the number of retries scheduled since the last Reset.
func (s *ReconnectSupervisor) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

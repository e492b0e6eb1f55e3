// Package scheduler owns the two timer lines that drive a session without
// user action: a recurring inactivity check that forces logout after a
// timeout, and a one-shot renewal scheduled shortly before token expiry.
package scheduler

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config holds the timing constants for both lines.
type Config struct {
	// ActivityCheckInterval is how often the inactivity line wakes up.
	ActivityCheckInterval time.Duration
	// SessionTimeout is the maximum allowed inactivity before forced logout.
	SessionTimeout time.Duration
	// RefreshBuffer is how long before expiry renewal is attempted.
	RefreshBuffer time.Duration
}

// Callbacks connect the scheduler back to the session manager. All of them
// are invoked on timer goroutines, never while the scheduler's own lock is
// held.
type Callbacks struct {
	// LastActivity reports the most recent observed user interaction.
	LastActivity func() time.Time
	// OnExpired fires when inactivity exceeds the session timeout. The
	// activity line is already stopped when it runs.
	OnExpired func()
	// Renew performs one renewal and returns the new expiry on success.
	Renew func() (time.Time, error)
	// OnRenewalFailed fires when Renew returns an error. The renewal line
	// does not reschedule.
	OnRenewalFailed func(error)
}

// Scheduler runs the two lines. Starting a line replaces any pending timer
// of that line; Stop cancels both and is idempotent.
type Scheduler struct {
	mu            sync.Mutex
	cfg           Config
	cb            Callbacks
	log           zerolog.Logger
	nowFunc       func() time.Time
	activityTimer *time.Timer
	renewalTimer  *time.Timer
}

// Option modifies a Scheduler.
type Option func(*Scheduler)

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Scheduler) { s.nowFunc = nowFunc }
}

// New creates a Scheduler. All four callbacks are required.
func New(cfg Config, cb Callbacks, log zerolog.Logger, options ...Option) (*Scheduler, error) {
	if cb.LastActivity == nil {
		return nil, errors.New("[scheduler.New] LastActivity callback is required")
	}
	if cb.OnExpired == nil {
		return nil, errors.New("[scheduler.New] OnExpired callback is required")
	}
	if cb.Renew == nil {
		return nil, errors.New("[scheduler.New] Renew callback is required")
	}
	if cb.OnRenewalFailed == nil {
		return nil, errors.New("[scheduler.New] OnRenewalFailed callback is required")
	}
	if cfg.ActivityCheckInterval <= 0 {
		cfg.ActivityCheckInterval = time.Minute
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}
	if cfg.RefreshBuffer < 0 {
		cfg.RefreshBuffer = 0
	}
	scheduler := &Scheduler{
		cfg:     cfg,
		cb:      cb,
		log:     log.With().Str("component", "scheduler").Logger(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(scheduler)
	}
	return scheduler, nil
}

// StartActivityLine arms the recurring inactivity check, replacing any
// pending one.
func (s *Scheduler) StartActivityLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopActivityLocked()
	s.activityTimer = time.AfterFunc(s.cfg.ActivityCheckInterval, s.activityTick)
}

func (s *Scheduler) activityTick() {
	s.mu.Lock()
	if s.activityTimer == nil { // stopped since the timer fired
		s.mu.Unlock()
		return
	}
	idle := s.nowFunc().Sub(s.cb.LastActivity())
	expired := idle > s.cfg.SessionTimeout
	if expired {
		s.activityTimer = nil
	} else {
		s.activityTimer = time.AfterFunc(s.cfg.ActivityCheckInterval, s.activityTick)
	}
	s.mu.Unlock()

	if expired {
		s.log.Info().Dur("idle", idle).Msg("inactivity timeout reached")
		s.cb.OnExpired()
	}
}

// ScheduleRenewal arms the one-shot renewal line for
// expiresAt - now - RefreshBuffer, replacing any pending one. A delay that
// has already passed fires the renewal immediately.
func (s *Scheduler) ScheduleRenewal(expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRenewalLocked()
	delay := expiresAt.Sub(s.nowFunc()) - s.cfg.RefreshBuffer
	if delay < 0 {
		delay = 0
	}
	s.renewalTimer = time.AfterFunc(delay, s.renewalFire)
}

func (s *Scheduler) renewalFire() {
	s.mu.Lock()
	if s.renewalTimer == nil {
		s.mu.Unlock()
		return
	}
	s.renewalTimer = nil
	s.mu.Unlock()

	newExpiry, err := s.cb.Renew()
	if err != nil {
		s.log.Warn().Err(err).Msg("scheduled renewal failed")
		s.cb.OnRenewalFailed(err)
		return
	}
	s.ScheduleRenewal(newExpiry)
}

// Stop cancels both lines. Safe to call repeatedly and when nothing is
// pending.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopActivityLocked()
	s.stopRenewalLocked()
}

func (s *Scheduler) stopActivityLocked() {
	if s.activityTimer != nil {
		s.activityTimer.Stop()
		s.activityTimer = nil
	}
}

func (s *Scheduler) stopRenewalLocked() {
	if s.renewalTimer != nil {
		s.renewalTimer.Stop()
		s.renewalTimer = nil
	}
}

// RenewalPending reports whether the renewal line has a timer armed.
func (s *Scheduler) RenewalPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renewalTimer != nil
}

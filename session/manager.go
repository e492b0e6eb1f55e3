// Package session is the public face of the session client: login, logout,
// restore-on-load, expiry queries and subscriber notification, backed by
// the credential store and the scheduler.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/merchantdash/go-session-client/authclient"
	"github.com/merchantdash/go-session-client/backoff"
	"github.com/merchantdash/go-session-client/credentials"
	"github.com/merchantdash/go-session-client/scheduler"
	"github.com/merchantdash/go-session-client/storage"
	"github.com/merchantdash/go-session-client/users"
)

// Config holds the manager's timing and retry constants. Zero values take
// the defaults noted per field.
type Config struct {
	SessionTimeout        time.Duration // forced logout after this much inactivity (default 30m)
	RefreshBuffer         time.Duration // renew this long before expiry (default 5m)
	ActivityCheckInterval time.Duration // inactivity poll interval (default 60s)
	LoginMaxAttempts      int           // login attempts before giving up (default 3)
	RenewMaxAttempts      int           // renewal attempts before giving up (default 2)
	BackoffBaseDelay      time.Duration // first retry delay, doubled per attempt (default 1s)
}

func (c *Config) applyDefaults() {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 30 * time.Minute
	}
	if c.RefreshBuffer <= 0 {
		c.RefreshBuffer = 5 * time.Minute
	}
	if c.ActivityCheckInterval <= 0 {
		c.ActivityCheckInterval = time.Minute
	}
	if c.LoginMaxAttempts <= 0 {
		c.LoginMaxAttempts = 3
	}
	if c.RenewMaxAttempts <= 0 {
		c.RenewMaxAttempts = 2
	}
	if c.BackoffBaseDelay <= 0 {
		c.BackoffBaseDelay = time.Second
	}
}

// Manager owns the credential store and scheduler and is the only writer of
// session state. It is constructed by the application's composition root
// and lives as long as it does; Dispose tears it down.
type Manager struct {
	mu         sync.Mutex
	client     authclient.Client
	creds      *credentials.Store
	sched      *scheduler.Scheduler
	observers  *observerRegistry
	log        zerolog.Logger
	nowFunc    func() time.Time
	cfg        Config
	generation uint64 // bumped on login/logout; stale renewals are discarded
	rememberMe bool
	disposed   bool
}

// Option modifies a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(m *Manager) { m.nowFunc = nowFunc }
}

// NewManager creates a Manager with its required collaborators.
func NewManager(client authclient.Client, creds *credentials.Store, cfg Config, options ...Option) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] client is required")
	}
	if creds == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	cfg.applyDefaults()

	manager := &Manager{
		client:  client,
		creds:   creds,
		log:     zerolog.Nop(),
		nowFunc: time.Now,
		cfg:     cfg,
	}
	for _, opt := range options {
		opt(manager)
	}
	manager.log = manager.log.With().Str("component", "session").Logger()
	manager.observers = newObserverRegistry(manager.log)

	sched, err := scheduler.New(
		scheduler.Config{
			ActivityCheckInterval: cfg.ActivityCheckInterval,
			SessionTimeout:        cfg.SessionTimeout,
			RefreshBuffer:         cfg.RefreshBuffer,
		},
		scheduler.Callbacks{
			LastActivity:    func() time.Time { return manager.creds.Load().LastActivityAt },
			OnExpired:       manager.onInactivityExpired,
			Renew:           manager.scheduledRenew,
			OnRenewalFailed: manager.onRenewalFailed,
		},
		manager.log,
		scheduler.WithNowFunc(func() time.Time { return manager.nowFunc() }),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[NewManager] scheduler")
	}
	manager.sched = sched
	return manager, nil
}

// Login authenticates against the backend with up to LoginMaxAttempts
// tries, backing off exponentially between transient failures. A 401-class
// rejection aborts immediately. On success the session is persisted to the
// tier selected by rememberMe, both scheduler lines start and subscribers
// are notified with the fresh record.
func (m *Manager) Login(ctx context.Context, creds authclient.Credentials, rememberMe bool) (*users.Profile, error) {
	if m.isDisposed() {
		return nil, ErrDisposed
	}

	var grant *authclient.Grant
	policy := backoff.Policy{
		MaxAttempts: m.cfg.LoginMaxAttempts,
		BaseDelay:   m.cfg.BackoffBaseDelay,
		Retryable:   func(err error) bool { return !authclient.IsAuthRejection(err) },
	}
	err := policy.Do(ctx, func() error {
		issued, err := m.client.IssueSession(ctx, creds)
		if err != nil {
			return err
		}
		grant = issued
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Login]")
	}
	if grant == nil || grant.User == nil || grant.AccessToken == "" {
		return nil, errors.New("[Manager.Login] malformed grant from auth service")
	}

	now := m.nowFunc()
	record := credentials.Record{
		AccessToken:    grant.AccessToken,
		RefreshToken:   grant.RefreshToken,
		User:           grant.User,
		ExpiresAt:      now.Add(time.Duration(grant.ExpiresInSeconds) * time.Second),
		LastActivityAt: now,
	}

	// Drop leftovers from any previous session before writing the new one,
	// so a durable session cannot bleed into an ephemeral login.
	m.creds.Clear()
	if err := m.creds.Save(record, rememberMe); err != nil {
		return nil, errors.Wrap(err, "[Manager.Login] persist session")
	}

	m.mu.Lock()
	m.generation++
	m.rememberMe = rememberMe
	m.mu.Unlock()

	m.sched.StartActivityLine()
	m.sched.ScheduleRenewal(record.ExpiresAt)
	m.log.Info().Str("user", grant.User.ID).Bool("remember", rememberMe).Msg("login succeeded")
	m.observers.notify(record)
	return grant.User, nil
}

// Logout invalidates the session remotely best-effort, then always clears
// local state, stops both scheduler lines and notifies subscribers with a
// logged-out record. It never fails.
func (m *Manager) Logout(ctx context.Context) {
	record := m.creds.Load()
	if record.AccessToken != "" {
		if err := m.client.InvalidateSession(ctx, record.AccessToken); err != nil {
			m.log.Warn().Err(err).Msg("remote invalidation failed, continuing local cleanup")
		}
	}

	m.mu.Lock()
	m.generation++
	m.rememberMe = false
	m.mu.Unlock()

	m.sched.Stop()
	m.creds.Clear()
	m.log.Info().Msg("logged out")
	m.observers.notify(credentials.Record{LastActivityAt: m.nowFunc()})
}

// CurrentUser returns the profile of the logged-in user, renewing the
// access token first when it is inside the refresh buffer. Renewal gets
// RenewMaxAttempts tries for transient failures and none for 401/403-class
// rejections; if it still fails the session is expired for this call.
func (m *Manager) CurrentUser(ctx context.Context) (*users.Profile, error) {
	record := m.creds.Load()
	now := m.nowFunc()
	if !record.Authenticated(now) {
		return nil, ErrNotAuthenticated
	}

	if record.ExpiresAt.Sub(now) <= m.cfg.RefreshBuffer {
		renewed, err := m.renew(ctx)
		if err != nil {
			if errors.Is(err, errStaleSession) {
				return nil, ErrNotAuthenticated
			}
			return nil, errors.Wrapf(ErrTokenExpired, "[Manager.CurrentUser] renewal: %v", err)
		}
		record = renewed
	}
	return record.User, nil
}

// RestoreOnLoad is called once at startup. It loads the persisted record,
// verifies any claimed authentication via CurrentUser (renewing when close
// to expiry), restarts both scheduler lines and returns the possibly
// renewed record. Verification failure clears everything and returns the
// logged-out record; RestoreOnLoad never fails outward.
func (m *Manager) RestoreOnLoad(ctx context.Context) credentials.Record {
	record := m.creds.Load()
	now := m.nowFunc()
	if !record.Authenticated(now) {
		// Partial or expired leftovers are never partially trusted.
		m.creds.Clear()
		return credentials.Record{LastActivityAt: now}
	}

	m.mu.Lock()
	if tier, ok := m.creds.HolderTier(); ok {
		m.rememberMe = tier == storage.TierDurable
	}
	m.mu.Unlock()

	if _, err := m.CurrentUser(ctx); err != nil {
		m.log.Warn().Err(err).Msg("restored session failed verification")
		m.Logout(ctx)
		return credentials.Record{LastActivityAt: m.nowFunc()}
	}

	record = m.creds.Load()
	m.sched.StartActivityLine()
	m.sched.ScheduleRenewal(record.ExpiresAt)
	m.log.Info().Str("user", record.User.ID).Msg("session restored")
	return record
}

// RecordActivity marks a user interaction, pushing the inactivity deadline
// out. Call it from input handlers; it is cheap and safe when logged out.
func (m *Manager) RecordActivity() {
	m.creds.Touch()
}

// TimeUntilExpiry returns how long the access token remains valid. The
// second return is false when no expiry is stored.
func (m *Manager) TimeUntilExpiry() (time.Duration, bool) {
	return m.creds.Load().TimeUntilExpiry(m.nowFunc())
}

// IsExpiringSoon reports whether the access token is inside the refresh
// buffer.
func (m *Manager) IsExpiringSoon() bool {
	remaining, ok := m.TimeUntilExpiry()
	return ok && remaining <= m.cfg.RefreshBuffer
}

// Subscribe registers a callback invoked synchronously on every state
// mutation (login, logout, renewal) and returns its unsubscribe function.
func (m *Manager) Subscribe(fn Callback) func() {
	return m.observers.subscribe(fn)
}

// Dispose stops both scheduler lines and drops all subscribers. The
// persisted record is left alone so a later process can restore it.
func (m *Manager) Dispose() {
	m.mu.Lock()
	m.disposed = true
	m.generation++
	m.mu.Unlock()
	m.sched.Stop()
	m.observers.clear()
}

// renew exchanges the refresh token for a new access token, merges it into
// the stored record preserving the refresh token and profile, persists,
// notifies and reschedules the renewal line. A completion whose generation
// is stale relative to a later login/logout is discarded, not re-persisted.
func (m *Manager) renew(ctx context.Context) (credentials.Record, error) {
	m.mu.Lock()
	generation := m.generation
	rememberMe := m.rememberMe
	m.mu.Unlock()

	record := m.creds.Load()
	if record.RefreshToken == "" {
		return credentials.Record{}, ErrNotAuthenticated
	}

	var renewal *authclient.Renewal
	policy := backoff.Policy{
		MaxAttempts: m.cfg.RenewMaxAttempts,
		BaseDelay:   m.cfg.BackoffBaseDelay,
		Retryable:   func(err error) bool { return !authclient.IsAuthRejection(err) },
	}
	err := policy.Do(ctx, func() error {
		renewed, err := m.client.RenewSession(ctx, record.RefreshToken)
		if err != nil {
			return err
		}
		renewal = renewed
		return nil
	})
	if err != nil {
		return credentials.Record{}, errors.Wrap(err, "[Manager.renew]")
	}

	m.mu.Lock()
	stale := m.generation != generation || m.disposed
	m.mu.Unlock()
	if stale {
		m.log.Debug().Msg("renewal completed against a stale session, discarding")
		return credentials.Record{}, errStaleSession
	}

	now := m.nowFunc()
	record.AccessToken = renewal.AccessToken
	record.ExpiresAt = now.Add(time.Duration(renewal.ExpiresInSeconds) * time.Second)
	if err := m.creds.Save(record, rememberMe); err != nil {
		return credentials.Record{}, errors.Wrap(err, "[Manager.renew] persist")
	}

	m.sched.ScheduleRenewal(record.ExpiresAt)
	m.log.Debug().Time("expires_at", record.ExpiresAt).Msg("access token renewed")
	m.observers.notify(record)
	return record, nil
}

func (m *Manager) scheduledRenew() (time.Time, error) {
	record, err := m.renew(context.Background())
	if err != nil {
		return time.Time{}, err
	}
	return record.ExpiresAt, nil
}

func (m *Manager) onRenewalFailed(err error) {
	if errors.Is(err, errStaleSession) {
		return
	}
	m.log.Warn().Err(err).Msg("renewal failed, forcing logout")
	m.Logout(context.Background())
}

func (m *Manager) onInactivityExpired() {
	m.log.Info().Msg("session timed out from inactivity, forcing logout")
	m.Logout(context.Background())
}

func (m *Manager) isDisposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

package scheduler_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/merchantdash/go-session-client/scheduler"
)

type schedulerFixture struct {
	mu           sync.Mutex
	lastActivity time.Time

	expired       atomic.Int32
	renewals      atomic.Int32
	renewFailures atomic.Int32

	renewStub func() (time.Time, error)
}

func (f *schedulerFixture) setActivity(at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastActivity = at
}

func (f *schedulerFixture) callbacks() scheduler.Callbacks {
	return scheduler.Callbacks{
		LastActivity: func() time.Time {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.lastActivity
		},
		OnExpired: func() { f.expired.Add(1) },
		Renew: func() (time.Time, error) {
			f.renewals.Add(1)
			if f.renewStub != nil {
				return f.renewStub()
			}
			return time.Now().Add(time.Hour), nil
		},
		OnRenewalFailed: func(error) { f.renewFailures.Add(1) },
	}
}

func newScheduler(t *testing.T, cfg scheduler.Config, f *schedulerFixture) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(cfg, f.callbacks(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestNewRequiresAllCallbacks(t *testing.T) {
	_, err := scheduler.New(scheduler.Config{}, scheduler.Callbacks{}, zerolog.Nop())
	require.Error(t, err)
}

func TestActivityLineFiresOnTimeout(t *testing.T) {
	f := &schedulerFixture{}
	f.setActivity(time.Now().Add(-time.Hour))
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: 10 * time.Millisecond,
		SessionTimeout:        50 * time.Millisecond,
	}, f)

	s.StartActivityLine()

	require.Eventually(t, func() bool { return f.expired.Load() == 1 }, time.Second, 5*time.Millisecond)

	// The line stops itself after firing; no further expirations.
	time.Sleep(50 * time.Millisecond)
	require.EqualValues(t, 1, f.expired.Load())
}

func TestActivityLineQuietWhileActive(t *testing.T) {
	f := &schedulerFixture{}
	f.setActivity(time.Now())
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: 10 * time.Millisecond,
		SessionTimeout:        time.Hour,
	}, f)

	s.StartActivityLine()
	time.Sleep(60 * time.Millisecond)
	require.Zero(t, f.expired.Load())
}

func TestStopCancelsActivityLine(t *testing.T) {
	f := &schedulerFixture{}
	f.setActivity(time.Now().Add(-time.Hour))
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: 20 * time.Millisecond,
		SessionTimeout:        time.Millisecond,
	}, f)

	s.StartActivityLine()
	s.Stop()
	s.Stop() // idempotent

	time.Sleep(80 * time.Millisecond)
	require.Zero(t, f.expired.Load())
}

func TestRenewalFiresAndReschedules(t *testing.T) {
	f := &schedulerFixture{}
	var renewCount atomic.Int32
	f.renewStub = func() (time.Time, error) {
		if renewCount.Add(1) == 1 {
			// First renewal hands back another near-term expiry.
			return time.Now().Add(70 * time.Millisecond), nil
		}
		return time.Now().Add(time.Hour), nil
	}
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: time.Hour,
		SessionTimeout:        time.Hour,
		RefreshBuffer:         20 * time.Millisecond,
	}, f)

	s.ScheduleRenewal(time.Now().Add(60 * time.Millisecond))

	require.Eventually(t, func() bool { return f.renewals.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.Zero(t, f.renewFailures.Load())
	require.Eventually(t, s.RenewalPending, time.Second, time.Millisecond,
		"a successful renewal must leave the next one scheduled")
}

func TestRenewalPastDueFiresImmediately(t *testing.T) {
	f := &schedulerFixture{}
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: time.Hour,
		SessionTimeout:        time.Hour,
		RefreshBuffer:         time.Minute,
	}, f)

	s.ScheduleRenewal(time.Now()) // already inside the buffer

	require.Eventually(t, func() bool { return f.renewals.Load() >= 1 }, time.Second, time.Millisecond)
}

func TestRenewalFailureDoesNotReschedule(t *testing.T) {
	f := &schedulerFixture{}
	f.renewStub = func() (time.Time, error) { return time.Time{}, errors.New("backend down") }
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: time.Hour,
		SessionTimeout:        time.Hour,
		RefreshBuffer:         time.Minute,
	}, f)

	s.ScheduleRenewal(time.Now())

	require.Eventually(t, func() bool { return f.renewFailures.Load() == 1 }, time.Second, time.Millisecond)
	require.EqualValues(t, 1, f.renewals.Load())
	require.False(t, s.RenewalPending())
}

func TestScheduleRenewalReplacesPendingTimer(t *testing.T) {
	f := &schedulerFixture{}
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: time.Hour,
		SessionTimeout:        time.Hour,
		RefreshBuffer:         10 * time.Millisecond,
	}, f)

	// Re-arming repeatedly must replace, not stack.
	s.ScheduleRenewal(time.Now().Add(30 * time.Millisecond))
	s.ScheduleRenewal(time.Now().Add(40 * time.Millisecond))
	s.ScheduleRenewal(time.Now().Add(50 * time.Millisecond))

	require.Eventually(t, func() bool { return f.renewals.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	// One armed line fired once; the successful renewal rescheduled far out.
	require.EqualValues(t, 1, f.renewals.Load())
}

func TestStopCancelsRenewalLine(t *testing.T) {
	f := &schedulerFixture{}
	s := newScheduler(t, scheduler.Config{
		ActivityCheckInterval: time.Hour,
		SessionTimeout:        time.Hour,
		RefreshBuffer:         time.Millisecond,
	}, f)

	s.ScheduleRenewal(time.Now().Add(40 * time.Millisecond))
	s.Stop()

	time.Sleep(80 * time.Millisecond)
	require.Zero(t, f.renewals.Load())
	require.False(t, s.RenewalPending())
}

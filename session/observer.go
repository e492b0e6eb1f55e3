package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/merchantdash/go-session-client/credentials"
)

// Callback receives the session record after every state mutation.
type Callback func(credentials.Record)

type subscriber struct {
	id uuid.UUID
	fn Callback
}

// observerRegistry fans state transitions out to subscribers synchronously,
// in registration order. Each callback is isolated: a panic in one is
// logged and does not stop the others. Notification iterates a snapshot,
// so a subscriber unregistering itself mid-pass is safe.
type observerRegistry struct {
	mu   sync.Mutex
	subs []subscriber
	log  zerolog.Logger
}

func newObserverRegistry(log zerolog.Logger) *observerRegistry {
	return &observerRegistry{log: log}
}

// subscribe registers fn and returns its unsubscribe function. The registry
// does not own the callback; its lifetime is the caller's problem.
func (r *observerRegistry) subscribe(fn Callback) func() {
	id := uuid.New()
	r.mu.Lock()
	r.subs = append(r.subs, subscriber{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, sub := range r.subs {
			if sub.id == id {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

func (r *observerRegistry) notify(record credentials.Record) {
	r.mu.Lock()
	snapshot := make([]subscriber, len(r.subs))
	copy(snapshot, r.subs)
	r.mu.Unlock()

	for _, sub := range snapshot {
		r.invoke(sub, record)
	}
}

func (r *observerRegistry) invoke(sub subscriber, record credentials.Record) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.log.Error().Interface("panic", recovered).Str("subscriber", sub.id.String()).Msg("subscriber callback panicked")
		}
	}()
	sub.fn(record)
}

func (r *observerRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = nil
}

func (r *observerRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

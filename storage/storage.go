// Package storage provides a uniform get/set/remove surface over the two
// key-value tiers session data can live in: a durable tier that survives
// restarts ("remember me") and an ephemeral tier scoped to the current run.
package storage

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Tier selects which of the two backing stores an entry lands in.
type Tier int

const (
	TierDurable Tier = iota
	TierEphemeral
)

func (t Tier) String() string {
	switch t {
	case TierDurable:
		return "durable"
	case TierEphemeral:
		return "ephemeral"
	}
	return "unknown"
}

// Other returns the opposite tier, used for compatibility mirror writes.
func (t Tier) Other() Tier {
	if t == TierDurable {
		return TierEphemeral
	}
	return TierDurable
}

var (
	// ErrNotFound is returned by Backend.Get when the key has no value.
	ErrNotFound = errors.New("key not found")

	// ErrPersistence marks a failed write. Reads and removes never surface
	// it; a missing value is always a safe logged-out default.
	ErrPersistence = errors.New("persistence write failed")
)

// Backend is a single string key-value store. Implementations must be safe
// for concurrent use.
type Backend interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Adapter routes reads and writes across the durable and ephemeral tiers.
// Write failures propagate as ErrPersistence; read and remove failures
// degrade to "absent".
type Adapter struct {
	durable   Backend
	ephemeral Backend
	log       zerolog.Logger
}

// NewAdapter creates an Adapter over the two tiers.
func NewAdapter(durable, ephemeral Backend, log zerolog.Logger) (*Adapter, error) {
	if durable == nil {
		return nil, errors.New("[NewAdapter] durable backend is required")
	}
	if ephemeral == nil {
		return nil, errors.New("[NewAdapter] ephemeral backend is required")
	}
	return &Adapter{
		durable:   durable,
		ephemeral: ephemeral,
		log:       log.With().Str("component", "storage").Logger(),
	}, nil
}

func (a *Adapter) backend(tier Tier) Backend {
	if tier == TierDurable {
		return a.durable
	}
	return a.ephemeral
}

// Read returns the value stored under key in the given tier. Any backend
// failure is treated as the key being absent.
func (a *Adapter) Read(tier Tier, key string) (string, bool) {
	value, err := a.backend(tier).Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.Debug().Err(err).Str("tier", tier.String()).Str("key", key).Msg("read degraded to absent")
		}
		return "", false
	}
	return value, true
}

// ReadAny reads key from the durable tier first, falling back to ephemeral,
// and reports which tier held the value.
func (a *Adapter) ReadAny(key string) (string, Tier, bool) {
	if value, ok := a.Read(TierDurable, key); ok {
		return value, TierDurable, true
	}
	if value, ok := a.Read(TierEphemeral, key); ok {
		return value, TierEphemeral, true
	}
	return "", TierEphemeral, false
}

// Write stores value under key in the given tier. Failures (quota exceeded,
// storage disabled) come back wrapped as ErrPersistence.
func (a *Adapter) Write(tier Tier, key, value string) error {
	if err := a.backend(tier).Set(key, value); err != nil {
		return errors.Wrapf(ErrPersistence, "[Adapter.Write] %s tier, key %q: %v", tier, key, err)
	}
	return nil
}

// Remove deletes key from the given tier. Failures are logged and swallowed;
// a remove that cannot happen leaves the caller no worse than logged out.
func (a *Adapter) Remove(tier Tier, key string) {
	if err := a.backend(tier).Delete(key); err != nil && !errors.Is(err, ErrNotFound) {
		a.log.Debug().Err(err).Str("tier", tier.String()).Str("key", key).Msg("remove failed")
	}
}

// RemoveAll deletes key from both tiers unconditionally.
func (a *Adapter) RemoveAll(key string) {
	a.Remove(TierDurable, key)
	a.Remove(TierEphemeral, key)
}

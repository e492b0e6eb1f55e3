// Package credentials serializes the session record to and from the
// two-tier storage adapter and computes authenticated status.
package credentials

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/merchantdash/go-session-client/storage"
	"github.com/merchantdash/go-session-client/users"
)

// Store reads and writes the session record. Load never fails: any internal
// error degrades to an all-absent record, which is always a safe logged-out
// default.
type Store struct {
	adapter *storage.Adapter
	log     zerolog.Logger
	nowFunc func() time.Time
}

// StoreOption modifies a Store.
type StoreOption func(*Store)

// WithNowFunc sets the now time function (primarily for testing).
func WithNowFunc(nowFunc func() time.Time) StoreOption {
	return func(s *Store) { s.nowFunc = nowFunc }
}

// NewStore creates a Store over the given adapter.
func NewStore(adapter *storage.Adapter, log zerolog.Logger, options ...StoreOption) (*Store, error) {
	if adapter == nil {
		return nil, errors.New("[NewStore] adapter is required")
	}
	store := &Store{
		adapter: adapter,
		log:     log.With().Str("component", "credentials").Logger(),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

// Save writes every field of the record to the tier selected by rememberMe.
// Durable saves additionally copy just the access token into the ephemeral
// tier, where legacy readers expect to find it. The mirror is a
// one-directional compatibility copy, never a source of truth; a mirror
// failure is logged and swallowed, a primary failure is returned.
// Ephemeral saves touch only the ephemeral tier.
func (s *Store) Save(record Record, rememberMe bool) error {
	primary := storage.TierEphemeral
	if rememberMe {
		primary = storage.TierDurable
	}

	userJSON, err := json.Marshal(record.User)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] encode profile")
	}

	fields := map[string]string{
		KeyAccessToken:  record.AccessToken,
		KeyRefreshToken: record.RefreshToken,
		KeyUser:         string(userJSON),
		KeyExpiresAt:    strconv.FormatInt(record.ExpiresAt.Unix(), 10),
		KeyLastActivity: strconv.FormatInt(record.LastActivityAt.Unix(), 10),
	}
	for _, key := range fieldKeys {
		if err := s.adapter.Write(primary, key, fields[key]); err != nil {
			return errors.Wrapf(err, "[Store.Save] field %q", key)
		}
	}

	if primary == storage.TierDurable {
		if err := s.adapter.Write(primary.Other(), KeyAccessToken, record.AccessToken); err != nil {
			s.log.Warn().Err(err).Msg("access token mirror write failed")
		}
	}
	return nil
}

// Load reconstructs the record, reading each field durable-first. An
// unparsable profile yields an absent user; an unparsable expiry is
// recovered best-effort from the access token's exp claim. Load never
// returns an error.
func (s *Store) Load() Record {
	now := s.nowFunc()
	record := Record{LastActivityAt: now}

	token, _, ok := s.adapter.ReadAny(KeyAccessToken)
	if ok {
		record.AccessToken = token
	}
	if refresh, _, ok := s.adapter.ReadAny(KeyRefreshToken); ok {
		record.RefreshToken = refresh
	}

	if raw, _, ok := s.adapter.ReadAny(KeyUser); ok && raw != "" && raw != "null" {
		var profile users.Profile
		if err := json.Unmarshal([]byte(raw), &profile); err != nil {
			s.log.Debug().Err(err).Msg("stored profile unparsable, treating as absent")
		} else {
			record.User = &profile
		}
	}

	record.ExpiresAt = s.loadExpiry(record.AccessToken)

	if raw, _, ok := s.adapter.ReadAny(KeyLastActivity); ok {
		if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
			record.LastActivityAt = time.Unix(seconds, 0)
		}
	}
	return record
}

func (s *Store) loadExpiry(accessToken string) time.Time {
	if raw, _, ok := s.adapter.ReadAny(KeyExpiresAt); ok {
		if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil && seconds > 0 {
			return time.Unix(seconds, 0)
		}
		s.log.Debug().Str("value", raw).Msg("stored expiry unparsable")
	}
	if accessToken == "" {
		return time.Time{}
	}
	// The stored expiry is gone or corrupt; the token itself may still
	// carry one. Unverified parse only - signature checking is the
	// server's job.
	if expiry, ok := expiryFromToken(accessToken); ok {
		return expiry
	}
	return time.Time{}
}

func expiryFromToken(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, false
	}
	return expiry.Time, true
}

// Touch rewrites last-activity in whichever tier currently holds the access
// token. No-op when unauthenticated.
func (s *Store) Touch() {
	_, tier, ok := s.adapter.ReadAny(KeyAccessToken)
	if !ok {
		return
	}
	value := strconv.FormatInt(s.nowFunc().Unix(), 10)
	if err := s.adapter.Write(tier, KeyLastActivity, value); err != nil {
		s.log.Warn().Err(err).Msg("activity touch failed")
	}
}

// HolderTier reports which tier currently holds the access token.
func (s *Store) HolderTier() (storage.Tier, bool) {
	_, tier, ok := s.adapter.ReadAny(KeyAccessToken)
	return tier, ok
}

// Clear removes every known field key from both tiers. Idempotent and safe
// to call when already logged out.
func (s *Store) Clear() {
	for _, key := range fieldKeys {
		s.adapter.RemoveAll(key)
	}
}

package credentials

import (
	"time"

	"github.com/merchantdash/go-session-client/users"
)

// Stable field keys consumed across restarts. Each record field is stored as
// an independently-keyed entry rather than one blob.
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refresh-token"
	KeyUser         = "user"
	KeyExpiresAt    = "expires-at"
	KeyLastActivity = "last-activity"
)

var fieldKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyExpiresAt, KeyLastActivity}

// Record is the persisted session state. A zero ExpiresAt or a nil User
// means the field is absent.
type Record struct {
	AccessToken    string
	RefreshToken   string
	User           *users.Profile
	ExpiresAt      time.Time
	LastActivityAt time.Time
}

// Authenticated reports whether the record represents a live session:
// access token, user and expiry all present, and the expiry after now.
// A record missing any of these is treated as fully logged out.
func (r Record) Authenticated(now time.Time) bool {
	return r.AccessToken != "" && r.User != nil && !r.ExpiresAt.IsZero() && r.ExpiresAt.After(now)
}

// TimeUntilExpiry returns how long until the access token becomes invalid.
// The second return is false when the record carries no expiry.
func (r Record) TimeUntilExpiry(now time.Time) (time.Duration, bool) {
	if r.ExpiresAt.IsZero() {
		return 0, false
	}
	return r.ExpiresAt.Sub(now), true
}

package session

import "github.com/pkg/errors"

var (
	// ErrNotAuthenticated means there is no valid session; the user must
	// log in.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrTokenExpired means the access token ran out and renewal failed;
	// upstream this forces a logout.
	ErrTokenExpired = errors.New("token expired")

	// ErrDisposed means the manager has been torn down.
	ErrDisposed = errors.New("session manager disposed")

	// errStaleSession marks a renewal that completed after a later login
	// or logout changed the session generation. Its result is discarded.
	errStaleSession = errors.New("stale session generation")
)

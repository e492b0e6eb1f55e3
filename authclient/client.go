// Package authclient defines the shape of the credential-issuing backend
// and an HTTP implementation of it.
package authclient

import (
	"context"

	"github.com/merchantdash/go-session-client/users"
)

// Credentials are what the user typed into the login form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Grant is the result of a successful login.
type Grant struct {
	User             *users.Profile `json:"user"`
	AccessToken      string         `json:"accessToken"`
	RefreshToken     string         `json:"refreshToken"`
	ExpiresInSeconds int64          `json:"expiresIn"`
}

// Renewal is the result of exchanging a refresh token for a new access
// token. The refresh token and profile are unchanged by a renewal.
type Renewal struct {
	AccessToken      string `json:"accessToken"`
	ExpiresInSeconds int64  `json:"expiresIn"`
}

// Client is the credential-issuing service. Implementations return
// *ServiceError for failures the caller can classify.
type Client interface {
	// IssueSession authenticates credentials and returns a fresh grant.
	IssueSession(ctx context.Context, creds Credentials) (*Grant, error)

	// RenewSession exchanges a refresh token for a new access token.
	RenewSession(ctx context.Context, refreshToken string) (*Renewal, error)

	// InvalidateSession signals logout to the backend. Best-effort; the
	// caller proceeds with local cleanup whether or not it succeeds.
	InvalidateSession(ctx context.Context, accessToken string) error
}

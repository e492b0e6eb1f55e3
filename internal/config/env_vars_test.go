package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/merchantdash/go-session-client/internal/config"
)

func TestDefaults(t *testing.T) {
	c := config.New()
	require.Equal(t, 30*time.Minute, c.GetSessionTimeout())
	require.Equal(t, 5*time.Minute, c.GetRefreshBuffer())
	require.Equal(t, time.Minute, c.GetActivityCheckInterval())
	require.Equal(t, 3, c.GetLoginMaxAttempts())
	require.Equal(t, 2, c.GetRenewMaxAttempts())
	require.Equal(t, time.Second, c.GetBackoffBaseDelay())
	require.Equal(t, "http://localhost:8080", c.GetAuthBaseURL())
	require.Equal(t, "DEV", c.GetEnv())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT_SECONDS", "120")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "5")
	t.Setenv("AUTH_BASE_URL", "https://auth.bobssneakers.com")

	c := config.New()
	require.Equal(t, 2*time.Minute, c.GetSessionTimeout())
	require.Equal(t, 5, c.GetLoginMaxAttempts())
	require.Equal(t, "https://auth.bobssneakers.com", c.GetAuthBaseURL())
}

func TestUnparsableNumbersFallBack(t *testing.T) {
	t.Setenv("LOGIN_MAX_ATTEMPTS", "lots")
	t.Setenv("REFRESH_BUFFER_SECONDS", "a minute")

	c := config.New()
	require.Equal(t, 3, c.GetLoginMaxAttempts())
	require.Equal(t, 5*time.Minute, c.GetRefreshBuffer())
}

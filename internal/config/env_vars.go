package config

import (
	"os"
	"strconv"
	"time"
)

type SessionConfig interface {
	GetSessionTimeout() time.Duration
	GetRefreshBuffer() time.Duration
	GetActivityCheckInterval() time.Duration
	GetLoginMaxAttempts() int
	GetRenewMaxAttempts() int
	GetBackoffBaseDelay() time.Duration
}

type ServiceConfig interface {
	GetAppName() string
	GetAuthBaseURL() string
	GetDataFolder() string
	GetEnv() string
}

type EnvVars struct{}

var (
	_ SessionConfig = EnvVars{}
	_ ServiceConfig = EnvVars{}
)

func (EnvVars) GetAppName() string {
	return GetEnv("APP_NAME", "Dashboard Session")
}

func (EnvVars) GetAuthBaseURL() string {
	return GetEnv("AUTH_BASE_URL", "http://localhost:8080")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (EnvVars) GetSessionTimeout() time.Duration {
	return GetEnvAsDuration("SESSION_TIMEOUT_SECONDS", 30*time.Minute)
}

func (EnvVars) GetRefreshBuffer() time.Duration {
	return GetEnvAsDuration("REFRESH_BUFFER_SECONDS", 5*time.Minute)
}

func (EnvVars) GetActivityCheckInterval() time.Duration {
	return GetEnvAsDuration("ACTIVITY_CHECK_SECONDS", time.Minute)
}

func (EnvVars) GetLoginMaxAttempts() int {
	return GetEnvAsInt("LOGIN_MAX_ATTEMPTS", 3)
}

func (EnvVars) GetRenewMaxAttempts() int {
	return GetEnvAsInt("RENEW_MAX_ATTEMPTS", 2)
}

func (EnvVars) GetBackoffBaseDelay() time.Duration {
	return GetEnvAsDuration("BACKOFF_BASE_SECONDS", time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(envVar string, defaultValue int) int {
	raw := os.Getenv(envVar)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvAsDuration(envVar string, defaultValue time.Duration) time.Duration {
	seconds := GetEnvAsInt(envVar, -1)
	if seconds < 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

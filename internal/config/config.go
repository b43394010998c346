package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the environment-derived configuration for the auth client.
type Config interface {
	GetAppName() string
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetAPIBaseURL() string
	GetDataFolder() string
	GetStoragePassphrase() string
	GetRedisAddr() string
	GetTransportTimeout() time.Duration
	GetSessionExtendWindow() time.Duration
}

type EnvVars struct{}

var _ Config = EnvVars{}

func New() Config {
	return EnvVars{}
}

func (EnvVars) GetAppName() string {
	return GetEnv("APP_NAME", "AGI Workforce Auth Client")
}

func (EnvVars) GetIssuerURL() string {
	return GetEnv("AUTH_ISSUER_URL", "http://localhost:8080")
}

func (EnvVars) GetClientID() string {
	return GetEnv("AUTH_CLIENT_ID", "agi-dashboard")
}

func (EnvVars) GetClientSecret() string {
	return GetEnv("AUTH_CLIENT_SECRET", "")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv("AUTH_API_BASE_URL", "")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv("FOLDER", "./data")
}

func (EnvVars) GetStoragePassphrase() string {
	return GetEnv("STORAGE_PASSPHRASE", "")
}

// GetRedisAddr returns the Redis address for shared session storage. Empty
// means file-backed storage is used instead.
func (EnvVars) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (EnvVars) GetTransportTimeout() time.Duration {
	return getDurationSeconds("TRANSPORT_TIMEOUT_SECONDS", 15*time.Second)
}

func (EnvVars) GetSessionExtendWindow() time.Duration {
	return getDurationSeconds("SESSION_EXTEND_SECONDS", 30*time.Minute)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDurationSeconds(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}

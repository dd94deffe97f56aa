package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	IdentityProviderConfig
	BackendConfig
	SessionCookieConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
}

type IdentityProviderConfig interface {
	GetIssuer() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
	GetScopes() []string
}

type BackendConfig interface {
	GetBackendBaseURL() string
	GetInstanceID() string
	GetRequestTimeout() time.Duration
}

type SessionCookieConfig interface {
	GetSessionCookieName() string
	GetLoginStateCookieName() string
	GetCookieSigningKey() []byte
}

type mainConfig struct {
	EnvVars
	IdentityProvider
	Backend
	SessionCookie
}

func New() Config {
	// Load .env if present (ignore error if not found)
	_ = godotenv.Load()
	return mainConfig{}
}

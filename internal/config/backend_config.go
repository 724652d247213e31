package config

import (
	"time"

	"github.com/allisson/go-env"
)

// BackendConfig configures the dev identity backend served by cmd/server.
type BackendConfig interface {
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetSigningSecret() string
	GetSigningAlg() string
	GetSigningKeyFile() string
	GetTokenIssuer() string
	GetSeedAdminEmail() string
	GetSeedAdminPassword() string
}

type Backend struct{}

var _ BackendConfig = Backend{}

func (Backend) GetAccessTokenExpiry() time.Duration {
	return env.GetDuration("ACCESS_TOKEN_EXPIRY_MINUTES", 30, time.Minute)
}

func (Backend) GetRefreshTokenExpiry() time.Duration {
	return env.GetDuration("REFRESH_TOKEN_EXPIRY_HOURS", 7*24, time.Hour)
}

func (Backend) GetRefreshTokenLength() int {
	return env.GetInt("REFRESH_TOKEN_LENGTH", 32) // 32 bytes = 256 bits
}

func (Backend) GetSigningSecret() string {
	return env.GetString("TOKEN_SIGNING_SECRET", "dev-secret-change-me")
}

// GetSigningAlg is HS256 or RS256.
func (Backend) GetSigningAlg() string {
	return env.GetString("TOKEN_SIGNING_ALG", "HS256")
}

// GetSigningKeyFile is the RS256 private key. Empty generates one per run.
func (Backend) GetSigningKeyFile() string {
	return env.GetString("TOKEN_SIGNING_KEY_FILE", "")
}

func (Backend) GetTokenIssuer() string {
	return env.GetString("TOKEN_ISSUER", EnvVars{}.GetBaseURL())
}

func (Backend) GetSeedAdminEmail() string {
	return env.GetString("SEED_ADMIN_EMAIL", "admin@localhost")
}

// GetSeedAdminPassword returns the seeded owner's password. Empty means one
// is generated and printed at startup.
func (Backend) GetSeedAdminPassword() string {
	return env.GetString("SEED_ADMIN_PASSWORD", "")
}

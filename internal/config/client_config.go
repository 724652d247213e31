package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
)

type Client struct{}

var _ ClientConfig = Client{}

// GetAPIBaseURL is the prefix every gateway path is resolved against.
func (Client) GetAPIBaseURL() string {
	return strings.TrimSuffix(env.GetString("API_BASE_URL", "http://localhost:8000/api/v1"), "/")
}

// GetRequestTimeout bounds ordinary calls, the identity check and refresh alike.
func (Client) GetRequestTimeout() time.Duration {
	return env.GetDuration("SESSION_REQUEST_TIMEOUT_SECONDS", 15, time.Second)
}

func (Client) GetCredentialsPath() string {
	return env.GetString("CREDENTIALS_DB", filepath.Join(EnvVars{}.GetDataFolder(), "credentials.db"))
}

// GetIssuerURL enables endpoint discovery when set.
func (Client) GetIssuerURL() string {
	return env.GetString("OIDC_ISSUER_URL", "")
}

func (Client) GetRoutesFile() string {
	return env.GetString("ROUTES_FILE", "")
}

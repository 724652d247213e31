package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config interface {
	EnvConfig
	ClientConfig
	BackendConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetLogLevel() string
	GetLogPretty() bool
	GetEnv() string
}

// ClientConfig holds the settings of the session gateway running inside the
// hosting application.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetCredentialsPath() string
	GetIssuerURL() string
	GetRoutesFile() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Client
	Backend
	Cors
}

// New returns the process configuration. A .env file in the working
// directory is loaded first when present; real environment variables win.
func New() Config {
	if err := LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("ignoring .env file")
	}
	return mainConfig{}
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

package config

import (
	"strings"

	"github.com/allisson/go-env"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	folderEnvVar   = "FOLDER"
	baseURLVar     = "BASE_URL"
	logLevelVar    = "LOG_LEVEL"
	logPrettyVar   = "LOG_PRETTY"
	environmentVar = "ENV"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := env.GetString(portEnvVar, "8000")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return env.GetString(appNameVar, "Session Gateway")
}

func (EnvVars) GetDataFolder() string {
	return env.GetString(folderEnvVar, "./data")
}

// GetBaseURL returns the public URL of the dev identity backend
// (e.g., "http://localhost:8000"). It is used as the token issuer and in
// the discovery document.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(env.GetString(baseURLVar, "http://localhost:8000"), "/")
}

func (EnvVars) GetLogLevel() string {
	return env.GetString(logLevelVar, "info")
}

func (e EnvVars) GetLogPretty() bool {
	return env.GetBool(logPrettyVar, e.GetEnv() == "DEV")
}

func (EnvVars) GetEnv() string {
	return env.GetString(environmentVar, "DEV")
}

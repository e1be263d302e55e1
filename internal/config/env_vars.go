package config

import (
	"strconv"
	"strings"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	baseURLVar    = "BASE_URL"
	verboseEnvVar = "VERBOSE"
)

type EnvVars struct {
	src *source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.src.get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.src.get(appNameVar, "Akil Jobs")
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.src.get(envVar, "DEV"))
}

func (e EnvVars) IsDev() bool {
	return e.GetEnv() == "DEV"
}

// IsVerbose enables debug diagnostics. DEV is always verbose.
func (e EnvVars) IsVerbose() bool {
	if e.IsDev() {
		return true
	}
	verbose, err := strconv.ParseBool(e.src.get(verboseEnvVar, "false"))
	return err == nil && verbose
}

// GetBaseURL returns the public URL of the web front-end (e.g., "https://jobs.example.com")
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.src.get(baseURLVar, "http://localhost:8080"), "/")
}

package config

import (
	"strings"
	"time"
)

type BackendConfig interface {
	GetBackendBaseURL() string
	GetBackendTimeout() time.Duration
}

type Backend struct {
	src *source
}

var _ BackendConfig = Backend{}

func (b Backend) GetBackendBaseURL() string {
	return strings.TrimSuffix(b.src.get("BACKEND_BASE_URL", "https://akil-backend.onrender.com"), "/")
}

func (b Backend) GetBackendTimeout() time.Duration {
	d, err := time.ParseDuration(b.src.get("BACKEND_TIMEOUT", "30s"))
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

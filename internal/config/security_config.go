package config

import (
	"strconv"
	"time"
)

// devSessionSecret is only used when ENV=DEV and no secret is configured.
const devSessionSecret = "dev-only-session-secret-change-me"

type SecurityConfig interface {
	GetSessionSecret() string
	GetSessionCookieName() string
	GetRefreshAfter() time.Duration
	GetMaxSessionAge() time.Duration
	GetAuthRateLimitRPM() int
	TrustProxyHeaders() bool
}

type Security struct {
	src *source
	env EnvVars
}

var _ SecurityConfig = Security{}

func (s Security) GetSessionSecret() string {
	secret := s.src.get("SESSION_SECRET", s.src.get("NEXTAUTH_SECRET", ""))
	if secret == "" && s.env.IsDev() {
		return devSessionSecret
	}
	return secret
}

func (s Security) GetSessionCookieName() string {
	return s.src.get("SESSION_COOKIE_NAME", "akil_session")
}

// GetRefreshAfter is how old a session may get before it is re-issued.
func (s Security) GetRefreshAfter() time.Duration {
	return s.duration("SESSION_REFRESH_AFTER", 6*time.Hour)
}

func (s Security) GetMaxSessionAge() time.Duration {
	return s.duration("SESSION_MAX_AGE", 24*time.Hour)
}

func (s Security) GetAuthRateLimitRPM() int {
	rpm, err := strconv.Atoi(s.src.get("AUTH_RATE_LIMIT_RPM", "10"))
	if err != nil || rpm <= 0 {
		return 10
	}
	return rpm
}

// TrustProxyHeaders lets X-Forwarded-For and X-Real-IP name the client.
// Only enable it behind a proxy that overwrites those headers.
func (s Security) TrustProxyHeaders() bool {
	trust, err := strconv.ParseBool(s.src.get("TRUST_PROXY_HEADERS", "false"))
	return err == nil && trust
}

func (s Security) duration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s.src.get(key, ""))
	if err != nil {
		return defaultValue
	}
	return d
}

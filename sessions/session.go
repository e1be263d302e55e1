package sessions

import (
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
)

// Role is the application role assigned by the backend.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Provider records which identity proof produced a session.
type Provider string

const (
	ProviderCredentials Provider = "credentials"
	ProviderGoogle      Provider = "google"
)

// Session is the authenticated identity and bearer credentials of one viewer.
// AccessToken is the only credential accepted by the job and bookmark API;
// the Provider* tokens belong to the OAuth provider and never authorize API calls.
type Session struct {
	SubjectID    string
	Role         Role
	AccessToken  string
	RefreshToken string
	DisplayName  string
	Email        string
	Provider     Provider

	ProviderAccessToken  string
	ProviderRefreshToken string
	ProviderTokenExpiry  time.Time

	AuthenticatedAt time.Time // start of the maximum lifetime
	IssuedAt        time.Time // last (re-)issue
}

// New validates s and fills defaults. A session without an access token or
// subject is rejected; there are no partial sessions.
func New(s Session) (Session, error) {
	s.SubjectID = strings.TrimSpace(s.SubjectID)
	if s.AccessToken == "" {
		return Session{}, apperrors.Wrapf(apperrors.ErrInvalidSession, "[sessions New] missing access token")
	}
	if s.SubjectID == "" {
		return Session{}, apperrors.Wrapf(apperrors.ErrInvalidSession, "[sessions New] missing subject id")
	}
	if s.Role == "" {
		s.Role = RoleUser
	}
	if s.DisplayName == "" {
		s.DisplayName = DisplayNameFromEmail(s.Email)
	}
	if s.IssuedAt.IsZero() {
		s.IssuedAt = s.AuthenticatedAt
	}
	return s, nil
}

// NeedsRefresh reports whether the session was last issued refreshAfter or longer ago.
func (s Session) NeedsRefresh(now time.Time, refreshAfter time.Duration) bool {
	return now.Sub(s.IssuedAt) >= refreshAfter
}

// Expired reports whether the session has outlived maxLifetime.
func (s Session) Expired(now time.Time, maxLifetime time.Duration) bool {
	return now.Sub(s.AuthenticatedAt) >= maxLifetime
}

// ExpiresAt is the end of the session's maximum lifetime.
func (s Session) ExpiresAt(maxLifetime time.Duration) time.Time {
	return s.AuthenticatedAt.Add(maxLifetime)
}

// DisplayNameFromEmail returns the local part of an email address.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	return local
}

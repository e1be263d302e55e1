package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/go-job-board/backend"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
)

// Kind names an IdentityExchange variant.
type Kind string

const (
	KindCredentials Kind = "credentials"
	KindOAuth       Kind = "oauth"
)

// IdentityExchange turns one upstream identity proof into a Session. Every
// variant produces the same Session shape.
type IdentityExchange interface {
	Kind() Kind
	Exchange(ctx context.Context) (sessions.Session, error)
}

// LoginAPI is the backend surface used by CredentialExchange.
type LoginAPI interface {
	Login(ctx context.Context, req backend.LoginRequest) (*backend.LoginResponse, error)
}

// LinkAPI is the backend surface used by OAuthExchange.
type LinkAPI interface {
	LinkOAuthUser(ctx context.Context, req backend.LinkRequest) (*backend.LinkResponse, error)
}

// ProviderIdentity is an identity already verified by an OAuth provider.
// Claims holds the raw ID token claims for diagnostics only; nothing in it
// is used for authorization.
type ProviderIdentity struct {
	Provider      sessions.Provider
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	AccessToken   string
	RefreshToken  string
	Expiry        time.Time
	Claims        map[string]any
}

// ProviderToken is a refreshed OAuth provider token.
type ProviderToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

type exchangeOptions struct {
	nowTime func() time.Time
}

// ExchangeOption configures an exchange.
type ExchangeOption func(*exchangeOptions)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ExchangeOption {
	return func(o *exchangeOptions) {
		o.nowTime = nowFunc
	}
}

func applyOptions(options []ExchangeOption) exchangeOptions {
	o := exchangeOptions{nowTime: time.Now}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// statusMessage returns the backend's message for err, "HTTP <status>" when
// the backend answered without one, and "" when no response arrived.
func statusMessage(err error) string {
	if msg, ok := backend.Message(err); ok {
		return msg
	}
	var httpErr *backend.HTTPError
	if apperrors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	}
	return ""
}

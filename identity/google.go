package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// OAuthProvider drives the browser leg of an OAuth sign-in.
type OAuthProvider interface {
	AuthCodeURL(state, nonce string) string
	Exchange(ctx context.Context, code, nonce string) (ProviderIdentity, error)
}

// GoogleProvider signs users in with Google OpenID Connect.
type GoogleProvider struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

var _ OAuthProvider = (*GoogleProvider)(nil)

// NewGoogleProvider discovers issuer's endpoints and keys.
func NewGoogleProvider(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("[NewGoogleProvider] discovery for %s: %w", issuer, err)
	}

	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	return newGoogleProvider(cfg, provider.Verifier(&oidc.Config{ClientID: clientID})), nil
}

func newGoogleProvider(cfg *oauth2.Config, verifier *oidc.IDTokenVerifier) *GoogleProvider {
	return &GoogleProvider{oauth2Config: cfg, verifier: verifier}
}

// AuthCodeURL always asks for consent and offline access so that a provider
// refresh token is issued.
func (g *GoogleProvider) AuthCodeURL(state, nonce string) string {
	return g.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oidc.Nonce(nonce),
	)
}

type googleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Exchange redeems an authorization code and verifies the returned ID token.
func (g *GoogleProvider) Exchange(ctx context.Context, code, nonce string) (ProviderIdentity, error) {
	token, err := g.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return ProviderIdentity{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, "Google sign-in failed", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return ProviderIdentity{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, "Google sign-in failed", fmt.Errorf("no id_token in token response"))
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return ProviderIdentity{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, "Google sign-in failed", err)
	}
	if idToken.Nonce != nonce {
		return ProviderIdentity{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, "Google sign-in failed", fmt.Errorf("nonce mismatch"))
	}

	var claims googleClaims
	if err := idToken.Claims(&claims); err != nil {
		return ProviderIdentity{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, "Google sign-in failed", err)
	}
	var raw map[string]any
	if err := idToken.Claims(&raw); err != nil {
		log.Debug().Err(err).Str("subject", idToken.Subject).Msg("could not decode raw id token claims")
	}

	return ProviderIdentity{
		Provider:      sessions.ProviderGoogle,
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
		AccessToken:   token.AccessToken,
		RefreshToken:  token.RefreshToken,
		Expiry:        token.Expiry,
		Claims:        raw,
	}, nil
}

// RefreshProviderToken exchanges a provider refresh token for a new access
// token. Google may omit the refresh token on refresh; the old one is kept.
func (g *GoogleProvider) RefreshProviderToken(ctx context.Context, refreshToken string) (ProviderToken, error) {
	if refreshToken == "" {
		return ProviderToken{}, apperrors.Wrapf(apperrors.ErrSessionExpired, "[GoogleProvider RefreshProviderToken] no refresh token")
	}

	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	token, err := g.oauth2Config.TokenSource(ctx, expired).Token()
	if err != nil {
		return ProviderToken{}, apperrors.Wrapf(err, "[GoogleProvider RefreshProviderToken]")
	}

	rt := token.RefreshToken
	if rt == "" {
		rt = refreshToken
	}
	return ProviderToken{AccessToken: token.AccessToken, RefreshToken: rt, Expiry: token.Expiry}, nil
}

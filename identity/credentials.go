package identity

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-job-board/backend"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
)

const defaultAuthFailure = "Authentication failed"

// CredentialExchange trades an email and password for the backend's token pair.
type CredentialExchange struct {
	api      LoginAPI
	email    string
	password string
	opts     exchangeOptions
}

var _ IdentityExchange = (*CredentialExchange)(nil)

func NewCredentialExchange(api LoginAPI, email, password string, options ...ExchangeOption) *CredentialExchange {
	return &CredentialExchange{
		api:      api,
		email:    strings.TrimSpace(email),
		password: password,
		opts:     applyOptions(options),
	}
}

func (*CredentialExchange) Kind() Kind {
	return KindCredentials
}

func (ce *CredentialExchange) Exchange(ctx context.Context) (sessions.Session, error) {
	if ce.email == "" || ce.password == "" {
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrValidation, "Email and password are required", nil)
	}

	resp, err := ce.api.Login(ctx, backend.LoginRequest{Email: ce.email, Password: ce.password})
	if err != nil {
		if msg := statusMessage(err); msg != "" {
			return sessions.Session{}, apperrors.WithMessage(apperrors.ErrInvalidCredentials, msg, err)
		}
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrRequestFailed, defaultAuthFailure, err)
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = defaultAuthFailure
		}
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrInvalidCredentials, msg, nil)
	}
	if resp.Data == nil || resp.Data.AccessToken == "" || strings.TrimSpace(resp.Data.ID) == "" {
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrMalformedAuthResponse, defaultAuthFailure, nil)
	}

	now := ce.opts.nowTime()
	s, err := sessions.New(sessions.Session{
		SubjectID:       resp.Data.ID,
		Role:            sessions.Role(resp.Data.Role),
		AccessToken:     resp.Data.AccessToken,
		RefreshToken:    resp.Data.RefreshToken,
		DisplayName:     resp.Data.Name,
		Email:           ce.email,
		Provider:        sessions.ProviderCredentials,
		AuthenticatedAt: now,
		IssuedAt:        now,
	})
	if err != nil {
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrMalformedAuthResponse, defaultAuthFailure, err)
	}
	return s, nil
}

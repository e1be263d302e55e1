package identity

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-job-board/backend"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
)

const defaultLinkFailure = "Account linking failed"

// OAuthExchange links a provider-verified identity to an application user.
// Subject id and role come only from the backend's linking response.
type OAuthExchange struct {
	api      LinkAPI
	identity ProviderIdentity
	opts     exchangeOptions
}

var _ IdentityExchange = (*OAuthExchange)(nil)

func NewOAuthExchange(api LinkAPI, identity ProviderIdentity, options ...ExchangeOption) *OAuthExchange {
	return &OAuthExchange{api: api, identity: identity, opts: applyOptions(options)}
}

func (*OAuthExchange) Kind() Kind {
	return KindOAuth
}

func (oe *OAuthExchange) Exchange(ctx context.Context) (sessions.Session, error) {
	id := oe.identity
	if strings.TrimSpace(id.Email) == "" || strings.TrimSpace(id.Subject) == "" {
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrValidation, "Provider identity is missing email or subject", nil)
	}

	linked, err := oe.api.LinkOAuthUser(ctx, backend.LinkRequest{
		Email:      id.Email,
		Name:       id.Name,
		ProviderID: id.Subject,
	})
	if err != nil {
		msg := statusMessage(err)
		if msg == "" {
			msg = defaultLinkFailure
		}
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, msg, err)
	}
	if strings.TrimSpace(linked.ID) == "" || linked.AccessToken == "" {
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, defaultLinkFailure, nil)
	}

	provider := id.Provider
	if provider == "" {
		provider = sessions.ProviderGoogle
	}

	now := oe.opts.nowTime()
	s, err := sessions.New(sessions.Session{
		SubjectID:            linked.ID,
		Role:                 sessions.Role(linked.Role),
		AccessToken:          linked.AccessToken,
		RefreshToken:         linked.RefreshToken,
		DisplayName:          id.Name,
		Email:                id.Email,
		Provider:             provider,
		ProviderAccessToken:  id.AccessToken,
		ProviderRefreshToken: id.RefreshToken,
		ProviderTokenExpiry:  id.Expiry,
		AuthenticatedAt:      now,
		IssuedAt:             now,
	})
	if err != nil {
		return sessions.Session{}, apperrors.WithMessage(apperrors.ErrOAuthLinkingFailed, defaultLinkFailure, err)
	}
	return s, nil
}

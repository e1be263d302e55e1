package server

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/server/authflowrepo"
	"github.com/rs/zerolog/log"
)

const oauthRetryMessage = "Google sign-in failed. Please try again."

func redirectSignInError(w http.ResponseWriter, r *http.Request, message string) {
	http.Redirect(w, r, RouteSignIn+"?error="+url.QueryEscape(message), http.StatusSeeOther)
}

// GoogleStartHandler sends the browser to Google (GET /auth/google)
func (s *Server) GoogleStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.google == nil {
			http.NotFound(w, r)
			return
		}
		v := viewerFrom(r.Context())

		state := uuid.NewString()
		nonce := uuid.NewString()
		flow := &authflowrepo.AuthFlowState{
			ViewerID:  v.ID,
			Nonce:     nonce,
			ReturnURL: safeReturnURL(r.URL.Query().Get("callbackUrl")),
		}
		if err := s.authFlows.Upsert(state, flow); err != nil {
			log.Err(err).Msg("Failed to store OAuth state")
			redirectSignInError(w, r, oauthRetryMessage)
			return
		}

		http.Redirect(w, r, s.google.AuthCodeURL(state, nonce), http.StatusFound)
	}
}

// GoogleCallbackHandler completes the Google sign-in (GET /auth/callback/google)
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.google == nil {
			http.NotFound(w, r)
			return
		}
		v := viewerFrom(r.Context())
		q := r.URL.Query()

		if providerErr := q.Get("error"); providerErr != "" {
			log.Warn().Str("error", providerErr).Str("viewer", v.ID).Msg("Google returned an error")
			redirectSignInError(w, r, oauthRetryMessage)
			return
		}

		flow, err := s.authFlows.Take(q.Get("state"))
		if err != nil || flow.ViewerID != v.ID {
			log.Warn().Err(err).Str("viewer", v.ID).Msg("OAuth state rejected")
			redirectSignInError(w, r, "Sign-in session expired. Please try again.")
			return
		}

		assertion, err := s.google.Exchange(r.Context(), q.Get("code"), flow.Nonce)
		if err != nil {
			log.Err(err).Str("viewer", v.ID).Msg("Google code exchange failed")
			redirectSignInError(w, r, apperrors.UserMessage(err, oauthRetryMessage))
			return
		}

		if _, err := v.Auth.AuthenticateWithOAuthAssertion(r.Context(), assertion); err != nil {
			log.Err(err).Str("viewer", v.ID).Msg("OAuth account linking failed")
			redirectSignInError(w, r, apperrors.UserMessage(err, oauthRetryMessage))
			return
		}

		http.Redirect(w, r, flow.ReturnURL, http.StatusSeeOther)
	}
}

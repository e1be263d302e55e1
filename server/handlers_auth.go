package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-job-board/backend"
	"github.com/jrsteele09/go-job-board/identity"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/rs/zerolog/log"
)

const defaultAuthError = "Authentication failed"

type signInPage struct {
	basePage
	Email         string
	CallbackURL   string
	Info          string
	GoogleEnabled bool
}

type signupPage struct {
	basePage
	Name  string
	Email string
}

type verifyEmailPage struct {
	basePage
	Email string
}

// authErrorStatus maps an authentication failure to an HTTP status.
func authErrorStatus(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case apperrors.Is(err, apperrors.ErrEmailTaken):
		return http.StatusConflict
	}
	var httpErr *backend.HTTPError
	switch {
	case apperrors.As(err, &httpErr) && httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// SignInPageHandler displays the sign-in form (GET /auth/signin)
func (s *Server) SignInPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signin.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		q := r.URL.Query()
		page := signInPage{
			basePage:      s.newBasePage(r, v, "Sign in"),
			Email:         q.Get("email"),
			CallbackURL:   safeReturnURL(q.Get("callbackUrl")),
			GoogleEnabled: s.google != nil,
		}
		page.Error = q.Get("error")
		if q.Get("verified") == "1" {
			page.Info = "Email verified. Please sign in."
		}
		renderPage(w, tmpl, http.StatusOK, page)
	}
}

// SignInHandler authenticates with email and password (POST /auth/signin)
func (s *Server) SignInHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signin.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))
		callbackURL := safeReturnURL(r.FormValue("callbackUrl"))

		if _, err := v.Auth.AuthenticateWithCredentials(r.Context(), email, r.FormValue("password")); err != nil {
			log.Err(err).Str("viewer", v.ID).Msg("credential sign-in failed")
			page := signInPage{
				basePage:      s.newBasePage(r, v, "Sign in"),
				Email:         email,
				CallbackURL:   callbackURL,
				GoogleEnabled: s.google != nil,
			}
			page.Error = apperrors.UserMessage(err, defaultAuthError)
			renderPage(w, tmpl, authErrorStatus(err), page)
			return
		}

		http.Redirect(w, r, callbackURL, http.StatusSeeOther)
	}
}

// SignOutHandler ends the session (POST /auth/signout)
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if err := v.Auth.SignOut(r.Context()); err != nil {
			log.Err(err).Str("viewer", v.ID).Msg("sign-out failed to clear the session cookie")
		}
		http.Redirect(w, r, RouteIndex, http.StatusSeeOther)
	}
}

// SignupPageHandler displays the registration form (GET /auth/signup)
func (s *Server) SignupPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		renderPage(w, tmpl, http.StatusOK, signupPage{basePage: s.newBasePage(r, v, "Sign up")})
	}
}

// SignupHandler registers a new account (POST /auth/signup)
func (s *Server) SignupHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		form := identity.SignupForm{
			Name:            r.FormValue("name"),
			Email:           strings.TrimSpace(r.FormValue("email")),
			Password:        r.FormValue("password"),
			ConfirmPassword: r.FormValue("confirmPassword"),
		}

		if err := s.registration.Signup(r.Context(), form); err != nil {
			page := signupPage{basePage: s.newBasePage(r, v, "Sign up"), Name: form.Name, Email: form.Email}
			page.Error = apperrors.UserMessage(err, "Signup failed. Please try again.")
			renderPage(w, tmpl, authErrorStatus(err), page)
			return
		}

		http.Redirect(w, r, RouteVerifyEmail+"?email="+url.QueryEscape(form.Email), http.StatusSeeOther)
	}
}

// VerifyEmailPageHandler displays the code entry form (GET /auth/verify-email)
func (s *Server) VerifyEmailPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("verify_email.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		renderPage(w, tmpl, http.StatusOK, verifyEmailPage{
			basePage: s.newBasePage(r, v, "Verify email"),
			Email:    r.URL.Query().Get("email"),
		})
	}
}

// VerifyEmailHandler submits the emailed code (POST /auth/verify-email)
func (s *Server) VerifyEmailHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("verify_email.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.FormValue("email"))

		if err := s.registration.VerifyEmail(r.Context(), email, r.FormValue("otp")); err != nil {
			page := verifyEmailPage{basePage: s.newBasePage(r, v, "Verify email"), Email: email}
			page.Error = apperrors.UserMessage(err, "Verification failed")
			renderPage(w, tmpl, authErrorStatus(err), page)
			return
		}

		http.Redirect(w, r, RouteSignIn+"?verified=1&email="+url.QueryEscape(email), http.StatusSeeOther)
	}
}

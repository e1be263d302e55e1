package identity

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jrsteele09/go-job-board/backend"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// RegistrationAPI is the backend surface used for account creation.
type RegistrationAPI interface {
	Signup(ctx context.Context, req backend.SignupRequest) error
	VerifyEmail(ctx context.Context, req backend.VerifyEmailRequest) error
}

// SignupForm is what a visitor submits to create an account.
type SignupForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// Validate checks the form in field order and reports the first problem.
func (f SignupForm) Validate() error {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return apperrors.WithMessage(apperrors.ErrValidation, "Name is required", nil)
	case !emailPattern.MatchString(strings.TrimSpace(f.Email)):
		return apperrors.WithMessage(apperrors.ErrValidation, "Please enter a valid email address", nil)
	case utf8.RuneCountInString(f.Password) < minPasswordLength:
		return apperrors.WithMessage(apperrors.ErrValidation, "Password must be at least 6 characters", nil)
	case f.Password != f.ConfirmPassword:
		return apperrors.WithMessage(apperrors.ErrValidation, "Passwords don't match", nil)
	}
	return nil
}

// Registration creates accounts and confirms their email address. Neither
// step signs the user in.
type Registration struct {
	api RegistrationAPI
}

func NewRegistration(api RegistrationAPI) *Registration {
	return &Registration{api: api}
}

func (r *Registration) Signup(ctx context.Context, form SignupForm) error {
	if err := form.Validate(); err != nil {
		return err
	}

	err := r.api.Signup(ctx, backend.SignupRequest{
		Name:     strings.TrimSpace(form.Name),
		Email:    strings.TrimSpace(form.Email),
		Password: form.Password,
		Role:     string(sessions.RoleUser),
	})
	switch {
	case err == nil:
		return nil
	case backend.IsStatus(err, http.StatusConflict):
		return apperrors.WithMessage(apperrors.ErrEmailTaken, "Email already exists. Please sign in instead.", err)
	default:
		msg := statusMessage(err)
		if msg == "" {
			msg = "Signup failed. Please try again."
		}
		return apperrors.WithMessage(apperrors.ErrRequestFailed, msg, err)
	}
}

func (r *Registration) VerifyEmail(ctx context.Context, email, otp string) error {
	email, otp = strings.TrimSpace(email), strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return apperrors.WithMessage(apperrors.ErrValidation, "Email and verification code are required", nil)
	}

	if err := r.api.VerifyEmail(ctx, backend.VerifyEmailRequest{Email: email, OTP: otp}); err != nil {
		msg := statusMessage(err)
		if msg == "" {
			msg = "Verification failed"
		}
		return apperrors.WithMessage(apperrors.ErrRequestFailed, msg, err)
	}
	return nil
}

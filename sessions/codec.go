package sessions

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"golang.org/x/crypto/hkdf"
)

const (
	claimsIssuer   = "akil-jobs"
	signingKeyInfo = "akil-jobs session signing key"
)

// Claims is the signed claim set persisted for a viewer. Session fields are
// empty for anonymous viewers.
type Claims struct {
	jwt.RegisteredClaims
	ViewerID             string   `json:"vid"`
	Authenticated        bool     `json:"auth,omitempty"`
	Role                 Role     `json:"role,omitempty"`
	Name                 string   `json:"name,omitempty"`
	Email                string   `json:"email,omitempty"`
	Provider             Provider `json:"prv,omitempty"`
	AccessToken          string   `json:"at,omitempty"`
	RefreshToken         string   `json:"rt,omitempty"`
	ProviderAccessToken  string   `json:"pat,omitempty"`
	ProviderRefreshToken string   `json:"prt,omitempty"`
	ProviderTokenExpiry  int64    `json:"pexp,omitempty"`
	AuthenticatedAt      int64    `json:"auth_time,omitempty"`
}

// Codec signs and verifies viewer claims with an HMAC key derived from the
// configured session secret.
type Codec struct {
	key         []byte
	maxLifetime time.Duration
	nowTime     func() time.Time
}

// CodecOption defines a function type to modify the Codec instance.
type CodecOption func(*Codec)

// WithCodecNowTime sets the now time function (primarily for testing)
func WithCodecNowTime(nowFunc func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowTime = nowFunc
	}
}

// NewCodec derives the signing key from secret with HKDF-SHA256.
func NewCodec(secret string, maxLifetime time.Duration, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("[sessions NewCodec] secret is required")
	}
	if maxLifetime <= 0 {
		return nil, fmt.Errorf("[sessions NewCodec] max lifetime must be positive")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(signingKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("[sessions NewCodec] failed to derive signing key: %w", err)
	}

	c := &Codec{key: key, maxLifetime: maxLifetime, nowTime: time.Now}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// MaxLifetime is the longest a session may live before re-authentication.
func (c *Codec) MaxLifetime() time.Duration {
	return c.maxLifetime
}

// Encode signs the claims for viewerID. A nil session produces anonymous claims.
func (c *Codec) Encode(viewerID string, s *Session) (string, time.Time, error) {
	if viewerID == "" {
		return "", time.Time{}, fmt.Errorf("[sessions Encode] viewer id is required")
	}

	now := c.nowTime()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   claimsIssuer,
			ID:       uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		},
		ViewerID: viewerID,
	}

	expires := now.Add(c.maxLifetime)
	if s != nil {
		expires = s.ExpiresAt(c.maxLifetime)
		claims.Subject = s.SubjectID
		claims.IssuedAt = jwt.NewNumericDate(s.IssuedAt)
		claims.Authenticated = true
		claims.Role = s.Role
		claims.Name = s.DisplayName
		claims.Email = s.Email
		claims.Provider = s.Provider
		claims.AccessToken = s.AccessToken
		claims.RefreshToken = s.RefreshToken
		claims.ProviderAccessToken = s.ProviderAccessToken
		claims.ProviderRefreshToken = s.ProviderRefreshToken
		claims.AuthenticatedAt = s.AuthenticatedAt.Unix()
		if !s.ProviderTokenExpiry.IsZero() {
			claims.ProviderTokenExpiry = s.ProviderTokenExpiry.Unix()
		}
	}
	claims.ExpiresAt = jwt.NewNumericDate(expires)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("[sessions Encode] failed to sign claims: %w", err)
	}
	return signed, expires, nil
}

// Decode verifies a token produced by Encode. The session is nil for
// anonymous claims.
func (c *Codec) Decode(token string) (string, *Session, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(claimsIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowTime),
	)
	if err != nil {
		return "", nil, apperrors.Wrapf(apperrors.ErrInvalidSessionToken, "[sessions Decode] %v", err)
	}
	if claims.ViewerID == "" {
		return "", nil, apperrors.Wrapf(apperrors.ErrInvalidSessionToken, "[sessions Decode] missing viewer id")
	}
	if !claims.Authenticated {
		return claims.ViewerID, nil, nil
	}

	s := Session{
		SubjectID:            claims.Subject,
		Role:                 claims.Role,
		AccessToken:          claims.AccessToken,
		RefreshToken:         claims.RefreshToken,
		DisplayName:          claims.Name,
		Email:                claims.Email,
		Provider:             claims.Provider,
		ProviderAccessToken:  claims.ProviderAccessToken,
		ProviderRefreshToken: claims.ProviderRefreshToken,
		AuthenticatedAt:      time.Unix(claims.AuthenticatedAt, 0),
	}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ProviderTokenExpiry != 0 {
		s.ProviderTokenExpiry = time.Unix(claims.ProviderTokenExpiry, 0)
	}

	s, err = New(s)
	if err != nil {
		return "", nil, apperrors.Wrapf(apperrors.ErrInvalidSessionToken, "[sessions Decode] %v", err)
	}
	return claims.ViewerID, &s, nil
}

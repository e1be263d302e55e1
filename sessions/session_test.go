package sessions_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret"

var baseTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func validSession() sessions.Session {
	return sessions.Session{
		SubjectID:       "u1",
		AccessToken:     "tok",
		RefreshToken:    "rtok",
		Email:           "a@b.com",
		Provider:        sessions.ProviderCredentials,
		AuthenticatedAt: baseTime,
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := sessions.New(validSession())
		require.NoError(t, err)
		require.Equal(t, sessions.RoleUser, s.Role)
		require.Equal(t, "a", s.DisplayName)
		require.Equal(t, baseTime, s.IssuedAt)
	})

	t.Run("rejects missing token", func(t *testing.T) {
		s := validSession()
		s.AccessToken = ""
		_, err := sessions.New(s)
		require.ErrorIs(t, err, apperrors.ErrInvalidSession)
	})

	t.Run("rejects token without subject", func(t *testing.T) {
		s := validSession()
		s.SubjectID = "  "
		_, err := sessions.New(s)
		require.ErrorIs(t, err, apperrors.ErrInvalidSession)
	})
}

func TestSessionLifetime(t *testing.T) {
	s, err := sessions.New(validSession())
	require.NoError(t, err)

	require.False(t, s.NeedsRefresh(baseTime.Add(5*time.Hour), 6*time.Hour))
	require.True(t, s.NeedsRefresh(baseTime.Add(6*time.Hour), 6*time.Hour))
	require.False(t, s.Expired(baseTime.Add(23*time.Hour), 24*time.Hour))
	require.True(t, s.Expired(baseTime.Add(24*time.Hour), 24*time.Hour))
}

func newCodec(t *testing.T, now *time.Time) *sessions.Codec {
	t.Helper()
	c, err := sessions.NewCodec(testSecret, 24*time.Hour, sessions.WithCodecNowTime(func() time.Time { return *now }))
	require.NoError(t, err)
	return c
}

func TestCodec(t *testing.T) {
	now := baseTime

	t.Run("round trip authenticated", func(t *testing.T) {
		c := newCodec(t, &now)
		s, err := sessions.New(validSession())
		require.NoError(t, err)
		s.ProviderAccessToken = "google-at"

		token, expires, err := c.Encode("viewer-1", &s)
		require.NoError(t, err)
		require.Equal(t, baseTime.Add(24*time.Hour), expires)

		viewerID, decoded, err := c.Decode(token)
		require.NoError(t, err)
		require.Equal(t, "viewer-1", viewerID)
		require.NotNil(t, decoded)
		require.Equal(t, "u1", decoded.SubjectID)
		require.Equal(t, "tok", decoded.AccessToken)
		require.Equal(t, "google-at", decoded.ProviderAccessToken)
		require.True(t, decoded.AuthenticatedAt.Equal(baseTime))
	})

	t.Run("anonymous", func(t *testing.T) {
		c := newCodec(t, &now)
		token, _, err := c.Encode("viewer-2", nil)
		require.NoError(t, err)

		viewerID, decoded, err := c.Decode(token)
		require.NoError(t, err)
		require.Equal(t, "viewer-2", viewerID)
		require.Nil(t, decoded)
	})

	t.Run("tampered", func(t *testing.T) {
		c := newCodec(t, &now)
		token, _, err := c.Encode("viewer-1", nil)
		require.NoError(t, err)

		parts := strings.Split(token, ".")
		parts[2] = strings.Repeat("A", len(parts[2]))
		_, _, err = c.Decode(strings.Join(parts, "."))
		require.ErrorIs(t, err, apperrors.ErrInvalidSessionToken)
	})

	t.Run("other secret", func(t *testing.T) {
		c := newCodec(t, &now)
		other, err := sessions.NewCodec("another-secret", 24*time.Hour, sessions.WithCodecNowTime(func() time.Time { return now }))
		require.NoError(t, err)

		token, _, err := other.Encode("viewer-1", nil)
		require.NoError(t, err)
		_, _, err = c.Decode(token)
		require.ErrorIs(t, err, apperrors.ErrInvalidSessionToken)
	})

	t.Run("expired", func(t *testing.T) {
		clock := baseTime
		c := newCodec(t, &clock)
		s, err := sessions.New(validSession())
		require.NoError(t, err)
		token, _, err := c.Encode("viewer-1", &s)
		require.NoError(t, err)

		clock = baseTime.Add(25 * time.Hour)
		_, _, err = c.Decode(token)
		require.ErrorIs(t, err, apperrors.ErrInvalidSessionToken)
	})

	t.Run("requires secret", func(t *testing.T) {
		_, err := sessions.NewCodec("", time.Hour)
		require.Error(t, err)
	})
}

func TestCookieStore(t *testing.T) {
	now := baseTime
	store := sessions.NewCookieStore(newCodec(t, &now), "akil_session")

	t.Run("save then load", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := sessions.WithHTTP(context.Background(), rec, req, "viewer-1")

		s, err := sessions.New(validSession())
		require.NoError(t, err)
		require.NoError(t, store.Save(ctx, s))

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		require.True(t, cookies[0].HttpOnly)
		require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
		require.Equal(t, int((24 * time.Hour).Seconds()), cookies[0].MaxAge)

		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(cookies[0])
		viewerID, loaded, err := store.Load(next)
		require.NoError(t, err)
		require.Equal(t, "viewer-1", viewerID)
		require.Equal(t, "u1", loaded.SubjectID)
	})

	t.Run("clear keeps viewer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		require.NoError(t, store.Clear(sessions.WithHTTP(context.Background(), rec, req, "viewer-1")))

		next := httptest.NewRequest(http.MethodGet, "/", nil)
		next.AddCookie(rec.Result().Cookies()[0])
		viewerID, loaded, err := store.Load(next)
		require.NoError(t, err)
		require.Equal(t, "viewer-1", viewerID)
		require.Nil(t, loaded)
	})

	t.Run("missing cookie", func(t *testing.T) {
		_, _, err := store.Load(httptest.NewRequest(http.MethodGet, "/", nil))
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("no binding", func(t *testing.T) {
		require.Error(t, store.Save(context.Background(), validSession()))
		require.Error(t, store.Clear(context.Background()))
	})
}

func TestMemoryStore(t *testing.T) {
	m := sessions.NewMemoryStore()
	_, ok := m.Load()
	require.False(t, ok)

	require.NoError(t, m.Save(context.Background(), validSession()))
	s, ok := m.Load()
	require.True(t, ok)
	require.Equal(t, "u1", s.SubjectID)

	m.FailSaves(errors.New("disk full"))
	require.Error(t, m.Save(context.Background(), validSession()))

	require.NoError(t, m.Clear(context.Background()))
	_, ok = m.Load()
	require.False(t, ok)

	saves, clears := m.Counts()
	require.Equal(t, 1, saves)
	require.Equal(t, 1, clears)
}

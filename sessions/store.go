package sessions

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
)

// Store persists the claims of the session owned by one manager. Save is
// called on every entry into Authenticated, Clear on every entry into Anonymous.
type Store interface {
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

type httpBindingKey struct{}

type httpBinding struct {
	w        http.ResponseWriter
	r        *http.Request
	viewerID string
}

// WithHTTP binds the current response, request and viewer to ctx so a
// CookieStore can write the session cookie for this request.
func WithHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request, viewerID string) context.Context {
	return context.WithValue(ctx, httpBindingKey{}, httpBinding{w: w, r: r, viewerID: viewerID})
}

func bindingFrom(ctx context.Context) (httpBinding, bool) {
	b, ok := ctx.Value(httpBindingKey{}).(httpBinding)
	return b, ok && b.w != nil && b.viewerID != ""
}

// CookieStore keeps signed viewer claims in an HttpOnly cookie.
type CookieStore struct {
	codec *Codec
	name  string
}

var _ Store = (*CookieStore)(nil)

func NewCookieStore(codec *Codec, name string) *CookieStore {
	return &CookieStore{codec: codec, name: name}
}

func (cs *CookieStore) Save(ctx context.Context, s Session) error {
	b, ok := bindingFrom(ctx)
	if !ok {
		return fmt.Errorf("[CookieStore Save] no http binding in context")
	}
	return cs.write(b.w, b.r, b.viewerID, &s)
}

// Clear replaces the session claims with anonymous claims for the same viewer.
func (cs *CookieStore) Clear(ctx context.Context) error {
	b, ok := bindingFrom(ctx)
	if !ok {
		return fmt.Errorf("[CookieStore Clear] no http binding in context")
	}
	return cs.write(b.w, b.r, b.viewerID, nil)
}

// WriteAnonymous issues claims for a viewer that has no session yet.
func (cs *CookieStore) WriteAnonymous(w http.ResponseWriter, r *http.Request, viewerID string) error {
	return cs.write(w, r, viewerID, nil)
}

// Load reads and verifies the cookie on r.
func (cs *CookieStore) Load(r *http.Request) (string, *Session, error) {
	cookie, err := r.Cookie(cs.name)
	if err != nil || cookie.Value == "" {
		return "", nil, apperrors.ErrSessionNotFound
	}
	return cs.codec.Decode(cookie.Value)
}

func (cs *CookieStore) write(w http.ResponseWriter, r *http.Request, viewerID string, s *Session) error {
	token, expires, err := cs.codec.Encode(viewerID, s)
	if err != nil {
		return err
	}

	maxAge := int(expires.Sub(cs.codec.nowTime()).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cs.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	return nil
}

func isSecure(r *http.Request) bool {
	if r == nil {
		return false
	}
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

// MemoryStore is an in-process Store for tests and non-web callers.
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
	saves   int
	clears  int
	failErr error
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.session = &s
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.session = nil
	return nil
}

// Load returns the stored session, if any.
func (m *MemoryStore) Load() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// FailSaves makes every following Save return err (nil restores normal behaviour).
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Counts returns how many saves and clears have happened.
func (m *MemoryStore) Counts() (saves, clears int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves, m.clears
}

package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-job-board/identity"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	defaultRefreshAfter = 6 * time.Hour
	defaultMaxLifetime  = 24 * time.Hour

	expiredMessage = "Your session has expired. Please sign in again."
)

// State is the lifecycle phase of a Manager.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRefreshing     State = "refreshing"
	StateExpired        State = "expired"
)

// Transition is published to subscribers on every state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

// API is the backend surface needed to authenticate.
type API interface {
	identity.LoginAPI
	identity.LinkAPI
}

// ProviderRefresher renews OAuth provider tokens during Refresh.
type ProviderRefresher interface {
	RefreshProviderToken(ctx context.Context, refreshToken string) (identity.ProviderToken, error)
}

// Manager owns the session of one viewer. It is the only writer of that
// session and persists it through a sessions.Store. Store writes happen under
// mu together with the state change they belong to, so a persisted session
// never outlives the state that produced it. Stores must not block.
type Manager struct {
	store        sessions.Store
	api          API
	refresher    ProviderRefresher
	nowTime      func() time.Time
	refreshAfter time.Duration
	maxLifetime  time.Duration

	mu      sync.Mutex
	state   State
	session *sessions.Session

	subMu       sync.RWMutex
	subscribers map[int]func(Transition)
	nextSubID   int

	flights singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithRefreshAfter sets how long after issue a session is re-issued.
func WithRefreshAfter(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshAfter = d
	}
}

// WithMaxLifetime sets the absolute lifetime of a session.
func WithMaxLifetime(d time.Duration) Option {
	return func(m *Manager) {
		m.maxLifetime = d
	}
}

// WithProviderRefresher enables provider token renewal for OAuth sessions.
func WithProviderRefresher(r ProviderRefresher) Option {
	return func(m *Manager) {
		m.refresher = r
	}
}

func New(store sessions.Store, api API, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[auth New] store is required")
	}
	if api == nil {
		return nil, apperrors.Wrapf(apperrors.ErrInternal, "[auth New] api is required")
	}

	m := &Manager{
		store:        store,
		api:          api,
		nowTime:      time.Now,
		refreshAfter: defaultRefreshAfter,
		maxLifetime:  defaultMaxLifetime,
		state:        StateAnonymous,
		subscribers:  make(map[int]func(Transition)),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers fn for state transitions. The returned func removes it.
func (m *Manager) Subscribe(fn func(Transition)) func() {
	m.subMu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subscribers, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) AuthenticateWithCredentials(ctx context.Context, email, password string) (sessions.Session, error) {
	return m.Authenticate(ctx, identity.NewCredentialExchange(m.api, email, password, identity.WithNowTime(m.nowTime)))
}

func (m *Manager) AuthenticateWithOAuthAssertion(ctx context.Context, assertion identity.ProviderIdentity) (sessions.Session, error) {
	return m.Authenticate(ctx, identity.NewOAuthExchange(m.api, assertion, identity.WithNowTime(m.nowTime)))
}

// Authenticate runs ex and installs the resulting session. Concurrent calls
// share the first call's outcome; only one exchange reaches the backend.
// An existing session is signed out first.
//
// The shared exchange runs with the first caller's context values (and so
// persists through that caller's store binding) but not its cancellation.
func (m *Manager) Authenticate(ctx context.Context, ex identity.IdentityExchange) (sessions.Session, error) {
	shared := context.WithoutCancel(ctx)
	v, err, joined := m.flights.Do("authenticate", func() (any, error) {
		return m.authenticate(shared, ex)
	})
	if joined {
		log.Debug().Str("kind", string(ex.Kind())).Msg("joined in-flight authentication")
	}
	if err != nil {
		return sessions.Session{}, err
	}
	return v.(sessions.Session), nil
}

func (m *Manager) authenticate(ctx context.Context, ex identity.IdentityExchange) (sessions.Session, error) {
	m.mu.Lock()
	var ts []Transition
	if m.state != StateAnonymous {
		m.session = nil
		ts = append(ts, m.setState(StateAnonymous))
		m.clearLocked(ctx, "failed to clear previous session")
	}
	ts = append(ts, m.setState(StateAuthenticating))
	m.mu.Unlock()
	m.notify(ts...)

	s, err := ex.Exchange(ctx)

	m.mu.Lock()
	if m.state != StateAuthenticating {
		// Signed out while the exchange was in flight.
		m.mu.Unlock()
		if err == nil {
			err = apperrors.Wrapf(apperrors.ErrUnauthenticated, "signed out during authentication")
		}
		return sessions.Session{}, apperrors.Wrapf(err, "[Manager Authenticate] %s exchange", ex.Kind())
	}
	if err == nil {
		err = apperrors.Wrapf(m.store.Save(ctx, s), "[Manager Authenticate] save session")
	}
	if err != nil {
		m.session = nil
		t := m.setState(StateAnonymous)
		m.clearLocked(ctx, "failed to clear session after authentication failure")
		m.mu.Unlock()
		m.notify(t)
		return sessions.Session{}, apperrors.Wrapf(err, "[Manager Authenticate] %s exchange", ex.Kind())
	}
	m.session = &s
	t := m.setState(StateAuthenticated)
	m.mu.Unlock()
	m.notify(t)

	log.Info().Str("subject", s.SubjectID).Str("provider", string(s.Provider)).Msg("authenticated")
	return s, nil
}

// CurrentSession returns the session without any network call. A session
// past its maximum lifetime is expired and reported absent.
func (m *Manager) CurrentSession(ctx context.Context) (sessions.Session, bool) {
	m.mu.Lock()
	if m.session == nil || m.state == StateAuthenticating {
		m.mu.Unlock()
		return sessions.Session{}, false
	}
	if m.session.Expired(m.nowTime(), m.maxLifetime) {
		state := m.state
		m.mu.Unlock()
		m.expire(ctx, state)
		return sessions.Session{}, false
	}
	s := *m.session
	m.mu.Unlock()
	return s, true
}

// Restore installs a previously persisted session into an anonymous manager.
func (m *Manager) Restore(ctx context.Context, s sessions.Session) error {
	s, err := sessions.New(s)
	if err != nil {
		return apperrors.Wrapf(err, "[Manager Restore]")
	}
	if s.Expired(m.nowTime(), m.maxLifetime) {
		return apperrors.Wrapf(apperrors.ErrSessionExpired, "[Manager Restore] subject %s", s.SubjectID)
	}

	m.mu.Lock()
	if m.state != StateAnonymous {
		state := m.state
		m.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrInvalidSession, "[Manager Restore] manager is %s", state)
	}
	m.session = &s
	t := m.setState(StateAuthenticated)
	m.mu.Unlock()
	m.notify(t)
	return nil
}

// RefreshIfDue refreshes the session once it is older than the refresh cadence.
func (m *Manager) RefreshIfDue(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated || m.session == nil {
		m.mu.Unlock()
		return nil
	}
	now := m.nowTime()
	if m.session.Expired(now, m.maxLifetime) {
		m.mu.Unlock()
		m.expire(ctx, StateAuthenticated)
		return apperrors.WithMessage(apperrors.ErrSessionExpired, expiredMessage, nil)
	}
	due := m.session.NeedsRefresh(now, m.refreshAfter)
	m.mu.Unlock()

	if !due {
		return nil
	}
	return m.Refresh(ctx)
}

// Refresh re-issues the session. OAuth provider tokens are renewed once when a
// refresher is configured. Any failure expires the session; there is no retry.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.flights.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated || m.session == nil {
		m.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrUnauthenticated, "[Manager Refresh]")
	}
	current := *m.session
	t := m.setState(StateRefreshing)
	m.mu.Unlock()
	m.notify(t)

	now := m.nowTime()
	if current.Expired(now, m.maxLifetime) {
		m.expire(ctx, StateRefreshing)
		return apperrors.WithMessage(apperrors.ErrSessionExpired, expiredMessage, nil)
	}

	if m.refresher != nil && current.Provider != sessions.ProviderCredentials && current.ProviderRefreshToken != "" {
		tok, err := m.refresher.RefreshProviderToken(ctx, current.ProviderRefreshToken)
		if err != nil {
			log.Err(err).Str("subject", current.SubjectID).Msg("provider token refresh failed")
			m.expire(ctx, StateRefreshing)
			return apperrors.WithMessage(apperrors.ErrSessionExpired, expiredMessage, err)
		}
		current.ProviderAccessToken = tok.AccessToken
		current.ProviderRefreshToken = tok.RefreshToken
		current.ProviderTokenExpiry = tok.Expiry
	}
	current.IssuedAt = now

	m.mu.Lock()
	if m.state != StateRefreshing {
		m.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrInvalidSession, "[Manager Refresh] session replaced during refresh")
	}
	if err := m.store.Save(ctx, current); err != nil {
		m.mu.Unlock()
		log.Err(err).Str("subject", current.SubjectID).Msg("failed to persist refreshed session")
		m.expire(ctx, StateRefreshing)
		return apperrors.WithMessage(apperrors.ErrSessionExpired, expiredMessage, err)
	}
	m.session = &current
	t = m.setState(StateAuthenticated)
	m.mu.Unlock()
	m.notify(t)
	return nil
}

// SignOut drops the session and clears the store. It is safe to call when
// already signed out.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	m.session = nil
	var ts []Transition
	if m.state != StateAnonymous {
		ts = append(ts, m.setState(StateAnonymous))
	}
	err := m.store.Clear(ctx)
	m.mu.Unlock()
	m.notify(ts...)

	return apperrors.Wrapf(err, "[Manager SignOut]")
}

// expire moves through Expired to Anonymous, provided the manager is still in
// the expected state.
func (m *Manager) expire(ctx context.Context, from State) {
	m.mu.Lock()
	if m.state != from {
		m.mu.Unlock()
		return
	}
	m.session = nil
	ts := []Transition{m.setState(StateExpired), m.setState(StateAnonymous)}
	m.clearLocked(ctx, "failed to clear expired session")
	m.mu.Unlock()
	m.notify(ts...)
}

// clearLocked must be called with mu held.
func (m *Manager) clearLocked(ctx context.Context, msg string) {
	if err := m.store.Clear(ctx); err != nil {
		log.Err(err).Msg(msg)
	}
}

// setState must be called with mu held.
func (m *Manager) setState(to State) Transition {
	t := Transition{From: m.state, To: to, At: m.nowTime()}
	m.state = to
	return t
}

func (m *Manager) notify(ts ...Transition) {
	if len(ts) == 0 {
		return
	}
	m.subMu.RLock()
	subs := make([]func(Transition), 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subs = append(subs, fn)
	}
	m.subMu.RUnlock()

	for _, t := range ts {
		log.Debug().Str("from", string(t.From)).Str("to", string(t.To)).Msg("auth state transition")
		for _, fn := range subs {
			fn(t)
		}
	}
}

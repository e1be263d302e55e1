package authflowrepo

import (
	"errors"
	"sync"
	"time"
)

const defaultTTL = 10 * time.Minute

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface.
// States older than the TTL are treated as missing and swept on write.
type InMemoryRepo struct {
	mu      sync.RWMutex
	states  map[string]*AuthFlowState
	ttl     time.Duration
	nowTime func() time.Time
}

type Option func(*InMemoryRepo)

// WithTTL sets how long a state stays redeemable.
func WithTTL(ttl time.Duration) Option {
	return func(r *InMemoryRepo) {
		r.ttl = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.nowTime = nowFunc
	}
}

func NewInMemoryRepo(options ...Option) *InMemoryRepo {
	r := &InMemoryRepo{
		states:  make(map[string]*AuthFlowState),
		ttl:     defaultTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked()
	stored := *authState
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.nowTime()
	}
	r.states[state] = &stored
	return nil
}

func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, exists := r.states[state]
	if !exists || r.expired(authState) {
		return nil, ErrStateNotFound
	}
	out := *authState
	return &out, nil
}

func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) Take(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	delete(r.states, state)
	if !exists || r.expired(authState) {
		return nil, ErrStateNotFound
	}
	out := *authState
	return &out, nil
}

func (r *InMemoryRepo) expired(s *AuthFlowState) bool {
	return r.nowTime().Sub(s.CreatedAt) > r.ttl
}

func (r *InMemoryRepo) sweepLocked() {
	for key, s := range r.states {
		if r.expired(s) {
			delete(r.states, key)
		}
	}
}

package viewers

import (
	"fmt"
	"sync"
	"time"
)

const (
	defaultIdleTTL = 24 * time.Hour
	gcThreshold    = 1000
)

type entry struct {
	viewer   *Viewer
	lastSeen time.Time
}

// InMemoryRepo keeps viewers in process. Once it holds gcThreshold viewers,
// those idle for longer than the idle TTL are dropped on the next write.
type InMemoryRepo struct {
	mu      sync.RWMutex
	viewers map[string]*entry
	idleTTL time.Duration
	nowTime func() time.Time
}

type Option func(*InMemoryRepo)

// WithIdleTTL sets how long an unused viewer is kept once the repo is large.
func WithIdleTTL(ttl time.Duration) Option {
	return func(r *InMemoryRepo) {
		r.idleTTL = ttl
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
		viewers: make(map[string]*entry),
		idleTTL: defaultIdleTTL,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *InMemoryRepo) GetOrCreate(id string, create Factory) (*Viewer, bool, error) {
	if id == "" {
		return nil, false, fmt.Errorf("viewer id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowTime()
	if e, ok := r.viewers[id]; ok {
		e.lastSeen = now
		return e.viewer, false, nil
	}

	v, err := create(id)
	if err != nil {
		return nil, false, fmt.Errorf("[viewers GetOrCreate] %s: %w", id, err)
	}
	r.viewers[id] = &entry{viewer: v, lastSeen: now}
	r.gcLocked(now)
	return v, true, nil
}

func (r *InMemoryRepo) Get(id string) (*Viewer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.viewers[id]
	if !ok {
		return nil, ErrViewerNotFound
	}
	return e.viewer, nil
}

func (r *InMemoryRepo) Delete(id string) error {
	if id == "" {
		return fmt.Errorf("viewer id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.viewers, id)
	return nil
}

// Len reports how many viewers are held.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.viewers)
}

func (r *InMemoryRepo) gcLocked(now time.Time) {
	if len(r.viewers) < gcThreshold {
		return
	}

	cutoff := now.Add(-r.idleTTL)
	for id, e := range r.viewers {
		if e.lastSeen.Before(cutoff) {
			delete(r.viewers, id)
		}
	}
}

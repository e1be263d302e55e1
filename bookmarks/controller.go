package bookmarks

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-job-board/backend"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/rs/zerolog/log"
)

const (
	msgLoginRequired  = "Please login to bookmark jobs"
	msgBookmarked     = "Bookmarked!"
	msgRemoved        = "Removed bookmark"
	msgAlreadyAdded   = "Already bookmarked"
	msgAlreadyRemoved = "Bookmark already removed"
	msgNetworkError   = "Network error - please try again"
)

// Phase is where a job's bookmark toggle is in its lifecycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhasePending    Phase = "pending"
	PhaseCommitted  Phase = "committed"
	PhaseRolledBack Phase = "rolled_back"
)

// State is the bookmark state of one job as displayed to the viewer.
type State struct {
	JobID      string `json:"jobId"`
	Bookmarked bool   `json:"isBookmarked"`
	Pending    bool   `json:"pending"`
	Phase      Phase  `json:"phase"`
}

// Mutator performs bookmark changes against the backend.
type Mutator interface {
	AddBookmark(ctx context.Context, token, jobID string) error
	RemoveBookmark(ctx context.Context, token, jobID string) error
}

// ConflictResolver reports the authoritative bookmark value after a conflict.
type ConflictResolver func(ctx context.Context, token, jobID string) (bool, error)

// Controller applies optimistic bookmark toggles for one viewer. At most one
// mutation per job is in flight.
type Controller struct {
	mutator  Mutator
	notifier Notifier
	resolver ConflictResolver
	observer func(State)

	mu     sync.Mutex
	states map[string]*State
}

// Option configures a Controller.
type Option func(*Controller)

// WithConflictResolver sets how the settled value is chosen after a 409.
// Without one the requested value is kept.
func WithConflictResolver(r ConflictResolver) Option {
	return func(c *Controller) {
		c.resolver = r
	}
}

// WithObserver sets a callback for every visible state change.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

func New(mutator Mutator, notifier Notifier, options ...Option) *Controller {
	c := &Controller{
		mutator:  mutator,
		notifier: notifier,
		states:   make(map[string]*State),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Track seeds a job's state from listing data. A pending job is left alone.
func (c *Controller) Track(jobID string, bookmarked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[jobID]; ok {
		if st.Pending {
			return
		}
		st.Bookmarked = bookmarked
		st.Phase = PhaseIdle
		return
	}
	c.states[jobID] = &State{JobID: jobID, Bookmarked: bookmarked, Phase: PhaseIdle}
}

func (c *Controller) State(jobID string) (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[jobID]
	if !ok {
		return State{JobID: jobID, Phase: PhaseIdle}, false
	}
	return *st, true
}

// Forget drops a job's state unless a toggle for it is in flight.
func (c *Controller) Forget(jobID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[jobID]; ok && st.Pending {
		return
	}
	delete(c.states, jobID)
}

// Reset forgets every job that is not pending.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, st := range c.states {
		if !st.Pending {
			delete(c.states, id)
		}
	}
}

// Toggle flips the bookmark on jobID optimistically and settles it from the
// backend's answer. It never leaves the job pending.
func (c *Controller) Toggle(ctx context.Context, jobID string, s *sessions.Session) (State, error) {
	if s == nil || s.AccessToken == "" {
		c.notify(Notice{Level: LevelInfo, Message: msgLoginRequired, JobID: jobID})
		st, _ := c.State(jobID)
		return st, apperrors.WithMessage(apperrors.ErrUnauthenticated, msgLoginRequired, nil)
	}

	c.mu.Lock()
	st, ok := c.states[jobID]
	if !ok {
		st = &State{JobID: jobID, Phase: PhaseIdle}
		c.states[jobID] = st
	}
	if st.Pending {
		snapshot := *st
		c.mu.Unlock()
		return snapshot, apperrors.Wrapf(apperrors.ErrToggleInFlight, "[Controller Toggle] job %s", jobID)
	}
	prior := st.Bookmarked
	target := !prior
	st.Bookmarked = target
	st.Pending = true
	st.Phase = PhasePending
	snapshot := *st
	c.mu.Unlock()
	c.observe(snapshot)

	var err error
	if target {
		err = c.mutator.AddBookmark(ctx, s.AccessToken, jobID)
	} else {
		err = c.mutator.RemoveBookmark(ctx, s.AccessToken, jobID)
	}

	switch {
	case err == nil:
		msg := msgRemoved
		if target {
			msg = msgBookmarked
		}
		snapshot = c.settle(st, target, PhaseCommitted)
		c.notify(Notice{Level: LevelSuccess, Message: msg, JobID: jobID})
		return snapshot, nil

	case backend.IsStatus(err, http.StatusConflict):
		value := target
		if c.resolver != nil {
			if authoritative, rerr := c.resolver(ctx, s.AccessToken, jobID); rerr != nil {
				log.Err(rerr).Str("job", jobID).Msg("failed to resolve bookmark conflict")
			} else {
				value = authoritative
			}
		}
		msg, ok := backend.Message(err)
		if !ok {
			msg = msgAlreadyAdded
			if !target {
				msg = msgAlreadyRemoved
			}
		}
		snapshot = c.settle(st, value, PhaseCommitted)
		c.notify(Notice{Level: LevelWarning, Message: msg, JobID: jobID})
		return snapshot, apperrors.WithMessage(apperrors.ErrConflict, msg, err)

	default:
		msg := failureMessage(err)
		log.Err(err).Str("job", jobID).Bool("target", target).Msg("bookmark toggle failed")
		snapshot = c.settle(st, prior, PhaseRolledBack)
		c.notify(Notice{Level: LevelError, Message: msg, JobID: jobID})
		return snapshot, apperrors.WithMessage(apperrors.ErrRequestFailed, msg, err)
	}
}

func (c *Controller) settle(st *State, bookmarked bool, phase Phase) State {
	c.mu.Lock()
	st.Bookmarked = bookmarked
	st.Pending = false
	st.Phase = phase
	snapshot := *st
	c.mu.Unlock()
	c.observe(snapshot)
	return snapshot
}

func (c *Controller) observe(st State) {
	if c.observer != nil {
		c.observer(st)
	}
}

func (c *Controller) notify(n Notice) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

func failureMessage(err error) string {
	if msg, ok := backend.Message(err); ok {
		return msg
	}
	var httpErr *backend.HTTPError
	if apperrors.As(err, &httpErr) {
		return fmt.Sprintf("HTTP %d", httpErr.StatusCode)
	}
	return msgNetworkError
}

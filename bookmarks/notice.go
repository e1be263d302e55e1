package bookmarks

import "sync"

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-visible message about a bookmark toggle.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	JobID   string `json:"jobId,omitempty"`
}

// Notifier receives notices raised by a Controller.
type Notifier interface {
	Notify(Notice)
}

// Recorder is a Notifier that keeps notices until they are drained.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

var _ Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of the pending notices.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Drain returns the pending notices and forgets them.
func (r *Recorder) Drain() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notices
	r.notices = nil
	return out
}

package jobs

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Status is the lifecycle of a board load.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const defaultLoadError = "Failed to fetch jobs"

// Source provides job data. The backend client implements it.
type Source interface {
	SearchOpportunities(ctx context.Context, token string) ([]JobSummary, error)
	GetOpportunity(ctx context.Context, token, id string) (*JobSummary, error)
}

// Snapshot is a consistent copy of the board state.
type Snapshot struct {
	Status Status
	Jobs   []JobSummary
	Error  string
}

// Board holds the job listing state for one view.
type Board struct {
	mu    sync.RWMutex
	state Snapshot
}

func NewBoard() *Board {
	return &Board{state: Snapshot{Status: StatusIdle, Jobs: []JobSummary{}}}
}

// Load fetches the listing and moves the board through loading to either
// succeeded or failed. The previous job list is kept while loading.
func (b *Board) Load(ctx context.Context, src Source, token string) Snapshot {
	b.mu.Lock()
	b.state.Status = StatusLoading
	b.mu.Unlock()

	list, err := src.SearchOpportunities(ctx, token)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		log.Debug().Err(err).Msg("job board load failed")
		b.state.Status = StatusFailed
		b.state.Error = err.Error()
		if b.state.Error == "" {
			b.state.Error = defaultLoadError
		}
		return b.snapshotLocked()
	}
	if list == nil {
		list = []JobSummary{}
	}
	b.state = Snapshot{Status: StatusSucceeded, Jobs: list}
	return b.snapshotLocked()
}

func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Board) snapshotLocked() Snapshot {
	jobs := make([]JobSummary, len(b.state.Jobs))
	copy(jobs, b.state.Jobs)
	return Snapshot{Status: b.state.Status, Jobs: jobs, Error: b.state.Error}
}

package viewers

import (
	"errors"

	"github.com/jrsteele09/go-job-board/auth"
	"github.com/jrsteele09/go-job-board/bookmarks"
)

var ErrViewerNotFound = errors.New("viewer not found")

// Viewer is the server-side state of one browser: its session manager, its
// bookmark controller and the notices waiting to be shown.
type Viewer struct {
	ID        string
	Auth      *auth.Manager
	Bookmarks *bookmarks.Controller
	Notices   *bookmarks.Recorder
}

// Factory builds the Viewer for a new id.
type Factory func(id string) (*Viewer, error)

type Repo interface {
	// GetOrCreate returns the viewer for id, building it with create when it
	// is unknown. created reports whether create ran.
	GetOrCreate(id string, create Factory) (v *Viewer, created bool, err error)
	Get(id string) (*Viewer, error)
	Delete(id string) error
}

package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-job-board/bookmarks"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
	"github.com/jrsteele09/go-job-board/server/viewers"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/rs/zerolog/log"
)

type viewerKey struct{}

// ViewerMiddleware identifies the browser from its session cookie, attaches
// its Viewer and binds the cookie store to the request. A session persisted
// in the cookie is restored when the server has no state for the viewer, and
// sessions due for refresh are refreshed here.
func (s *Server) ViewerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		viewerID, persisted, err := s.cookies.Load(r)
		fresh := err != nil
		if fresh {
			if !apperrors.Is(err, apperrors.ErrSessionNotFound) {
				log.Debug().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("discarding session cookie")
			}
			viewerID = uuid.NewString()
			persisted = nil
		}

		v, created, err := s.viewers.GetOrCreate(viewerID, s.newViewer)
		if err != nil {
			log.Err(err).Msg("failed to create viewer")
			http.Error(w, "Unexpected server error", http.StatusInternalServerError)
			return
		}

		ctx := sessions.WithHTTP(r.Context(), w, r, viewerID)
		if fresh {
			if err := s.cookies.WriteAnonymous(w, r, viewerID); err != nil {
				log.Err(err).Msg("failed to write viewer cookie")
			}
		}
		if created && persisted != nil {
			if err := v.Auth.Restore(ctx, *persisted); err != nil {
				log.Debug().Err(err).Str("viewer", viewerID).Msg("could not restore session")
			}
		}
		if err := v.Auth.RefreshIfDue(ctx); err != nil {
			log.Err(err).Str("viewer", viewerID).Msg("session refresh failed")
			v.Notices.Notify(bookmarks.Notice{
				Level:   bookmarks.LevelWarning,
				Message: apperrors.UserMessage(err, "Your session has expired. Please sign in again."),
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, viewerKey{}, v)))
	})
}

func viewerFrom(ctx context.Context) *viewers.Viewer {
	v, _ := ctx.Value(viewerKey{}).(*viewers.Viewer)
	return v
}

// currentSession returns the viewer's session, or nil when signed out.
func currentSession(ctx context.Context, v *viewers.Viewer) *sessions.Session {
	s, ok := v.Auth.CurrentSession(ctx)
	if !ok {
		return nil
	}
	return &s
}

package server

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-job-board/bookmarks"
	apperrors "github.com/jrsteele09/go-job-board/internal/errors"
)

type toggleResponse struct {
	JobID        string            `json:"jobId"`
	IsBookmarked bool              `json:"isBookmarked"`
	Pending      bool              `json:"pending"`
	Phase        bookmarks.Phase   `json:"phase"`
	Notice       *bookmarks.Notice `json:"notice,omitempty"`
}

// BookmarkToggleHandler flips the viewer's bookmark on a job
// (POST /bookmarks/{jobID}/toggle). JSON callers get the settled state and the
// notice; form posts are redirected back and see the notice on the next page.
func (s *Server) BookmarkToggleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		jobID := chi.URLParam(r, "jobID")

		st, err := v.Bookmarks.Toggle(r.Context(), jobID, currentSession(r.Context(), v))

		if !wantsJSON(r) {
			if apperrors.Is(err, apperrors.ErrUnauthenticated) {
				http.Redirect(w, r, RouteSignIn+"?callbackUrl="+url.QueryEscape(safeReturnURL(r.FormValue("return"))), http.StatusSeeOther)
				return
			}
			http.Redirect(w, r, safeReturnURL(r.FormValue("return")), http.StatusSeeOther)
			return
		}

		resp := toggleResponse{JobID: st.JobID, IsBookmarked: st.Bookmarked, Pending: st.Pending, Phase: st.Phase}
		if notices := v.Notices.Drain(); len(notices) > 0 {
			last := notices[len(notices)-1]
			resp.Notice = &last
		}

		status := http.StatusOK
		switch {
		case apperrors.Is(err, apperrors.ErrUnauthenticated):
			status = http.StatusUnauthorized
		case apperrors.Is(err, apperrors.ErrRequestFailed):
			status = http.StatusBadGateway
		}
		writeJSON(w, status, resp)
	}
}

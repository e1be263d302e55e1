package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-job-board/backend"
	"github.com/jrsteele09/go-job-board/jobs"
	"github.com/jrsteele09/go-job-board/server/viewers"
	"github.com/rs/zerolog/log"
)

type jobCard struct {
	jobs.JobSummary
	Bookmarked bool
	Pending    bool
}

type listingPage struct {
	basePage
	Status jobs.Status
	Jobs   []jobCard
}

type detailPage struct {
	basePage
	Job jobCard
}

type notFoundPage struct {
	basePage
	Message string
}

// card merges listing data with the viewer's bookmark state. A job with a
// toggle in flight keeps its optimistic value.
func card(v *viewers.Viewer, job jobs.JobSummary) jobCard {
	v.Bookmarks.Track(job.ID, job.IsBookmarked)
	st, _ := v.Bookmarks.State(job.ID)
	return jobCard{JobSummary: job, Bookmarked: st.Bookmarked, Pending: st.Pending}
}

// IndexHandler renders the job listing (GET /)
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("jobs.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		var token string
		if sess := currentSession(r.Context(), v); sess != nil {
			token = sess.AccessToken
		}

		snap := jobs.NewBoard().Load(r.Context(), s.backend, token)
		page := listingPage{basePage: s.newBasePage(r, v, "Opportunities"), Status: snap.Status}
		if snap.Status == jobs.StatusFailed {
			page.Error = snap.Error
		}
		for _, job := range snap.Jobs {
			page.Jobs = append(page.Jobs, card(v, job))
		}

		status := http.StatusOK
		if snap.Status == jobs.StatusFailed {
			status = http.StatusBadGateway
		}
		renderPage(w, tmpl, status, page)
	}
}

// JobDetailHandler renders one job (GET /jobs/{id})
func (s *Server) JobDetailHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("job_detail.html")
	notFound := mustParseTemplate("not_found.html")

	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		id := chi.URLParam(r, "id")
		var token string
		if sess := currentSession(r.Context(), v); sess != nil {
			token = sess.AccessToken
		}

		job, err := s.backend.GetOpportunity(r.Context(), token, id)
		if err != nil {
			if backend.IsStatus(err, http.StatusNotFound) {
				v.Bookmarks.Forget(id)
				renderPage(w, notFound, http.StatusNotFound, notFoundPage{
					basePage: s.newBasePage(r, v, "Not found"),
					Message:  "This opportunity does not exist or is no longer available.",
				})
				return
			}
			log.Err(err).Str("job", id).Msg("Failed to load opportunity")
			page := notFoundPage{basePage: s.newBasePage(r, v, "Error"), Message: "We could not load this opportunity."}
			page.Error = err.Error()
			renderPage(w, notFound, http.StatusBadGateway, page)
			return
		}

		renderPage(w, tmpl, http.StatusOK, detailPage{
			basePage: s.newBasePage(r, v, job.Title),
			Job:      card(v, *job),
		})
	}
}

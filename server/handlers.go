package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-job-board/bookmarks"
	"github.com/jrsteele09/go-job-board/server/viewers"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/rs/zerolog/log"
)

// viewerView is what templates may know about the signed-in user.
type viewerView struct {
	Authenticated bool
	Name          string
	Email         string
	Role          string
}

// basePage carries the fields every page shares with the layout.
type basePage struct {
	AppName string
	Title   string
	Viewer  viewerView
	Notices []bookmarks.Notice
	Error   string
}

func (s *Server) newBasePage(r *http.Request, v *viewers.Viewer, title string) basePage {
	page := basePage{AppName: s.config.GetAppName(), Title: title}
	if sess := currentSession(r.Context(), v); sess != nil {
		page.Viewer = viewerView{
			Authenticated: true,
			Name:          sess.DisplayName,
			Email:         sess.Email,
			Role:          string(sess.Role),
		}
	}
	page.Notices = v.Notices.Drain()
	return page
}

// HealthHandler answers liveness probes.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type sessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *sessionUser `json:"user,omitempty"`
	Provider      string       `json:"provider,omitempty"`
	Expires       string       `json:"expires,omitempty"`
}

// SessionHandler reports the current session without any credentials.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := viewerFrom(r.Context())
		resp := sessionResponse{}
		if sess := currentSession(r.Context(), v); sess != nil {
			resp = s.sessionResponse(*sess)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) sessionResponse(sess sessions.Session) sessionResponse {
	return sessionResponse{
		Authenticated: true,
		User: &sessionUser{
			ID:    sess.SubjectID,
			Name:  sess.DisplayName,
			Email: sess.Email,
			Role:  string(sess.Role),
		},
		Provider: string(sess.Provider),
		Expires:  sess.ExpiresAt(s.config.GetMaxSessionAge()).UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

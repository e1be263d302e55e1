package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/jrsteele09/go-job-board/auth"
	"github.com/jrsteele09/go-job-board/bookmarks"
	"github.com/jrsteele09/go-job-board/identity"
	"github.com/jrsteele09/go-job-board/internal/config"
	"github.com/jrsteele09/go-job-board/jobs"
	"github.com/jrsteele09/go-job-board/server/authflowrepo"
	"github.com/jrsteele09/go-job-board/server/viewers"
	"github.com/jrsteele09/go-job-board/sessions"
)

// Backend is everything the server asks of akil-backend.
type Backend interface {
	auth.API
	identity.RegistrationAPI
	bookmarks.Mutator
	jobs.Source
}

// Deps are the collaborators of a Server. Google and Refresher are optional;
// without Google the OAuth routes answer 404.
type Deps struct {
	Backend   Backend
	Google    identity.OAuthProvider
	Refresher auth.ProviderRefresher
	Viewers   viewers.Repo
	AuthFlows authflowrepo.Repo
}

type Server struct {
	env          string
	router       *chi.Mux
	routes       []string
	config       config.Config
	backend      Backend
	google       identity.OAuthProvider
	refresher    auth.ProviderRefresher
	registration *identity.Registration
	cookies      *sessions.CookieStore
	viewers      viewers.Repo
	authFlows    authflowrepo.Repo
	limiter      *RateLimiter
}

func New(cfg config.Config, deps Deps) (*Server, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("[Server New] backend is required")
	}

	codec, err := sessions.NewCodec(cfg.GetSessionSecret(), cfg.GetMaxSessionAge())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session codec: %w", err)
	}

	s := &Server{
		env:          cfg.GetEnv(),
		router:       chi.NewRouter(),
		config:       cfg,
		backend:      deps.Backend,
		google:       deps.Google,
		refresher:    deps.Refresher,
		registration: identity.NewRegistration(deps.Backend),
		cookies:      sessions.NewCookieStore(codec, cfg.GetSessionCookieName()),
		viewers:      deps.Viewers,
		authFlows:    deps.AuthFlows,
		limiter:      NewRateLimiter(cfg.GetAuthRateLimitRPM(), cfg.TrustProxyHeaders()),
	}
	if s.viewers == nil {
		s.viewers = viewers.NewInMemoryRepo(viewers.WithIdleTTL(cfg.GetMaxSessionAge()))
	}
	if s.authFlows == nil {
		s.authFlows = authflowrepo.NewInMemoryRepo()
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(method, pattern string, handler http.Handler, mw ...func(http.Handler) http.Handler) {
	s.routes = append(s.routes, method+" "+pattern)
	s.router.With(mw...).Method(method, pattern, handler)
}

func (s *Server) RegisterRouteFunc(method, pattern string, handler http.HandlerFunc, mw ...func(http.Handler) http.Handler) {
	s.RegisterRouteHandler(method, pattern, handler, mw...)
}

// newViewer wires the per-browser session manager and bookmark controller.
func (s *Server) newViewer(id string) (*viewers.Viewer, error) {
	options := []auth.Option{
		auth.WithRefreshAfter(s.config.GetRefreshAfter()),
		auth.WithMaxLifetime(s.config.GetMaxSessionAge()),
	}
	if s.refresher != nil {
		options = append(options, auth.WithProviderRefresher(s.refresher))
	}
	manager, err := auth.New(s.cookies, s.backend, options...)
	if err != nil {
		return nil, err
	}

	notices := bookmarks.NewRecorder()
	controller := bookmarks.New(s.backend, notices, bookmarks.WithConflictResolver(s.resolveBookmark))

	// Bookmark state belongs to the signed-in user.
	manager.Subscribe(func(t auth.Transition) {
		if t.To == auth.StateAnonymous {
			controller.Reset()
		}
	})

	return &viewers.Viewer{ID: id, Auth: manager, Bookmarks: controller, Notices: notices}, nil
}

func (s *Server) resolveBookmark(ctx context.Context, token, jobID string) (bool, error) {
	job, err := s.backend.GetOpportunity(ctx, token, jobID)
	if err != nil {
		return false, err
	}
	return job.IsBookmarked, nil
}

// safeReturnURL accepts only local absolute paths.
func safeReturnURL(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "/"
	}
	return raw
}

package server

import "net/http"

func (s *Server) initRoutes() {
	s.router.Use(s.StdMiddleware()...)

	s.RegisterRouteFunc(http.MethodGet, RouteHealth, s.HealthHandler())
	s.RegisterRouteFunc(http.MethodGet, RouteStaticCSS, s.serveFileHandler())
	s.RegisterRouteFunc(http.MethodGet, RouteStaticJS, s.serveFileHandler())

	// JOB BOARD
	s.RegisterRouteFunc(http.MethodGet, RouteIndex, s.IndexHandler(), s.PageMiddleware()...)
	s.RegisterRouteFunc(http.MethodGet, RouteJobDetail, s.JobDetailHandler(), s.PageMiddleware()...)
	s.RegisterRouteFunc(http.MethodPost, RouteBookmarkToggle, s.BookmarkToggleHandler(), s.PageMiddleware()...)

	// SIGN IN / OUT
	s.RegisterRouteFunc(http.MethodGet, RouteSignIn, s.SignInPageHandler(), s.PageMiddleware()...)
	s.RegisterRouteFunc(http.MethodPost, RouteSignIn, s.SignInHandler(), s.PageMiddleware(s.limiter.Handler)...)
	s.RegisterRouteFunc(http.MethodPost, RouteSignOut, s.SignOutHandler(), s.PageMiddleware()...)

	// REGISTRATION
	s.RegisterRouteFunc(http.MethodGet, RouteSignup, s.SignupPageHandler(), s.PageMiddleware()...)
	s.RegisterRouteFunc(http.MethodPost, RouteSignup, s.SignupHandler(), s.PageMiddleware(s.limiter.Handler)...)
	s.RegisterRouteFunc(http.MethodGet, RouteVerifyEmail, s.VerifyEmailPageHandler(), s.PageMiddleware()...)
	s.RegisterRouteFunc(http.MethodPost, RouteVerifyEmail, s.VerifyEmailHandler(), s.PageMiddleware(s.limiter.Handler)...)

	// GOOGLE
	s.RegisterRouteFunc(http.MethodGet, RouteGoogleStart, s.GoogleStartHandler(), s.PageMiddleware()...)
	s.RegisterRouteFunc(http.MethodGet, RouteGoogleCallback, s.GoogleCallbackHandler(), s.PageMiddleware()...)

	// API
	s.RegisterRouteFunc(http.MethodGet, RouteAPISession, s.SessionHandler(), s.PageMiddleware()...)
}

package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Job board
	RouteIndex     = "/"
	RouteJobDetail = "/jobs/{id}"

	// Auth Routes - Credentials
	RouteSignIn  = "/auth/signin"
	RouteSignOut = "/auth/signout"

	// Auth Routes - Registration
	RouteSignup      = "/auth/signup"
	RouteVerifyEmail = "/auth/verify-email"

	// Auth Routes - Google
	RouteGoogleStart    = "/auth/google"
	RouteGoogleCallback = "/auth/callback/google"

	// API Routes
	RouteAPISession     = "/api/auth/session"
	RouteBookmarkToggle = "/bookmarks/{jobID}/toggle"
	RouteHealth         = "/health"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)

package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-job-board/backend"
	"github.com/jrsteele09/go-job-board/identity"
	"github.com/jrsteele09/go-job-board/internal/config"
	"github.com/jrsteele09/go-job-board/server"
	"github.com/jrsteele09/go-job-board/sessions"
	"github.com/stretchr/testify/require"
)

// akil stands in for akil-backend.
type akil struct {
	mu            sync.Mutex
	bookmarkCalls int
	bearer        string
}

func (a *akil) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req backend.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"message":"Invalid email or password"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"u1","accessToken":"tok","role":"user"}}`)
	})
	mux.HandleFunc("POST /google-auth", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"id":"u9","role":"user","accessToken":"app-tok"}`)
	})
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, r *http.Request) {
		var req backend.SignupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Email == "taken@b.com" {
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"User already exists"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("POST /verify-email", func(w http.ResponseWriter, r *http.Request) {
		var req backend.VerifyEmailRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.OTP != "1234" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"message":"Invalid OTP"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true}`)
	})
	mux.HandleFunc("GET /opportunities/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"data":[
			{"id":"job1","title":"Volunteer Developer","orgName":"Acme","location":["Addis Ababa"],"isBookmarked":false},
			{"id":"job2","title":"Event Designer","orgName":"Beta","location":["Remote"],"isBookmarked":true}
		]}`)
	})
	mux.HandleFunc("GET /opportunities/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "job2" {
			_, _ = io.WriteString(w, `{"success":true,"data":{"id":"job2","title":"Event Designer","orgName":"Beta","isBookmarked":true}}`)
			return
		}
		if r.PathValue("id") != "job1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"success":false,"message":"Opportunity not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"job1","title":"Volunteer Developer","orgName":"Acme","datePosted":"2024-07-17T11:49:29.6Z","deadline":"0001-01-01T00:00:00Z"}}`)
	})
	bookmark := func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.bookmarkCalls++
		a.bearer = r.Header.Get("Authorization")
		a.mu.Unlock()

		switch r.PathValue("id") {
		case "job2":
			w.WriteHeader(http.StatusConflict)
			_, _ = io.WriteString(w, `{"message":"Already bookmarked"}`)
		case "job3":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = io.WriteString(w, `{"success":true}`)
		}
	}
	mux.HandleFunc("POST /bookmarks/{id}", bookmark)
	mux.HandleFunc("DELETE /bookmarks/{id}", bookmark)
	return mux
}

func (a *akil) calls() (int, string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bookmarkCalls, a.bearer
}

type fakeGoogle struct {
	mu    sync.Mutex
	state string
	nonce string
}

func (g *fakeGoogle) AuthCodeURL(state, nonce string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state, g.nonce = state, nonce
	return "https://accounts.test/auth?state=" + url.QueryEscape(state)
}

func (g *fakeGoogle) Exchange(_ context.Context, code, nonce string) (identity.ProviderIdentity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if code != "good-code" || nonce != g.nonce {
		return identity.ProviderIdentity{}, fmt.Errorf("bad code")
	}
	return identity.ProviderIdentity{
		Provider: sessions.ProviderGoogle, Subject: "g-1", Email: "g@x.com", Name: "G User", AccessToken: "provider-at",
	}, nil
}

func (g *fakeGoogle) lastState() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

type harness struct {
	t       *testing.T
	url     string
	client  *http.Client
	backend *akil
	google  *fakeGoogle
}

func testConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	for _, key := range []string{"PORT", "VERBOSE", "BASE_URL", "NEXTAUTH_SECRET", "SESSION_REFRESH_AFTER",
		"SESSION_MAX_AGE", "CORS_ORIGINS", "AUTH_RATE_LIMIT_RPM", "SESSION_COOKIE_NAME", "APP_NAME",
		"TRUST_PROXY_HEADERS"} {
		t.Setenv(key, "")
	}
	t.Setenv("ENV", "TEST")
	t.Setenv("SESSION_SECRET", "test-secret-value")
	for k, v := range env {
		t.Setenv(k, v)
	}
	return config.New()
}

func newHarness(t *testing.T, env map[string]string) *harness {
	t.Helper()
	a := &akil{}
	backendSrv := httptest.NewServer(a.handler())
	t.Cleanup(backendSrv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	h := &harness{
		t:       t,
		backend: a,
		google:  &fakeGoogle{},
		client: &http.Client{
			Jar:           jar,
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
	}
	h.url = h.start(backendSrv.URL, env)
	return h
}

// start runs a fresh Server with no viewer state against the same backend.
func (h *harness) start(backendURL string, env map[string]string) string {
	h.t.Helper()
	srv, err := server.New(testConfig(h.t, env), server.Deps{
		Backend: backend.New(backendURL, 5*time.Second),
		Google:  h.google,
	})
	require.NoError(h.t, err)
	ts := httptest.NewServer(srv)
	h.t.Cleanup(ts.Close)
	return ts.URL
}

func (h *harness) get(path string, headers ...string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.url+path, nil)
	require.NoError(h.t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return h.do(req)
}

func (h *harness) postForm(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.url+path, strings.NewReader(form.Encode()))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) postJSON(path string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.url+path, nil)
	require.NoError(h.t, err)
	req.Header.Set("Accept", "application/json")
	return h.do(req)
}

func (h *harness) do(req *http.Request) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, string(body)
}

func (h *harness) signIn() {
	h.t.Helper()
	resp, _ := h.postForm("/auth/signin", url.Values{"email": {"a@b.com"}, "password": {"secret"}})
	require.Equal(h.t, http.StatusSeeOther, resp.StatusCode)
}

type sessionJSON struct {
	Authenticated bool `json:"authenticated"`
	User          *struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Provider string `json:"provider"`
}

func (h *harness) session() (sessionJSON, string) {
	h.t.Helper()
	resp, body := h.get("/api/auth/session")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var s sessionJSON
	require.NoError(h.t, json.Unmarshal([]byte(body), &s))
	return s, body
}

type toggleJSON struct {
	JobID        string `json:"jobId"`
	IsBookmarked bool   `json:"isBookmarked"`
	Pending      bool   `json:"pending"`
	Phase        string `json:"phase"`
	Notice       *struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	} `json:"notice"`
}

func (h *harness) toggle(jobID string) (int, toggleJSON) {
	h.t.Helper()
	resp, body := h.postJSON("/bookmarks/" + jobID + "/toggle")
	var out toggleJSON
	require.NoError(h.t, json.Unmarshal([]byte(body), &out))
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.get("/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestStaticFiles(t *testing.T) {
	h := newHarness(t, nil)
	resp, _ := h.get("/css/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/css")

	resp, _ = h.get("/js/missing.js")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListing(t *testing.T) {
	h := newHarness(t, nil)
	resp, body := h.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Volunteer Developer")
	require.Contains(t, body, "Event Designer")
	require.Contains(t, body, "Sign in")
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))

	var viewerCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "akil_session" {
			viewerCookie = c
		}
	}
	require.NotNil(t, viewerCookie)
	require.True(t, viewerCookie.HttpOnly)
}

func TestJobDetail(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.get("/jobs/job1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "Volunteer Developer")
	require.Contains(t, body, "July 17, 2024")
	require.Contains(t, body, "Not specified")

	resp, _ = h.get("/jobs/unknown")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSignIn(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, _ := h.postForm("/auth/signin", url.Values{
			"email": {"a@b.com"}, "password": {"secret"}, "callbackUrl": {"/jobs/job1"},
		})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/jobs/job1", resp.Header.Get("Location"))

		s, raw := h.session()
		require.True(t, s.Authenticated)
		require.Equal(t, "u1", s.User.ID)
		require.Equal(t, "a", s.User.Name)
		require.Equal(t, "user", s.User.Role)
		require.Equal(t, "credentials", s.Provider)
		require.NotContains(t, raw, "tok\"")
	})

	t.Run("rejected credentials", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, body := h.postForm("/auth/signin", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		require.Contains(t, body, "Invalid email or password")

		s, _ := h.session()
		require.False(t, s.Authenticated)
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, _ := h.postForm("/auth/signin", url.Values{"email": {"a@b.com"}})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("open redirects are refused", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, _ := h.postForm("/auth/signin", url.Values{
			"email": {"a@b.com"}, "password": {"secret"}, "callbackUrl": {"//evil.example"},
		})
		require.Equal(t, "/", resp.Header.Get("Location"))
	})

	t.Run("rate limited", func(t *testing.T) {
		h := newHarness(t, map[string]string{"AUTH_RATE_LIMIT_RPM": "2"})
		for range 2 {
			resp, _ := h.postForm("/auth/signin", url.Values{"email": {"a@b.com"}, "password": {"wrong"}})
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		}
		resp, _ := h.postForm("/auth/signin", url.Values{"email": {"a@b.com"}, "password": {"secret"}})
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("forwarded header does not reset the limit", func(t *testing.T) {
		h := newHarness(t, map[string]string{"AUTH_RATE_LIMIT_RPM": "2"})
		signIn := func(forwarded string) int {
			form := url.Values{"email": {"a@b.com"}, "password": {"wrong"}}
			req, err := http.NewRequest(http.MethodPost, h.url+"/auth/signin", strings.NewReader(form.Encode()))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.Header.Set("X-Forwarded-For", forwarded)
			resp, _ := h.do(req)
			return resp.StatusCode
		}
		require.Equal(t, http.StatusUnauthorized, signIn("10.0.0.1"))
		require.Equal(t, http.StatusUnauthorized, signIn("10.0.0.2"))
		require.Equal(t, http.StatusTooManyRequests, signIn("10.0.0.3"))
	})
}

func TestSignOut(t *testing.T) {
	h := newHarness(t, nil)
	h.signIn()

	resp, _ := h.postForm("/auth/signout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	s, _ := h.session()
	require.False(t, s.Authenticated)

	resp, _ = h.postForm("/auth/signout", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
}

func TestSessionSurvivesRestart(t *testing.T) {
	a := &akil{}
	backendSrv := httptest.NewServer(a.handler())
	t.Cleanup(backendSrv.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h := &harness{
		t: t, backend: a, google: &fakeGoogle{},
		client: &http.Client{Jar: jar, CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }},
	}
	h.url = h.start(backendSrv.URL, nil)
	h.signIn()

	h.url = h.start(backendSrv.URL, nil)
	s, _ := h.session()
	require.True(t, s.Authenticated)
	require.Equal(t, "u1", s.User.ID)
}

func TestBookmarkToggle(t *testing.T) {
	t.Run("requires a session", func(t *testing.T) {
		h := newHarness(t, nil)
		status, out := h.toggle("job1")
		require.Equal(t, http.StatusUnauthorized, status)
		require.False(t, out.IsBookmarked)
		require.NotNil(t, out.Notice)
		require.Equal(t, "info", out.Notice.Level)
		require.Equal(t, "Please login to bookmark jobs", out.Notice.Message)

		calls, _ := h.backend.calls()
		require.Zero(t, calls)
	})

	t.Run("form post without a session goes to sign in", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, _ := h.postForm("/bookmarks/job1/toggle", url.Values{"return": {"/jobs/job1"}})
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/auth/signin?callbackUrl=%2Fjobs%2Fjob1", resp.Header.Get("Location"))

		_, body := h.get("/auth/signin")
		require.Contains(t, body, "Please login to bookmark jobs")
	})

	t.Run("add then remove", func(t *testing.T) {
		h := newHarness(t, nil)
		h.signIn()
		_, _ = h.get("/")

		status, out := h.toggle("job1")
		require.Equal(t, http.StatusOK, status)
		require.True(t, out.IsBookmarked)
		require.False(t, out.Pending)
		require.Equal(t, "committed", out.Phase)
		require.Equal(t, "success", out.Notice.Level)
		require.Equal(t, "Bookmarked!", out.Notice.Message)

		calls, bearer := h.backend.calls()
		require.Equal(t, 1, calls)
		require.Equal(t, "Bearer tok", bearer)

		status, out = h.toggle("job1")
		require.Equal(t, http.StatusOK, status)
		require.False(t, out.IsBookmarked)
		require.Equal(t, "Removed bookmark", out.Notice.Message)
	})

	t.Run("conflict is a warning", func(t *testing.T) {
		h := newHarness(t, nil)
		h.signIn()

		status, out := h.toggle("job2")
		require.Equal(t, http.StatusOK, status)
		require.True(t, out.IsBookmarked)
		require.False(t, out.Pending)
		require.Equal(t, "warning", out.Notice.Level)
		require.Equal(t, "Already bookmarked", out.Notice.Message)
	})

	t.Run("failure rolls back", func(t *testing.T) {
		h := newHarness(t, nil)
		h.signIn()

		status, out := h.toggle("job3")
		require.Equal(t, http.StatusBadGateway, status)
		require.False(t, out.IsBookmarked)
		require.False(t, out.Pending)
		require.Equal(t, "rolled_back", out.Phase)
		require.Equal(t, "error", out.Notice.Level)
		require.Equal(t, "HTTP 500", out.Notice.Message)
	})
}

func TestGoogleSignIn(t *testing.T) {
	t.Run("full flow", func(t *testing.T) {
		h := newHarness(t, nil)

		resp, _ := h.get("/auth/google?callbackUrl=%2Fjobs%2Fjob1")
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "https://accounts.test/auth"))
		state := h.google.lastState()
		require.NotEmpty(t, state)

		resp, _ = h.get("/auth/callback/google?code=good-code&state=" + url.QueryEscape(state))
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/jobs/job1", resp.Header.Get("Location"))

		s, raw := h.session()
		require.True(t, s.Authenticated)
		require.Equal(t, "u9", s.User.ID)
		require.Equal(t, "google", s.Provider)
		require.NotContains(t, raw, "provider-at")
	})

	t.Run("state is single use", func(t *testing.T) {
		h := newHarness(t, nil)
		_, _ = h.get("/auth/google")
		state := h.google.lastState()

		resp, _ := h.get("/auth/callback/google?code=good-code&state=" + url.QueryEscape(state))
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)

		resp, _ = h.get("/auth/callback/google?code=good-code&state=" + url.QueryEscape(state))
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/signin?error="))
	})

	t.Run("provider error", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, _ := h.get("/auth/callback/google?error=access_denied")
		require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/auth/signin?error="))

		s, _ := h.session()
		require.False(t, s.Authenticated)
	})
}

func TestSignup(t *testing.T) {
	form := func(email string) url.Values {
		return url.Values{"name": {"Abebe"}, "email": {email}, "password": {"secret1"}, "confirmPassword": {"secret1"}}
	}

	t.Run("success goes to verification", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, _ := h.postForm("/auth/signup", form("new@b.com"))
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		require.Equal(t, "/auth/verify-email?email=new%40b.com", resp.Header.Get("Location"))
	})

	t.Run("email taken", func(t *testing.T) {
		h := newHarness(t, nil)
		resp, body := h.postForm("/auth/signup", form("taken@b.com"))
		require.Equal(t, http.StatusConflict, resp.StatusCode)
		require.Contains(t, body, "Email already exists. Please sign in instead.")
	})

	t.Run("validation", func(t *testing.T) {
		h := newHarness(t, nil)
		f := form("new@b.com")
		f.Set("confirmPassword", "other1")
		resp, body := h.postForm("/auth/signup", f)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Contains(t, body, "Passwords don&#39;t match")
	})
}

func TestVerifyEmail(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.get("/auth/verify-email?email=new%40b.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "new@b.com")

	resp, body = h.postForm("/auth/verify-email", url.Values{"email": {"new@b.com"}, "otp": {"0000"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, body, "Invalid OTP")

	resp, _ = h.postForm("/auth/verify-email", url.Values{"email": {"new@b.com"}, "otp": {"1234"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/auth/signin?verified=1&email=new%40b.com", resp.Header.Get("Location"))
}

func TestCompression(t *testing.T) {
	h := newHarness(t, nil)
	req, err := http.NewRequest(http.MethodGet, h.url+"/", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := h.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

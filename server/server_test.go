package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/crag-project/crag-server/githubapi"
	"github.com/crag-project/crag-server/githuboauth"
	"github.com/crag-project/crag-server/internal/config"
	"github.com/crag-project/crag-server/server"
	"github.com/crag-project/crag-server/sessions"
)

// stubGitHub fakes GitHub's OAuth and REST endpoints behind one test server.
type stubGitHub struct {
	tokenCalls int

	reposStatus  int
	reposHeaders map[string]string
	reposBody    string
	repoStatus   int
	repoBody     string
}

func newStubGitHub() *stubGitHub {
	return &stubGitHub{
		reposStatus: http.StatusOK,
		reposBody:   `[{"id":1,"name":"repo-1","full_name":"u/repo-1"},{"id":2,"name":"repo-2","full_name":"u/repo-2"}]`,
		repoStatus:  http.StatusOK,
		repoBody:    `{"id":1,"name":"repo-1","full_name":"u/repo-1","default_branch":"main"}`,
	}
}

func (g *stubGitHub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		g.tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"email":"a@x.com","primary":true},{"email":"b@x.com","primary":false}]`))
	})
	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		for k, v := range g.reposHeaders {
			w.Header().Set(k, v)
		}
		w.WriteHeader(g.reposStatus)
		w.Write([]byte(g.reposBody))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":1,"login":"u","name":"User One","avatar_url":"https://avatars.example/u"}`))
	})
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(g.repoStatus)
		w.Write([]byte(g.repoBody))
	})
	return mux
}

type serverFixture struct {
	github *stubGitHub
	store  *sessions.Store
	server *server.Server
}

func setupServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	github := newStubGitHub()
	ts := httptest.NewServer(github.handler())
	t.Cleanup(ts.Close)

	cfg := config.EnvVars{
		Env:                    "TEST",
		GithubClientID:         "client-1",
		GithubClientSecret:     "secret-1",
		GithubRedirectURI:      "http://127.0.0.1:8001/api/auth/github/callback",
		SessionLifetimeSeconds: 3600,
		CorsOrigins:            []string{"http://localhost:5173"},
	}

	store := sessions.NewStore(cfg.GetSessionLifetime())

	oauthService, err := githuboauth.NewService(cfg, store,
		githuboauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:  ts.URL + "/login/oauth/authorize",
			TokenURL: ts.URL + "/login/oauth/access_token",
		}),
		githuboauth.WithAPIBaseURL(ts.URL),
		githuboauth.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	srv, err := server.New(cfg, store, oauthService,
		server.WithGatewayFactory(func(token string) *githubapi.Client {
			return githubapi.New(token, githubapi.WithBaseURL(ts.URL), githubapi.WithHTTPClient(ts.Client()))
		}),
	)
	require.NoError(t, err)

	return &serverFixture{github: github, store: store, server: srv}
}

func (f *serverFixture) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "crag_session" {
			return c
		}
	}
	t.Fatal("no crag_session cookie set")
	return nil
}

// login runs the login redirect and returns the session cookie plus the
// state GitHub would echo back.
func (f *serverFixture) login(t *testing.T, redirect string) (*http.Cookie, string) {
	t.Helper()

	target := server.RouteLogin
	if redirect != "" {
		target += "?redirect=" + url.QueryEscape(redirect)
	}
	rec := f.do(t, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return sessionCookie(t, rec), location.Query().Get("state")
}

func (f *serverFixture) callback(t *testing.T, cookie *http.Cookie, state string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, server.RouteCallback+"?code=code-1&state="+url.QueryEscape(state), nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return f.do(t, req)
}

func TestHealth(t *testing.T) {
	f := setupServerFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteHealth, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoginRedirectsToGitHubAndSetsCookie(t *testing.T) {
	f := setupServerFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteLogin, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(location.Path, "/login/oauth/authorize"))
	require.Equal(t, "client-1", location.Query().Get("client_id"))
	require.NotEmpty(t, location.Query().Get("state"))

	cookie := sessionCookie(t, rec)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, 3600, cookie.MaxAge)
}

func TestLoginReusesExistingSession(t *testing.T) {
	f := setupServerFixture(t)

	first, _ := f.login(t, "")

	req := httptest.NewRequest(http.MethodGet, server.RouteLogin, nil)
	req.AddCookie(first)
	rec := f.do(t, req)

	require.Equal(t, first.Value, sessionCookie(t, rec).Value)
}

func TestCallbackWithoutSessionIsRejected(t *testing.T) {
	f := setupServerFixture(t)

	rec := f.callback(t, nil, "some-state")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "error")
	require.Zero(t, f.github.tokenCalls)
}

func TestCallbackStateMismatchIsRejectedWithoutExchange(t *testing.T) {
	f := setupServerFixture(t)

	cookie, _ := f.login(t, "")
	rec := f.callback(t, cookie, "forged-state")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["error"], "state")
	require.Zero(t, f.github.tokenCalls)
}

func TestFullLoginFlow(t *testing.T) {
	f := setupServerFixture(t)

	cookie, state := f.login(t, "/repos")

	rec := f.callback(t, cookie, state)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/repos", rec.Header().Get("Location"))
	require.Equal(t, 1, f.github.tokenCalls)

	// /me now reports the authenticated user with the primary email.
	req := httptest.NewRequest(http.MethodGet, server.RouteMe, nil)
	req.AddCookie(cookie)
	rec = f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		Authenticated bool             `json:"authenticated"`
		User          githuboauth.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.True(t, me.Authenticated)
	require.Equal(t, "u", me.User.Login)
	require.Equal(t, "a@x.com", me.User.Email)

	// And the repos proxy works with the stored token.
	req = httptest.NewRequest(http.MethodGet, server.RouteRepos, nil)
	req.AddCookie(cookie)
	rec = f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var repos struct {
		Repos   []githubapi.Repository `json:"repos"`
		Page    int                    `json:"page"`
		PerPage int                    `json:"per_page"`
		Total   int                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &repos))
	require.Len(t, repos.Repos, 2)
	require.Equal(t, 1, repos.Page)
	require.Equal(t, 30, repos.PerPage)
	require.Equal(t, 2, repos.Total, "total is the current page count")
}

func TestMeUnauthenticated(t *testing.T) {
	f := setupServerFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteMe, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

func TestReposRequiresSessionToken(t *testing.T) {
	f := setupServerFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, server.RouteRepos, nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A session without a completed login is still unauthorized.
	cookie, _ := f.login(t, "")
	req := httptest.NewRequest(http.MethodGet, server.RouteRepos, nil)
	req.AddCookie(cookie)
	rec = f.do(t, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReposRateLimitedBecomes429(t *testing.T) {
	f := setupServerFixture(t)
	f.github.reposStatus = http.StatusForbidden
	f.github.reposHeaders = map[string]string{"X-RateLimit-Reset": "1700000000"}
	f.github.reposBody = `{"message":"API rate limit exceeded"}`

	cookie, state := f.login(t, "")
	f.callback(t, cookie, state)

	req := httptest.NewRequest(http.MethodGet, server.RouteRepos, nil)
	req.AddCookie(cookie)
	rec := f.do(t, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "1700000000")
}

func TestRepoNotFoundBecomes404(t *testing.T) {
	f := setupServerFixture(t)
	f.github.repoStatus = http.StatusNotFound
	f.github.repoBody = `{"message":"Not Found"}`

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/auth/github/repos/o/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "not found")
}

func TestPullCommentValidation(t *testing.T) {
	f := setupServerFixture(t)

	rec := f.do(t, httptest.NewRequest(http.MethodPost,
		"/api/auth/github/repos/o/r/pulls/not-a-number/comments", strings.NewReader(`{"body":"hi"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, httptest.NewRequest(http.MethodPost,
		"/api/auth/github/repos/o/r/pulls/7/comments", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutDestroysSessionAndClearsCookie(t *testing.T) {
	f := setupServerFixture(t)

	cookie, state := f.login(t, "")
	f.callback(t, cookie, state)

	req := httptest.NewRequest(http.MethodGet, server.RouteLogout, nil)
	req.AddCookie(cookie)
	rec := f.do(t, req)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))

	cleared := sessionCookie(t, rec)
	require.Negative(t, cleared.MaxAge)

	// The session is gone server-side as well.
	req = httptest.NewRequest(http.MethodGet, server.RouteMe, nil)
	req.AddCookie(cookie)
	rec = f.do(t, req)
	require.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

func TestCorsHeadersForAllowedOrigin(t *testing.T) {
	f := setupServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteMe, nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := f.do(t, req)

	require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestSessionExpiryEndsAuthentication(t *testing.T) {
	github := newStubGitHub()
	ts := httptest.NewServer(github.handler())
	t.Cleanup(ts.Close)

	cfg := config.EnvVars{
		Env:                    "TEST",
		GithubClientID:         "client-1",
		GithubClientSecret:     "secret-1",
		GithubRedirectURI:      "http://127.0.0.1:8001/api/auth/github/callback",
		SessionLifetimeSeconds: 3600,
	}

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := sessions.NewStore(cfg.GetSessionLifetime(), sessions.WithNowTime(func() time.Time { return clock }))

	oauthService, err := githuboauth.NewService(cfg, store,
		githuboauth.WithEndpoint(oauth2.Endpoint{
			AuthURL:  ts.URL + "/login/oauth/authorize",
			TokenURL: ts.URL + "/login/oauth/access_token",
		}),
		githuboauth.WithAPIBaseURL(ts.URL),
		githuboauth.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	srv, err := server.New(cfg, store, oauthService)
	require.NoError(t, err)
	f := &serverFixture{github: github, store: store, server: srv}

	cookie, state := f.login(t, "")
	f.callback(t, cookie, state)

	clock = clock.Add(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, server.RouteMe, nil)
	req.AddCookie(cookie)
	rec := f.do(t, req)
	require.JSONEq(t, `{"authenticated":false}`, rec.Body.String())
}

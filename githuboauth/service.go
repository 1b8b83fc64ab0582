// Package githuboauth implements the GitHub OAuth authorization-code flow:
// state issuance at login, code-for-token exchange and profile fetch at
// callback. All per-login state lives in the caller's session; the state
// token is bound to the session that requested it and consumed on use.
package githuboauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	githubendpoint "golang.org/x/oauth2/github"

	"github.com/crag-project/crag-server/internal/config"
	apperrors "github.com/crag-project/crag-server/internal/errors"
	"github.com/crag-project/crag-server/sessions"
)

const (
	stateLength       = 16
	defaultAPIBaseURL = "https://api.github.com"
	requestTimeout    = 30 * time.Second
)

// Session data keys owned by the OAuth flow.
const (
	KeyOAuthState         = "oauth_state"
	KeyRedirectAfterLogin = "redirect_after_login"
	KeyUser               = "user"
	KeyGithub             = "github"
	KeyAccessToken        = "access_token"
)

// DefaultRedirect is where the browser goes after login when no explicit
// post-login redirect was stored.
const DefaultRedirect = "/"

// Service drives the OAuth flow against GitHub for sessions held in the
// store. It is safe for concurrent use; logins for different sessions
// proceed fully in parallel.
type Service struct {
	oauthConfig *oauth2.Config
	sessions    *sessions.Store
	apiBaseURL  string
	httpClient  *http.Client
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithHTTPClient sets the HTTP client used for the token exchange and
// profile fetches (primarily for testing with stub transports).
func WithHTTPClient(client *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithEndpoint overrides the GitHub authorization/token endpoint.
func WithEndpoint(endpoint oauth2.Endpoint) ServiceOption {
	return func(s *Service) {
		s.oauthConfig.Endpoint = endpoint
	}
}

// WithAPIBaseURL overrides the GitHub API base URL used for profile fetches.
func WithAPIBaseURL(baseURL string) ServiceOption {
	return func(s *Service) {
		s.apiBaseURL = baseURL
	}
}

// NewService initializes the OAuth flow service with required dependencies.
func NewService(cfg config.GithubConfig, store *sessions.Store, options ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("[NewService] github config is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}

	s := &Service{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.GetGithubClientID(),
			ClientSecret: cfg.GetGithubClientSecret(),
			RedirectURL:  cfg.GetGithubRedirectURI(),
			Scopes:       cfg.GetGithubScopes(),
			Endpoint:     githubendpoint.Endpoint,
		},
		sessions:   store,
		apiBaseURL: defaultAPIBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}

	for _, opt := range options {
		opt(s)
	}

	return s, nil
}

// BeginLogin issues a fresh anti-forgery state token, binds it to the
// caller's session together with the post-login redirect, and returns the
// GitHub authorization URL to send the browser to.
func (s *Service) BeginLogin(sessionID, redirectAfterLogin string) string {
	state := generateState()

	if redirectAfterLogin == "" {
		redirectAfterLogin = DefaultRedirect
	}

	s.sessions.SetData(sessionID, map[string]any{
		KeyOAuthState:         state,
		KeyRedirectAfterLogin: redirectAfterLogin,
	})

	return s.oauthConfig.AuthCodeURL(state)
}

// CompleteCallback validates the state against the caller's own session,
// exchanges the authorization code for an access token, fetches the user's
// profile and primary email, and persists both into the session. It returns
// the post-login redirect stored at BeginLogin time.
//
// The state check happens before any outbound call: a forged callback fails
// fast without costing a network round trip.
func (s *Service) CompleteCallback(ctx context.Context, sessionID, code, state string) (string, error) {
	data := s.sessions.Data(sessionID)

	stored, _ := data[KeyOAuthState].(string)
	if state == "" || stored == "" || state != stored {
		return "", apperrors.ErrInvalidState
	}
	// State tokens are one-shot: consume before going to the network.
	s.sessions.Unset(sessionID, KeyOAuthState)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "exchanging authorization code (%v)", err)
	}
	if token.AccessToken == "" {
		return "", apperrors.Wrapf(apperrors.ErrTokenExchangeFailed, "no access token in response")
	}

	user, err := s.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrProfileFetchFailed, "fetching user profile (%v)", err)
	}

	emails, err := s.fetchEmails(ctx, token.AccessToken)
	if err != nil {
		return "", apperrors.Wrapf(apperrors.ErrProfileFetchFailed, "fetching user emails (%v)", err)
	}
	user.Email = primaryEmail(emails)

	s.sessions.SetData(sessionID, map[string]any{
		KeyUser: user,
		KeyGithub: map[string]any{
			KeyAccessToken: token.AccessToken,
		},
	})

	redirect, _ := data[KeyRedirectAfterLogin].(string)
	if redirect == "" {
		redirect = DefaultRedirect
	}
	return redirect, nil
}

// primaryEmail returns the first email flagged primary, or "" when the user
// has none. An absent primary email is not an error.
func primaryEmail(emails []Email) string {
	for _, e := range emails {
		if e.Primary {
			return e.Email
		}
	}
	return ""
}

// generateState creates a random base64url state token
func generateState() string {
	b := make([]byte, stateLength)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

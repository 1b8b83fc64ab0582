// Package githubapi is the gateway to GitHub's REST API. A Client is
// parameterized by a single access token and is stateless between calls;
// every failure is classified into rate-limit, not-found or a generic
// APIError so handlers can map them to distinct HTTP responses.
package githubapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/crag-project/crag-server/internal/errors"
)

const (
	defaultBaseURL = "https://api.github.com"
	apiVersion     = "2022-11-28"
	requestTimeout = 30 * time.Second
)

// Client issues authenticated calls against GitHub's REST API. A zero token
// is allowed; calls then go out anonymously where GitHub permits it.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithBaseURL overrides the GitHub API base URL (primarily for testing).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient overrides the HTTP client, including its timeout.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// New creates a gateway client for the given access token. Pass "" for
// anonymous access.
func New(token string, options ...ClientOption) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// ListOptions are the common pagination and ordering parameters of the
// repository list endpoints. Zero values fall back to GitHub's defaults as
// the original service used them: sort=updated, direction=desc, per_page=30,
// page=1.
type ListOptions struct {
	Sort      string
	Direction string
	PerPage   int
	Page      int

	// Visibility filters /user/repos (all, public, private).
	Visibility string
	// Type filters /users/{username}/repos and /orgs/{org}/repos.
	Type string
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Sort == "" {
		o.Sort = "updated"
	}
	if o.Direction == "" {
		o.Direction = "desc"
	}
	if o.PerPage <= 0 {
		o.PerPage = 30
	}
	if o.Page <= 0 {
		o.Page = 1
	}
	v.Set("sort", o.Sort)
	v.Set("direction", o.Direction)
	v.Set("per_page", strconv.Itoa(o.PerPage))
	v.Set("page", strconv.Itoa(o.Page))
	if o.Visibility != "" {
		v.Set("visibility", o.Visibility)
	}
	if o.Type != "" {
		v.Set("type", o.Type)
	}
	return v
}

// ListAuthenticatedUserRepos lists the repositories of the token's user.
// Fails with ErrUnauthorized before any network call when no token is set.
func (c *Client) ListAuthenticatedUserRepos(ctx context.Context, opts ListOptions) ([]Repository, error) {
	if c.token == "" {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "listing repositories")
	}
	if opts.Visibility == "" {
		opts.Visibility = "all"
	}
	opts.Type = ""

	var repos []Repository
	if err := c.doJSON(ctx, http.MethodGet, "/user/repos", opts.values(), nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// ListUserRepos lists a named user's repositories. Works anonymously.
func (c *Client) ListUserRepos(ctx context.Context, username string, opts ListOptions) ([]Repository, error) {
	if opts.Type == "" {
		opts.Type = "owner"
	}
	opts.Visibility = ""

	var repos []Repository
	path := fmt.Sprintf("/users/%s/repos", url.PathEscape(username))
	if err := c.doJSON(ctx, http.MethodGet, path, opts.values(), nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// ListOrgRepos lists an organization's repositories. Works anonymously.
func (c *Client) ListOrgRepos(ctx context.Context, org string, opts ListOptions) ([]Repository, error) {
	if opts.Type == "" {
		opts.Type = "all"
	}
	opts.Visibility = ""

	var repos []Repository
	path := fmt.Sprintf("/orgs/%s/repos", url.PathEscape(org))
	if err := c.doJSON(ctx, http.MethodGet, path, opts.values(), nil, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

// GetRepository fetches one repository. A missing repository is a
// distinguishable not-found error, not a generic failure.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	var repository Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &repository); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "repository %s/%s", owner, repo)
		}
		return nil, err
	}
	return &repository, nil
}

// GetPullRequests lists a repository's pull requests filtered by state
// (open, closed, all). repoFullName is "owner/repo".
func (c *Client) GetPullRequests(ctx context.Context, repoFullName, state string) ([]PullRequest, error) {
	if state == "" {
		state = "open"
	}
	query := url.Values{"state": {state}}

	var pulls []PullRequest
	path := fmt.Sprintf("/repos/%s/pulls", repoFullName)
	if err := c.doJSON(ctx, http.MethodGet, path, query, nil, &pulls); err != nil {
		return nil, err
	}
	return pulls, nil
}

// CreateIssueComment posts a comment on the pull request's issue thread and
// returns the created comment.
func (c *Client) CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, text string) (*IssueComment, error) {
	if c.token == "" {
		return nil, apperrors.Wrapf(apperrors.ErrUnauthorized, "commenting on pull request #%d", prNumber)
	}

	payload := map[string]string{"body": text}
	var comment IssueComment
	path := fmt.Sprintf("/repos/%s/issues/%d/comments", repoFullName, prNumber)
	if err := c.doJSON(ctx, http.MethodPost, path, nil, payload, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetCommit fetches a single commit by SHA.
func (c *Client) GetCommit(ctx context.Context, repoFullName, sha string) (*Commit, error) {
	var commit Commit
	path := fmt.Sprintf("/repos/%s/commits/%s", repoFullName, url.PathEscape(sha))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, nil, &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// doJSON performs one API round trip and classifies the outcome. 403 with a
// rate-limit body becomes RateLimitError carrying the raw reset header, 404
// wraps ErrNotFound, any other non-2xx or transport failure becomes APIError.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &APIError{Message: fmt.Sprintf("encoding request body: %v", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("building request: %v", err)}
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("network error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		bodyText := string(raw)

		if resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(bodyText), "rate limit") {
			return &RateLimitError{ResetTime: resp.Header.Get("X-RateLimit-Reset")}
		}
		if resp.StatusCode == http.StatusNotFound {
			return apperrors.Wrapf(apperrors.ErrNotFound, "%s %s returned 404", method, path)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(bodyText)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Message: fmt.Sprintf("decoding %s response: %v", path, err)}
	}
	return nil
}

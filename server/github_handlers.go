package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/crag-project/crag-server/githubapi"
	"github.com/crag-project/crag-server/githuboauth"
	apperrors "github.com/crag-project/crag-server/internal/errors"
)

type reposResponse struct {
	Repos   []githubapi.Repository `json:"repos"`
	Page    int                    `json:"page"`
	PerPage int                    `json:"per_page"`
	// Total is the count of the current page, not a global total.
	Total int `json:"total"`
}

// sessionToken pulls the GitHub access token from the caller's session, or
// "" when the caller is not authenticated.
func (s *Server) sessionToken(r *http.Request) string {
	sessionID := s.currentSessionID(r)
	if sessionID == "" {
		return ""
	}
	return githuboauth.SessionAccessToken(s.sessions.Data(sessionID))
}

// ReposHandler lists the logged-in user's repositories. Requires a session
// with a stored access token.
func (s *Server) ReposHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.sessionToken(r)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "not logged in, no GitHub token in session")
			return
		}

		opts := listOptionsFromQuery(r)
		opts.Visibility = r.URL.Query().Get("visibility")

		repos, err := s.newGateway(token).ListAuthenticatedUserRepos(r.Context(), opts)
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, reposResponse{
			Repos:   repos,
			Page:    opts.Page,
			PerPage: opts.PerPage,
			Total:   len(repos),
		})
	}
}

// UserReposHandler lists a named user's repositories. Anonymous when there
// is no session token.
func (s *Server) UserReposHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := listOptionsFromQuery(r)
		opts.Type = r.URL.Query().Get("type")

		repos, err := s.newGateway(s.sessionToken(r)).ListUserRepos(r.Context(), r.PathValue("username"), opts)
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, reposResponse{
			Repos:   repos,
			Page:    opts.Page,
			PerPage: opts.PerPage,
			Total:   len(repos),
		})
	}
}

// OrgReposHandler lists an organization's repositories.
func (s *Server) OrgReposHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts := listOptionsFromQuery(r)
		opts.Type = r.URL.Query().Get("type")

		repos, err := s.newGateway(s.sessionToken(r)).ListOrgRepos(r.Context(), r.PathValue("org"), opts)
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, reposResponse{
			Repos:   repos,
			Page:    opts.Page,
			PerPage: opts.PerPage,
			Total:   len(repos),
		})
	}
}

// RepoHandler fetches one repository; a missing repository is a 404.
func (s *Server) RepoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo, err := s.newGateway(s.sessionToken(r)).GetRepository(r.Context(), r.PathValue("owner"), r.PathValue("repo"))
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, repo)
	}
}

// PullsHandler lists a repository's pull requests filtered by ?state=.
func (s *Server) PullsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fullName := r.PathValue("owner") + "/" + r.PathValue("repo")
		pulls, err := s.newGateway(s.sessionToken(r)).GetPullRequests(r.Context(), fullName, r.URL.Query().Get("state"))
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"pulls": pulls, "total": len(pulls)})
	}
}

// PullCommentHandler posts a comment on a pull request's issue thread.
func (s *Server) PullCommentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number, err := strconv.Atoi(r.PathValue("number"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid pull request number")
			return
		}

		var payload struct {
			Body string `json:"body"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Body == "" {
			writeJSONError(w, http.StatusBadRequest, "comment body is required")
			return
		}

		fullName := r.PathValue("owner") + "/" + r.PathValue("repo")
		comment, err := s.newGateway(s.sessionToken(r)).CreateIssueComment(r.Context(), fullName, number, payload.Body)
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, comment)
	}
}

// CommitHandler fetches one commit by SHA.
func (s *Server) CommitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fullName := r.PathValue("owner") + "/" + r.PathValue("repo")
		commit, err := s.newGateway(s.sessionToken(r)).GetCommit(r.Context(), fullName, r.PathValue("sha"))
		if err != nil {
			s.writeGatewayError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, commit)
	}
}

// writeGatewayError maps gateway failures onto the HTTP surface: 401 for a
// missing token, 429 for rate limits (message carries the reset time), 404
// for missing resources, 500 for everything else.
func (s *Server) writeGatewayError(w http.ResponseWriter, err error) {
	var rateLimit *githubapi.RateLimitError
	switch {
	case apperrors.Is(err, apperrors.ErrUnauthorized):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case apperrors.As(err, &rateLimit):
		log.Warn().Str("reset", rateLimit.ResetTime).Msg("github rate limit exceeded")
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
	case apperrors.Is(err, apperrors.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("github gateway call failed")
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func listOptionsFromQuery(r *http.Request) githubapi.ListOptions {
	q := r.URL.Query()
	return githubapi.ListOptions{
		Sort:      q.Get("sort"),
		Direction: q.Get("direction"),
		PerPage:   intQueryParam(q.Get("per_page"), 30),
		Page:      intQueryParam(q.Get("page"), 1),
	}
}

func intQueryParam(raw string, defaultValue int) int {
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/crag-project/crag-server/githuboauth"
	apperrors "github.com/crag-project/crag-server/internal/errors"
)

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler starts the OAuth flow: it creates a session if the browser
// does not already hold one, binds a fresh state token to it and redirects
// to GitHub's authorization page.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.currentSessionID(r)
		if sessionID == "" {
			sessionID = s.sessions.Create()
		}

		redirectAfterLogin := r.URL.Query().Get("redirect")
		authURL := s.oauth.BeginLogin(sessionID, redirectAfterLogin)

		s.SetSessionCookie(w, sessionID)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler completes the OAuth flow. Failures come back as structured
// JSON: 400 for a bad session, state or token exchange, 500 for anything
// unexpected past that point.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.currentSessionID(r)
		if sessionID == "" {
			writeJSONError(w, http.StatusBadRequest, apperrors.ErrInvalidSession.Error())
			return
		}

		code := r.URL.Query().Get("code")
		state := r.URL.Query().Get("state")

		redirect, err := s.oauth.CompleteCallback(r.Context(), sessionID, code, state)
		if err != nil {
			log.Error().Err(err).Msg("github oauth callback failed")
			writeJSONError(w, callbackStatus(err), err.Error())
			return
		}

		s.SetSessionCookie(w, sessionID)
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

func callbackStatus(err error) int {
	switch {
	case apperrors.Is(err, apperrors.ErrInvalidSession),
		apperrors.Is(err, apperrors.ErrInvalidState),
		apperrors.Is(err, apperrors.ErrTokenExchangeFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// LogoutHandler deletes the session, clears the cookie and sends the
// browser home.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			s.sessions.Delete(cookie.Value)
		}
		s.ClearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// MeHandler reports the logged-in user, or authenticated:false when there is
// no valid session or no stored user.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := s.currentSessionID(r)
		if sessionID == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}

		user, ok := githuboauth.SessionUser(s.sessions.Data(sessionID))
		if !ok {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user":          user,
		})
	}
}

package server

import (
	"encoding/json"
	"net/http"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	// sessionCookieName is the cookie carrying the opaque session identifier
	sessionCookieName = "crag_session"
)

func (s *Server) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.GetCookieSecure(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetSessionLifetime().Seconds()),
	})
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.GetCookieSecure(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// currentSessionID resolves the session cookie to a live session ID,
// refreshing its last-access time. Returns "" for missing, unknown or
// expired cookies; callers treat that as "not authenticated".
func (s *Server) currentSessionID(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	id, ok := s.sessions.Resolve(cookie.Value)
	if !ok {
		return ""
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

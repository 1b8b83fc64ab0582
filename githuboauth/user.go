package githuboauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// User is the profile slice persisted into the session after a successful
// login. Email is the primary email from /user/emails, not the (often
// hidden) email field on /user.
type User struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Email is one entry of the authenticated user's email list.
type Email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (s *Service) fetchUser(ctx context.Context, accessToken string) (User, error) {
	var user User
	if err := s.getJSON(ctx, "/user", accessToken, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) fetchEmails(ctx context.Context, accessToken string) ([]Email, error) {
	var emails []Email
	if err := s.getJSON(ctx, "/user/emails", accessToken, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (s *Service) getJSON(ctx context.Context, path, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// SessionUser extracts the stored user profile from session data.
func SessionUser(data map[string]any) (User, bool) {
	user, ok := data[KeyUser].(User)
	return user, ok
}

// SessionAccessToken extracts the stored GitHub access token from session
// data, or "" when the session is not authenticated.
func SessionAccessToken(data map[string]any) string {
	github, ok := data[KeyGithub].(map[string]any)
	if !ok {
		return ""
	}
	token, _ := github[KeyAccessToken].(string)
	return token
}

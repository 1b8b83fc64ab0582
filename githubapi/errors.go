package githubapi

import "fmt"

// APIError is the catch-all for GitHub API failures that are neither
// rate-limit nor not-found: unexpected statuses and transport errors.
type APIError struct {
	StatusCode int // 0 for network/timeout failures
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("GitHub API returned %d: %s", e.StatusCode, e.Message)
}

// RateLimitError is returned when GitHub answers 403 with a rate-limit body.
// ResetTime carries the raw X-RateLimit-Reset header value (epoch seconds as
// a string, exactly as GitHub sent it).
type RateLimitError struct {
	ResetTime string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded, resets at %s", e.ResetTime)
}

// Package sessions implements the server-side session store. Sessions are
// identified by an opaque random string handed to the browser in a cookie and
// hold transient per-user state: the OAuth state token, the post-login
// redirect and, once authenticated, the user profile and GitHub access token.
package sessions

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// sessionIDLength is the number of random bytes in a session identifier.
// 32 bytes = 256 bits, well above the 128-bit floor for unguessable IDs.
const sessionIDLength = 32

// session is the store-internal record. Callers never hold one; they hold
// the identifier plus transient read/write access through the Store methods.
type session struct {
	createdAt  time.Time
	lastAccess time.Time
	data       map[string]any
}

func generateSessionID() string {
	b := make([]byte, sessionIDLength)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

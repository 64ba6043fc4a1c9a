package model

import "time"

// SessionTTL is how long a freshly issued bearer token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Session is a row of the `sessions` table. Only the SHA-256 hex of
// the bearer token is stored.
type Session struct {
	TokenHash string
	UID       string
	CreatedAt int64
	ExpiresAt int64
}

// ActiveAt reports whether the session is still usable at nowMs. The
// expiry instant itself is inclusive.
func (s Session) ActiveAt(nowMs int64) bool {
	return nowMs <= s.ExpiresAt
}

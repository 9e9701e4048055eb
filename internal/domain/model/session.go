package model

import "time"

// Session is one authenticated operator session. Sessions are issued by the
// session gate on successful login and live server-side; the browser only
// holds the opaque ID. There is no logout transition: a session ends when it
// expires.
type Session struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

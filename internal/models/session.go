package models

import "time"

// Session is a server-stored login session identified by an opaque token.
// A session is active while ExpiresAt is in the future; logout revokes it by
// moving ExpiresAt to the current time rather than deleting the row.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Active reports whether the session is still usable at the given instant.
func (s Session) Active(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

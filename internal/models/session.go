package models

import "time"

// Session is the server-side record behind an admin cookie.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	LoggedIn  bool      `json:"logged_in"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Active reports whether the session still grants admin access at now.
func (s *Session) Active(now time.Time) bool {
	if s == nil || !s.LoggedIn {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

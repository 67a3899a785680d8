package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the authenticated identity held by the console: a bearer token,
// the user it belongs to, and the user's main club when one exists.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
	Club  *Club  `json:"mainClub,omitempty"`
}

// NeedsPasswordChange reports whether the first-login gate applies.
// Only employee accounts flagged isFirstLogin are gated.
func (s *Session) NeedsPasswordChange() bool {
	if s == nil {
		return false
	}
	return s.User.IsEmployee() && s.User.IsFirstLogin
}

// Clone returns a deep copy so callers can't mutate shared state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Club != nil {
		club := *s.Club
		c.Club = &club
	}
	return &c
}

// TokenExpiry reads the exp claim of a JWT bearer token without verifying it.
// The console never trusts this for access decisions; it is display only.
// Returns the zero time for opaque tokens or tokens without exp.
func (s *Session) TokenExpiry() time.Time {
	if s == nil || s.Token == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

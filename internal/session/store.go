// Package session persists the console's authenticated session between runs.
//
// A session is stored as three entries: the bearer token, the user, and the
// user's main club. Backends guarantee that Load never observes a
// half-written session: either the last fully saved session or none.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/naveenspark/clubdesk/pkg/domain"
)

// Store is the persistence port used by the auth authority.
type Store interface {
	// Load returns the persisted session, or nil when none is stored.
	// Malformed data is logged and treated as absent; Load never fails.
	Load() *domain.Session
	// Save replaces the persisted session.
	Save(s *domain.Session) error
	// Clear removes the persisted session. Clearing an empty store is not an error.
	Clear() error
}

// ErrIncomplete is returned by Save when the session lacks a token or user.
var ErrIncomplete = errors.New("session: token and user are required")

func checkComplete(s *domain.Session) error {
	if s == nil || s.Token == "" || s.User.ID == "" {
		return ErrIncomplete
	}
	return nil
}

// entries is the serialized form shared by the file and redis backends.
type entries struct {
	token string
	user  []byte
	club  []byte // nil when the session has no club
}

func encode(s *domain.Session) (entries, error) {
	user, err := json.Marshal(s.User)
	if err != nil {
		return entries{}, fmt.Errorf("marshal user: %w", err)
	}
	e := entries{token: s.Token, user: user}
	if s.Club != nil {
		club, err := json.Marshal(s.Club)
		if err != nil {
			return entries{}, fmt.Errorf("marshal club: %w", err)
		}
		e.club = club
	}
	return e, nil
}

// decode rebuilds a session from raw entries. A missing, malformed, or
// unclassified user invalidates the whole session; a malformed club only drops the club.
func decode(e entries, logger *slog.Logger) *domain.Session {
	if e.token == "" {
		return nil
	}
	if len(e.user) == 0 {
		logger.Warn("stored session has a token but no user, ignoring")
		return nil
	}
	var user domain.User
	if err := json.Unmarshal(e.user, &user); err != nil {
		logger.Warn("stored user is malformed, ignoring session", "error", err)
		return nil
	}
	if user.ID == "" {
		logger.Warn("stored user has no id, ignoring session")
		return nil
	}
	if !user.Kind.Valid() {
		logger.Warn("stored user has an unknown account type, ignoring session", "kind", string(user.Kind))
		return nil
	}
	s := &domain.Session{Token: e.token, User: user}
	if len(e.club) > 0 {
		var club domain.Club
		if err := json.Unmarshal(e.club, &club); err != nil {
			logger.Warn("stored club is malformed, dropping it", "error", err)
		} else {
			s.Club = &club
		}
	}
	return s
}

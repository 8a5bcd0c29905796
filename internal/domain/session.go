package domain

import "time"

// Session represents the locally persisted authentication session: the most
// recently authenticated user's profile plus bookkeeping fields. A single row
// exists at any time; absence of a row (or Active=false) means "no session".
type Session struct {
	User        User
	LastLoginAt int64 // epoch millis
	Active      bool
}

// NewSession builds an active session for the given user stamped with the
// current time.
func NewSession(user User) *Session {
	return &Session{
		User:        user,
		LastLoginAt: time.Now().UnixMilli(),
		Active:      true,
	}
}

// Validate checks the session invariants.
func (s *Session) Validate() error {
	if err := s.User.Validate(); err != nil {
		return err
	}
	if s.LastLoginAt < 0 {
		return NewValidationError("INVALID_TIMESTAMP", "Last login timestamp cannot be negative", nil)
	}
	return nil
}

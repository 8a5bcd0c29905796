package repository

import (
	"context"

	"gitgauge/internal/domain"
)

// SessionRepository is the user session store: a single-row record of the
// most recently authenticated user's profile. Keyed by a constant row id, so
// saving always overwrites the previous session.
type SessionRepository interface {
	// Save writes the session row for user, stamping the current time and
	// marking it active.
	Save(ctx context.Context, user *domain.User) error

	// GetCurrent returns the active session's user profile, or a
	// NotFoundError when no active session exists.
	GetCurrent(ctx context.Context) (*domain.User, error)

	// GetSession returns the full session record including timestamps.
	GetSession(ctx context.Context) (*domain.Session, error)

	// Clear removes the session row. Clearing an empty store is a no-op.
	Clear(ctx context.Context) error

	// HasActive reports whether an active session row exists.
	HasActive(ctx context.Context) (bool, error)

	// Touch refreshes the last-login timestamp of the current session.
	// A missing session is a no-op.
	Touch(ctx context.Context) error

	// Watch returns a channel re-emitting the stored user whenever the row
	// changes (nil after Clear). The channel closes when ctx is done.
	Watch(ctx context.Context) <-chan *domain.User
}

// Package services contains the business logic of the gitgauge client core:
// session lifecycle, the authenticated repository gateway with its
// offline-first fallback policy, and the notification channel listener.
package services

import (
	"context"
	"log/slog"

	"gitgauge/internal/domain"
	"gitgauge/internal/repository"
)

// SessionManager composes the credential store and the session store so that
// callers never reason about the two independently: a session either exists
// in full (token plus profile) or not at all.
type SessionManager struct {
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	logger      *slog.Logger
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(
	credentials repository.CredentialRepository,
	sessions repository.SessionRepository,
	logger *slog.Logger,
) *SessionManager {
	return &SessionManager{
		credentials: credentials,
		sessions:    sessions,
		logger:      logger,
	}
}

// CreateSession persists the token and the user profile. When the profile
// write fails after the token write succeeded, the token is cleared again so
// HasValidSession never observes a half-written state.
func (m *SessionManager) CreateSession(ctx context.Context, user *domain.User, token string) error {
	if user == nil {
		return domain.NewValidationError("NIL_USER", "User cannot be nil", nil)
	}

	if err := m.credentials.Save(ctx, token); err != nil {
		return err
	}

	if err := m.sessions.Save(ctx, user); err != nil {
		// Compensating delete: a credential without a profile would make the
		// session state inconsistent.
		if clearErr := m.credentials.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to roll back credential after session write failure",
				slog.String("error", clearErr.Error()),
			)
		}
		return err
	}

	m.logger.Info("session created", slog.String("login", user.Login))
	return nil
}

// RestoreSession returns the stored token and profile, or ("", nil, nil) when
// no complete session exists. It never returns a partial pair. Store failures
// are swallowed into "no session" so callers fall through to an
// unauthenticated state instead of crashing; the cause is logged.
func (m *SessionManager) RestoreSession(ctx context.Context) (string, *domain.User, error) {
	token, err := m.credentials.Get(ctx)
	if err != nil {
		if !domain.IsNotFound(err) {
			m.logger.Warn("credential read failed during session restore", slog.String("error", err.Error()))
		}
		return "", nil, nil
	}

	user, err := m.sessions.GetCurrent(ctx)
	if err != nil {
		if !domain.IsNotFound(err) {
			m.logger.Warn("session read failed during session restore", slog.String("error", err.Error()))
		}
		return "", nil, nil
	}

	if err := m.sessions.Touch(ctx); err != nil {
		m.logger.Warn("failed to refresh session timestamp", slog.String("error", err.Error()))
	}

	return token, user, nil
}

// HasValidSession reports whether both the credential and an active session
// record are present. No token freshness check is performed locally.
func (m *SessionManager) HasValidSession(ctx context.Context) (bool, error) {
	hasToken, err := m.credentials.Exists(ctx)
	if err != nil {
		return false, err
	}
	if !hasToken {
		return false, nil
	}

	hasSession, err := m.sessions.HasActive(ctx)
	if err != nil {
		return false, err
	}
	return hasSession, nil
}

// Logout clears both stores. Calling it on an already-empty state is a no-op.
func (m *SessionManager) Logout(ctx context.Context) error {
	credErr := m.credentials.Clear(ctx)
	sessErr := m.sessions.Clear(ctx)

	if credErr != nil {
		return credErr
	}
	if sessErr != nil {
		return sessErr
	}

	m.logger.Info("session cleared")
	return nil
}

// StoredUser returns the persisted profile, or nil when none is stored.
func (m *SessionManager) StoredUser(ctx context.Context) (*domain.User, error) {
	user, err := m.sessions.GetCurrent(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// WatchStoredUser returns a channel re-emitting the stored profile whenever
// it changes. The channel closes when ctx is done.
func (m *SessionManager) WatchStoredUser(ctx context.Context) <-chan *domain.User {
	return m.sessions.Watch(ctx)
}

// StoredToken returns the persisted access token.
func (m *SessionManager) StoredToken(ctx context.Context) (string, error) {
	return m.credentials.Get(ctx)
}

// HasToken reports whether a credential is stored, without reading it.
func (m *SessionManager) HasToken(ctx context.Context) (bool, error) {
	return m.credentials.Exists(ctx)
}

// UpdateSessionTimestamp refreshes the last-login timestamp only.
func (m *SessionManager) UpdateSessionTimestamp(ctx context.Context) error {
	return m.sessions.Touch(ctx)
}

package repository

import "context"

// CredentialRepository is the secure token store: a single bearer credential
// persisted under encryption at rest. Exactly one slot exists; a new login
// overwrites the previous credential.
type CredentialRepository interface {
	// Save stores the access token, replacing any previous one.
	Save(ctx context.Context, token string) error

	// Get returns the stored access token. Returns a NotFoundError when the
	// slot is empty.
	Get(ctx context.Context) (string, error)

	// Clear removes the stored access token. Clearing an empty slot is a no-op.
	Clear(ctx context.Context) error

	// Exists reports whether a credential is currently stored.
	Exists(ctx context.Context) (bool, error)
}

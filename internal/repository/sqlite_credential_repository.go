package repository

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/pocketbase/dbx"
	"golang.org/x/crypto/chacha20poly1305"

	"gitgauge/internal/domain"
)

const credentialKey = "access_token"

// sqliteCredentialRepository stores the bearer token in the credentials table,
// sealed with XChaCha20-Poly1305. The cipher key is derived from a configured
// secret; the token never touches disk in plaintext.
type sqliteCredentialRepository struct {
	db   *dbx.DB
	aead func() ([]byte, error) // returns the derived 32-byte key
}

// NewSQLiteCredentialRepository creates the encrypted credential store.
// secret must be non-empty; it is hashed into the cipher key.
func NewSQLiteCredentialRepository(db *dbx.DB, secret string) (CredentialRepository, error) {
	if secret == "" {
		return nil, domain.NewValidationError("EMPTY_TOKEN_SECRET", "Token encryption secret cannot be empty", nil)
	}
	key := sha256.Sum256([]byte(secret))
	return &sqliteCredentialRepository{
		db:   db,
		aead: func() ([]byte, error) { return key[:], nil },
	}, nil
}

// Save stores the access token, replacing any previous one.
func (r *sqliteCredentialRepository) Save(ctx context.Context, token string) error {
	if token == "" {
		return domain.NewValidationError("EMPTY_TOKEN", "Access token cannot be empty", nil)
	}

	sealed, err := r.seal(token)
	if err != nil {
		return err
	}

	_, err = r.db.NewQuery(
		`INSERT INTO credentials (key, value, updated_at) VALUES ({:key}, {:value}, {:now})
		 ON CONFLICT(key) DO UPDATE SET value = {:value}, updated_at = {:now}`,
	).Bind(dbx.Params{
		"key":   credentialKey,
		"value": sealed,
		"now":   time.Now().UnixMilli(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("CREDENTIAL_SAVE_FAILED", "Failed to save access token", err)
	}
	return nil
}

// Get returns the stored access token.
func (r *sqliteCredentialRepository) Get(ctx context.Context) (string, error) {
	var row struct {
		Value string `db:"value"`
	}
	err := r.db.NewQuery(
		`SELECT value FROM credentials WHERE key = {:key}`,
	).Bind(dbx.Params{"key": credentialKey}).WithContext(ctx).One(&row)
	if err != nil {
		if isNoRows(err) {
			return "", domain.NewNotFoundError("CREDENTIAL_NOT_FOUND", "No access token stored")
		}
		return "", domain.NewInternalError("CREDENTIAL_QUERY_FAILED", "Failed to read access token", err)
	}

	return r.open(row.Value)
}

// Clear removes the stored access token.
func (r *sqliteCredentialRepository) Clear(ctx context.Context) error {
	_, err := r.db.NewQuery(
		`DELETE FROM credentials WHERE key = {:key}`,
	).Bind(dbx.Params{"key": credentialKey}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("CREDENTIAL_CLEAR_FAILED", "Failed to clear access token", err)
	}
	return nil
}

// Exists reports whether a credential is currently stored.
func (r *sqliteCredentialRepository) Exists(ctx context.Context) (bool, error) {
	var row struct {
		Count int `db:"count"`
	}
	err := r.db.NewQuery(
		`SELECT COUNT(*) AS count FROM credentials WHERE key = {:key}`,
	).Bind(dbx.Params{"key": credentialKey}).WithContext(ctx).One(&row)
	if err != nil {
		return false, domain.NewInternalError("CREDENTIAL_QUERY_FAILED", "Failed to check access token", err)
	}
	return row.Count > 0, nil
}

// seal encrypts token and encodes nonce+ciphertext as base64.
func (r *sqliteCredentialRepository) seal(token string) (string, error) {
	key, err := r.aead()
	if err != nil {
		return "", domain.NewInternalError("CIPHER_KEY_FAILED", "Failed to derive cipher key", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", domain.NewInternalError("CIPHER_INIT_FAILED", "Failed to initialize cipher", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", domain.NewInternalError("NONCE_FAILED", "Failed to generate nonce", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(token), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// open decodes and decrypts a sealed token.
func (r *sqliteCredentialRepository) open(encoded string) (string, error) {
	key, err := r.aead()
	if err != nil {
		return "", domain.NewInternalError("CIPHER_KEY_FAILED", "Failed to derive cipher key", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", domain.NewInternalError("CIPHER_INIT_FAILED", "Failed to initialize cipher", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(sealed) < chacha20poly1305.NonceSizeX {
		return "", domain.NewInternalError("CREDENTIAL_CORRUPT", "Stored access token is corrupt", err)
	}

	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", domain.NewInternalError("CREDENTIAL_DECRYPT_FAILED", "Failed to decrypt stored access token", err)
	}
	return string(plaintext), nil
}

package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/pocketbase/dbx"

	"gitgauge/internal/domain"
)

const testSecret = "test-secret-key-with-at-least-32-characters"

func testCredentialRepo(t *testing.T) (CredentialRepository, *dbx.DB) {
	t.Helper()
	db := testDB(t)
	repo, err := NewSQLiteCredentialRepository(db, testSecret)
	if err != nil {
		t.Fatalf("Failed to create credential repository: %v", err)
	}
	return repo, db
}

func TestCredentialRepository_SaveAndGet(t *testing.T) {
	repo, _ := testCredentialRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "gho_secret123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	token, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if token != "gho_secret123" {
		t.Errorf("Expected gho_secret123, got %q", token)
	}
}

func TestCredentialRepository_SaveOverwrites(t *testing.T) {
	repo, _ := testCredentialRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, "first"); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := repo.Save(ctx, "second"); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	token, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if token != "second" {
		t.Errorf("Expected second, got %q", token)
	}
}

func TestCredentialRepository_GetMissing(t *testing.T) {
	repo, _ := testCredentialRepo(t)

	_, err := repo.Get(context.Background())
	if !domain.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestCredentialRepository_TokenNotStoredInPlaintext(t *testing.T) {
	repo, db := testCredentialRepo(t)
	ctx := context.Background()

	const token = "gho_very_recognizable_token_value"
	if err := repo.Save(ctx, token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var row struct {
		Value string `db:"value"`
	}
	if err := db.NewQuery(`SELECT value FROM credentials`).One(&row); err != nil {
		t.Fatalf("Failed to read raw row: %v", err)
	}
	if strings.Contains(row.Value, token) {
		t.Error("Stored value must not contain the plaintext token")
	}
}

func TestCredentialRepository_ClearAndExists(t *testing.T) {
	repo, _ := testCredentialRepo(t)
	ctx := context.Background()

	exists, err := repo.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Expected no credential initially")
	}

	if err := repo.Save(ctx, "gho_tok"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	exists, _ = repo.Exists(ctx)
	if !exists {
		t.Error("Expected credential after save")
	}

	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	exists, _ = repo.Exists(ctx)
	if exists {
		t.Error("Expected no credential after clear")
	}

	// Clearing an empty store is a no-op.
	if err := repo.Clear(ctx); err != nil {
		t.Errorf("Clear on empty store failed: %v", err)
	}
}

func TestCredentialRepository_WrongSecretFailsDecrypt(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	writer, err := NewSQLiteCredentialRepository(db, testSecret)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := writer.Save(ctx, "gho_tok"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reader, err := NewSQLiteCredentialRepository(db, "another-secret-key-with-at-least-32-chars")
	if err != nil {
		t.Fatalf("Failed to create reader: %v", err)
	}
	if _, err := reader.Get(ctx); err == nil {
		t.Error("Expected decrypt failure with the wrong secret")
	}
}

func TestNewSQLiteCredentialRepository_EmptySecret(t *testing.T) {
	db := testDB(t)
	if _, err := NewSQLiteCredentialRepository(db, ""); err == nil {
		t.Error("Expected error for empty secret")
	}
}

package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/gofrs/uuid/v5"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test_postdesk.db")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func newProfileID(t *testing.T) string {
	t.Helper()
	return uuid.Must(uuid.NewV4()).String()
}

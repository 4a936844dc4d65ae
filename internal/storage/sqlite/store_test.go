package sqlite

import (
	"testing"

	"postdesk/internal/storage"
)

func TestStoreImplementsInterface(t *testing.T) {
	t.Parallel()
	var _ storage.Ledger = (*Store)(nil)
}

func TestNewStoreMigratesTwice(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)

	// a second run must be a no-op
	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var tables []string
	if err := store.db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' AND name IN ('media', 'profiles', 'sessions') ORDER BY name`); err != nil {
		t.Fatalf("listing tables: %v", err)
	}
	if len(tables) != 3 {
		t.Fatalf("expected media, profiles and sessions tables, got %v", tables)
	}
}

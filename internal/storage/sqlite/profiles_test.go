package sqlite

import (
	"context"
	"errors"
	"testing"

	"postdesk/internal/storage"
)

func TestSetAvatar(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)
	ctx := context.Background()
	id := newProfileID(t)

	first, err := store.SetAvatar(ctx, id, "http://cdn/avatars/a.png")
	if err != nil {
		t.Fatalf("SetAvatar: %v", err)
	}
	if first.AvatarURL != "http://cdn/avatars/a.png" || first.UpdatedAt != nil {
		t.Errorf("unexpected profile %+v", first)
	}

	second, err := store.SetAvatar(ctx, id, "http://cdn/avatars/b.png")
	if err != nil {
		t.Fatalf("SetAvatar (upsert): %v", err)
	}
	if second.AvatarURL != "http://cdn/avatars/b.png" {
		t.Errorf("avatar not replaced: %q", second.AvatarURL)
	}
	if second.UpdatedAt == nil {
		t.Error("expected updated_at after replacing the avatar")
	}

	got, err := store.GetProfile(ctx, id)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.AvatarURL != second.AvatarURL {
		t.Errorf("GetProfile: got %q, want %q", got.AvatarURL, second.AvatarURL)
	}
}

func TestSetAvatarRejectsMalformedID(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)

	if _, err := store.SetAvatar(context.Background(), "short", "http://cdn/x.png"); !errors.Is(err, storage.ErrCheckViolation) {
		t.Fatalf("got %v, want ErrCheckViolation", err)
	}
}

func TestGetProfileNotFound(t *testing.T) {
	t.Parallel()
	store := setupTestStore(t)

	if _, err := store.GetProfile(context.Background(), newProfileID(t)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

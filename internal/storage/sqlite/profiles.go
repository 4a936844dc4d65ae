package sqlite

import (
	"context"
	"fmt"

	"postdesk/internal/storage"
)

// SetAvatar creates the profile on first use, the avatar url is overwritten afterwards.
func (s *Store) SetAvatar(ctx context.Context, profileID, avatarURL string) (*storage.Profile, error) {
	query := `INSERT INTO profiles (id, avatar_url) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET avatar_url = excluded.avatar_url, updated_at = CURRENT_TIMESTAMP
		RETURNING id, avatar_url, created_at, updated_at`

	var p storage.Profile
	if err := s.db.GetContext(ctx, &p, query, profileID, avatarURL); err != nil {
		return nil, fmt.Errorf("could not set avatar: %w", mapSqlError(err))
	}

	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, profileID string) (*storage.Profile, error) {
	query := `SELECT id, avatar_url, created_at, updated_at FROM profiles WHERE id = ? LIMIT 1`

	var p storage.Profile
	if err := s.db.GetContext(ctx, &p, query, profileID); err != nil {
		return nil, fmt.Errorf("cannot find profile %s: %w", profileID, mapSqlError(err))
	}

	return &p, nil
}

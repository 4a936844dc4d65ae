package sqlite

import (
	"context"
	"fmt"

	"postdesk/internal/storage"
)

const mediaColumns = `id, draft_id, bucket, object_key, url, target, content_type, size_bytes, width, height, created_at`

func (s *Store) RecordMedia(ctx context.Context, m *storage.Media) (*storage.Media, error) {
	query := `INSERT INTO media (draft_id, bucket, object_key, url, target, content_type, size_bytes, width, height)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + mediaColumns

	var recorded storage.Media
	err := s.db.GetContext(ctx, &recorded, query,
		m.DraftID, m.Bucket, m.Key, m.URL, m.Target, m.ContentType, m.SizeBytes, m.Width, m.Height)
	if err != nil {
		return nil, fmt.Errorf("could not record media %s/%s: %w", m.Bucket, m.Key, mapSqlError(err))
	}

	return &recorded, nil
}

func (s *Store) GetMediaByKey(ctx context.Context, bucket, key string) (*storage.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE bucket = ? AND object_key = ? LIMIT 1`

	var m storage.Media
	if err := s.db.GetContext(ctx, &m, query, bucket, key); err != nil {
		return nil, fmt.Errorf("cannot find media %s/%s: %w", bucket, key, mapSqlError(err))
	}

	return &m, nil
}

func (s *Store) GetMediaForDraft(ctx context.Context, draftID string, offset, limit int64) ([]*storage.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media
		WHERE draft_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
		OFFSET ?`

	var media []*storage.Media
	if err := s.db.SelectContext(ctx, &media, query, draftID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to get media: %w", mapSqlError(err))
	}

	return media, nil
}

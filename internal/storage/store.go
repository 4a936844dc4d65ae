package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// BlobStore persists binary payloads under a bucket/key pair and resolves
// stored paths to URLs a browser can fetch.
type BlobStore interface {
	// StoreObject writes body under key and returns the stable path of the stored object.
	StoreObject(ctx context.Context, bucket, key string, body io.ReadSeeker, contentType string) (string, error)
	PublicURLFor(bucket, path string) string
}

// ObjectReader reads stored objects back, the media route uses it to serve
// the local driver's files.
type ObjectReader interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Ledger keeps track of what was uploaded and where profile avatars live.
type Ledger interface {
	// media
	RecordMedia(ctx context.Context, m *Media) (*Media, error)
	GetMediaByKey(ctx context.Context, bucket, key string) (*Media, error)
	GetMediaForDraft(ctx context.Context, draftID string, offset, limit int64) ([]*Media, error)

	// profiles
	SetAvatar(ctx context.Context, profileID, avatarURL string) (*Profile, error)
	GetProfile(ctx context.Context, profileID string) (*Profile, error)

	Close() error
}

var (
	ErrNotFound        = errors.New("record not found")
	ErrUniqueViolation = errors.New("unique constraint violation")
	ErrCheckViolation  = errors.New("check constraint violation")
	ErrInvalidKey      = errors.New("storage: invalid key")
	ErrInvalidBucket   = errors.New("storage: invalid bucket")
)

type Media struct {
	ID          int64     `db:"id" json:"id"`
	DraftID     string    `db:"draft_id" json:"draft_id"`
	Bucket      string    `db:"bucket" json:"bucket"`
	Key         string    `db:"object_key" json:"key"`
	URL         string    `db:"url" json:"url"`
	Target      string    `db:"target" json:"target"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	Width       int       `db:"width" json:"width,omitempty"`
	Height      int       `db:"height" json:"height,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Profile struct {
	ID        string     `db:"id" json:"id"`
	AvatarURL string     `db:"avatar_url" json:"avatar_url"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
)

// LocalStore keeps objects under basePath/<bucket>/<key>. Used for local development,
// where the files are served back by the router under the public base URL.
type LocalStore struct {
	basePath   string
	publicBase string
}

var _ BlobStore = (*LocalStore)(nil)

func NewLocalStorage(basePath, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{basePath: basePath, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

func (l *LocalStore) StoreObject(ctx context.Context, bucket, key string, body io.ReadSeeker, contentType string) (string, error) {
	key, err := cleanObjectKey(key)
	if err != nil {
		return "", err
	}
	if _, err := cleanObjectKey(bucket); err != nil || strings.Contains(bucket, "/") {
		return "", ErrInvalidBucket
	}

	root, err := os.OpenRoot(l.basePath)
	if err != nil {
		return "", fmt.Errorf("open media root: %w", err)
	}
	defer root.Close()

	name := path.Join(bucket, key)
	if err := root.MkdirAll(path.Dir(name), 0o755); err != nil {
		return "", fmt.Errorf("create bucket dir: %w", err)
	}

	tmpName := name + ".tmp"
	f, err := root.Create(tmpName)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}

	if _, err := io.Copy(f, readerWithContext(ctx, body)); err != nil {
		f.Close()
		root.Remove(tmpName)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		root.Remove(tmpName)
		return "", fmt.Errorf("close object: %w", err)
	}

	if err := root.Rename(tmpName, name); err != nil {
		root.Remove(tmpName)
		return "", fmt.Errorf("rename object: %w", err)
	}

	return key, nil
}

func (l *LocalStore) PublicURLFor(bucket, path string) string {
	return publicURL(l.publicBase, bucket, path)
}

// Open returns the stored object, ErrNotFound when there is none.
func (l *LocalStore) Open(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	key, err := cleanObjectKey(key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.OpenInRoot(l.basePath, path.Join(bucket, key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}
	return f, err
}

// Dir is the directory holding every bucket, for serving files back in development.
func (l *LocalStore) Dir() string {
	return l.basePath
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}

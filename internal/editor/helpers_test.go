package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"postdesk/internal/media"
	"postdesk/internal/telemetry"
)

var (
	pngFile  = media.File{Name: "photo.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")}
	jpegFile = media.File{Name: "cover.jpg", ContentType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}
	textFile = media.File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")}
)

// gatedUploader blocks every Upload until the test sends the outcome for
// that request's target.
type gatedUploader struct {
	mu      sync.Mutex
	reqs    []media.UploadRequest
	started chan media.UploadRequest
	gates   map[media.Target]chan media.Outcome
}

func newGatedUploader() *gatedUploader {
	return &gatedUploader{
		started: make(chan media.UploadRequest, 8),
		gates: map[media.Target]chan media.Outcome{
			media.Featured: make(chan media.Outcome, 1),
			media.Dropped:  make(chan media.Outcome, 1),
			media.Inline:   make(chan media.Outcome, 1),
		},
	}
}

func (u *gatedUploader) Upload(ctx context.Context, req media.UploadRequest) media.Outcome {
	u.mu.Lock()
	u.reqs = append(u.reqs, req)
	u.mu.Unlock()

	u.started <- req
	select {
	case out := <-u.gates[req.Target]:
		return out
	case <-ctx.Done():
		return media.Failed(ctx.Err().Error(), ctx.Err())
	}
}

func (u *gatedUploader) release(target media.Target, out media.Outcome) {
	u.gates[target] <- out
}

func (u *gatedUploader) calls() []media.UploadRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]media.UploadRequest(nil), u.reqs...)
}

// instantUploader answers immediately with a fixed outcome.
type instantUploader struct {
	out   media.Outcome
	mu    sync.Mutex
	count int
}

func (u *instantUploader) Upload(context.Context, media.UploadRequest) media.Outcome {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.count++
	return u.out
}

func newSurfaceWith(t *testing.T, u Uploader) *Surface {
	t.Helper()
	s := NewSurface("draft-1", Deps{
		Media:   media.Config{Store: &memStore{}, Bucket: "blog-images"},
		Logger:  slog.New(slog.DiscardHandler),
		Metrics: telemetry.NewNoopMetrics(),
	})
	s.DropZone.uploader = u
	s.Inline.uploader = u
	s.Featured.uploader = u
	return s
}

// memStore is a blob store for surfaces running the real coordinator.
type memStore struct {
	mu      sync.Mutex
	calls   int
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (m *memStore) StoreObject(ctx context.Context, bucket, key string, body io.ReadSeeker, contentType string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return "", m.err
	}
	return key, nil
}

func (m *memStore) PublicURLFor(bucket, path string) string {
	return "https://cdn.test/" + bucket + "/" + path
}

func (m *memStore) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newRealSurface(store *memStore) *Surface {
	return NewSurface("draft-1", Deps{
		Media:   media.Config{Store: store, Bucket: "blog-images", MaxBytes: 1 << 20},
		Logger:  slog.New(slog.DiscardHandler),
		Metrics: telemetry.NewNoopMetrics(),
	})
}

var errStoreDown = errors.New("store unreachable")

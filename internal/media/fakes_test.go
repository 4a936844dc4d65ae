package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"
	"testing"

	"postdesk/internal/notify"
	"postdesk/internal/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	calls   int
	err     error
	// gate, when set, blocks StoreObject until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) StoreObject(ctx context.Context, bucket, key string, body io.ReadSeeker, contentType string) (string, error) {
	s.mu.Lock()
	s.calls++
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.objects[bucket+"/"+key] = data
	s.mu.Unlock()
	return key, nil
}

func (s *fakeStore) PublicURLFor(bucket, path string) string {
	return "https://cdn.test/" + bucket + "/" + path
}

func (s *fakeStore) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeTracker struct {
	mu       sync.Mutex
	inFlight int
	begins   int
	ends     int
	lastErr  string
}

func (t *fakeTracker) BeginUpload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight++
	t.begins++
	t.lastErr = ""
}

func (t *fakeTracker) FailUpload(_ uint64, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastErr = msg
}

func (t *fakeTracker) EndUpload() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inFlight--
	t.ends++
}

func (t *fakeTracker) Uploading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlight > 0
}

type fakeRecorder struct {
	mu   sync.Mutex
	rows []*storage.Media
	err  error
}

func (r *fakeRecorder) RecordMedia(_ context.Context, m *storage.Media) (*storage.Media, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	r.rows = append(r.rows, m)
	return m, nil
}

func collectSink() (notify.Sink, func() []notify.Notification) {
	var mu sync.Mutex
	var got []notify.Notification
	sink := notify.SinkFunc(func(n notify.Notification) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n)
	})
	return sink, func() []notify.Notification {
		mu.Lock()
		defer mu.Unlock()
		return append([]notify.Notification(nil), got...)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

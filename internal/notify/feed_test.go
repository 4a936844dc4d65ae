package notify

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestFeedDrain(t *testing.T) {
	t.Parallel()
	f := NewFeed(3)

	for i := range 5 {
		f.Notify(Notification{Kind: Success, Title: fmt.Sprintf("n%d", i)})
	}

	got := f.Drain()
	if len(got) != 3 {
		t.Fatalf("got %d notifications, want 3", len(got))
	}
	for i, want := range []string{"n2", "n3", "n4"} {
		if got[i].Title != want {
			t.Errorf("item %d: got %q, want %q", i, got[i].Title, want)
		}
		if got[i].At.IsZero() {
			t.Errorf("item %d: missing timestamp", i)
		}
	}

	if f.Len() != 0 {
		t.Errorf("feed not empty after drain: %d", f.Len())
	}
}

func TestFeedConcurrentNotify(t *testing.T) {
	t.Parallel()
	f := NewFeed(1000)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			for range 10 {
				f.Notify(Notification{Kind: Failure})
			}
		})
	}
	wg.Wait()

	if got := len(f.Drain()); got != 500 {
		t.Errorf("got %d notifications, want 500", got)
	}
}

func TestMultiAndLogSink(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	feed := NewFeed(0)

	sink := Multi(LogSink{Logger: logger}, nil, feed)
	sink.Notify(Notification{Kind: Failure, Title: "Upload failed", Detail: "bucket unreachable"})

	if feed.Len() != 1 {
		t.Errorf("feed did not receive the notification")
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "bucket unreachable") {
		t.Errorf("unexpected log output %q", out)
	}
}

package notify

import (
	"sync"
	"time"
)

const DefaultFeedSize = 32

// Feed buffers the latest notifications of one authoring session until the
// client collects them. Once full, the oldest entries are dropped.
type Feed struct {
	mu    sync.Mutex
	items []Notification
	size  int
	now   func() time.Time
}

var _ Sink = (*Feed)(nil)

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{size: size, now: time.Now}
}

func (f *Feed) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = f.now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == f.size {
		copy(f.items, f.items[1:])
		f.items = f.items[:len(f.items)-1]
	}
	f.items = append(f.items, n)
}

// Drain returns the buffered notifications, oldest first, and empties the feed.
func (f *Feed) Drain() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.items
	f.items = make([]Notification, 0, f.size)
	return out
}

func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

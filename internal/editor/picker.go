package editor

import (
	"context"
	"errors"
	"sync"

	"postdesk/internal/media"
)

var (
	ErrPickerBusy   = errors.New("editor: picker already open")
	ErrPickerClosed = errors.New("editor: picker is not open")
)

// FilePicker is the file selection surface. A nil file with a nil error means
// the author closed it without choosing anything.
type FilePicker interface {
	Open(ctx context.Context) (*media.File, error)
}

type PickerFunc func(ctx context.Context) (*media.File, error)

func (f PickerFunc) Open(ctx context.Context) (*media.File, error) {
	return f(ctx)
}

// Selected is a picker whose choice is already known, as with a form post.
func Selected(f media.File) FilePicker {
	return PickerFunc(func(context.Context) (*media.File, error) {
		return &f, nil
	})
}

// ChannelPicker is a reusable picker for interactive hosts. Open waits until
// Offer or Cancel is called from elsewhere. Only one Open may wait at a time
// and its wait state is released when Open returns.
type ChannelPicker struct {
	mu      sync.Mutex
	pending chan *media.File
}

func NewChannelPicker() *ChannelPicker {
	return &ChannelPicker{}
}

func (p *ChannelPicker) Open(ctx context.Context) (*media.File, error) {
	p.mu.Lock()
	if p.pending != nil {
		p.mu.Unlock()
		return nil, ErrPickerBusy
	}
	ch := make(chan *media.File, 1)
	p.pending = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.pending == ch {
			p.pending = nil
		}
		p.mu.Unlock()
	}()

	select {
	case f := <-ch:
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Waiting reports whether an Open call is waiting for a choice.
func (p *ChannelPicker) Waiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

func (p *ChannelPicker) Offer(f media.File) error {
	return p.deliver(&f)
}

func (p *ChannelPicker) Cancel() error {
	return p.deliver(nil)
}

func (p *ChannelPicker) deliver(f *media.File) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return ErrPickerClosed
	}
	select {
	case p.pending <- f:
	default:
		return ErrPickerBusy
	}
	p.pending = nil
	return nil
}

package editor

import (
	"errors"
	"sync/atomic"

	"postdesk/internal/document"
)

var ErrCaptureConsumed = errors.New("editor: cursor capture already consumed")

// CursorCapture pins the cursor at the moment an inline upload starts. It is
// resolved once, later edits to the document do not move it.
type CursorCapture struct {
	pos      document.Position
	selected bool
	used     atomic.Bool
}

// CaptureCursor reads the selection now. No selection resolves to the start
// of the document.
func CaptureCursor(doc *document.Document) *CursorCapture {
	pos, ok := doc.CursorSelection()
	return &CursorCapture{pos: pos, selected: ok}
}

func (c *CursorCapture) HadSelection() bool {
	return c.selected
}

func (c *CursorCapture) Resolve() (document.Position, error) {
	if !c.used.CompareAndSwap(false, true) {
		return 0, ErrCaptureConsumed
	}
	if !c.selected {
		return 0, nil
	}
	return c.pos, nil
}

// Discard consumes the capture without using it.
func (c *CursorCapture) Discard() {
	c.used.Store(true)
}

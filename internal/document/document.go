// Package document is the rich-text engine behind an authoring surface: a
// markdown source buffer with a rune indexed cursor.
package document

import (
	"errors"
	"sync"
	"unicode/utf8"
)

var (
	ErrEmptyURL      = errors.New("document: empty image url")
	ErrInvalidRange  = errors.New("document: invalid range")
	ErrInvalidString = errors.New("document: invalid utf-8")
)

// Position is a rune offset into the document source.
type Position int

type Document struct {
	mu       sync.Mutex
	text     []rune
	cursor   int
	selected bool
	version  uint64
}

func New(content string) *Document {
	return &Document{text: []rune(content)}
}

func (d *Document) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return string(d.text)
}

func (d *Document) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.text)
}

// Version increases on every edit.
func (d *Document) Version() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// SetContent replaces the whole source and drops the selection.
func (d *Document) SetContent(content string) error {
	if !utf8.ValidString(content) {
		return ErrInvalidString
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = []rune(content)
	d.cursor = 0
	d.selected = false
	d.version++
	return nil
}

// Select places the cursor, clamped to the document bounds.
func (d *Document) Select(pos Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cursor = d.clamp(pos)
	d.selected = true
}

// Blur removes the selection, as when the editor loses focus.
func (d *Document) Blur() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = false
}

// CursorSelection reports the current cursor, ok is false with no selection.
func (d *Document) CursorSelection() (Position, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.selected {
		return 0, false
	}
	return Position(d.cursor), true
}

// Type inserts s at the cursor and moves the cursor past it. Without a
// selection the text goes to the start of the document.
func (d *Document) Type(s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidString
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	at := 0
	if d.selected {
		at = d.cursor
	}
	d.insert(at, []rune(s))
	d.cursor = at + utf8.RuneCountInString(s)
	d.selected = true
	return nil
}

func (d *Document) InsertAt(pos Position, s string) error {
	if !utf8.ValidString(s) {
		return ErrInvalidString
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insert(d.clamp(pos), []rune(s))
	return nil
}

// Delete removes n runes starting at pos.
func (d *Document) Delete(pos Position, n int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	start := int(pos)
	if start < 0 || n < 0 || start+n > len(d.text) {
		return ErrInvalidRange
	}
	if n == 0 {
		return nil
	}
	d.text = append(d.text[:start], d.text[start+n:]...)
	switch {
	case d.cursor >= start+n:
		d.cursor -= n
	case d.cursor > start:
		d.cursor = start
	}
	d.version++
	return nil
}

// InsertEmbeddedImage inserts a markdown image at pos. Positions past the end
// land at the end, since the document may have shrunk since pos was taken.
func (d *Document) InsertEmbeddedImage(pos Position, url string) error {
	if url == "" {
		return ErrEmptyURL
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.insert(d.clamp(pos), []rune(ImageMarkdown(url)))
	return nil
}

func ImageMarkdown(url string) string {
	return "![image](" + url + ")"
}

// insert shifts a cursor sitting at or after at, callers hold mu.
func (d *Document) insert(at int, r []rune) {
	if len(r) == 0 {
		return
	}
	d.text = append(d.text[:at], append(r, d.text[at:]...)...)
	if d.cursor >= at && d.selected {
		d.cursor += len(r)
	}
	d.version++
}

func (d *Document) clamp(pos Position) int {
	switch {
	case pos < 0:
		return 0
	case int(pos) > len(d.text):
		return len(d.text)
	default:
		return int(pos)
	}
}

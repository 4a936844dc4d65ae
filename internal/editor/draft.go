// Package editor holds the authoring surface: draft state, the featured image
// slot and the three upload entry points that feed it.
package editor

import (
	"sync"

	"postdesk/internal/document"
)

// DraftState is the state of one authoring session. Every mutation goes
// through a method. Lock order is draft, then document.
type DraftState struct {
	mu         sync.Mutex
	title      string
	excerpt    string
	featured   string
	uploading  int
	lastError  string
	generation uint64
	doc        *document.Document
}

// Snapshot is a consistent copy of the draft for rendering.
type Snapshot struct {
	Title            string  `json:"title"`
	Content          string  `json:"content"`
	Excerpt          string  `json:"excerpt"`
	FeaturedImageURL *string `json:"featured_image_url"`
	Uploading        bool    `json:"uploading"`
	LastError        *string `json:"last_error"`
	Generation       uint64  `json:"generation"`
	Cursor           *int    `json:"cursor"`
}

func NewDraftState() *DraftState {
	return &DraftState{doc: document.New("")}
}

func (d *DraftState) Document() *document.Document {
	return d.doc
}

func (d *DraftState) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

func (d *DraftState) SetExcerpt(excerpt string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.excerpt = excerpt
}

func (d *DraftState) SetContent(content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.SetContent(content)
}

func (d *DraftState) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

// Uploading is true while at least one upload is in flight.
func (d *DraftState) Uploading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.uploading > 0
}

func (d *DraftState) LastError() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastError, d.lastError != ""
}

func (d *DraftState) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Snapshot{
		Title:      d.title,
		Content:    d.doc.Content(),
		Excerpt:    d.excerpt,
		Uploading:  d.uploading > 0,
		Generation: d.generation,
	}
	if d.featured != "" {
		url := d.featured
		s.FeaturedImageURL = &url
	}
	if d.lastError != "" {
		msg := d.lastError
		s.LastError = &msg
	}
	if pos, ok := d.doc.CursorSelection(); ok {
		p := int(pos)
		s.Cursor = &p
	}
	return s
}

// BeginUpload, FailUpload and EndUpload make the draft a media.StatusTracker.

func (d *DraftState) BeginUpload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.uploading++
	d.lastError = ""
}

func (d *DraftState) FailUpload(generation uint64, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if generation != d.generation {
		return
	}
	d.lastError = message
}

func (d *DraftState) EndUpload() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.uploading > 0 {
		d.uploading--
	}
}

// reset clears the draft and starts a new generation. Uploads still in
// flight keep counting towards Uploading until they return.
func (d *DraftState) reset(title, excerpt, featured, content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.doc.SetContent(content); err != nil {
		return err
	}
	d.title = title
	d.excerpt = excerpt
	d.featured = featured
	d.lastError = ""
	d.generation++
	return nil
}

// captureCursor pins the cursor together with the generation it belongs to.
func (d *DraftState) captureCursor() (*CursorCapture, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return CaptureCursor(d.doc), d.generation
}

// insertImage applies an inline outcome if generation is still live.
func (d *DraftState) insertImage(generation uint64, pos document.Position, url string) (applied bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if generation != d.generation {
		return false, nil
	}
	if err := d.doc.InsertEmbeddedImage(pos, url); err != nil {
		return false, err
	}
	return true, nil
}

package media

import (
	"encoding/json"
	"errors"
)

// Target says which reconciliation step will consume an upload's outcome.
// The coordinator only carries it for logs and metrics.
type Target string

const (
	Featured Target = "featured"
	Dropped  Target = "dropped"
	Inline   Target = "inline"
	Avatar   Target = "avatar"
)

var (
	ErrUploadTransport = errors.New("media: upload transport failure")
	ErrEmptyFile       = errors.New("media: file is empty")
	ErrFileTooLarge    = errors.New("media: file too large")
	ErrNotImage        = errors.New("media: file is not an image")
)

// UploadRequest is passed by value and never modified after construction.
type UploadRequest struct {
	File   File
	Target Target
	// Generation of the draft at the time the request was built.
	Generation uint64
	DraftID    string
	// Key overrides the generated key, avatars use it to overwrite in place.
	Key string
}

// Outcome is either a success carrying the public URL or a failure carrying
// a message. Build one with Succeeded or Failed.
type Outcome struct {
	ok      bool
	url     string
	message string
	err     error
}

func Succeeded(url string) Outcome {
	return Outcome{ok: true, url: url}
}

func Failed(message string, err error) Outcome {
	if err == nil {
		err = errors.New(message)
	}
	return Outcome{message: message, err: err}
}

func (o Outcome) OK() bool        { return o.ok }
func (o Outcome) URL() string     { return o.url }
func (o Outcome) Message() string { return o.message }
func (o Outcome) Err() error      { return o.err }

func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.ok {
		return json.Marshal(struct {
			Status string `json:"status"`
			URL    string `json:"url"`
		}{"success", o.url})
	}
	return json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}{"failure", o.message})
}

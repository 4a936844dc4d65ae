package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"postdesk/internal/media"
)

const maxFormMemory = 32 << 20

var errMissingFile = errors.New("missing file")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// readFiles reads every part named field of a multipart form.
func readFiles(r *http.Request, field string) ([]media.File, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: request body over %d bytes", media.ErrFileTooLarge, tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: %q", errMissingFile, field)
	}

	files := make([]media.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(r *http.Request, field string) (media.File, error) {
	files, err := readFiles(r, field)
	if err != nil {
		return media.File{}, err
	}
	return files[0], nil
}

func readPart(fh *multipart.FileHeader) (media.File, error) {
	part, err := fh.Open()
	if err != nil {
		return media.File{}, fmt.Errorf("open part %q: %w", fh.Filename, err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return media.File{}, fmt.Errorf("read part %q: %w", fh.Filename, err)
	}
	return media.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// uploadContext detaches an upload from its request. Once started an upload
// runs to completion and its outcome is applied, even if the client is gone.
func uploadContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

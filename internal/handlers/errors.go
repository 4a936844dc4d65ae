package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"postdesk/internal/document"
	"postdesk/internal/editor"
	"postdesk/internal/media"
	"postdesk/internal/middleware"
	"postdesk/internal/storage"
)

var (
	errBadRequest = errors.New("bad request")
	errNoDraft    = errors.New("no active draft, POST /editor first")
	errNotImage   = errors.New("file is not an image")
	errNoProfile  = errors.New("no profile for this session")
)

type apiError struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto http status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, errMissingFile),
		errors.Is(err, document.ErrInvalidRange),
		errors.Is(err, document.ErrInvalidString):
		return http.StatusBadRequest
	case errors.Is(err, errNoDraft),
		errors.Is(err, errNoProfile),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrPickerBusy):
		return http.StatusConflict
	case errors.Is(err, media.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNotImage), errors.Is(err, media.ErrNotImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, media.ErrEmptyFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, media.ErrUploadTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	logger = middleware.LoggerFrom(r.Context(), logger)

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "path", r.URL.Path, "err", err)
		if status == http.StatusInternalServerError {
			writeJSON(w, status, apiError{Error: http.StatusText(status)})
			return
		}
	} else {
		logger.Warn("request rejected", "status", status, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, apiError{Error: err.Error()})
}

// resultStatus picks the status of an upload response. The body always
// carries the full result.
func resultStatus(res editor.Result) int {
	if !res.Uploaded || res.Outcome.OK() {
		return http.StatusOK
	}
	return statusFor(res.Outcome.Err())
}

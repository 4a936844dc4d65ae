package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"postdesk/internal/document"
	"postdesk/internal/editor"
	"postdesk/internal/middleware"
	"postdesk/internal/notify"
	"postdesk/internal/storage"

	"github.com/a-h/templ"
)

// DraftSession binds a browser session to a draft id.
type DraftSession interface {
	DraftID(ctx context.Context) string
	SetDraftID(ctx context.Context, id string) error
}

type MediaLister interface {
	GetMediaForDraft(ctx context.Context, draftID string, offset, limit int64) ([]*storage.Media, error)
}

type EditorHandler struct {
	Drafts   *editor.Registry
	Sessions DraftSession
	Renderer *document.Renderer
	Media    MediaLister
	Logger   *slog.Logger
	// UploadTimeout bounds an upload once it left the request, 0 means none.
	UploadTimeout time.Duration
}

type stateResponse struct {
	ID string `json:"id"`
	editor.Snapshot
	CSRFToken string `json:"csrf_token,omitempty"`
}

func (h *EditorHandler) surface(r *http.Request) (*editor.Surface, error) {
	id := h.Sessions.DraftID(r.Context())
	if id == "" {
		return nil, errNoDraft
	}
	s, ok := h.Drafts.Get(id)
	if !ok {
		return nil, errNoDraft
	}
	return s, nil
}

func (h *EditorHandler) writeState(w http.ResponseWriter, r *http.Request, status int, s *editor.Surface) {
	writeJSON(w, status, stateResponse{
		ID:        s.ID,
		Snapshot:  s.Draft.Snapshot(),
		CSRFToken: middleware.CSRFToken(r),
	})
}

// HandleStart opens a draft for the session, or resets the current one.
func (h *EditorHandler) HandleStart() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, err := h.surface(r); err == nil {
			s.Reset()
			h.writeState(w, r, http.StatusOK, s)
			return
		}

		s, err := h.Drafts.Create()
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		if err := h.Sessions.SetDraftID(r.Context(), s.ID); err != nil {
			h.Drafts.Delete(s.ID)
			writeError(w, r, h.Logger, err)
			return
		}

		middleware.LoggerFrom(r.Context(), h.Logger).Info("draft started", "draft", s.ID)
		h.writeState(w, r, http.StatusCreated, s)
	})
}

func (h *EditorHandler) HandleState() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		h.writeState(w, r, http.StatusOK, s)
	})
}

type fieldsRequest struct {
	Title   *string `json:"title"`
	Excerpt *string `json:"excerpt"`
	Content *string `json:"content"`
}

func (h *EditorHandler) HandleFields() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		var req fieldsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		if req.Content != nil {
			if err := s.Draft.SetContent(*req.Content); err != nil {
				writeError(w, r, h.Logger, err)
				return
			}
		}
		if req.Title != nil {
			s.Draft.SetTitle(*req.Title)
		}
		if req.Excerpt != nil {
			s.Draft.SetExcerpt(*req.Excerpt)
		}
		h.writeState(w, r, http.StatusOK, s)
	})
}

type cursorRequest struct {
	Index *int `json:"index"`
}

// HandleCursor moves the cursor, a null index removes the selection.
func (h *EditorHandler) HandleCursor() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		var req cursorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		doc := s.Draft.Document()
		if req.Index == nil {
			doc.Blur()
		} else {
			doc.Select(document.Position(*req.Index))
		}
		h.writeState(w, r, http.StatusOK, s)
	})
}

// HandleFeatured is the explicit cover picker, the chosen file always wins.
func (h *EditorHandler) HandleFeatured() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		file, err := readFile(r, "file")
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		ctx, cancel := uploadContext(r, h.UploadTimeout)
		defer cancel()

		res, err := s.Featured.Choose(ctx, editor.Selected(file))
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		writeJSON(w, resultStatus(res), res)
	})
}

func (h *EditorHandler) HandleClearFeatured() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		s.Slot.Clear()
		h.writeState(w, r, http.StatusOK, s)
	})
}

// HandleDrop accepts any number of files, only the first image is uploaded.
func (h *EditorHandler) HandleDrop() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		files, err := readFiles(r, "files")
		if err != nil && statusFor(err) != http.StatusBadRequest {
			writeError(w, r, h.Logger, err)
			return
		}

		ctx, cancel := uploadContext(r, h.UploadTimeout)
		defer cancel()

		res := s.DropZone.Drop(ctx, files)
		writeJSON(w, resultStatus(res), res)
	})
}

func (h *EditorHandler) HandleInline() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		file, err := readFile(r, "file")
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		ctx, cancel := uploadContext(r, h.UploadTimeout)
		defer cancel()

		res, err := s.Inline.Trigger(ctx, editor.Selected(file))
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		writeJSON(w, resultStatus(res), res)
	})
}

func (h *EditorHandler) HandleImport() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		file, err := readFile(r, "file")
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		if err := s.Import(bytes.NewReader(file.Data)); err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		h.writeState(w, r, http.StatusOK, s)
	})
}

func (h *EditorHandler) HandlePreview() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		snap := s.Draft.Snapshot()
		html, err := h.Renderer.Render(r.Context(), []byte(snap.Content))
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := previewPage(snap, templ.Raw(string(html))).Render(r.Context(), w); err != nil {
			middleware.LoggerFrom(r.Context(), h.Logger).Warn("preview interrupted", "err", err)
		}
	})
}

func (h *EditorHandler) HandleNotifications() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		items := s.Feed.Drain()
		if items == nil {
			items = []notify.Notification{}
		}
		writeJSON(w, http.StatusOK, items)
	})
}

// HandleMedia lists what the draft uploaded, newest first.
func (h *EditorHandler) HandleMedia() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.surface(r)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}

		offset := queryInt(r, "offset", 0)
		limit := min(queryInt(r, "limit", 20), 100)

		items, err := h.Media.GetMediaForDraft(r.Context(), s.ID, offset, limit)
		if err != nil {
			writeError(w, r, h.Logger, err)
			return
		}
		if items == nil {
			items = []*storage.Media{}
		}
		writeJSON(w, http.StatusOK, items)
	})
}

func queryInt(r *http.Request, key string, fallback int64) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

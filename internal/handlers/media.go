package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"postdesk/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const cacheForAYear = 31536000

// MediaHandler serves stored objects back under the public base url when the
// local storage driver is used. Keys in immutable buckets never change, so
// they are cached for a year.
type MediaHandler struct {
	Objects   storage.ObjectReader
	Immutable map[string]bool // bucket -> immutable
	Tracer    trace.Tracer
	Logger    *slog.Logger
}

func (h *MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "MediaHandler.ServeHTTP")
	defer span.End()

	// expected format: /media/{bucket}/{key...}
	bucket := r.PathValue("bucket")
	key := r.PathValue("key")
	immutable, known := h.Immutable[bucket]
	if !known {
		http.NotFound(w, r)
		return
	}
	span.SetAttributes(attribute.String("media.bucket", bucket), attribute.String("media.key", key))

	reader, err := h.Objects.Open(ctx, bucket, key)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrInvalidKey):
			http.NotFound(w, r)
		default:
			span.RecordError(err)
			h.Logger.Error("failed to open media", "bucket", bucket, "key", key, "err", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}
	defer reader.Close()

	mimeType := mime.TypeByExtension(path.Ext(key))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if immutable {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", cacheForAYear))
	} else {
		// avatars are overwritten in place
		w.Header().Set("Cache-Control", "no-cache")
	}

	if _, err := io.Copy(w, reader); err != nil {
		h.Logger.Warn("stream interrupted", "err", err)
	}
}

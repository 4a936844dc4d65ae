package router

import (
	"log/slog"
	"net/http"

	"postdesk/internal/config"
	"postdesk/internal/handlers"
	"postdesk/internal/middleware"
	"postdesk/internal/telemetry"

	"github.com/docker/go-units"
	"go.opentelemetry.io/otel/trace"
)

// multipart framing on top of the largest accepted file
const formOverhead = 1 * units.MiB

// RouterDependencies holds everything needed to register routes.
type RouterDependencies struct {
	Cfg            *config.Config
	Logger         *slog.Logger
	EditorHandler  *handlers.EditorHandler
	ProfileHandler *handlers.ProfileHandler
	MediaHandler   *handlers.MediaHandler // nil unless the local driver serves files
	Metrics        http.Handler
	UploadLimiter  *middleware.IPRateLimiter
	Tracer         trace.Tracer
	Telemetry      *telemetry.Metrics
	Session        *middleware.Sessions
	CSRF           *middleware.CSRF
	CSP            *middleware.CSP
}

func NewRouter(deps RouterDependencies) http.Handler {
	appMux := http.NewServeMux()

	uploadStack := func(h http.Handler) http.Handler {
		h = middleware.LimitBody(deps.Cfg.Upload.MaxSizeBytes() + formOverhead)(h)
		h = deps.UploadLimiter.Middleware(deps.Logger)(h)
		return h
	}

	e := deps.EditorHandler

	// draft
	appMux.Handle("POST /editor", e.HandleStart())
	appMux.Handle("GET /editor/state", e.HandleState())
	appMux.Handle("PUT /editor/fields", e.HandleFields())
	appMux.Handle("PUT /editor/cursor", e.HandleCursor())
	appMux.Handle("GET /editor/preview", e.HandlePreview())
	appMux.Handle("GET /editor/notifications", e.HandleNotifications())
	appMux.Handle("GET /editor/media", e.HandleMedia())
	appMux.Handle("DELETE /editor/featured", e.HandleClearFeatured())

	// uploads
	appMux.Handle("POST /editor/featured", uploadStack(e.HandleFeatured()))
	appMux.Handle("POST /editor/drop", uploadStack(e.HandleDrop()))
	appMux.Handle("POST /editor/inline", uploadStack(e.HandleInline()))
	appMux.Handle("POST /editor/import", uploadStack(e.HandleImport()))
	appMux.Handle("POST /profile/avatar", uploadStack(deps.ProfileHandler.HandleAvatar()))
	appMux.Handle("GET /profile", deps.ProfileHandler.HandleProfile())

	if deps.MediaHandler != nil {
		appMux.Handle("GET /media/{bucket}/{key...}", deps.MediaHandler)
	}

	middlewareStack := []middleware.Middleware{
		middleware.Recover(deps.Logger),
	}

	if deps.Cfg.Metrics.EnableTelemetry {
		// order matters so don't append
		middlewareStack = append(middlewareStack, middleware.Observability(deps.Tracer, deps.Telemetry, deps.Logger))
	} else {
		middlewareStack = append(middlewareStack, middleware.Logger(deps.Logger))
	}

	middlewareStack = append(middlewareStack,
		deps.CSP.Middleware(),
		deps.Session.Middleware(deps.Logger, deps.Tracer),
		deps.CSRF.Middleware(deps.Logger),
	)

	appHandler := middleware.Chain(appMux, middlewareStack...)

	rootMux := http.NewServeMux()

	rootMux.Handle("GET /metrics", deps.Metrics)

	// lightweight for docker keepalive
	rootMux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	rootMux.Handle("/", appHandler)

	return rootMux
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"postdesk/internal/config"
	"postdesk/internal/document"
	"postdesk/internal/editor"
	"postdesk/internal/handlers"
	"postdesk/internal/media"
	"postdesk/internal/middleware"
	"postdesk/internal/notify"
	"postdesk/internal/router"
	"postdesk/internal/storage"
	"postdesk/internal/storage/sqlite"
	"postdesk/internal/telemetry"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

// how often idle drafts are dropped from memory
const sweepInterval = time.Minute

type App struct {
	Server *http.Server
	Logger *slog.Logger
	Config *config.Config
	Drafts *editor.Registry
}

func NewApp(cfg *config.Config, logger *slog.Logger, drafts *editor.Registry, handler http.Handler) *App {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.Timeouts.Read,
		WriteTimeout: cfg.HTTP.Timeouts.Write,
		IdleTimeout:  cfg.HTTP.Timeouts.Idle,
	}

	return &App{
		Server: server,
		Logger: logger,
		Config: cfg,
		Drafts: drafts,
	}
}

// Run serves until ctx is done, sweeping idle drafts in the background.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server startup failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.Drafts.Run(gctx, sweepInterval, a.Config.Auth.SessionTTL)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutdown signal received")

		// attempt clean shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.Timeouts.Shutdown)
		defer cancel()

		a.Logger.Info("draining connections...")
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			// graceful shutdown timed out
			if closeErr := a.Server.Close(); closeErr != nil {
				return fmt.Errorf("graceful shutdown failed: %w", errors.Join(err, closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		a.Logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

// openBlobStore picks the storage driver. The local driver also gets a
// handler that serves its files back.
func openBlobStore(cfg *config.Config, tel *telemetry.Telemetry, logger *slog.Logger) (storage.BlobStore, *handlers.MediaHandler, error) {
	if cfg.S3.Driver == "local" {
		local, err := storage.NewLocalStorage(cfg.S3.LocalDir, cfg.S3.PublicBaseURL)
		if err != nil {
			return nil, nil, err
		}
		mh := &handlers.MediaHandler{
			Objects: local,
			Immutable: map[string]bool{
				cfg.S3.ImagesBucket:  true,
				cfg.S3.AvatarsBucket: false, // overwritten on every upload
			},
			Tracer: tel.Tracer,
			Logger: logger,
		}
		return local, mh, nil
	}

	s3, err := storage.NewS3Store(cfg.S3)
	if err != nil {
		return nil, nil, err
	}
	return s3, nil, nil
}

func main() {
	cfg := config.LoadWithDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid configuration: %v", err))
	}

	stderr := os.Stderr
	logHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Logger.Level})
	logger := slog.New(logHandler).With("app", cfg.App.Name)

	logger.Info("application starting", "pid", os.Getpid(), "version", version)
	logger.Info("configuration loaded",
		"name", cfg.App.Name,
		"env", cfg.App.Environment,
		"port", cfg.HTTP.Port,
		"storage", cfg.S3.Driver,
		"max_upload", cfg.Upload.MaxSize,
		"upload_rps", cfg.Upload.Limiter.RPS,
		"trusted_proxy", cfg.Proxy.Trusted,
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(rootCtx, cfg.App.Name, version, cfg.App.Environment, cfg.Metrics.OtelEndpoint, cfg.Metrics.EnableTelemetry, logger)
	if err != nil {
		logger.Error("could not init telemetry", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown", "err", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(tel.Meter)
	if err != nil {
		logger.Error("could not create metrics", "err", err)
		os.Exit(1)
	}

	store, err := sqlite.NewStore(cfg.DB.Path)
	if err != nil {
		logger.Error("could not open database", "err", err, "path", cfg.DB.Path)
		os.Exit(1)
	}
	defer store.Close()

	blobs, mediaHandler, err := openBlobStore(cfg, tel, logger)
	if err != nil {
		logger.Error("could not open blob store", "err", err, "driver", cfg.S3.Driver)
		os.Exit(1)
	}

	keys := media.NewKeyGenerator(cfg.Upload.SuffixLength)
	logSink := notify.LogSink{Logger: logger}

	drafts := editor.NewRegistry(editor.Deps{
		Media: media.Config{
			Store:    blobs,
			Bucket:   cfg.S3.ImagesBucket,
			Keys:     keys,
			Recorder: store,
			Metrics:  metrics,
			Tracer:   tel.Tracer,
			Logger:   logger,
			MaxBytes: cfg.Upload.MaxSizeBytes(),
		},
		Sink:    logSink,
		Logger:  logger,
		Metrics: metrics,
	})

	// avatars are not tied to a draft, nothing tracks their status
	avatars := media.NewCoordinator(media.Config{
		Store:    blobs,
		Bucket:   cfg.S3.AvatarsBucket,
		Keys:     keys,
		Metrics:  metrics,
		Tracer:   tel.Tracer,
		Logger:   logger,
		MaxBytes: cfg.Upload.MaxSizeBytes(),
	}, nil, logSink)

	renderer, err := document.NewRenderer(blobs.PublicURLFor(cfg.S3.ImagesBucket, ""), document.DefaultPreviewCacheSize, metrics)
	if err != nil {
		logger.Error("could not create renderer", "err", err)
		os.Exit(1)
	}

	sessions := middleware.NewSessionManager(cfg.Auth.SessionTTL, cfg.IsProd(), store.RawDB())
	csrf := middleware.NewCSRF(cfg.IsProd())
	csp := middleware.NewCSP(cfg.IsProd(), cfg.S3.PublicBaseURL)
	limiter := middleware.NewIPRateLimiter(rootCtx, cfg.Upload.Limiter.RPS, cfg.Upload.Limiter.Burst, cfg.Proxy.Trusted, metrics)

	editorHandler := &handlers.EditorHandler{
		Drafts:   drafts,
		Sessions: sessions,
		Renderer: renderer,
		Media:    store,
		Logger:   logger,

		UploadTimeout: cfg.Upload.Timeout,
	}
	profileHandler := &handlers.ProfileHandler{
		Avatars:   avatars,
		Profiles:  store,
		Sessions:  sessions,
		Namespace: uuid.Must(uuid.FromString(cfg.App.ProfileNamespace)),
		Logger:    logger,

		UploadTimeout: cfg.Upload.Timeout,
	}

	handler := router.NewRouter(router.RouterDependencies{
		Cfg:            cfg,
		Logger:         logger,
		EditorHandler:  editorHandler,
		ProfileHandler: profileHandler,
		MediaHandler:   mediaHandler,
		Metrics:        handlers.HandleMetrics(drafts),
		UploadLimiter:  limiter,
		Tracer:         tel.Tracer,
		Telemetry:      metrics,
		Session:        sessions,
		CSRF:           csrf,
		CSP:            csp,
	})

	app := NewApp(cfg, logger, drafts, handler)

	// run the app with context
	if err := app.Run(rootCtx); err != nil {
		logger.Error("server crashed", "err", err)
		stop()
		os.Exit(1)
	}

	logger.Info("application exited successfully")
}

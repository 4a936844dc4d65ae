package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"postdesk/internal/notify"
	"postdesk/internal/storage"
	"postdesk/internal/telemetry"

	"github.com/docker/go-units"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	TitleUploaded = "Image uploaded!"
	TitleFailed   = "Upload failed"
)

// StatusTracker receives the uploading/error side effects of an upload.
// EndUpload is called exactly once per BeginUpload, on every path. FailUpload
// gets the request generation so trackers can ignore stale failures.
type StatusTracker interface {
	BeginUpload()
	FailUpload(generation uint64, message string)
	EndUpload()
}

// Recorder stores a row for every object that made it to the blob store.
type Recorder interface {
	RecordMedia(ctx context.Context, m *storage.Media) (*storage.Media, error)
}

// Config is shared by every coordinator of one bucket.
type Config struct {
	Store    storage.BlobStore
	Bucket   string
	Keys     *KeyGenerator
	Recorder Recorder // optional
	Metrics  *telemetry.Metrics
	Tracer   trace.Tracer
	Logger   *slog.Logger
	// MaxBytes <= 0 disables the size check.
	MaxBytes int64
}

// Coordinator is the choke point for uploads of one authoring surface.
type Coordinator struct {
	cfg     Config
	tracker StatusTracker
	sink    notify.Sink
}

func NewCoordinator(cfg Config, tracker StatusTracker, sink notify.Sink) *Coordinator {
	if cfg.Keys == nil {
		cfg.Keys = NewKeyGenerator(DefaultSuffixLength)
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("postdesk/media")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if tracker == nil {
		tracker = nopTracker{}
	}
	if sink == nil {
		sink = notify.SinkFunc(func(notify.Notification) {})
	}
	return &Coordinator{cfg: cfg, tracker: tracker, sink: sink}
}

// Upload stores req.File and reports the result. It never returns an error:
// every failure, including a panic in the store, ends up in a failed Outcome.
func (c *Coordinator) Upload(ctx context.Context, req UploadRequest) (out Outcome) {
	ctx, span := c.cfg.Tracer.Start(ctx, "media.Upload", trace.WithAttributes(
		attribute.String("upload.target", string(req.Target)),
		attribute.String("upload.bucket", c.cfg.Bucket),
		attribute.Int64("upload.size", req.File.Size()),
	))
	defer span.End()

	start := time.Now()
	c.tracker.BeginUpload()
	c.cfg.Metrics.UploadStarted(ctx)

	// after settled a panic can no longer change the outcome
	var settled bool
	defer func() {
		if r := recover(); r != nil {
			if settled {
				c.cfg.Logger.ErrorContext(ctx, "panic after upload settled", "target", req.Target, "panic", r)
			} else {
				out = c.fail(ctx, span, req, fmt.Errorf("%w: panic: %v", ErrUploadTransport, r))
			}
		}
		c.tracker.EndUpload()

		result := "success"
		if !out.OK() {
			result = "failure"
		}
		c.cfg.Metrics.UploadFinished(ctx, string(req.Target), result, time.Since(start), req.File.Size())
	}()

	if err := c.validate(req.File); err != nil {
		return c.fail(ctx, span, req, err)
	}

	key := req.Key
	if key == "" {
		var err error
		key, err = c.cfg.Keys.Generate(req.File)
		if err != nil {
			return c.fail(ctx, span, req, fmt.Errorf("%w: %w", ErrUploadTransport, err))
		}
	}
	span.SetAttributes(attribute.String("upload.key", key))

	path, err := c.cfg.Store.StoreObject(ctx, c.cfg.Bucket, key, bytes.NewReader(req.File.Data), req.File.MediaType())
	if err != nil {
		return c.fail(ctx, span, req, fmt.Errorf("%w: %w", ErrUploadTransport, err))
	}
	url := c.cfg.Store.PublicURLFor(c.cfg.Bucket, path)

	c.record(ctx, req, path, url)

	c.cfg.Logger.Info("upload stored",
		"target", req.Target,
		"bucket", c.cfg.Bucket,
		"key", path,
		"size", units.HumanSize(float64(req.File.Size())),
	)
	out = Succeeded(url)
	settled = true
	c.notify(ctx, notify.Notification{
		Kind:   notify.Success,
		Title:  TitleUploaded,
		Detail: req.File.Name,
		At:     time.Now(),
	})
	return out
}

func (c *Coordinator) validate(f File) error {
	if f.Size() == 0 {
		return ErrEmptyFile
	}
	if c.cfg.MaxBytes > 0 && f.Size() > c.cfg.MaxBytes {
		return fmt.Errorf("%w: %s exceeds %s", ErrFileTooLarge,
			units.HumanSize(float64(f.Size())), units.HumanSize(float64(c.cfg.MaxBytes)))
	}
	if !f.IsImage() {
		return fmt.Errorf("%w: %s (%s)", ErrNotImage, f.Name, f.MediaType())
	}
	return nil
}

func (c *Coordinator) fail(ctx context.Context, span trace.Span, req UploadRequest, err error) Outcome {
	span.RecordError(err)
	span.SetStatus(codes.Error, "upload failed")

	msg := err.Error()
	c.cfg.Logger.WarnContext(ctx, "upload failed", "target", req.Target, "file", req.File.Name, "err", err)
	c.tracker.FailUpload(req.Generation, msg)
	c.notify(ctx, notify.Notification{
		Kind:   notify.Failure,
		Title:  TitleFailed,
		Detail: msg,
		At:     time.Now(),
	})
	return Failed(msg, err)
}

// notify delivers n. Sinks are fire and forget, a panicking one is logged.
func (c *Coordinator) notify(ctx context.Context, n notify.Notification) {
	defer func() {
		if r := recover(); r != nil {
			c.cfg.Logger.ErrorContext(ctx, "notification sink panicked", "title", n.Title, "panic", r)
		}
	}()
	c.sink.Notify(n)
}

// record is best effort, the object is already stored.
func (c *Coordinator) record(ctx context.Context, req UploadRequest, path, url string) {
	if c.cfg.Recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.cfg.Logger.ErrorContext(ctx, "media recorder panicked", "key", path, "panic", r)
		}
	}()
	m := &storage.Media{
		DraftID:     req.DraftID,
		Bucket:      c.cfg.Bucket,
		Key:         path,
		URL:         url,
		Target:      string(req.Target),
		ContentType: req.File.MediaType(),
		SizeBytes:   req.File.Size(),
	}
	if w, h, _, ok := Dimensions(req.File.Data); ok {
		m.Width, m.Height = w, h
	}
	if _, err := c.cfg.Recorder.RecordMedia(ctx, m); err != nil {
		c.cfg.Logger.ErrorContext(ctx, "failed to record media", "key", path, "err", err)
	}
}

type nopTracker struct{}

func (nopTracker) BeginUpload()              {}
func (nopTracker) FailUpload(uint64, string) {}
func (nopTracker) EndUpload()                {}

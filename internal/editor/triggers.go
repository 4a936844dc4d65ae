package editor

import (
	"context"
	"fmt"
	"log/slog"

	"postdesk/internal/media"
	"postdesk/internal/telemetry"
)

// Uploader is satisfied by *media.Coordinator.
type Uploader interface {
	Upload(ctx context.Context, req media.UploadRequest) media.Outcome
}

// Result reports what an entry point did. The zero value means nothing was
// uploaded (cancelled picker, nothing droppable).
type Result struct {
	Uploaded bool          `json:"uploaded"`
	Outcome  media.Outcome `json:"outcome,omitzero"`
	// Applied is true when the outcome changed the draft.
	Applied bool `json:"applied"`
	// Stale is true when the draft was reset while the upload ran.
	Stale bool `json:"stale"`
}

type trigger struct {
	draftID  string
	draft    *DraftState
	uploader Uploader
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

func (t *trigger) upload(ctx context.Context, f media.File, target media.Target, generation uint64) media.Outcome {
	return t.uploader.Upload(ctx, media.UploadRequest{
		File:       f,
		Target:     target,
		Generation: generation,
		DraftID:    t.draftID,
	})
}

func (t *trigger) stale(ctx context.Context, target media.Target, generation uint64) {
	t.logger.InfoContext(ctx, "discarding stale upload outcome", "draft", t.draftID, "target", target, "generation", generation)
	t.metrics.StaleOutcome(ctx, string(target))
}

// DragDropZone takes the first image of a drop and fills the featured slot
// with it, unless the slot got a value while the upload was running.
type DragDropZone struct {
	trigger
	slot *FeaturedImageSlot
}

func (z *DragDropZone) Drop(ctx context.Context, files []media.File) Result {
	var first *media.File
	for i := range files {
		if files[i].IsImage() {
			first = &files[i]
			break
		}
	}
	if first == nil {
		return Result{}
	}
	if ignored := len(files) - 1; ignored > 0 {
		z.logger.DebugContext(ctx, "ignoring extra dropped files", "draft", z.draftID, "count", ignored)
		z.metrics.FilesIgnored(ctx, ignored)
	}

	generation := z.draft.Generation()
	out := z.upload(ctx, *first, media.Dropped, generation)
	if !out.OK() {
		return Result{Uploaded: true, Outcome: out}
	}

	applied, stale := z.slot.setIfEmptyAt(generation, out.URL())
	if stale {
		z.stale(ctx, media.Dropped, generation)
	}
	return Result{Uploaded: true, Outcome: out, Applied: applied, Stale: stale}
}

// InlineEmbedTrigger is the toolbar "insert image" action.
type InlineEmbedTrigger struct {
	trigger
}

// Trigger opens picker, pins the cursor as soon as a file is chosen and
// inserts the uploaded image there. A failed upload leaves the document alone.
func (t *InlineEmbedTrigger) Trigger(ctx context.Context, picker FilePicker) (Result, error) {
	f, err := picker.Open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open picker: %w", err)
	}
	if f == nil {
		return Result{}, nil
	}

	capture, generation := t.draft.captureCursor()

	out := t.upload(ctx, *f, media.Inline, generation)
	if !out.OK() {
		capture.Discard()
		return Result{Uploaded: true, Outcome: out}, nil
	}

	pos, err := capture.Resolve()
	if err != nil {
		return Result{Uploaded: true, Outcome: out}, err
	}
	applied, err := t.draft.insertImage(generation, pos, out.URL())
	if err != nil {
		return Result{Uploaded: true, Outcome: out}, fmt.Errorf("insert image: %w", err)
	}
	if !applied {
		t.stale(ctx, media.Inline, generation)
	}
	return Result{Uploaded: true, Outcome: out, Applied: applied, Stale: !applied}, nil
}

// FeaturedImagePicker is the explicit cover image chooser, it always wins.
type FeaturedImagePicker struct {
	trigger
	slot *FeaturedImageSlot
}

func (p *FeaturedImagePicker) Choose(ctx context.Context, picker FilePicker) (Result, error) {
	f, err := picker.Open(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("open picker: %w", err)
	}
	if f == nil {
		return Result{}, nil
	}

	generation := p.draft.Generation()
	out := p.upload(ctx, *f, media.Featured, generation)
	if !out.OK() {
		return Result{Uploaded: true, Outcome: out}, nil
	}

	applied, stale := p.slot.setAt(generation, out.URL())
	if stale {
		p.stale(ctx, media.Featured, generation)
	}
	return Result{Uploaded: true, Outcome: out, Applied: applied, Stale: stale}, nil
}

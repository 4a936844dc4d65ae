package editor

import (
	"context"
	"errors"
	"testing"

	"postdesk/internal/document"
	"postdesk/internal/media"
)

func TestInlineInsertsAtCapturedCursor(t *testing.T) {
	t.Parallel()
	u := newGatedUploader()
	s := newSurfaceWith(t, u)
	doc := s.Draft.Document()
	if err := s.Draft.SetContent("hello world"); err != nil {
		t.Fatal(err)
	}
	doc.Select(5)

	done := make(chan Result)
	go func() {
		res, err := s.Inline.Trigger(context.Background(), Selected(pngFile))
		if err != nil {
			t.Error(err)
		}
		done <- res
	}()
	<-u.started

	// author keeps working while the upload runs
	doc.Select(11)
	if err := doc.Type("!"); err != nil {
		t.Fatal(err)
	}

	u.release(media.Inline, media.Succeeded("https://cdn.test/i.png"))
	res := <-done

	if !res.Applied {
		t.Fatalf("not applied: %+v", res)
	}
	want := "hello" + document.ImageMarkdown("https://cdn.test/i.png") + " world!"
	if got := doc.Content(); got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestInlineWithoutSelectionInsertsAtStart(t *testing.T) {
	t.Parallel()
	u := &instantUploader{out: media.Succeeded("u")}
	s := newSurfaceWith(t, u)
	_ = s.Draft.SetContent("body")

	if _, err := s.Inline.Trigger(context.Background(), Selected(pngFile)); err != nil {
		t.Fatal(err)
	}
	if got := s.Draft.Document().Content(); got != "![image](u)body" {
		t.Errorf("content = %q", got)
	}
}

func TestInlineFailureLeavesDocument(t *testing.T) {
	t.Parallel()
	store := &memStore{err: errStoreDown}
	s := newRealSurface(store)
	_ = s.Draft.SetContent("untouched")
	s.Draft.Document().Select(3)
	version := s.Draft.Document().Version()

	res, err := s.Inline.Trigger(context.Background(), Selected(pngFile))
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome.OK() || !errors.Is(res.Outcome.Err(), media.ErrUploadTransport) {
		t.Fatalf("expected transport failure: %+v", res)
	}
	if s.Draft.Document().Content() != "untouched" || s.Draft.Document().Version() != version {
		t.Error("failed inline upload modified the document")
	}
	notes := s.Feed.Drain()
	if len(notes) != 1 || notes[0].Title != media.TitleFailed {
		t.Errorf("notifications = %+v", notes)
	}
}

func TestInlinePickerOutcomes(t *testing.T) {
	t.Parallel()
	pickErr := errors.New("dialog crashed")
	tests := []struct {
		name    string
		picker  FilePicker
		wantErr error
	}{
		{
			name:   "cancelled",
			picker: PickerFunc(func(context.Context) (*media.File, error) { return nil, nil }),
		},
		{
			name:    "picker error",
			picker:  PickerFunc(func(context.Context) (*media.File, error) { return nil, pickErr }),
			wantErr: pickErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := &instantUploader{out: media.Succeeded("u")}
			s := newSurfaceWith(t, u)

			res, err := s.Inline.Trigger(context.Background(), tt.picker)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if res.Uploaded || u.count != 0 {
				t.Errorf("upload happened: %+v", res)
			}

			res, err = s.Featured.Choose(context.Background(), tt.picker)
			if !errors.Is(err, tt.wantErr) || res.Uploaded {
				t.Errorf("featured picker: %+v %v", res, err)
			}
		})
	}
}

func TestStaleOutcomesAreDiscarded(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		target media.Target
		start  func(s *Surface) Result
	}{
		{
			name:   "drop",
			target: media.Dropped,
			start: func(s *Surface) Result {
				return s.DropZone.Drop(context.Background(), []media.File{pngFile})
			},
		},
		{
			name:   "featured",
			target: media.Featured,
			start: func(s *Surface) Result {
				res, _ := s.Featured.Choose(context.Background(), Selected(pngFile))
				return res
			},
		},
		{
			name:   "inline",
			target: media.Inline,
			start: func(s *Surface) Result {
				res, _ := s.Inline.Trigger(context.Background(), Selected(pngFile))
				return res
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := newGatedUploader()
			s := newSurfaceWith(t, u)

			done := make(chan Result)
			go func() { done <- tt.start(s) }()
			req := <-u.started

			s.Reset()
			if req.Generation == s.Draft.Generation() {
				t.Fatal("reset did not bump the generation")
			}

			u.release(tt.target, media.Succeeded("https://cdn.test/late.png"))
			res := <-done

			if !res.Stale || res.Applied {
				t.Errorf("want stale unapplied result, got %+v", res)
			}
			snap := s.Draft.Snapshot()
			if snap.FeaturedImageURL != nil || snap.Content != "" {
				t.Errorf("stale outcome applied: %+v", snap)
			}
		})
	}
}

func TestStaleFailureDoesNotSetError(t *testing.T) {
	t.Parallel()
	store := &memStore{err: errStoreDown, gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	s := newRealSurface(store)

	done := make(chan Result)
	go func() { done <- s.DropZone.Drop(context.Background(), []media.File{pngFile}) }()
	<-store.entered
	s.Reset()
	close(store.gate)
	<-done

	if msg, ok := s.Draft.LastError(); ok {
		t.Errorf("stale failure surfaced as %q", msg)
	}
	if s.Draft.Uploading() {
		t.Error("uploading stuck after stale failure")
	}
}

package editor

import (
	"context"
	"testing"

	"postdesk/internal/media"
)

func TestDropFillsEmptySlot(t *testing.T) {
	t.Parallel()
	u := &instantUploader{out: media.Succeeded("https://cdn.test/dropped.png")}
	s := newSurfaceWith(t, u)

	res := s.DropZone.Drop(context.Background(), []media.File{pngFile})

	if !res.Uploaded || !res.Applied {
		t.Fatalf("unexpected result %+v", res)
	}
	if url, _ := s.Slot.URL(); url != "https://cdn.test/dropped.png" {
		t.Errorf("slot = %q", url)
	}
}

func TestDropNeverOverridesSetSlot(t *testing.T) {
	t.Parallel()
	const (
		picked  = "https://cdn.test/picked.jpg"
		dropped = "https://cdn.test/dropped.png"
	)

	tests := []struct {
		name string
		run  func(t *testing.T, s *Surface, u *gatedUploader)
	}{
		{
			name: "slot set before drop",
			run: func(t *testing.T, s *Surface, u *gatedUploader) {
				s.Slot.Set(picked)
				done := make(chan Result)
				go func() { done <- s.DropZone.Drop(context.Background(), []media.File{pngFile}) }()
				<-u.started
				u.release(media.Dropped, media.Succeeded(dropped))
				if res := <-done; res.Applied {
					t.Errorf("drop applied over a set slot: %+v", res)
				}
			},
		},
		{
			name: "picker resolves while drop in flight",
			run: func(t *testing.T, s *Surface, u *gatedUploader) {
				dropDone := make(chan Result)
				go func() { dropDone <- s.DropZone.Drop(context.Background(), []media.File{pngFile}) }()
				<-u.started

				pickDone := make(chan Result)
				go func() {
					res, _ := s.Featured.Choose(context.Background(), Selected(jpegFile))
					pickDone <- res
				}()
				<-u.started
				u.release(media.Featured, media.Succeeded(picked))
				<-pickDone

				u.release(media.Dropped, media.Succeeded(dropped))
				if res := <-dropDone; res.Applied {
					t.Errorf("drop applied over a set slot: %+v", res)
				}
			},
		},
		{
			name: "drop resolves first then picker overrides",
			run: func(t *testing.T, s *Surface, u *gatedUploader) {
				dropDone := make(chan Result)
				go func() { dropDone <- s.DropZone.Drop(context.Background(), []media.File{pngFile}) }()
				<-u.started

				pickDone := make(chan Result)
				go func() {
					res, _ := s.Featured.Choose(context.Background(), Selected(jpegFile))
					pickDone <- res
				}()
				<-u.started

				u.release(media.Dropped, media.Succeeded(dropped))
				if res := <-dropDone; !res.Applied {
					t.Errorf("drop into empty slot not applied: %+v", res)
				}
				u.release(media.Featured, media.Succeeded(picked))
				if res := <-pickDone; !res.Applied {
					t.Errorf("picker did not override: %+v", res)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u := newGatedUploader()
			s := newSurfaceWith(t, u)

			tt.run(t, s, u)

			if url, _ := s.Slot.URL(); url != picked {
				t.Errorf("slot = %q, want %q", url, picked)
			}
		})
	}
}

func TestDropWithoutImagesIsNoop(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		files []media.File
	}{
		{"no files", nil},
		{"text file", []media.File{textFile}},
		{"only non images", []media.File{textFile, {Name: "a.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &memStore{}
			s := newRealSurface(store)
			before := s.Draft.Snapshot()

			res := s.DropZone.Drop(context.Background(), tt.files)

			if res.Uploaded {
				t.Errorf("unexpected upload: %+v", res)
			}
			if store.Calls() != 0 {
				t.Errorf("store called %d times", store.Calls())
			}
			if s.Feed.Len() != 0 {
				t.Errorf("unexpected notifications: %+v", s.Feed.Drain())
			}
			if after := s.Draft.Snapshot(); after.FeaturedImageURL != nil || after.Uploading || after.LastError != nil || after.Content != before.Content {
				t.Errorf("draft changed: %+v", after)
			}
		})
	}
}

func TestDropUploadsFirstImageOnly(t *testing.T) {
	t.Parallel()
	u := newGatedUploader()
	s := newSurfaceWith(t, u)

	done := make(chan Result)
	go func() {
		done <- s.DropZone.Drop(context.Background(), []media.File{textFile, jpegFile, pngFile})
	}()
	req := <-u.started
	u.release(media.Dropped, media.Succeeded("https://cdn.test/x.jpg"))
	<-done

	if req.File.Name != jpegFile.Name || req.Target != media.Dropped {
		t.Errorf("uploaded %q as %s, want %q as dropped", req.File.Name, req.Target, jpegFile.Name)
	}
	if n := len(u.calls()); n != 1 {
		t.Errorf("upload calls = %d, want 1", n)
	}
}

func TestDropFailureLeavesSlot(t *testing.T) {
	t.Parallel()
	store := &memStore{err: errStoreDown}
	s := newRealSurface(store)

	res := s.DropZone.Drop(context.Background(), []media.File{pngFile})

	if res.Outcome.OK() || res.Applied {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, ok := s.Slot.URL(); ok {
		t.Error("failed drop filled the slot")
	}
	if msg, ok := s.Draft.LastError(); !ok || msg != res.Outcome.Message() {
		t.Errorf("last error = %q, want %q", msg, res.Outcome.Message())
	}
}

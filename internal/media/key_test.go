package media

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestKeyGeneratorExample(t *testing.T) {
	t.Parallel()
	g := &KeyGenerator{
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
		Suffix: func() (string, error) { return "abc123", nil },
	}

	key, err := g.Generate(File{Name: "photo.png", ContentType: "image/png"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if key != "1700000000000_abc123.png" {
		t.Errorf("got %q, want %q", key, "1700000000000_abc123.png")
	}
}

func TestKeysUniqueWithinSameMillisecond(t *testing.T) {
	t.Parallel()
	const n = 10_000

	g := NewKeyGenerator(DefaultSuffixLength)
	frozen := time.UnixMilli(1700000000000)
	g.Now = func() time.Time { return frozen }

	var (
		wg   sync.WaitGroup
		seen sync.Map
		dups = make(chan string, n)
	)
	for range n {
		wg.Go(func() {
			key, err := g.Generate(File{Name: "photo.png"})
			if err != nil {
				t.Errorf("Generate: %v", err)
				return
			}
			if _, loaded := seen.LoadOrStore(key, struct{}{}); loaded {
				dups <- key
			}
		})
	}
	wg.Wait()
	close(dups)

	for key := range dups {
		t.Errorf("duplicate key %q", key)
	}
}

func TestRandomSuffix(t *testing.T) {
	t.Parallel()
	s, err := RandomSuffix(32)
	if err != nil {
		t.Fatalf("RandomSuffix: %v", err)
	}
	if len(s) != 32 {
		t.Fatalf("len = %d, want 32", len(s))
	}
	if strings.Trim(s, suffixAlphabet) != "" {
		t.Errorf("suffix %q has characters outside [0-9a-z]", s)
	}
}

func TestFileExtension(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file File
		want string
	}{
		{"simple", File{Name: "photo.png"}, "png"},
		{"upper case", File{Name: "IMG_001.JPG"}, "jpg"},
		{"last dot wins", File{Name: "archive.tar.gz"}, "gz"},
		{"no extension uses mime", File{Name: "clipboard", ContentType: "image/png"}, "png"},
		{"weird extension uses mime", File{Name: "x.p n g", ContentType: "image/gif"}, "gif"},
		{"trailing dot", File{Name: "photo.", ContentType: "image/webp"}, "webp"},
		{"nothing to go on", File{Name: "blob"}, "bin"},
		{"params on content type", File{Name: "blob", ContentType: "image/png; charset=binary"}, "png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.file.Extension(); got != tt.want {
				t.Errorf("Extension() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFileIsImage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		file File
		want bool
	}{
		{"png", File{ContentType: "image/png"}, true},
		{"svg", File{ContentType: "image/svg+xml"}, false},
		{"upper case name", File{Name: "A.PNG", ContentType: "image/png"}, true},
		{"html name declared as image", File{Name: "x.html", ContentType: "image/png"}, false},
		{"svg name declared as png", File{Name: "x.svg", ContentType: "image/png"}, false},
		{"unknown extension", File{Name: "x.heic", ContentType: "image/heic"}, true},
		{"text", File{ContentType: "text/plain", Data: []byte("hello")}, false},
		{"sniffed png", File{Data: pngBytes(t, 1, 1)}, true},
		{"sniffed text", File{Data: []byte("just words")}, false},
		{"nothing", File{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.file.IsImage(); got != tt.want {
				t.Errorf("IsImage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	t.Parallel()
	w, h, format, ok := Dimensions(pngBytes(t, 12, 7))
	if !ok || w != 12 || h != 7 || format != "png" {
		t.Errorf("got %dx%d %q ok=%v, want 12x7 png", w, h, format, ok)
	}

	if _, _, _, ok := Dimensions([]byte("<svg/>")); ok {
		t.Error("expected svg to be undecodable")
	}
}

// Package media implements the single upload path every image-bearing entry
// point goes through: key generation, the blob store call, and turning every
// failure into an Outcome.
package media

import (
	"mime"
	"net/http"
	"slices"
	"strings"
)

// File is an uploaded payload with the name and MIME type the client sent.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) Size() int64 {
	return int64(len(f.Data))
}

// MediaType returns the declared media type without parameters. When the
// client declared nothing the payload is sniffed.
func (f File) MediaType() string {
	if mt, _, err := mime.ParseMediaType(f.ContentType); err == nil && mt != "" {
		return strings.ToLower(mt)
	}
	if len(f.Data) == 0 {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(f.Data))
	return mt
}

// IsImage checks the media type and, when the name carries a known
// extension, that the extension is an image one too. Objects are served back
// with the type of their key's extension.
func (f File) IsImage() bool {
	mt := f.MediaType()
	// svg documents can carry script
	if !strings.HasPrefix(mt, "image/") || mt == "image/svg+xml" {
		return false
	}
	if i := strings.LastIndexByte(f.Name, '.'); i >= 0 {
		byExt, _, _ := mime.ParseMediaType(mime.TypeByExtension("." + strings.ToLower(f.Name[i+1:])))
		if byExt != "" {
			return strings.HasPrefix(byExt, "image/") && byExt != "image/svg+xml"
		}
	}
	return true
}

// Extension is the lowercased text after the last '.' of the file name. Names
// without a usable extension fall back to the media type, then to "bin".
func (f File) Extension() string {
	if i := strings.LastIndexByte(f.Name, '.'); i >= 0 {
		if ext := sanitizeExt(f.Name[i+1:]); ext != "" {
			return ext
		}
	}
	if ext := extFromMediaType(f.MediaType()); ext != "" {
		return ext
	}
	return "bin"
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || len(ext) > 10 {
		return ""
	}
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			continue
		}
		return ""
	}
	return ext
}

func extFromMediaType(mediaType string) string {
	if mediaType == "" {
		return ""
	}
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	// image/png -> png rather than whatever sorts first
	if _, sub, ok := strings.Cut(mediaType, "/"); ok && slices.Contains(exts, "."+sub) {
		return sanitizeExt(sub)
	}
	return sanitizeExt(strings.TrimPrefix(exts[0], "."))
}

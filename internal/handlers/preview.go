package handlers

import (
	"context"
	"io"

	"postdesk/internal/editor"

	"github.com/a-h/templ"
)

// previewPage wraps rendered draft html in a minimal page.
func previewPage(snap editor.Snapshot, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := snap.Title
		if title == "" {
			title = "Untitled draft"
		}

		if _, err := io.WriteString(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head><body><article>`); err != nil {
			return err
		}
		if snap.FeaturedImageURL != nil {
			if _, err := io.WriteString(w, `<img class="featured" src="`+templ.EscapeString(*snap.FeaturedImageURL)+`" alt="">`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `<h1>`+templ.EscapeString(title)+`</h1>`); err != nil {
			return err
		}
		if snap.Excerpt != "" {
			if _, err := io.WriteString(w, `<p class="excerpt">`+templ.EscapeString(snap.Excerpt)+`</p>`); err != nil {
				return err
			}
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</article></body></html>`)
		return err
	})
}

package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"postdesk/internal/telemetry"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"golang.org/x/sync/singleflight"
)

var ErrMDConversion = errors.New("document: markdown conversion failed")

const DefaultPreviewCacheSize = 256

// Renderer turns draft markdown into preview HTML. Identical sources are
// rendered once and served from an LRU afterwards.
type Renderer struct {
	engine  goldmark.Markdown
	cache   *lru.Cache[string, []byte]
	group   singleflight.Group
	metrics *telemetry.Metrics
}

// NewRenderer resolves relative image destinations (bare storage keys)
// against mediaBase, e.g. https://cdn.example.com/blog-images.
func NewRenderer(mediaBase string, cacheSize int, metrics *telemetry.Metrics) (*Renderer, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultPreviewCacheSize
	}
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create preview cache: %w", err)
	}

	engine := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Strikethrough,
			extension.Linkify,
			extension.TaskList,
			emoji.Emoji,
			highlighting.NewHighlighting(
				highlighting.WithStyle("solarized-dark"),
				highlighting.WithGuessLanguage(true),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(&imageTransformer{base: mediaBase}, 100)),
		),
	)
	return &Renderer{engine: engine, cache: cache, metrics: metrics}, nil
}

func (r *Renderer) Render(ctx context.Context, source []byte) ([]byte, error) {
	sum := sha256.Sum256(source)
	key := hex.EncodeToString(sum[:])

	if html, ok := r.cache.Get(key); ok {
		r.metrics.PreviewCache(ctx, true)
		return html, nil
	}
	r.metrics.PreviewCache(ctx, false)

	v, err, _ := r.group.Do(key, func() (any, error) {
		var buf bytes.Buffer
		// html output is larger than markdown add 50% to the buffer
		buf.Grow(len(source) + (len(source) / 2))

		if err := r.engine.Convert(source, &buf); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMDConversion, err)
		}
		html := bytes.Clone(buf.Bytes())
		r.cache.Add(key, html)
		return html, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

type imageTransformer struct {
	base string
}

func (t *imageTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		img, ok := n.(*ast.Image)
		if !ok {
			return ast.WalkContinue, nil
		}
		img.SetAttributeString("loading", []byte("lazy"))

		dest := string(img.Destination)
		if t.base == "" || dest == "" || isExternalLink(dest) || strings.HasPrefix(dest, "/") {
			return ast.WalkContinue, nil
		}

		resolved, err := url.JoinPath(t.base, dest)
		if err != nil {
			return ast.WalkContinue, nil
		}
		img.Destination = []byte(resolved)

		return ast.WalkContinue, nil
	})
}

func isExternalLink(s string) bool {
	s = strings.ToLower(s)

	for _, prefix := range []string{"http:", "https:", "data:", "ftp:", "ftps:", "sftp:"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

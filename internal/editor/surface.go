package editor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"postdesk/internal/media"
	"postdesk/internal/notify"
	"postdesk/internal/telemetry"

	"github.com/adrg/frontmatter"
	"github.com/docker/go-units"
)

// MaxImportSize caps markdown imports.
const MaxImportSize = 1 * units.MiB

// Deps are shared by every surface of a registry.
type Deps struct {
	Media    media.Config
	Sink     notify.Sink // receives every notification besides the surface feed
	Logger   *slog.Logger
	Metrics  *telemetry.Metrics
	FeedSize int
}

// Surface wires one draft, its notification feed and its entry points.
type Surface struct {
	ID    string
	Draft *DraftState
	Feed  *notify.Feed
	Slot  *FeaturedImageSlot

	DropZone *DragDropZone
	Inline   *InlineEmbedTrigger
	Featured *FeaturedImagePicker

	logger   *slog.Logger
	lastSeen atomic.Int64
}

func NewSurface(id string, deps Deps) *Surface {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("draft", id)

	draft := NewDraftState()
	feed := notify.NewFeed(deps.FeedSize)
	slot := NewFeaturedImageSlot(draft)

	cfg := deps.Media
	cfg.Logger = logger
	if cfg.Metrics == nil {
		cfg.Metrics = deps.Metrics
	}
	coordinator := media.NewCoordinator(cfg, draft, notify.Multi(feed, deps.Sink))

	base := trigger{
		draftID:  id,
		draft:    draft,
		uploader: coordinator,
		logger:   logger,
		metrics:  deps.Metrics,
	}

	s := &Surface{
		ID:       id,
		Draft:    draft,
		Feed:     feed,
		Slot:     slot,
		DropZone: &DragDropZone{trigger: base, slot: slot},
		Inline:   &InlineEmbedTrigger{trigger: base},
		Featured: &FeaturedImagePicker{trigger: base, slot: slot},
		logger:   logger,
	}
	s.Touch()
	return s
}

// Touch marks the surface as used now.
func (s *Surface) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

func (s *Surface) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// Reset empties the draft. Uploads started before the reset still finish but
// their outcomes are discarded.
func (s *Surface) Reset() {
	// empty content is always valid utf-8
	_ = s.Draft.reset("", "", "", "")
	s.logger.Info("draft reset", "generation", s.Draft.Generation())
}

type importMeta struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	FeaturedImage string `yaml:"featured_image"`
}

// Import replaces the draft with a markdown post. Front matter is optional,
// without a title the first heading is used.
func (s *Surface) Import(r io.Reader) error {
	raw, err := io.ReadAll(io.LimitReader(r, MaxImportSize+1))
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	if len(raw) > MaxImportSize {
		return fmt.Errorf("%w: import exceeds %s", media.ErrFileTooLarge, units.BytesSize(MaxImportSize))
	}

	var meta importMeta
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		// no yaml detected or parsing failed, keep the raw bytes
		body = raw
	}
	if meta.Title == "" {
		meta.Title = fallbackTitleScan(bytes.NewReader(body))
	}

	if err := s.Draft.reset(meta.Title, meta.Description, meta.FeaturedImage, string(body)); err != nil {
		return fmt.Errorf("import content: %w", err)
	}
	s.logger.Info("draft imported", "title", meta.Title, "generation", s.Draft.Generation())
	return nil
}

func fallbackTitleScan(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

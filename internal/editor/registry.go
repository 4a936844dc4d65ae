package editor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps the live surfaces in memory. Drafts are not persisted, an
// idle surface is dropped by Run.
type Registry struct {
	deps     Deps
	surfaces sync.Map // id -> *Surface
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps}
}

func (r *Registry) Create() (*Surface, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("new draft id: %w", err)
	}
	s := NewSurface(id.String(), r.deps)
	r.surfaces.Store(s.ID, s)
	return s, nil
}

func (r *Registry) Get(id string) (*Surface, bool) {
	v, ok := r.surfaces.Load(id)
	if !ok {
		return nil, false
	}
	s := v.(*Surface)
	s.Touch()
	return s, true
}

func (r *Registry) Delete(id string) {
	r.surfaces.Delete(id)
}

func (r *Registry) Len() int {
	n := 0
	r.surfaces.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Sweep removes surfaces idle for longer than idle and returns how many went.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	removed := 0
	r.surfaces.Range(func(k, v any) bool {
		s := v.(*Surface)
		if s.LastSeen().Before(cutoff) && !s.Draft.Uploading() {
			r.surfaces.Delete(k)
			removed++
		}
		return true
	})
	return removed
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(idle); n > 0 && r.deps.Logger != nil {
				r.deps.Logger.Info("swept idle drafts", "count", n)
			}
		}
	}
}

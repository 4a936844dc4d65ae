package editor

// FeaturedImageSlot is the cover image of a draft. The picker path always
// overwrites it, the drop path only fills it when empty.
type FeaturedImageSlot struct {
	draft *DraftState
}

func NewFeaturedImageSlot(draft *DraftState) *FeaturedImageSlot {
	return &FeaturedImageSlot{draft: draft}
}

// Set ignores empty urls.
func (s *FeaturedImageSlot) Set(url string) {
	if url == "" {
		return
	}
	s.draft.mu.Lock()
	defer s.draft.mu.Unlock()
	s.draft.featured = url
}

func (s *FeaturedImageSlot) Clear() {
	s.draft.mu.Lock()
	defer s.draft.mu.Unlock()
	s.draft.featured = ""
}

func (s *FeaturedImageSlot) URL() (string, bool) {
	s.draft.mu.Lock()
	defer s.draft.mu.Unlock()
	return s.draft.featured, s.draft.featured != ""
}

// SetIfEmpty checks and writes under one lock and reports whether it wrote.
func (s *FeaturedImageSlot) SetIfEmpty(url string) bool {
	if url == "" {
		return false
	}
	s.draft.mu.Lock()
	defer s.draft.mu.Unlock()
	if s.draft.featured != "" {
		return false
	}
	s.draft.featured = url
	return true
}

// setAt is Set for an upload started in generation.
func (s *FeaturedImageSlot) setAt(generation uint64, url string) (applied, stale bool) {
	s.draft.mu.Lock()
	defer s.draft.mu.Unlock()
	if generation != s.draft.generation {
		return false, true
	}
	if url == "" {
		return false, false
	}
	s.draft.featured = url
	return true, false
}

func (s *FeaturedImageSlot) setIfEmptyAt(generation uint64, url string) (applied, stale bool) {
	s.draft.mu.Lock()
	defer s.draft.mu.Unlock()
	if generation != s.draft.generation {
		return false, true
	}
	if url == "" || s.draft.featured != "" {
		return false, false
	}
	s.draft.featured = url
	return true, false
}

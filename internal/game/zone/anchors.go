// Package zone decides whether positions lie inside PvP base zones and
// tracks players crossing zone boundaries.
package zone

import (
	"slices"
	"sync"

	"github.com/udisondev/pvpguard/internal/model"
)

// AnchorSet is the registry of claimed-base anchors, keyed by anchor id.
type AnchorSet struct {
	mu      sync.RWMutex
	anchors map[uint64]model.BaseAnchor
}

// NewAnchorSet creates an empty registry.
func NewAnchorSet() *AnchorSet {
	return &AnchorSet{anchors: make(map[uint64]model.BaseAnchor)}
}

// Add registers or moves an anchor.
func (s *AnchorSet) Add(a model.BaseAnchor) {
	s.mu.Lock()
	s.anchors[a.ID] = a
	s.mu.Unlock()
}

// Remove unregisters an anchor. Reports whether it existed.
func (s *AnchorSet) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.anchors[id]; !ok {
		return false
	}
	delete(s.anchors, id)
	return true
}

// All returns the anchors ordered by id.
func (s *AnchorSet) All() []model.BaseAnchor {
	s.mu.RLock()
	out := make([]model.BaseAnchor, 0, len(s.anchors))
	for _, a := range s.anchors {
		out = append(out, a)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.BaseAnchor) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Len returns the number of anchors.
func (s *AnchorSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.anchors)
}

// forEach calls fn for each anchor until fn returns false.
func (s *AnchorSet) forEach(fn func(model.BaseAnchor) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.anchors {
		if !fn(a) {
			return
		}
	}
}

package gtfs

import "sync/atomic"

// Store publishes the current Index. Reloads build a complete Index off to
// the side and install it with Swap, so readers observe either the previous
// or the new index set.
type Store struct {
	current atomic.Pointer[Index]
}

// NewStore returns a store holding idx, or an empty index when idx is nil.
func NewStore(idx *Index) *Store {
	s := &Store{}
	if idx == nil {
		idx = NewIndex(nil)
	}
	s.current.Store(idx)
	return s
}

// Current returns the index installed by the latest Swap.
func (s *Store) Current() *Index { return s.current.Load() }

// Swap installs idx and returns the index it replaced. A nil idx is ignored.
func (s *Store) Swap(idx *Index) *Index {
	if idx == nil {
		return s.current.Load()
	}
	return s.current.Swap(idx)
}

// Reload builds a new index from cat and installs it.
func (s *Store) Reload(cat *Catalog) *Index {
	idx := NewIndex(cat)
	s.current.Store(idx)
	return idx
}

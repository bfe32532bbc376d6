package mempool

import (
	"fmt"
	"maps"
	"slices"

	"github.com/joshuapare/poolkit/pool"
)

// Slots keeps one fixed-size pool per key, created on first use. A widget
// toolkit would key it by widget class so that every instance of a class
// shares one pool sized for it.
type Slots struct {
	reg     *pool.Registry
	backend string
	options string
	pools   map[string]*pool.Pool
}

// NewSlots returns a Slots creating its pools from backend in reg. options
// is appended to the element_size of every pool, e.g. "chunk_size=16k".
func NewSlots(reg *pool.Registry, backend, options string) *Slots {
	return &Slots{
		reg:     reg,
		backend: backend,
		options: options,
		pools:   make(map[string]*pool.Pool),
	}
}

// Pool returns the pool for key, creating it for size-byte elements when
// needed. Asking for an existing key with a different size fails.
func (s *Slots) Pool(key string, size int) (*pool.Pool, error) {
	if p, ok := s.pools[key]; ok {
		if p.ElementSize() != size {
			return nil, pool.InvalidOption("element_size", "key %q holds %d-byte elements, not %d", key, p.ElementSize(), size)
		}
		return p, nil
	}
	options := fmt.Sprintf("element_size=%d", size)
	if s.options != "" {
		options += "," + s.options
	}
	p, err := s.reg.Add(s.backend, key, options)
	if err != nil {
		return nil, fmt.Errorf("slots %q: %w", key, err)
	}
	s.pools[key] = p
	return p, nil
}

// Alloc returns a size-byte element from the pool for key. It returns nil
// when the pool cannot be created or is exhausted.
func (s *Slots) Alloc(key string, size int) []byte {
	p, err := s.Pool(key, size)
	if err != nil {
		return nil
	}
	return p.Alloc(size)
}

// Free returns elem to the pool for key.
func (s *Slots) Free(key string, elem []byte) {
	if p, ok := s.pools[key]; ok {
		p.Free(elem)
	}
}

// Stats reports every pool, ordered by key.
func (s *Slots) Stats() []pool.Stats {
	keys := slices.Sorted(maps.Keys(s.pools))
	out := make([]pool.Stats, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.pools[k].Stats())
	}
	return out
}

// Close closes every pool.
func (s *Slots) Close() {
	for k, p := range s.pools {
		p.Close()
		delete(s.pools, k)
	}
}

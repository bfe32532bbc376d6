// Package onebig implements a pool backed by a single region sized for a
// fixed number of elements, obtained once when the pool is created. Freed
// slots are reused LIFO, untouched slots are handed out by bumping an index,
// and once both run dry Alloc returns nil. The pool never grows.
//
// Options:
//
//	element_size  required, bytes per element
//	item_count    required, number of slots in the region
package onebig

import (
	"log/slog"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/freestack"
	"github.com/joshuapare/poolkit/internal/memsrc"
	"github.com/joshuapare/poolkit/pool"
)

// Name is the registry name of the backend.
const Name = "one_big"

// Backend is the one-big backend descriptor.
var Backend pool.Backend = backend{}

type backend struct{}

func (backend) Name() string { return Name }

func (backend) Init(cfg *pool.Config) (pool.Instance, error) {
	if err := cfg.RequireElementSize(); err != nil {
		return nil, err
	}
	if !cfg.Options.Has("item_count") {
		return nil, pool.InvalidOption("item_count", "required")
	}
	count, err := cfg.Options.Int("item_count", 0)
	if err != nil {
		return nil, err
	}
	if count <= 0 || count > freestack.MaxSlots {
		return nil, pool.InvalidOption("item_count", "%d out of range 1..%d", count, freestack.MaxSlots)
	}

	slot := cfg.SlotSize()
	size, err := buf.RegionSize(count, slot, 0)
	if err != nil {
		return nil, pool.InvalidOption("item_count", "%v", err)
	}
	raw, mem, err := memsrc.AllocAligned(cfg.Source, size, cfg.Alignment)
	if err != nil {
		return nil, pool.Exhausted(err)
	}

	p := &oneBig{
		src:      cfg.Source,
		log:      cfg.Logger,
		elemSize: cfg.ElementSize,
		slot:     slot,
		count:    count,
		raw:      raw,
		mem:      mem,
	}
	p.free.Init()
	p.log.Debug("region created", "slots", count, "bytes", len(raw))
	return p, nil
}

type oneBig struct {
	src      pool.Source
	log      *slog.Logger
	elemSize int
	slot     int
	count    int

	raw  []byte
	mem  []byte
	free freestack.Stack
	bump int // first slot never handed out
	live int
}

func (p *oneBig) Alloc(size int) []byte {
	if size > p.elemSize || p.mem == nil {
		return nil
	}
	idx, ok := p.free.Pop(p.mem, p.slot)
	if !ok {
		if p.bump == p.count {
			return nil
		}
		idx = p.bump
		p.bump++
	}
	p.live++
	return buf.Slot(p.mem, idx*p.slot, size, p.elemSize)
}

// Realloc keeps the element in place when size fits the slot; a larger
// size cannot be served and returns nil.
func (p *oneBig) Realloc(elem []byte, size int) []byte {
	idx, ok := p.index(elem)
	if !ok || size > p.elemSize {
		return nil
	}
	return buf.Slot(p.mem, idx*p.slot, size, p.elemSize)
}

func (p *oneBig) Free(elem []byte) {
	idx, ok := p.index(elem)
	if !ok {
		p.log.Warn("free of foreign element ignored")
		return
	}
	p.free.Push(p.mem, p.slot, idx)
	p.live--
}

func (p *oneBig) index(elem []byte) (int, bool) {
	addr := pool.Addr(elem)
	if !buf.Within(p.mem, addr) {
		return 0, false
	}
	return int(addr-buf.Addr(p.mem)) / p.slot, true
}

// Repack is a no-op: all elements already live in the one region.
func (p *oneBig) Repack(pool.RepackFunc) {}

// GC is a no-op: the region is held until Shutdown.
func (p *oneBig) GC() {}

func (p *oneBig) Stats() pool.Stats {
	s := pool.Stats{
		Live:  p.live,
		InUse: p.live * p.slot,
	}
	if p.mem == nil {
		return s
	}
	s.Capacity = len(p.raw)
	s.Regions = 1
	s.Grown = 1
	s.FreeBlocks = p.free.Len() + p.count - p.bump
	if s.FreeBlocks > 0 {
		s.LargestFree = p.elemSize
	}
	return s
}

func (p *oneBig) Shutdown() {
	if p.raw == nil {
		return
	}
	if err := p.src.Release(p.raw); err != nil {
		p.log.Warn("region release failed", "error", err)
	}
	p.raw, p.mem = nil, nil
	p.live = 0
}

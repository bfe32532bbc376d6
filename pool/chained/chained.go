// Package chained implements the default, general-purpose pool backend.
//
// The pool grows by fixed-size chunks. Each chunk is formatted into slots of
// the element size when it is created, and its free slots are threaded into
// an intrusive LIFO stack, so the most recently freed slot is handed out
// first. Allocation and free are O(1). Free finds the owning chunk through
// a map keyed by address page, a page being the chunk size rounded up to a
// power of two, so no more than three chunks ever share a page. GC releases
// chunks whose slots are all free; Repack drains the sparsest chunks into
// the densest ones so that GC can release them.
//
// Options:
//
//	element_size  required, bytes per element
//	chunk_size    bytes per growth chunk (default max(4096, slot size))
package chained

import (
	"cmp"
	"log/slog"
	"math/bits"
	"slices"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/freestack"
	"github.com/joshuapare/poolkit/internal/memsrc"
	"github.com/joshuapare/poolkit/pool"
)

// Name is the registry name of the backend.
const Name = "chained_pool"

// DefaultChunkSize is used when chunk_size is not given.
const DefaultChunkSize = 4096

// Backend is the chained-chunk backend descriptor.
var Backend pool.Backend = backend{}

type backend struct{}

func (backend) Name() string { return Name }

func (backend) Init(cfg *pool.Config) (pool.Instance, error) {
	if err := cfg.RequireElementSize(); err != nil {
		return nil, err
	}
	slot := cfg.SlotSize()

	chunkSize, err := cfg.Options.Int("chunk_size", max(DefaultChunkSize, slot))
	if err != nil {
		return nil, err
	}
	perChunk := chunkSize / slot
	switch {
	case perChunk == 0:
		return nil, pool.InvalidOption("chunk_size", "%d is smaller than one %d-byte slot", chunkSize, slot)
	case perChunk > freestack.MaxSlots:
		return nil, pool.InvalidOption("chunk_size", "%d holds more than %d slots", chunkSize, freestack.MaxSlots)
	}

	return &chainedPool{
		src:       cfg.Source,
		log:       cfg.Logger,
		elemSize:  cfg.ElementSize,
		slot:      slot,
		align:     cfg.Alignment,
		perChunk:  perChunk,
		pageShift: uint(bits.Len(uint(perChunk*slot - 1))),
		pages:     make(map[uintptr][]*chunk),
	}, nil
}

// chunk is one growth unit. mem holds exactly perChunk slots.
type chunk struct {
	raw   []byte // region returned by the memory source
	mem   []byte // aligned slot area inside raw
	base  uintptr
	free  freestack.Stack
	avail int // index in chainedPool.avail, -1 while the chunk is full
}

type chainedPool struct {
	src      pool.Source
	log      *slog.Logger
	elemSize int
	slot     int
	align    int
	perChunk int

	chunks []*chunk // ordered by base address
	avail  []*chunk // chunks with at least one free slot

	pageShift uint
	pages     map[uintptr][]*chunk // chunks overlapping each address page

	live      int
	grown     uint64
	released  uint64
	relocated uint64
}

func (p *chainedPool) used(c *chunk) int { return p.perChunk - c.free.Len() }

func (p *chainedPool) Alloc(size int) []byte {
	if size > p.elemSize {
		return nil
	}
	if len(p.avail) == 0 && !p.grow() {
		return nil
	}
	c := p.avail[len(p.avail)-1]
	idx, _ := c.free.Pop(c.mem, p.slot)
	if c.free.Len() == 0 {
		p.unmarkAvail(c)
	}
	p.live++
	return buf.Slot(c.mem, idx*p.slot, size, p.elemSize)
}

// Realloc keeps the element in place when size fits the slot; a larger
// size cannot be served and returns nil.
func (p *chainedPool) Realloc(elem []byte, size int) []byte {
	if size > p.elemSize {
		return nil
	}
	c, idx := p.locate(pool.Addr(elem))
	if c == nil {
		return nil
	}
	return buf.Slot(c.mem, idx*p.slot, size, p.elemSize)
}

func (p *chainedPool) Free(elem []byte) {
	c, idx := p.locate(pool.Addr(elem))
	if c == nil {
		p.log.Warn("free of foreign element ignored")
		return
	}
	p.release(c, idx)
	p.live--
}

// release pushes slot idx back onto its chunk.
func (p *chainedPool) release(c *chunk, idx int) {
	wasFull := c.free.Len() == 0
	c.free.Push(c.mem, p.slot, idx)
	if wasFull {
		p.markAvail(c)
	}
}

// locate finds the chunk owning addr and the slot index inside it.
func (p *chainedPool) locate(addr uintptr) (*chunk, int) {
	for _, c := range p.pages[addr>>p.pageShift] {
		if buf.Within(c.mem, addr) {
			return c, int(addr-c.base) / p.slot
		}
	}
	return nil, 0
}

// pageSpan returns the first and last page c.mem touches; at most two.
func (p *chainedPool) pageSpan(c *chunk) (first, last uintptr) {
	return c.base >> p.pageShift, (c.base + uintptr(len(c.mem)) - 1) >> p.pageShift
}

func (p *chainedPool) index(c *chunk) {
	first, last := p.pageSpan(c)
	for pg := first; pg <= last; pg++ {
		p.pages[pg] = append(p.pages[pg], c)
	}
}

func (p *chainedPool) unindex(c *chunk) {
	first, last := p.pageSpan(c)
	for pg := first; pg <= last; pg++ {
		owners := slices.DeleteFunc(p.pages[pg], func(o *chunk) bool { return o == c })
		if len(owners) == 0 {
			delete(p.pages, pg)
			continue
		}
		p.pages[pg] = owners
	}
}

func (p *chainedPool) grow() bool {
	raw, mem, err := memsrc.AllocAligned(p.src, p.perChunk*p.slot, p.align)
	if err != nil {
		p.log.Warn("chunk allocation failed", "error", pool.Exhausted(err))
		return false
	}
	c := &chunk{raw: raw, mem: mem, base: buf.Addr(mem), avail: -1}
	c.free.Format(mem, p.slot, p.perChunk)

	i, _ := slices.BinarySearchFunc(p.chunks, c.base, func(c *chunk, a uintptr) int {
		return cmp.Compare(c.base, a)
	})
	p.chunks = slices.Insert(p.chunks, i, c)
	p.index(c)
	p.markAvail(c)
	p.grown++
	p.log.Debug("chunk created", "slots", p.perChunk, "bytes", len(raw), "chunks", len(p.chunks))
	return true
}

func (p *chainedPool) markAvail(c *chunk) {
	c.avail = len(p.avail)
	p.avail = append(p.avail, c)
}

func (p *chainedPool) unmarkAvail(c *chunk) {
	last := p.avail[len(p.avail)-1]
	p.avail[c.avail] = last
	last.avail = c.avail
	p.avail = p.avail[:len(p.avail)-1]
	c.avail = -1
}

// GC releases every chunk whose slots are all free.
func (p *chainedPool) GC() {
	kept := p.chunks[:0]
	for _, c := range p.chunks {
		if c.free.Len() < p.perChunk {
			kept = append(kept, c)
			continue
		}
		p.unmarkAvail(c)
		p.unindex(c)
		p.drop(c)
		p.released++
	}
	clear(p.chunks[len(kept):])
	p.chunks = kept
}

func (p *chainedPool) drop(c *chunk) {
	if err := p.src.Release(c.raw); err != nil {
		p.log.Warn("chunk release failed", "error", err)
	}
	p.log.Debug("chunk released", "bytes", len(c.raw))
	c.raw, c.mem = nil, nil
}

// Repack moves live slots out of the sparsest chunks into the densest chunks
// that still have room. A chunk is only ever a source or a destination,
// never both, so a vacated slot is not reused before its callback ran.
func (p *chainedPool) Repack(fn pool.RepackFunc) {
	order := slices.Clone(p.chunks)
	slices.SortStableFunc(order, func(a, b *chunk) int {
		return cmp.Compare(p.used(b), p.used(a))
	})

	dst := 0
outer:
	for src := len(order) - 1; src > dst; src-- {
		from := order[src]
		for _, idx := range p.liveSlots(from) {
			for dst < src && order[dst].free.Len() == 0 {
				dst++
			}
			if dst >= src {
				break outer
			}
			p.move(order[dst], from, idx, fn)
		}
	}
}

// liveSlots lists the allocated slot indices of c in address order.
func (p *chainedPool) liveSlots(c *chunk) []int {
	if p.used(c) == 0 {
		return nil
	}
	free := make([]bool, p.perChunk)
	c.free.Walk(c.mem, p.slot, func(idx int) { free[idx] = true })

	live := make([]int, 0, p.used(c))
	for idx, isFree := range free {
		if !isFree {
			live = append(live, idx)
		}
	}
	return live
}

func (p *chainedPool) move(to, from *chunk, idx int, fn pool.RepackFunc) {
	dstIdx, _ := to.free.Pop(to.mem, p.slot)
	if to.free.Len() == 0 {
		p.unmarkAvail(to)
	}
	dst := buf.Slot(to.mem, dstIdx*p.slot, p.elemSize, p.elemSize)
	src := buf.Slot(from.mem, idx*p.slot, p.elemSize, p.elemSize)
	copy(dst, src)
	fn(dst, src)
	p.release(from, idx)
	p.relocated++
}

func (p *chainedPool) Stats() pool.Stats {
	s := pool.Stats{
		Live:      p.live,
		InUse:     p.live * p.slot,
		Regions:   len(p.chunks),
		Grown:     p.grown,
		Released:  p.released,
		Relocated: p.relocated,
	}
	for _, c := range p.chunks {
		s.Capacity += len(c.raw)
		s.FreeBlocks += c.free.Len()
	}
	if s.FreeBlocks > 0 {
		s.LargestFree = p.elemSize
	}
	return s
}

func (p *chainedPool) Shutdown() {
	for _, c := range p.chunks {
		p.drop(c)
	}
	p.chunks, p.avail = nil, nil
	clear(p.pages)
	p.live = 0
}

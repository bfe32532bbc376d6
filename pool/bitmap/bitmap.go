// Package bitmap implements the fixed-bitmap pool backend.
//
// Memory is obtained in regions of a fixed number of slots (32 by default).
// Each region tracks occupancy with one bit per slot, 0 meaning free, packed
// into 32-bit words. Allocation takes the lowest-addressed region that has
// room and scans its words for the first one that is not all ones, then for
// the first clear bit within it. Regions are indexed by base address in a
// balanced tree, so both finding a region with room and resolving a freed
// address to its region are O(log n).
//
// Options:
//
//	element_size  required, bytes per element
//	slots         slots per region, a multiple of 32 (default 32)
package bitmap

import (
	"log/slog"
	"math/bits"

	"github.com/google/btree"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/memsrc"
	"github.com/joshuapare/poolkit/pool"
)

// Name is the registry name of the backend.
const Name = "fixed_bitmap"

// DefaultSlots is the number of slots per region when slots is not given.
const DefaultSlots = 32

const (
	wordBits = 32
	fullWord = ^uint32(0)
	degree   = 8
)

// Backend is the fixed-bitmap backend descriptor.
var Backend pool.Backend = backend{}

type backend struct{}

func (backend) Name() string { return Name }

func (backend) Init(cfg *pool.Config) (pool.Instance, error) {
	if err := cfg.RequireElementSize(); err != nil {
		return nil, err
	}
	slots, err := cfg.Options.Int("slots", DefaultSlots)
	if err != nil {
		return nil, err
	}
	if slots == 0 || slots%wordBits != 0 {
		return nil, pool.InvalidOption("slots", "%d is not a positive multiple of %d", slots, wordBits)
	}
	slot := cfg.SlotSize()
	if _, err := buf.RegionSize(slots, slot, cfg.Alignment); err != nil {
		return nil, pool.InvalidOption("slots", "%v", err)
	}

	return &bitmapPool{
		src:      cfg.Source,
		log:      cfg.Logger,
		elemSize: cfg.ElementSize,
		slot:     slot,
		align:    cfg.Alignment,
		slots:    slots,
		regions:  btree.NewG(degree, byBase),
		avail:    btree.NewG(degree, byBase),
	}, nil
}

// region is one bulk allocation of slots elements.
type region struct {
	raw  []byte
	mem  []byte
	base uintptr
	used []uint32 // one bit per slot, set while allocated
	live int
}

func byBase(a, b *region) bool { return a.base < b.base }

type bitmapPool struct {
	src      pool.Source
	log      *slog.Logger
	elemSize int
	slot     int
	align    int
	slots    int

	regions *btree.BTreeG[*region] // every region
	avail   *btree.BTreeG[*region] // regions with at least one clear bit

	live     int
	grown    uint64
	released uint64
}

func (p *bitmapPool) Alloc(size int) []byte {
	if size > p.elemSize {
		return nil
	}
	r, ok := p.avail.Min()
	if !ok {
		if r = p.grow(); r == nil {
			return nil
		}
	}

	idx := -1
	for w, word := range r.used {
		if word != fullWord {
			bit := bits.TrailingZeros32(^word)
			r.used[w] |= 1 << bit
			idx = w*wordBits + bit
			break
		}
	}
	r.live++
	if r.live == p.slots {
		p.avail.Delete(r)
	}
	p.live++
	return buf.Slot(r.mem, idx*p.slot, size, p.elemSize)
}

// Realloc keeps the element in place when size fits the slot; a larger
// size cannot be served and returns nil.
func (p *bitmapPool) Realloc(elem []byte, size int) []byte {
	r, idx := p.locate(pool.Addr(elem))
	if r == nil || size > p.elemSize {
		return nil
	}
	return buf.Slot(r.mem, idx*p.slot, size, p.elemSize)
}

func (p *bitmapPool) Free(elem []byte) {
	r, idx := p.locate(pool.Addr(elem))
	if r == nil {
		p.log.Warn("free of foreign element ignored")
		return
	}
	if r.live == p.slots {
		p.avail.ReplaceOrInsert(r)
	}
	r.used[idx/wordBits] &^= 1 << (idx % wordBits)
	r.live--
	p.live--
}

// locate resolves addr to its region: the one with the greatest base not
// above addr, provided addr falls inside it.
func (p *bitmapPool) locate(addr uintptr) (*region, int) {
	var owner *region
	p.regions.DescendLessOrEqual(&region{base: addr}, func(r *region) bool {
		owner = r
		return false
	})
	if owner == nil || !buf.Within(owner.mem, addr) {
		return nil, 0
	}
	return owner, int(addr-owner.base) / p.slot
}

func (p *bitmapPool) grow() *region {
	raw, mem, err := memsrc.AllocAligned(p.src, p.slots*p.slot, p.align)
	if err != nil {
		p.log.Warn("region allocation failed", "error", pool.Exhausted(err))
		return nil
	}
	r := &region{
		raw:  raw,
		mem:  mem,
		base: buf.Addr(mem),
		used: make([]uint32, p.slots/wordBits),
	}
	p.regions.ReplaceOrInsert(r)
	p.avail.ReplaceOrInsert(r)
	p.grown++
	p.log.Debug("region created", "slots", p.slots, "bytes", len(raw), "regions", p.regions.Len())
	return r
}

// Repack is a no-op: slots never move between regions.
func (p *bitmapPool) Repack(pool.RepackFunc) {}

// GC releases every region with no slot in use.
func (p *bitmapPool) GC() {
	var empty []*region
	p.avail.Ascend(func(r *region) bool {
		if r.live == 0 {
			empty = append(empty, r)
		}
		return true
	})
	for _, r := range empty {
		p.avail.Delete(r)
		p.regions.Delete(r)
		p.drop(r)
		p.released++
	}
}

func (p *bitmapPool) drop(r *region) {
	if err := p.src.Release(r.raw); err != nil {
		p.log.Warn("region release failed", "error", err)
	}
	p.log.Debug("region released", "bytes", len(r.raw))
	r.raw, r.mem = nil, nil
}

func (p *bitmapPool) Stats() pool.Stats {
	s := pool.Stats{
		Live:     p.live,
		InUse:    p.live * p.slot,
		Regions:  p.regions.Len(),
		Grown:    p.grown,
		Released: p.released,
	}
	p.regions.Ascend(func(r *region) bool {
		s.Capacity += len(r.raw)
		s.FreeBlocks += p.slots - r.live
		return true
	})
	if s.FreeBlocks > 0 {
		s.LargestFree = p.elemSize
	}
	return s
}

func (p *bitmapPool) Shutdown() {
	p.regions.Ascend(func(r *region) bool {
		p.drop(r)
		return true
	})
	p.regions.Clear(false)
	p.avail.Clear(false)
	p.live = 0
}

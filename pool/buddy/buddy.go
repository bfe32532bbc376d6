// Package buddy implements a binary buddy allocator whose bookkeeping lives
// entirely outside the memory it manages.
//
// An arena of size bytes is divided into blocks whose sizes are powers of
// two times min_block. A request is rounded up to the next such class; a
// larger free block is split in halves, always keeping the lower half, until
// the class is reached. Freeing a block merges it with its buddy while the
// buddy is free and of the same class, all the way up to the whole arena.
//
// The metadata for every min_block unit (class, free flag, free-list links)
// is held in a side table indexed by unit. The backend never reads or writes
// the arena to keep books, which makes it usable over memory that is slow or
// unsafe to touch, such as device-mapped buffers. The only accesses to arena
// bytes are the copies performed by Realloc and Repack.
//
// Options:
//
//	size       arena bytes, a power of two (default 1m)
//	min_block  smallest block, a power of two >= alignment (default max(32, alignment))
//	grow       add another arena when exhausted (default true)
package buddy

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/memsrc"
	"github.com/joshuapare/poolkit/pool"
)

// Name is the registry name of the backend.
const Name = "buddy"

const (
	// DefaultSize is the arena size when size is not given.
	DefaultSize = 1 << 20
	// DefaultMinBlock is the smallest block when min_block is not given.
	DefaultMinBlock = 32
	// MaxOrder bounds the number of size classes, so unit indices fit an int32.
	MaxOrder = 30
)

// Backend is the buddy backend descriptor.
var Backend pool.Backend = backend{}

type backend struct{}

func (backend) Name() string { return Name }

func (backend) Init(cfg *pool.Config) (pool.Instance, error) {
	minBlock, err := cfg.Options.Int("min_block", max(DefaultMinBlock, cfg.Alignment))
	if err != nil {
		return nil, err
	}
	switch {
	case !buf.IsPow2(minBlock):
		return nil, pool.InvalidOption("min_block", "%d is not a power of two", minBlock)
	case minBlock < cfg.Alignment:
		return nil, pool.InvalidOption("min_block", "%d is below the alignment %d", minBlock, cfg.Alignment)
	}

	size, err := cfg.Options.Int("size", max(DefaultSize, minBlock))
	if err != nil {
		return nil, err
	}
	switch {
	case !buf.IsPow2(size):
		return nil, pool.InvalidOption("size", "%d is not a power of two", size)
	case size < minBlock:
		return nil, pool.InvalidOption("size", "%d is below min_block %d", size, minBlock)
	case size/minBlock > 1<<MaxOrder:
		return nil, pool.InvalidOption("size", "%d spans more than 2^%d blocks of %d", size, MaxOrder, minBlock)
	case int64(size/minBlock)*metaSize > memsrc.MaxHeapRegion:
		return nil, pool.InvalidOption("size", "%d needs a %d-byte block table at min_block %d",
			size, int64(size/minBlock)*metaSize, minBlock)
	}
	if cfg.ElementSize > size {
		return nil, pool.InvalidOption("element_size", "%d exceeds the arena size %d", cfg.ElementSize, size)
	}

	grow, err := cfg.Options.Bool("grow", true)
	if err != nil {
		return nil, err
	}

	p := &buddyPool{
		src:      cfg.Source,
		log:      cfg.Logger,
		align:    cfg.Alignment,
		minBlock: minBlock,
		minShift: buf.Log2(minBlock),
		size:     size,
		maxOrder: buf.Log2(size / minBlock),
		grow:     grow,
	}
	if p.addArena() == nil {
		return nil, pool.Exhausted(memsrc.ErrNoMemory)
	}
	return p, nil
}

type buddyPool struct {
	src      pool.Source
	log      *slog.Logger
	align    int
	minBlock int
	minShift int
	size     int
	maxOrder int
	grow     bool

	arenas []*arena // ordered by base address

	live      int
	inUse     int
	grown     uint64
	released  uint64
	relocated uint64
}

// order returns the size class of a size-byte request.
func (p *buddyPool) order(size int) int {
	units := (size + p.minBlock - 1) >> p.minShift
	return buf.Log2(buf.NextPow2(units))
}

func (p *buddyPool) blockSize(order int) int { return p.minBlock << order }

func (p *buddyPool) Alloc(size int) []byte {
	if size > p.size {
		return nil
	}
	k := p.order(size)

	a, j := p.findFree(k)
	if a == nil {
		if !p.grow {
			return nil
		}
		if a = p.addArena(); a == nil {
			return nil
		}
		j = p.maxOrder
	}
	unit := a.pop(j)
	p.carve(a, unit, j, k)
	return buf.Slot(a.mem, unit<<p.minShift, size, p.blockSize(k))
}

// findFree returns the arena holding the smallest free block of class >= k,
// preferring lower addresses among equal classes.
func (p *buddyPool) findFree(k int) (*arena, int) {
	for j := k; j <= p.maxOrder; j++ {
		for _, a := range p.arenas {
			if a.heads[j] != none {
				return a, j
			}
		}
	}
	return nil, 0
}

// carve turns the free block at unit, already unlinked from class j, into
// an allocated block of class k by splitting off upper halves.
func (p *buddyPool) carve(a *arena, unit, j, k int) {
	for j > k {
		j--
		a.push(unit+1<<j, j)
	}
	a.meta[unit] = meta{order: int8(k), head: true, prev: none, next: none}
	a.live++
	p.live++
	p.inUse += p.blockSize(k)
}

// Realloc keeps the block when size still fits its class. Otherwise it
// moves the element to a new block, copying min(len(elem), size) bytes; the
// rest of a grown block is undefined.
func (p *buddyPool) Realloc(elem []byte, size int) []byte {
	a, unit := p.locate(pool.Addr(elem))
	if a == nil {
		return nil
	}
	bs := p.blockSize(int(a.meta[unit].order))
	if size <= bs {
		return buf.Slot(a.mem, unit<<p.minShift, size, bs)
	}
	out := p.Alloc(size)
	if out == nil {
		return nil
	}
	copy(out, elem)
	p.Free(elem)
	return out
}

func (p *buddyPool) Free(elem []byte) {
	a, unit := p.locate(pool.Addr(elem))
	if a == nil {
		p.log.Warn("free of foreign element ignored")
		return
	}
	p.release(a, unit)
}

// release frees the allocated block at unit and coalesces it with its
// buddies as far up as possible.
func (p *buddyPool) release(a *arena, unit int) {
	k := int(a.meta[unit].order)
	a.live--
	p.live--
	p.inUse -= p.blockSize(k)

	for k < p.maxOrder {
		bud := unit ^ (1 << k)
		m := a.meta[bud]
		if !m.head || !m.free || int(m.order) != k {
			break
		}
		a.unlink(bud, k)
		hi := max(unit, bud)
		a.meta[hi].head = false
		unit = min(unit, bud)
		k++
	}
	a.push(unit, k)
}

// locate resolves addr to its arena and unit index.
func (p *buddyPool) locate(addr uintptr) (*arena, int) {
	i, found := slices.BinarySearchFunc(p.arenas, addr, func(a *arena, x uintptr) int {
		return cmp.Compare(a.base, x)
	})
	if !found {
		i--
	}
	if i < 0 || !buf.Within(p.arenas[i].mem, addr) {
		return nil, 0
	}
	a := p.arenas[i]
	return a, int(addr-a.base) >> p.minShift
}

func (p *buddyPool) addArena() *arena {
	raw, mem, err := memsrc.AllocAligned(p.src, p.size, p.align)
	if err != nil {
		p.log.Warn("arena allocation failed", "error", pool.Exhausted(err))
		return nil
	}
	a := newArena(raw, mem, p.maxOrder)

	i, _ := slices.BinarySearchFunc(p.arenas, a.base, func(a *arena, x uintptr) int {
		return cmp.Compare(a.base, x)
	})
	p.arenas = slices.Insert(p.arenas, i, a)
	p.grown++
	p.log.Debug("arena created", "bytes", p.size, "arenas", len(p.arenas))
	return a
}

// GC releases fully free arenas, always keeping at least one.
func (p *buddyPool) GC() {
	kept := p.arenas[:0]
	for i, a := range p.arenas {
		remaining := len(p.arenas) - i - 1
		if a.live == 0 && len(kept)+remaining > 0 {
			p.drop(a)
			p.released++
			continue
		}
		kept = append(kept, a)
	}
	clear(p.arenas[len(kept):])
	p.arenas = kept
}

func (p *buddyPool) drop(a *arena) {
	if err := p.src.Release(a.raw); err != nil {
		p.log.Warn("arena release failed", "error", err)
	}
	p.log.Debug("arena released", "bytes", len(a.raw))
	a.raw, a.mem, a.meta = nil, nil, nil
}

func (p *buddyPool) Stats() pool.Stats {
	s := pool.Stats{
		Live:      p.live,
		InUse:     p.inUse,
		Regions:   len(p.arenas),
		Grown:     p.grown,
		Released:  p.released,
		Relocated: p.relocated,
	}
	for _, a := range p.arenas {
		s.Capacity += len(a.raw)
		for j, n := range a.counts {
			s.FreeBlocks += n
			if n > 0 {
				s.LargestFree = max(s.LargestFree, p.blockSize(j))
			}
		}
	}
	return s
}

func (p *buddyPool) Shutdown() {
	for _, a := range p.arenas {
		p.drop(a)
	}
	p.arenas = nil
	p.live, p.inUse = 0, 0
}

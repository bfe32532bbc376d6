// Package passthrough implements the reference backend: every allocation is
// an individual request to the memory source and Free hands it straight
// back. It accepts any size and keeps no chunks of its own.
//
// With the default heap source Free only drops the pool's bookkeeping; the
// garbage collector reclaims the bytes once the caller lets go of them.
package passthrough

import (
	"log/slog"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/memsrc"
	"github.com/joshuapare/poolkit/pool"
)

// Name is the registry name of the backend.
const Name = "pass_through"

// Backend is the pass-through backend descriptor.
var Backend pool.Backend = backend{}

type backend struct{}

func (backend) Name() string { return Name }

func (backend) Init(cfg *pool.Config) (pool.Instance, error) {
	return &passThrough{
		src:   cfg.Source,
		log:   cfg.Logger,
		align: cfg.Alignment,
		live:  make(map[uintptr]allocation),
	}, nil
}

// allocation remembers what the source handed out for one element.
type allocation struct {
	raw  []byte
	size int
}

type passThrough struct {
	src   pool.Source
	log   *slog.Logger
	align int

	live  map[uintptr]allocation
	inUse int
	grown uint64
}

func (p *passThrough) Alloc(size int) []byte {
	raw, mem, err := memsrc.AllocAligned(p.src, size, p.align)
	if err != nil {
		p.log.Debug("allocation failed", "size", size, "error", pool.Exhausted(err))
		return nil
	}
	p.live[buf.Addr(mem)] = allocation{raw: raw, size: size}
	p.inUse += size
	p.grown++
	return mem
}

// Realloc grows or shrinks in place while size fits the original
// allocation. Otherwise it allocates anew and copies min(len(elem), size)
// bytes; the tail of a grown element is zero.
func (p *passThrough) Realloc(elem []byte, size int) []byte {
	addr := pool.Addr(elem)
	a, ok := p.live[addr]
	if !ok {
		return nil
	}
	if size <= a.size {
		return buf.Slot(a.raw, int(addr-buf.Addr(a.raw)), size, a.size)
	}
	out := p.Alloc(size)
	if out == nil {
		return nil
	}
	copy(out, elem)
	p.Free(elem)
	return out
}

func (p *passThrough) Free(elem []byte) {
	addr := pool.Addr(elem)
	a, ok := p.live[addr]
	if !ok {
		p.log.Warn("free of foreign element ignored")
		return
	}
	delete(p.live, addr)
	p.inUse -= a.size
	if err := p.src.Release(a.raw); err != nil {
		p.log.Warn("release failed", "error", err)
	}
}

// Repack is a no-op: every element is its own allocation.
func (p *passThrough) Repack(pool.RepackFunc) {}

// GC is a no-op: nothing is cached.
func (p *passThrough) GC() {}

func (p *passThrough) Stats() pool.Stats {
	s := pool.Stats{
		Live:    len(p.live),
		InUse:   p.inUse,
		Regions: len(p.live),
		Grown:   p.grown,
	}
	for _, a := range p.live {
		s.Capacity += len(a.raw)
	}
	return s
}

// Shutdown returns every outstanding allocation to the source.
func (p *passThrough) Shutdown() {
	for addr, a := range p.live {
		if err := p.src.Release(a.raw); err != nil {
			p.log.Warn("release failed", "error", err)
		}
		delete(p.live, addr)
	}
	p.inUse = 0
}

package pool

import "log/slog"

// Pool is a handle binding one backend instance to its configuration.
// It is created by Registry.Add and destroyed by Close.
//
// A Pool is not safe for concurrent use. Callers serialize access to each
// pool themselves, for example one mutex per pool or one pool per goroutine.
type Pool struct {
	entry    *entry
	name     string
	context  string
	elemSize int
	align    int
	inst     Instance
	log      *slog.Logger

	allocs   uint64
	frees    uint64
	failures uint64
}

// Backend returns the name of the backend the pool was created from.
func (p *Pool) Backend() string { return p.name }

// Context returns the label given to Registry.Add.
func (p *Pool) Context() string { return p.context }

// ElementSize returns the configured element size (0 for variable-size backends).
func (p *Pool) ElementSize() int { return p.elemSize }

// Alignment returns the alignment every element address is a multiple of.
func (p *Pool) Alignment() int { return p.align }

// operable reports whether the pool may still call into its backend.
func (p *Pool) operable() bool {
	if p.inst == nil {
		return false
	}
	if p.entry.retired {
		p.log.Warn("pool used after its backend was unregistered")
		return false
	}
	return true
}

// Alloc returns an element of size bytes or nil when the pool is exhausted.
// A nil result is the only failure signal; the caller must check it.
// Fixed-slot backends return nil for sizes above the element size.
func (p *Pool) Alloc(size int) []byte {
	if size <= 0 || !p.operable() {
		return nil
	}
	elem := p.inst.Alloc(size)
	if elem == nil {
		p.failures++
		return nil
	}
	p.allocs++
	return elem
}

// Realloc resizes elem to size bytes. A nil elem behaves like Alloc and a
// zero size behaves like Free (returning nil). On failure it returns nil and
// elem remains valid. How many bytes survive a move is backend specific.
func (p *Pool) Realloc(elem []byte, size int) []byte {
	switch {
	case cap(elem) == 0:
		return p.Alloc(size)
	case size == 0:
		p.Free(elem)
		return nil
	case size < 0 || !p.operable():
		return nil
	}
	out := p.inst.Realloc(elem, size)
	if out == nil {
		p.failures++
	}
	return out
}

// Free returns elem to the pool. elem must come from this pool and must not
// have been freed already; neither condition is checked.
func (p *Pool) Free(elem []byte) {
	if cap(elem) == 0 || !p.operable() {
		return
	}
	p.inst.Free(elem)
	p.frees++
}

// Repack compacts the pool. Every moved element is copied by the backend and
// reported to fn before its old space can be reused. Backends that cannot
// compact treat this as a no-op, as does a nil fn.
func (p *Pool) Repack(fn RepackFunc) {
	if fn == nil || !p.operable() {
		return
	}
	before := p.inst.Stats().Relocated
	p.inst.Repack(fn)
	if moved := p.inst.Stats().Relocated - before; moved > 0 {
		p.log.Debug("pool repacked", "moved", moved)
	}
}

// GC returns fully unused chunks or regions to the memory source.
// Calling it twice in a row does nothing the second time.
func (p *Pool) GC() {
	if !p.operable() {
		return
	}
	p.inst.GC()
}

// Stats returns a usage snapshot.
func (p *Pool) Stats() Stats {
	var s Stats
	if p.inst != nil {
		s = p.inst.Stats()
	}
	s.Backend = p.name
	s.Context = p.context
	s.ElementSize = p.elemSize
	s.Alignment = p.align
	s.Allocs = p.allocs
	s.Frees = p.frees
	s.Failures = p.failures
	return s
}

// Statistics logs the usage snapshot at Info level and returns it.
func (p *Pool) Statistics() Stats {
	s := p.Stats()
	p.log.Info("pool statistics",
		"live", s.Live,
		"in_use", s.InUse,
		"capacity", s.Capacity,
		"regions", s.Regions,
		"free_blocks", s.FreeBlocks,
		"largest_free", s.LargestFree,
		"grown", s.Grown,
		"released", s.Released,
		"relocated", s.Relocated,
		"allocs", s.Allocs,
		"frees", s.Frees,
		"failures", s.Failures,
	)
	return s
}

// Close shuts the backend down and releases all pool memory. Elements still
// held by the caller dangle afterwards. Close is idempotent.
func (p *Pool) Close() {
	if p.inst == nil {
		return
	}
	p.inst.Shutdown()
	p.inst = nil
	p.log.Debug("pool closed")
}

package mempool

import "github.com/joshuapare/poolkit/pool"

// Handle names an element held in a Handles table. The zero Handle is never
// issued.
type Handle uint32

// Handles maps stable handles to pool elements. Its Relocate method keeps
// the table current while the pool compacts, so callers that only hold
// handles never see a stale slice.
type Handles struct {
	pool  *pool.Pool
	elems [][]byte // elems[h-1]; nil when free
	free  []Handle
	index map[uintptr]Handle
}

// NewHandles returns an empty table allocating from p.
func NewHandles(p *pool.Pool) *Handles {
	return &Handles{pool: p, index: make(map[uintptr]Handle)}
}

// Alloc allocates size bytes and returns a handle to them, or 0 when the
// pool is exhausted.
func (h *Handles) Alloc(size int) Handle {
	elem := h.pool.Alloc(size)
	if elem == nil {
		return 0
	}
	var id Handle
	if n := len(h.free); n > 0 {
		id = h.free[n-1]
		h.free = h.free[:n-1]
		h.elems[id-1] = elem
	} else {
		h.elems = append(h.elems, elem)
		id = Handle(len(h.elems))
	}
	h.index[pool.Addr(elem)] = id
	return id
}

// Get returns the element behind id, or nil for a free or unknown handle.
// The slice is valid until the next Repack or Free of id.
func (h *Handles) Get(id Handle) []byte {
	if id == 0 || int(id) > len(h.elems) {
		return nil
	}
	return h.elems[id-1]
}

// Free returns the element behind id to the pool. Unknown handles are ignored.
func (h *Handles) Free(id Handle) {
	elem := h.Get(id)
	if elem == nil {
		return
	}
	delete(h.index, pool.Addr(elem))
	h.pool.Free(elem)
	h.elems[id-1] = nil
	h.free = append(h.free, id)
}

// Len returns the number of live handles.
func (h *Handles) Len() int { return len(h.index) }

// Relocate is a pool.RepackFunc that points the handle owning src at dst.
// Moves of elements the table does not own are ignored.
func (h *Handles) Relocate(dst, src []byte) {
	id, ok := h.index[pool.Addr(src)]
	if !ok {
		return
	}
	old := h.elems[id-1]
	delete(h.index, pool.Addr(src))
	h.elems[id-1] = dst[:len(old):min(cap(old), cap(dst))]
	h.index[pool.Addr(dst)] = id
}

// Repack compacts the pool and updates every handle.
func (h *Handles) Repack() {
	h.pool.Repack(h.Relocate)
}

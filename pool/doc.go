// Package pool provides a pluggable memory-pool framework: one allocation
// interface backed by interchangeable allocation strategies that are
// registered and selected by name at runtime.
//
// # Overview
//
// A Backend is an allocation strategy. Backends are registered in a Registry
// under a unique name. Registry.Add resolves a backend by name, parses the
// options string and asks the backend for a fresh Instance, which the
// returned *Pool owns exclusively:
//
//	reg := pool.NewRegistry()
//	if err := reg.Register(chained.Backend); err != nil {
//	    return err
//	}
//
//	p, err := reg.Add("chained_pool", "widgets", "element_size=48,chunk_size=4k")
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	elem := p.Alloc(48)
//	if elem == nil {
//	    // exhausted
//	}
//	p.Free(elem)
//
// # Elements
//
// Elements are byte slices carved from backend-owned memory. An element is
// identified by the address of its first byte (Addr), so a zero-length
// reslice still names the same element. Fixed-slot backends hand out
// elements whose capacity stops at the element size.
//
// Allocation never panics or returns an error: a nil slice means the pool
// could not satisfy the request. Freeing an element twice, or freeing it
// into a different pool, is undefined and not detected.
//
// # Options
//
// The options string is "key=value[,key=value...]". Every backend accepts:
//
//   - element_size: size of one element in bytes
//   - alignment:    power of two <= MaxAlignment; defaults to AlignOf(element_size)
//   - source:       "heap" (default) or "mmap"
//
// Integer values take an optional k or m suffix. Keys that neither the core
// nor the backend consume fail pool creation with ErrInvalidOption.
//
// # Compaction
//
// Repack moves live elements into denser chunks so that GC can release the
// emptied ones. The backend copies the bytes and then calls the RepackFunc
// with the new and old element, before the old space can be reused. Callers
// that need references to survive compaction should hold indices into a
// table they fix up from the callback rather than raw slices.
//
// # Thread Safety
//
// Neither Registry nor Pool lock. Register backends once at startup, and
// serialize access to each pool externally.
package pool

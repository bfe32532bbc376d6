// Package memsrc provides the system-level memory sources that pool backends
// carve their chunks and regions from.
package memsrc

import (
	"errors"
	"fmt"

	"github.com/joshuapare/poolkit/internal/buf"
)

const (
	// MaxRegion bounds a single request to any source.
	MaxRegion = 1 << 40
	// MaxHeapRegion bounds a single request to the heap source. A make the
	// runtime cannot satisfy aborts the process, so larger requests fail
	// with ErrNoMemory up front. Use the mmap source for bigger regions.
	MaxHeapRegion = 1 << 32
)

// ErrNoMemory indicates the source could not provide the requested bytes.
var ErrNoMemory = errors.New("memsrc: out of memory")

// Source hands out and takes back raw byte regions.
type Source interface {
	// Name is the value accepted by the "source" pool option.
	Name() string
	// Alloc returns a zeroed region of exactly n bytes.
	Alloc(n int) ([]byte, error)
	// Release returns a region obtained from Alloc. The region must not be
	// used afterwards.
	Release(b []byte) error
}

// ByName resolves a source option value. The empty string selects the heap.
func ByName(name string) (Source, error) {
	switch name {
	case "", "heap":
		return Heap, nil
	case "mmap":
		return Mmap, nil
	default:
		return nil, fmt.Errorf("memsrc: unknown source %q", name)
	}
}

// Heap allocates from the Go heap. Release only drops the reference; the
// garbage collector reclaims the region once nothing points into it.
var Heap Source = heapSource{}

type heapSource struct{}

func (heapSource) Name() string { return "heap" }

func (heapSource) Alloc(n int) ([]byte, error) {
	if n < 0 || int64(n) > MaxHeapRegion {
		return nil, fmt.Errorf("%w: %d bytes exceeds the heap limit", ErrNoMemory, n)
	}
	return make([]byte, n), nil
}

func (heapSource) Release([]byte) error { return nil }

// pageAligned is implemented by sources whose regions start on a page
// boundary, which satisfies every alignment a pool accepts.
type pageAligned interface{ pageAligned() }

// AllocAligned obtains size bytes from src whose first byte is aligned to
// align. It returns the raw region (to hand back to Release) and the aligned
// window inside it.
func AllocAligned(src Source, size, align int) (raw, mem []byte, err error) {
	pad := 0
	if _, ok := src.(pageAligned); !ok && align > 1 {
		pad = align - 1
	}
	n, err := buf.RegionSize(1, size, pad)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoMemory, err)
	}
	raw, err = src.Alloc(n)
	if err != nil {
		return nil, nil, err
	}
	mem, ok := buf.Aligned(raw, align, size)
	if !ok {
		_ = src.Release(raw)
		return nil, nil, fmt.Errorf("%w: cannot align %d bytes to %d", ErrNoMemory, size, align)
	}
	return raw, mem, nil
}

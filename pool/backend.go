package pool

import (
	"log/slog"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/internal/memsrc"
)

// Source is a system-level memory provider that backends carve regions from.
type Source = memsrc.Source

// RepackFunc is told about every element Repack moved. The bytes are already
// copied from src to dst when it runs; the callee only rewrites its
// references. src stays untouched until the callback returns.
type RepackFunc func(dst, src []byte)

// Backend is an allocation strategy that can be registered by name.
// Implementations must be comparable values (typically pointers).
type Backend interface {
	// Name identifies the backend in a Registry.
	Name() string
	// Init creates the backend-private state for one pool. It consumes the
	// backend-specific keys from cfg.Options and validates them.
	Init(cfg *Config) (Instance, error)
}

// Instance is the backend-private state of one pool. It is owned by exactly
// one *Pool and is never called concurrently.
//
// Sizes passed to Alloc and Realloc are always positive and elements passed
// to Realloc and Free are never nil; Pool filters those cases out.
type Instance interface {
	// Alloc returns an element of at least size bytes, or nil when the pool
	// cannot satisfy the request.
	Alloc(size int) []byte
	// Realloc resizes elem and returns the (possibly moved) element, or nil
	// when it cannot; elem stays valid in that case.
	Realloc(elem []byte, size int) []byte
	// Free makes the element's space available for reuse.
	Free(elem []byte)
	// Repack moves live elements into denser storage, calling fn for each.
	Repack(fn RepackFunc)
	// GC returns fully unused chunks or regions to the memory source.
	GC()
	// Stats fills in the backend-owned fields of a Stats record.
	Stats() Stats
	// Shutdown releases every chunk or region. Outstanding elements dangle.
	Shutdown()
}

// Config is the parsed configuration handed to Backend.Init.
type Config struct {
	// Context is the free-form label given to Registry.Add.
	Context string
	// ElementSize is the "element_size" option; 0 when not given.
	ElementSize int
	// Alignment is the "alignment" option, or AlignOf(ElementSize).
	Alignment int
	// Source is the "source" option; the Go heap by default.
	Source Source
	// Options holds the remaining backend-specific keys.
	Options *Options
	// Logger is scoped to the pool being created.
	Logger *slog.Logger
}

// SlotSize is the per-element footprint of a fixed-size backend: the element
// size rounded up to the alignment, never below MinSlot.
func (c *Config) SlotSize() int {
	return max(buf.AlignUp(c.ElementSize, c.Alignment), MinSlot)
}

// RequireElementSize fails with InvalidOption when element_size was not
// given. Fixed-slot backends call it first thing in Init.
func (c *Config) RequireElementSize() error {
	if c.ElementSize <= 0 {
		return InvalidOption("element_size", "required and must be > 0")
	}
	return nil
}

// newConfig consumes the keys shared by every backend.
func newConfig(context string, opts *Options) (*Config, error) {
	cfg := &Config{Context: context, Options: opts}

	var err error
	if cfg.ElementSize, err = opts.Int("element_size", 0); err != nil {
		return nil, err
	}

	if cfg.Alignment, err = opts.Int("alignment", 0); err != nil {
		return nil, err
	}
	switch {
	case cfg.Alignment == 0:
		cfg.Alignment = AlignOf(cfg.ElementSize)
	case !buf.IsPow2(cfg.Alignment):
		return nil, InvalidOption("alignment", "%d is not a power of two", cfg.Alignment)
	case cfg.Alignment > MaxAlignment:
		return nil, InvalidOption("alignment", "%d exceeds maximum %d", cfg.Alignment, MaxAlignment)
	}

	if cfg.Source, err = memsrc.ByName(opts.String("source", "")); err != nil {
		return nil, InvalidOption("source", "%v", err)
	}
	return cfg, nil
}

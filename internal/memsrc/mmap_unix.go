//go:build unix

package memsrc

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Mmap maps anonymous private pages for every region. Regions are page
// aligned and live outside the Go heap; Release unmaps them immediately.
var Mmap Source = mmapSource{}

type mmapSource struct{}

func (mmapSource) Name() string { return "mmap" }

func (mmapSource) pageAligned() {}

func (mmapSource) Alloc(n int) ([]byte, error) {
	if n <= 0 || int64(n) > MaxRegion {
		return nil, fmt.Errorf("%w: %d bytes", ErrNoMemory, n)
	}
	data, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %d bytes: %w", ErrNoMemory, n, err)
	}
	return data, nil
}

func (mmapSource) Release(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	err := unix.Munmap(b)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}

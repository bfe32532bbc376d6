//go:build !unix

package memsrc

// Mmap falls back to the Go heap where anonymous mappings are unavailable.
var Mmap Source = fallbackSource{}

type fallbackSource struct{ heapSource }

func (fallbackSource) Name() string { return "mmap" }

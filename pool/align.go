package pool

import (
	"strconv"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/joshuapare/poolkit/internal/buf"
)

// MaxAlignment is the largest alignment a pool accepts: the CPU cache line.
// Aligning beyond it buys nothing for in-memory objects.
const MaxAlignment = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// MinSlot is the smallest slot a fixed-size backend hands out. A free slot
// stores the 32-bit index of the next free slot in its first bytes.
const MinSlot = 4

// AlignOf returns the default alignment for elements of size bytes.
// The rule is monotonic in size and capped at two machine words:
//
//	size <= 2   -> 2
//	size <  8   -> 4
//	size < 16   -> 8
//	otherwise   -> 16 (8 on 32-bit platforms)
func AlignOf(size int) int {
	var align int
	switch {
	case size <= 2:
		align = 2
	case size < 8:
		align = 4
	case size < 16 || strconv.IntSize == 32:
		align = 8
	default:
		align = 16
	}
	return min(align, MaxAlignment)
}

// RoundSize rounds size up to a multiple of its default alignment.
func RoundSize(size int) int {
	if size <= 0 {
		return 0
	}
	return buf.AlignUp(size, AlignOf(size))
}

// Addr returns the identity of an element: the address of its first byte.
// Zero-length reslices of an element keep the same identity.
func Addr(elem []byte) uintptr {
	return buf.Addr(elem)
}

// SameElement reports whether a and b refer to the same element.
func SameElement(a, b []byte) bool {
	return Addr(a) != 0 && Addr(a) == Addr(b)
}

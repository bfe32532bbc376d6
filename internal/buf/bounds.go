package buf

import (
	"fmt"
	"math"
	"math/bits"
	"unsafe"
)

// AddOverflowSafe adds a and b, returning ok = false when the result would overflow int.
func AddOverflowSafe(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// MulOverflowSafe multiplies two non-negative ints, returning ok = false when
// the result would overflow int. Negative operands are rejected.
func MulOverflowSafe(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// RegionSize returns the number of bytes needed to hold count slots of
// slotSize bytes plus pad bytes of alignment slack. It fails on negative
// inputs and on overflow.
//
//	n, err := buf.RegionSize(itemCount, slot, align-1)
//	if err != nil {
//	    return fmt.Errorf("onebig: %w", err)
//	}
func RegionSize(count, slotSize, pad int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("negative count: %d", count)
	}
	if slotSize < 0 {
		return 0, fmt.Errorf("negative slot size: %d", slotSize)
	}
	if pad < 0 {
		return 0, fmt.Errorf("negative padding: %d", pad)
	}

	total, ok := MulOverflowSafe(count, slotSize)
	if !ok {
		return 0, fmt.Errorf("overflow: count=%d * slot=%d", count, slotSize)
	}
	total, ok = AddOverflowSafe(total, pad)
	if !ok {
		return 0, fmt.Errorf("overflow: size=%d + pad=%d", total, pad)
	}
	return total, nil
}

// IsPow2 reports whether n is a positive power of two.
func IsPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// Log2 returns floor(log2(n)) for n > 0.
func Log2(n int) int {
	if n <= 0 {
		return 0
	}
	return bits.Len(uint(n)) - 1
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// Addr returns the address of the first byte of b's backing array.
// It is stable for zero-length reslices as long as cap(b) > 0, and 0 for a nil slice.
func Addr(b []byte) uintptr {
	if cap(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

// Aligned returns the sub-slice of mem that starts at the first address
// aligned to align and spans n bytes. ok is false when mem is too short.
func Aligned(mem []byte, align, n int) ([]byte, bool) {
	if align <= 1 {
		return Slice(mem, 0, n)
	}
	pad := 0
	if rem := int(Addr(mem) % uintptr(align)); rem != 0 {
		pad = align - rem
	}
	return Slice(mem, pad, n)
}

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	end, ok := AddOverflowSafe(off, n)
	if !ok || end > len(b) {
		return nil, false
	}
	return b[off:end:end], true
}

// Slot returns mem[off:off+n] with its capacity clamped to capN bytes, so
// that a caller holding the slot cannot append into its neighbour.
func Slot(mem []byte, off, n, capN int) []byte {
	return mem[off : off+n : off+capN]
}

// Within reports whether addr falls inside the backing array of mem.
func Within(mem []byte, addr uintptr) bool {
	base := Addr(mem)
	return base != 0 && addr >= base && addr < base+uintptr(len(mem))
}

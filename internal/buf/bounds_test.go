package buf

import (
	"math"
	"testing"
)

func TestAddOverflowSafe(t *testing.T) {
	if sum, ok := AddOverflowSafe(10, 5); !ok || sum != 15 {
		t.Fatalf("AddOverflowSafe(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := AddOverflowSafe(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := AddOverflowSafe(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestMulOverflowSafe(t *testing.T) {
	if got, ok := MulOverflowSafe(1024, 16); !ok || got != 16384 {
		t.Fatalf("MulOverflowSafe(1024,16)=%d,%v want 16384,true", got, ok)
	}
	if got, ok := MulOverflowSafe(0, math.MaxInt); !ok || got != 0 {
		t.Fatalf("zero operand should yield 0,true")
	}
	if _, ok := MulOverflowSafe(math.MaxInt/2, 3); ok {
		t.Fatalf("expected overflow")
	}
	if _, ok := MulOverflowSafe(-1, 8); ok {
		t.Fatalf("negative operand must be rejected")
	}
}

func TestRegionSize(t *testing.T) {
	n, err := RegionSize(32, 16, 15)
	if err != nil || n != 32*16+15 {
		t.Fatalf("RegionSize(32,16,15)=%d,%v", n, err)
	}
	if _, err := RegionSize(-1, 16, 0); err == nil {
		t.Fatalf("negative count must fail")
	}
	if _, err := RegionSize(math.MaxInt/8, 16, 0); err == nil {
		t.Fatalf("overflowing count must fail")
	}
	if _, err := RegionSize(1, math.MaxInt, 1); err == nil {
		t.Fatalf("overflowing padding must fail")
	}
}

func TestPow2Helpers(t *testing.T) {
	cases := []struct {
		n, next, log int
		pow          bool
	}{
		{1, 1, 0, true},
		{2, 2, 1, true},
		{3, 4, 1, false},
		{17, 32, 4, false},
		{4096, 4096, 12, true},
	}
	for _, c := range cases {
		if got := NextPow2(c.n); got != c.next {
			t.Fatalf("NextPow2(%d)=%d want %d", c.n, got, c.next)
		}
		if got := Log2(c.n); got != c.log {
			t.Fatalf("Log2(%d)=%d want %d", c.n, got, c.log)
		}
		if got := IsPow2(c.n); got != c.pow {
			t.Fatalf("IsPow2(%d)=%v want %v", c.n, got, c.pow)
		}
	}
	if IsPow2(0) || IsPow2(-4) {
		t.Fatalf("non-positive values are not powers of two")
	}
	if got := AlignUp(13, 8); got != 16 {
		t.Fatalf("AlignUp(13,8)=%d want 16", got)
	}
	if got := AlignUp(16, 8); got != 16 {
		t.Fatalf("AlignUp(16,8)=%d want 16", got)
	}
}

func TestAligned(t *testing.T) {
	mem := make([]byte, 256+63)
	got, ok := Aligned(mem, 64, 256)
	if !ok {
		t.Fatalf("Aligned should fit 256 bytes in %d", len(mem))
	}
	if Addr(got)%64 != 0 {
		t.Fatalf("Aligned returned address 0x%x not 64-byte aligned", Addr(got))
	}
	if len(got) != 256 || cap(got) != 256 {
		t.Fatalf("Aligned len=%d cap=%d want 256/256", len(got), cap(got))
	}
	if _, ok := Aligned(mem[:10], 64, 256); ok {
		t.Fatalf("Aligned should fail on a short buffer")
	}
}

func TestAddrAndWithin(t *testing.T) {
	if Addr(nil) != 0 {
		t.Fatalf("Addr(nil) should be 0")
	}
	mem := make([]byte, 64)
	s := Slot(mem, 16, 0, 8)
	if Addr(s) != Addr(mem)+16 {
		t.Fatalf("zero-length slot should keep its address")
	}
	if cap(s) != 8 {
		t.Fatalf("Slot cap=%d want 8", cap(s))
	}
	if !Within(mem, Addr(mem)+63) {
		t.Fatalf("last byte should be within mem")
	}
	if Within(mem, Addr(mem)+64) {
		t.Fatalf("one past the end is not within mem")
	}
}

func TestSlice(t *testing.T) {
	data := []byte{0, 1, 2, 3, 4}
	if got, ok := Slice(data, 1, 3); !ok || len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Slice returned unexpected result: %v, %v", got, ok)
	}
	if got, _ := Slice(data, 1, 3); cap(got) != 3 {
		t.Fatalf("Slice should clamp capacity, got %d", cap(got))
	}
	if _, ok := Slice(data, 4, 2); ok {
		t.Fatalf("Slice should fail when extending beyond len")
	}
	if _, ok := Slice(data, -1, 1); ok {
		t.Fatalf("Slice should reject negative offset")
	}
	if _, ok := Slice(data, 1, -1); ok {
		t.Fatalf("Slice should reject negative length")
	}
}

// Package pooltest is the conformance suite every pool backend runs from its
// own tests. It checks the properties the pool contract promises regardless
// of the backend's layout.
package pooltest

import (
	"bytes"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/pool"
)

// Spec describes the backend under test.
type Spec struct {
	Backend pool.Backend
	// Options is passed to Registry.Add for every subtest.
	Options string
	// ElementSize is the size requested by every allocation.
	ElementSize int
	// Limit caps how many elements a subtest allocates at once; 0 means 256.
	Limit int
	// Compacts is true when Repack is expected to move elements.
	Compacts bool
	// FixedSlots is true for backends that reuse the last freed slot first.
	FixedSlots bool
}

func (s Spec) limit() int {
	if s.Limit > 0 {
		return s.Limit
	}
	return 256
}

// New registers spec.Backend in a fresh registry and creates a pool from it.
func New(t testing.TB, spec Spec) *pool.Pool {
	t.Helper()
	reg := pool.NewRegistry()
	require.NoError(t, reg.Register(spec.Backend))
	p, err := reg.Add(spec.Backend.Name(), t.Name(), spec.Options)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

// Run executes the whole suite.
func Run(t *testing.T, spec Spec) {
	t.Run("LiveCount", func(t *testing.T) { testLiveCount(t, spec) })
	t.Run("NoOverlap", func(t *testing.T) { testNoOverlap(t, spec) })
	t.Run("Alignment", func(t *testing.T) { testAlignment(t, spec) })
	t.Run("ReuseAfterFree", func(t *testing.T) { testReuseAfterFree(t, spec) })
	t.Run("Realloc", func(t *testing.T) { testRealloc(t, spec) })
	t.Run("RepackRoundTrip", func(t *testing.T) { testRepackRoundTrip(t, spec) })
	t.Run("GCIdempotent", func(t *testing.T) { testGCIdempotent(t, spec) })
	t.Run("Close", func(t *testing.T) { testClose(t, spec) })
}

// Fill writes a pattern derived from seed into b.
func Fill(b []byte, seed int) {
	for i := range b {
		b[i] = byte(seed*31 + i)
	}
}

// Check reports whether b still holds the pattern written by Fill.
func Check(b []byte, seed int) bool {
	want := make([]byte, len(b))
	Fill(want, seed)
	return bytes.Equal(b, want)
}

func testLiveCount(t *testing.T, spec Spec) {
	p := New(t, spec)
	rng := rand.New(rand.NewPCG(1, 2))

	var held [][]byte
	var allocs, frees int
	for range 2000 {
		if len(held) < spec.limit() && (len(held) == 0 || rng.IntN(3) > 0) {
			e := p.Alloc(spec.ElementSize)
			require.NotNil(t, e)
			held = append(held, e)
			allocs++
		} else {
			i := rng.IntN(len(held))
			p.Free(held[i])
			held = slices.Delete(held, i, i+1)
			frees++
		}
		s := p.Stats()
		require.Equal(t, allocs-frees, s.Live)
		require.LessOrEqual(t, s.InUse, s.Capacity)
	}
	s := p.Stats()
	require.EqualValues(t, allocs, s.Allocs)
	require.EqualValues(t, frees, s.Frees)
}

func testNoOverlap(t *testing.T, spec Spec) {
	p := New(t, spec)
	elems := make([][]byte, spec.limit())
	for i := range elems {
		elems[i] = p.Alloc(spec.ElementSize)
		require.NotNil(t, elems[i])
		require.Len(t, elems[i], spec.ElementSize)
		Fill(elems[i], i)
	}
	for i, e := range elems {
		require.True(t, Check(e, i), "element %d was overwritten", i)
	}

	sorted := slices.Clone(elems)
	slices.SortFunc(sorted, func(a, b []byte) int {
		switch {
		case pool.Addr(a) < pool.Addr(b):
			return -1
		case pool.Addr(a) > pool.Addr(b):
			return 1
		}
		return 0
	})
	for i := 1; i < len(sorted); i++ {
		prevEnd := pool.Addr(sorted[i-1]) + uintptr(cap(sorted[i-1]))
		require.LessOrEqual(t, prevEnd, pool.Addr(sorted[i]), "elements overlap")
	}
}

func testAlignment(t *testing.T, spec Spec) {
	p := New(t, spec)
	require.Positive(t, p.Alignment())
	for range spec.limit() {
		e := p.Alloc(spec.ElementSize)
		require.NotNil(t, e)
		require.Zero(t, pool.Addr(e)%uintptr(p.Alignment()), "address 0x%x", pool.Addr(e))
	}
}

func testReuseAfterFree(t *testing.T, spec Spec) {
	p := New(t, spec)
	keep := p.Alloc(spec.ElementSize)
	e := p.Alloc(spec.ElementSize)
	require.NotNil(t, keep)
	require.NotNil(t, e)

	addr := pool.Addr(e)
	p.Free(e)
	again := p.Alloc(spec.ElementSize)
	require.NotNil(t, again)
	if spec.FixedSlots {
		require.Equal(t, addr, pool.Addr(again), "last freed slot should be reused first")
	}
	require.NotEqual(t, pool.Addr(keep), pool.Addr(again))
}

func testRealloc(t *testing.T, spec Spec) {
	p := New(t, spec)

	e := p.Realloc(nil, spec.ElementSize)
	require.NotNil(t, e, "nil element must behave like Alloc")
	require.Equal(t, 1, p.Stats().Live)
	Fill(e, 7)

	half := max(spec.ElementSize/2, 1)
	shrunk := p.Realloc(e, half)
	require.NotNil(t, shrunk)
	require.Len(t, shrunk, half)
	require.True(t, Check(shrunk, 7), "shrinking must keep the leading bytes")

	require.Nil(t, p.Realloc(shrunk, 0), "zero size must behave like Free")
	require.Zero(t, p.Stats().Live)
}

func testRepackRoundTrip(t *testing.T, spec Spec) {
	p := New(t, spec)

	// Handles index a table instead of holding raw slices across Repack.
	table := make([][]byte, spec.limit())
	for i := range table {
		table[i] = p.Alloc(spec.ElementSize)
		require.NotNil(t, table[i])
	}
	for i := 0; i < len(table); i += 2 {
		p.Free(table[i])
		table[i] = nil
	}
	for i, e := range table {
		if e != nil {
			Fill(e, i)
		}
	}

	index := make(map[uintptr]int)
	for i, e := range table {
		if e != nil {
			index[pool.Addr(e)] = i
		}
	}
	moved := 0
	p.Repack(func(dst, src []byte) {
		i, ok := index[pool.Addr(src)]
		require.True(t, ok, "relocation of unknown element 0x%x", pool.Addr(src))
		require.True(t, Check(dst[:len(table[i])], i), "bytes not copied before callback")
		delete(index, pool.Addr(src))
		table[i] = dst[:len(table[i])]
		index[pool.Addr(dst)] = i
		moved++
	})

	for i, e := range table {
		if e != nil {
			require.True(t, Check(e, i), "element %d corrupted by repack", i)
		}
	}
	s := p.Stats()
	require.EqualValues(t, moved, s.Relocated)
	require.Equal(t, len(table)/2, s.Live)
	if spec.Compacts {
		require.Positive(t, moved, "fragmented pool should compact")
	} else {
		require.Zero(t, moved)
	}
}

func testGCIdempotent(t *testing.T, spec Spec) {
	p := New(t, spec)
	elems := make([][]byte, spec.limit())
	for i := range elems {
		elems[i] = p.Alloc(spec.ElementSize)
		require.NotNil(t, elems[i])
	}
	for i := len(elems) / 4; i < len(elems); i++ {
		p.Free(elems[i])
	}

	p.GC()
	first := p.Stats()
	p.GC()
	require.Equal(t, first, p.Stats())
}

func testClose(t *testing.T, spec Spec) {
	p := New(t, spec)
	require.NotNil(t, p.Alloc(spec.ElementSize))
	p.Close()
	p.Close()

	require.Nil(t, p.Alloc(spec.ElementSize))
	s := p.Stats()
	require.Zero(t, s.Capacity)
	require.Zero(t, s.Regions)
}

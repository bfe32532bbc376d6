package passthrough

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/pooltest"
	"github.com/joshuapare/poolkit/pool"
)

func Test_Conformance(t *testing.T) {
	pooltest.Run(t, pooltest.Spec{Backend: Backend, ElementSize: 24})
}

func Test_ConformanceMmap(t *testing.T) {
	pooltest.Run(t, pooltest.Spec{Backend: Backend, Options: "source=mmap", ElementSize: 100, Limit: 32})
}

func Test_AnySize(t *testing.T) {
	p := pooltest.New(t, pooltest.Spec{Backend: Backend})

	for _, size := range []int{1, 7, 4096, 1 << 20} {
		e := p.Alloc(size)
		require.Len(t, e, size)
		require.Zero(t, pool.Addr(e)%uintptr(p.Alignment()))
		p.Free(e)
	}
	require.Zero(t, p.Stats().Live)
}

func Test_Realloc(t *testing.T) {
	p := pooltest.New(t, pooltest.Spec{Backend: Backend})

	e := p.Alloc(64)
	pooltest.Fill(e, 3)

	shrunk := p.Realloc(e, 16)
	require.Equal(t, pool.Addr(e), pool.Addr(shrunk))
	require.Len(t, shrunk, 16)

	regrown := p.Realloc(shrunk, 64)
	require.Equal(t, pool.Addr(e), pool.Addr(regrown), "the original allocation still fits")
	require.True(t, pooltest.Check(regrown, 3))

	moved := p.Realloc(regrown, 100)
	require.NotNil(t, moved)
	require.Len(t, moved, 100)
	require.True(t, pooltest.Check(moved[:64], 3))
	require.Equal(t, make([]byte, 36), moved[64:], "the grown tail is zeroed")

	s := p.Stats()
	require.Equal(t, 1, s.Live)
	require.Equal(t, 100, s.InUse)
}

func Test_ForeignFreeIgnored(t *testing.T) {
	p := pooltest.New(t, pooltest.Spec{Backend: Backend})

	e := p.Alloc(8)
	p.Free(make([]byte, 8))
	require.Equal(t, 1, p.Stats().Live)
	require.Nil(t, p.Realloc(make([]byte, 8), 16))
	p.Free(e)
	require.Zero(t, p.Stats().Live)
}

func Test_StatsPerAllocation(t *testing.T) {
	p := pooltest.New(t, pooltest.Spec{Backend: Backend})

	a := p.Alloc(10)
	b := p.Alloc(30)
	s := p.Stats()
	require.Equal(t, 2, s.Regions)
	require.Equal(t, 40, s.InUse)
	require.GreaterOrEqual(t, s.Capacity, 40)
	require.EqualValues(t, 2, s.Grown)

	p.GC()
	require.Equal(t, s, p.Stats(), "GC has nothing to release")

	p.Free(a)
	p.Free(b)
	s = p.Stats()
	require.Zero(t, s.Capacity)
	require.EqualValues(t, 2, s.Frees)
}

func Test_HugeAllocIsNil(t *testing.T) {
	p := pooltest.New(t, pooltest.Spec{Backend: Backend})

	require.Nil(t, p.Alloc(1<<38))

	e := p.Alloc(32)
	pooltest.Fill(e, 9)
	require.Nil(t, p.Realloc(e, 1<<38))
	require.True(t, pooltest.Check(e, 9), "a failed realloc leaves the element intact")

	s := p.Stats()
	require.Equal(t, 1, s.Live)
	require.EqualValues(t, 2, s.Failures)
	p.Free(e)
}

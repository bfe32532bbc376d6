package pool

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_AlignOf(t *testing.T) {
	wide := 16
	if strconv.IntSize == 32 {
		wide = 8
	}
	tests := []struct{ size, want int }{
		{0, 2},
		{1, 2},
		{2, 2},
		{3, 4},
		{7, 4},
		{8, 8},
		{15, 8},
		{16, wide},
		{4096, wide},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, AlignOf(tc.size), "size %d", tc.size)
	}
}

func Test_AlignOfMonotonic(t *testing.T) {
	prev := AlignOf(0)
	for size := 1; size <= 1<<12; size++ {
		a := AlignOf(size)
		require.GreaterOrEqual(t, a, prev, "size %d", size)
		require.LessOrEqual(t, a, MaxAlignment)
		require.Zero(t, a&(a-1), "alignment %d is not a power of two", a)
		prev = a
	}
}

func Test_RoundSize(t *testing.T) {
	require.Zero(t, RoundSize(0))
	require.Equal(t, 2, RoundSize(1))
	require.Equal(t, 4, RoundSize(3))
	require.Equal(t, 16, RoundSize(9))
}

func Test_SameElement(t *testing.T) {
	b := make([]byte, 16)
	require.True(t, SameElement(b, b[:0]))
	require.True(t, SameElement(b[:4], b[:8:8]))
	require.False(t, SameElement(b, b[1:]))
	require.False(t, SameElement(nil, nil))
}

package memsrc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/buf"
)

func Test_ByName(t *testing.T) {
	src, err := ByName("")
	require.NoError(t, err)
	require.Equal(t, "heap", src.Name())

	src, err = ByName("mmap")
	require.NoError(t, err)
	require.Equal(t, "mmap", src.Name())

	_, err = ByName("vram")
	require.Error(t, err)
}

func Test_HeapRejectsHugeRequests(t *testing.T) {
	_, err := Heap.Alloc(MaxHeapRegion + 1)
	require.True(t, errors.Is(err, ErrNoMemory))

	_, err = Heap.Alloc(1 << 38)
	require.True(t, errors.Is(err, ErrNoMemory))

	_, _, err = AllocAligned(Heap, 1<<38, 16)
	require.True(t, errors.Is(err, ErrNoMemory))

	_, err = Heap.Alloc(-1)
	require.True(t, errors.Is(err, ErrNoMemory))
}

func Test_AllocAligned(t *testing.T) {
	for _, src := range []Source{Heap, Mmap} {
		for _, align := range []int{1, 8, 16, 64} {
			raw, mem, err := AllocAligned(src, 1000, align)
			require.NoError(t, err, "%s align=%d", src.Name(), align)
			require.Len(t, mem, 1000)
			require.Zero(t, buf.Addr(mem)%uintptr(align), "%s align=%d", src.Name(), align)
			require.True(t, buf.Within(raw, buf.Addr(mem)))

			for i := range mem {
				mem[i] = 0x5A
			}
			require.NoError(t, src.Release(raw))
		}
	}
}

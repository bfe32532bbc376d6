//go:build unix

package memsrc

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/poolkit/internal/buf"
)

func Test_MmapIsPageAligned(t *testing.T) {
	data, err := Mmap.Alloc(3 * os.Getpagesize())
	require.NoError(t, err)
	require.Zero(t, buf.Addr(data)%uintptr(os.Getpagesize()))

	for i := range data {
		require.Zero(t, data[i], "fresh mapping must be zeroed")
	}
	data[len(data)-1] = 1

	require.NoError(t, Mmap.Release(data))
	require.NoError(t, Mmap.Release(nil))
}

func Test_MmapRejectsEmpty(t *testing.T) {
	_, err := Mmap.Alloc(0)
	require.ErrorIs(t, err, ErrNoMemory)
}

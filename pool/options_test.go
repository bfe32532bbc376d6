package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ParseOptions(t *testing.T) {
	o, err := ParseOptions(" size = 4k , grow=false,, name=a=b ")
	require.NoError(t, err)
	require.Equal(t, []string{"size", "grow", "name"}, o.Keys())
	require.True(t, o.Has("size"))
	require.False(t, o.Has("other"))

	size, err := o.Int("size", 0)
	require.NoError(t, err)
	require.Equal(t, 4096, size)
	require.Equal(t, []string{"grow", "name"}, o.Unused())

	grow, err := o.Bool("grow", true)
	require.NoError(t, err)
	require.False(t, grow)
	require.Equal(t, "a=b", o.String("name", ""))
	require.Empty(t, o.Unused())

	def, err := o.Int("missing", 7)
	require.NoError(t, err)
	require.Equal(t, 7, def)
}

func Test_ParseOptionsEmpty(t *testing.T) {
	for _, s := range []string{"", " ", ",,"} {
		o, err := ParseOptions(s)
		require.NoError(t, err)
		require.Empty(t, o.Keys())
	}
}

func Test_ParseOptionsRejects(t *testing.T) {
	for _, s := range []string{"size", "=4", "a=1,a=2", "a=1, b"} {
		_, err := ParseOptions(s)
		require.ErrorIs(t, err, ErrInvalidOption, s)
	}
}

func Test_OptionsInt(t *testing.T) {
	tests := []struct {
		value string
		want  int
		ok    bool
	}{
		{"0", 0, true},
		{"12", 12, true},
		{"2K", 2048, true},
		{"3m", 3 << 20, true},
		{"1M", 1 << 20, true},
		{"-1", 0, false},
		{"1.5", 0, false},
		{"k", 0, false},
		{"99999999999999999999", 0, false},
		{"9999999999999999m", 0, false},
	}
	for _, tc := range tests {
		o, err := ParseOptions("n=" + tc.value)
		require.NoError(t, err)
		got, err := o.Int("n", 0)
		if !tc.ok {
			require.ErrorIs(t, err, ErrInvalidOption, tc.value)
			continue
		}
		require.NoError(t, err, tc.value)
		require.Equal(t, tc.want, got, tc.value)
	}
}

func Test_OptionsBool(t *testing.T) {
	o, err := ParseOptions("a=1,b=false,c=yes")
	require.NoError(t, err)

	a, err := o.Bool("a", false)
	require.NoError(t, err)
	require.True(t, a)
	b, err := o.Bool("b", true)
	require.NoError(t, err)
	require.False(t, b)
	_, err = o.Bool("c", false)
	require.ErrorIs(t, err, ErrInvalidOption)
}

package pool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ErrorIsMatchesKind(t *testing.T) {
	err := InvalidOption("size", "%d is odd", 3)
	require.ErrorIs(t, err, ErrInvalidOption)
	require.NotErrorIs(t, err, ErrNotFound)
	require.Equal(t, `pool: option "size": 3 is odd`, err.Error())

	wrapped := fmt.Errorf("creating pool: %w", initFailed("buddy", err))
	require.ErrorIs(t, wrapped, ErrInitFailed)
	require.ErrorIs(t, wrapped, ErrInvalidOption)

	var perr *Error
	require.ErrorAs(t, wrapped, &perr)
	require.Equal(t, KindInitFailed, perr.Kind)
}

func Test_ExhaustedUnwraps(t *testing.T) {
	cause := errors.New("out of pages")
	err := Exhausted(cause)
	require.ErrorIs(t, err, ErrExhausted)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "pool: exhausted: out of pages", err.Error())
}

func Test_ErrKindString(t *testing.T) {
	require.Equal(t, "duplicate name", KindDuplicateName.String())
	require.Equal(t, "ErrKind(99)", ErrKind(99).String())
}

package identity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewActor_InvalidArgument(t *testing.T) {
	_, err := NewActor("Test", "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewActor("Test", "   ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewActor("", "a1")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewActor_Valid(t *testing.T) {
	id, err := NewActor("Test", "a3")
	require.NoError(t, err)
	require.Equal(t, "Test/a3", id.String())
}

func TestNewStream_InvalidArgument(t *testing.T) {
	_, err := NewStream("", "a1")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewStream("orders", "")
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = NewStream("  ", "a1")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestStream_EqualityAndCanonicalRendering(t *testing.T) {
	s1, err := NewStream("orders", "processed")
	require.NoError(t, err)

	s2, err := NewStream("orders", "processed")
	require.NoError(t, err)

	s3, err := NewStream("orders", "other")
	require.NoError(t, err)

	require.True(t, s1.Equal(s2))
	require.False(t, s1.Equal(s3))
	require.Equal(t, "orders/processed", s1.String())
}

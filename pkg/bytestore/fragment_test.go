package bytestore

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFragment(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	f := NewFragment(buf)

	assert.Equal(t, 4, f.Len())
	assert.Equal(t, buf, f.Bytes())
}

func TestFragment_Cut(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6}
	f := NewFragment(buf)

	t.Run("cut from", func(t *testing.T) {
		tail, err := f.CutFrom(2)
		require.NoError(t, err)
		assert.Equal(t, []byte{3, 4, 5, 6}, tail.Bytes())
	})

	t.Run("cut to", func(t *testing.T) {
		head, err := f.CutTo(2)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2}, head.Bytes())
	})

	t.Run("cut from negative offset", func(t *testing.T) {
		_, err := f.CutFrom(-1)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("cut past the end", func(t *testing.T) {
		_, err := f.CutFrom(7)
		assert.ErrorIs(t, err, ErrOutOfRange)
		_, err = f.CutTo(7)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("halves share the backing buffer", func(t *testing.T) {
		head, err := f.CutTo(3)
		require.NoError(t, err)
		tail, err := f.CutFrom(3)
		require.NoError(t, err)

		require.NoError(t, tail.Set(0, 0xAA))
		assert.Equal(t, byte(0xAA), buf[3])

		v, err := f.At(3)
		require.NoError(t, err)
		assert.Equal(t, byte(0xAA), v)
		assert.Equal(t, []byte{1, 2, 3}, head.Bytes())
	})
}

func TestFragment_AtSet(t *testing.T) {
	f := NewFragment([]byte{10, 20, 30})

	v, err := f.At(1)
	require.NoError(t, err)
	assert.Equal(t, byte(20), v)

	require.NoError(t, f.Set(2, 99))
	v, err = f.At(2)
	require.NoError(t, err)
	assert.Equal(t, byte(99), v)

	_, err = f.At(3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = f.At(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, f.Set(3, 0), ErrOutOfRange)
}

func TestFragment_Copy(t *testing.T) {
	f := NewFragment([]byte{1, 2, 3, 4, 5})
	tail, err := f.CutFrom(1)
	require.NoError(t, err)

	dst := make([]byte, 6)
	require.NoError(t, tail.CopyTo(1, dst, 2, 3))
	assert.Equal(t, []byte{0, 0, 3, 4, 5, 0}, dst)

	assert.ErrorIs(t, tail.CopyTo(2, dst, 0, 3), ErrOutOfRange)
	assert.ErrorIs(t, tail.CopyTo(0, dst, 5, 3), ErrOutOfRange)

	require.NoError(t, tail.CopyFrom([]byte{8, 9}, 2))
	assert.Equal(t, []byte{2, 3, 8, 9}, tail.Bytes())
	assert.ErrorIs(t, tail.CopyFrom([]byte{1, 2, 3}, 2), ErrOutOfRange)
}

func TestFragment_BytesCapacityIsCapped(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	head, err := NewFragment(buf).CutTo(2)
	require.NoError(t, err)

	view := head.Bytes()
	_ = append(view, 0xFF)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}

func TestFragment_WriteToAndAll(t *testing.T) {
	f, err := NewFragment([]byte{1, 2, 3, 4}).CutFrom(1)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := f.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []byte{2, 3, 4}, out.Bytes())

	assert.Equal(t, []byte{2, 3, 4}, slices.Collect(f.All()))
}

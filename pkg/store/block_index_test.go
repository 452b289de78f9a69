package store

import (
	"encoding/binary"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/pcapbend/pkg/bytestore"
	"github.com/ssargent/pcapbend/pkg/codec"
)

func TestNewBlockIndex(t *testing.T) {
	idx := NewBlockIndex(IndexConfig{})

	assert.NotNil(t, idx)
	assert.Equal(t, binary.LittleEndian, idx.order)
	assert.Equal(t, codec.BlockTypeEnhancedPacket, idx.target)
	assert.True(t, idx.Stale(0))
	assert.Equal(t, IndexStats{}, idx.Stats())
}

func TestBlockIndex_InterleavedBlocks(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			stream := slices.Concat(
				otherBlock(order, codec.BlockTypeNameResolution, 8),
				packetBlock(t, order, []byte{1}),
				packetBlock(t, order, []byte{2, 2, 2, 2, 2}),
				otherBlock(order, codec.BlockTypeInterfaceStatistics, 0),
				otherBlock(order, codec.BlockTypeInterfaceStatistics, 12),
				packetBlock(t, order, nil),
			)
			src := bytestore.New(stream)
			idx := NewBlockIndex(IndexConfig{Order: order})

			count, err := idx.Count(src, 0)
			require.NoError(t, err)
			assert.Equal(t, 3, count)

			offsets, err := idx.Offsets(src, 0)
			require.NoError(t, err)
			lengths, err := idx.Lengths(src, 0)
			require.NoError(t, err)
			assert.Equal(t, []int{20, 56, 132}, offsets)
			assert.Equal(t, []int{36, 40, 32}, lengths)

			for i, offset := range offsets {
				tag := order.Uint32(stream[offset : offset+4])
				assert.Equal(t, codec.BlockTypeEnhancedPacket, tag, "packet %d", i)
			}

			stats := idx.Stats()
			assert.Equal(t, 6, stats.Blocks)
			assert.Equal(t, 3, stats.Targets)
			assert.Equal(t, 3, stats.Skipped)
			assert.Equal(t, 1, stats.Rebuilds)
		})
	}
}

func TestBlockIndex_RebuildsOnlyOnVersionChange(t *testing.T) {
	src := bytestore.New(slices.Concat(
		packetBlock(t, binary.LittleEndian, []byte{1}),
		packetBlock(t, binary.LittleEndian, []byte{2}),
	))
	idx := NewBlockIndex(IndexConfig{})

	for i := 0; i < 3; i++ {
		count, err := idx.Count(src, 7)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	}
	_, err := idx.Offsets(src, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Stats().Rebuilds)
	assert.False(t, idx.Stale(7))

	src.Append(packetBlock(t, binary.LittleEndian, []byte{3}))

	// Same version: the index does not notice the append.
	count, err := idx.Count(src, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = idx.Count(src, 8)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 2, idx.Stats().Rebuilds)
}

func TestBlockIndex_EmptyStream(t *testing.T) {
	idx := NewBlockIndex(IndexConfig{})
	count, err := idx.Count(&bytestore.Store{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBlockIndex_FormatErrors(t *testing.T) {
	valid := packetBlock(t, binary.LittleEndian, []byte{1, 2, 3, 4})

	shortLength := otherBlock(binary.LittleEndian, codec.BlockTypeEnhancedPacket, 0)
	binary.LittleEndian.PutUint32(shortLength[4:8], 4)

	zeroLength := otherBlock(binary.LittleEndian, codec.BlockTypeNameResolution, 0)
	binary.LittleEndian.PutUint32(zeroLength[4:8], 0)

	pastEnd := otherBlock(binary.LittleEndian, codec.BlockTypeNameResolution, 4)
	binary.LittleEndian.PutUint32(pastEnd[4:8], 64)

	testCases := []struct {
		name   string
		stream []byte
	}{
		{name: "trailing bytes", stream: slices.Concat(valid, []byte{0x06, 0x00, 0x00})},
		{name: "header cut short", stream: slices.Concat(valid, valid[:7])},
		{name: "declared length below header size", stream: slices.Concat(valid, shortLength)},
		{name: "declared length zero", stream: zeroLength},
		{name: "declared length past end", stream: slices.Concat(valid, pastEnd)},
		{name: "truncated block", stream: valid[:len(valid)-4]},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := bytestore.New(tc.stream)
			idx := NewBlockIndex(IndexConfig{})

			_, err := idx.Count(src, 0)
			assert.ErrorIs(t, err, ErrFormat)

			// A failed scan leaves the index stale and empty.
			assert.True(t, idx.Stale(0))
			assert.Empty(t, idx.offsets)

			_, err = idx.Offsets(src, 0)
			assert.ErrorIs(t, err, ErrFormat)
			assert.Equal(t, 2, idx.Stats().Rebuilds)
		})
	}
}

func TestBlockIndex_CustomTarget(t *testing.T) {
	stream := slices.Concat(
		otherBlock(binary.LittleEndian, codec.BlockTypeInterfaceStatistics, 4),
		packetBlock(t, binary.LittleEndian, []byte{1}),
		otherBlock(binary.LittleEndian, codec.BlockTypeInterfaceStatistics, 8),
	)
	idx := NewBlockIndex(IndexConfig{TargetType: codec.BlockTypeInterfaceStatistics})

	offsets, err := idx.Offsets(bytestore.New(stream), 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 52}, offsets)
}

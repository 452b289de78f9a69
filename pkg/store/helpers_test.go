package store

import (
	"encoding/binary"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/pcapbend/pkg/codec"
)

var testTime = time.Date(2024, 6, 22, 8, 0, 0, 0, time.UTC)

// packetBlock encodes a packet carrying data.
func packetBlock(t *testing.T, order binary.ByteOrder, data []byte) []byte {
	t.Helper()
	b, err := codec.NewCodec(order).Encode(codec.NewEnhancedPacket(0, testTime, data))
	require.NoError(t, err)
	return b
}

// otherBlock builds a block of an arbitrary type with a zeroed body.
func otherBlock(order binary.ByteOrder, blockType uint32, bodyLen int) []byte {
	total := codec.MinBlockSize + bodyLen
	b := make([]byte, total)
	codec.BlockHeader{Type: blockType, Length: uint32(total)}.Put(b, order)
	order.PutUint32(b[total-4:], uint32(total))
	return b
}

// collectionOf builds a collection with one packet per payload.
func collectionOf(t *testing.T, payloads ...[]byte) *PacketCollection {
	t.Helper()
	var stream [][]byte
	for _, p := range payloads {
		stream = append(stream, packetBlock(t, binary.LittleEndian, p))
	}
	return NewPacketCollection(slices.Concat(stream...), CollectionConfig{})
}

// payloads decodes the data of every packet in order.
func payloads(t *testing.T, c *PacketCollection) [][]byte {
	t.Helper()
	n, err := c.Count()
	require.NoError(t, err)

	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		p, err := c.Packet(i)
		require.NoError(t, err)
		out = append(out, p.Data)
	}
	return out
}

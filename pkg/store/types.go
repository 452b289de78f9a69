package store

import (
	"encoding/binary"

	"github.com/ssargent/pcapbend/pkg/bytestore"
	"github.com/ssargent/pcapbend/pkg/codec"
)

// PacketCodec encodes and decodes the blocks a PacketCollection indexes.
type PacketCodec interface {
	Encode(p *codec.EnhancedPacket) ([]byte, error)
	Decode(b []byte) (*codec.EnhancedPacket, error)
}

// IndexConfig holds configuration for the block index
type IndexConfig struct {
	Order      binary.ByteOrder // Byte order of block headers (nil = little-endian)
	TargetType uint32           // Block type to index (0 = enhanced packet)
}

// CollectionConfig holds configuration for a packet collection
type CollectionConfig struct {
	Order binary.ByteOrder // Byte order of the section (nil = little-endian)
	Codec PacketCodec      // Packet codec (nil = codec.NewCodec(Order))
}

// PacketIterator provides streaming access to decoded packets
type PacketIterator interface {
	Next() bool
	Index() int
	Packet() *codec.EnhancedPacket
	Err() error
	Close() error
}

// Errors
var (
	// ErrFormat is returned when the block stream cannot be framed: a header
	// is cut short, a declared length is below 8, or a block runs past the end.
	ErrFormat = &CaptureError{"malformed block stream"}

	// ErrOutOfRange is returned for packet indexes outside [0, Count).
	ErrOutOfRange = bytestore.ErrOutOfRange

	// ErrInvalidArgument is returned for raw blocks that are not well-formed
	// packets and for impossible edits.
	ErrInvalidArgument = bytestore.ErrInvalidArgument
)

// CaptureError represents a capture framing error
type CaptureError struct {
	Message string
}

func (e *CaptureError) Error() string {
	return e.Message
}

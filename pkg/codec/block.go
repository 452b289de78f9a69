package codec

import (
	"encoding/binary"
	"fmt"
)

// Block types
const (
	BlockTypeSectionHeader        uint32 = 0x0A0D0D0A
	BlockTypeInterfaceDescription uint32 = 0x00000001
	BlockTypeSimplePacket         uint32 = 0x00000003
	BlockTypeNameResolution       uint32 = 0x00000004
	BlockTypeInterfaceStatistics  uint32 = 0x00000005
	BlockTypeEnhancedPacket       uint32 = 0x00000006
)

const (
	// ByteOrderMagic is written by the section header in the writer's byte order.
	ByteOrderMagic uint32 = 0x1A2B3C4D

	// HeaderSize is the size of the type + length prefix every block starts with.
	HeaderSize = 8

	// MinBlockSize is the smallest well-formed block: header plus trailing length.
	MinBlockSize = HeaderSize + 4
)

// CodecError is the error type returned for malformed blocks.
type CodecError struct {
	Message string
}

func (e *CodecError) Error() string {
	return e.Message
}

// ErrMalformedBlock is returned when bytes do not form the expected block.
var ErrMalformedBlock = &CodecError{"malformed block"}

// BlockHeader is the type + total length prefix of a block.
type BlockHeader struct {
	Type   uint32
	Length uint32
}

// ReadHeader decodes the first 8 bytes of b.
func ReadHeader(b []byte, order binary.ByteOrder) (BlockHeader, error) {
	if len(b) < HeaderSize {
		return BlockHeader{}, fmt.Errorf("%w: %d bytes is too short for a block header", ErrMalformedBlock, len(b))
	}
	return BlockHeader{
		Type:   order.Uint32(b[0:4]),
		Length: order.Uint32(b[4:8]),
	}, nil
}

// Put writes the header into the first 8 bytes of b.
func (h BlockHeader) Put(b []byte, order binary.ByteOrder) {
	order.PutUint32(b[0:4], h.Type)
	order.PutUint32(b[4:8], h.Length)
}

// BlockTypeName returns a short human readable name for a block type.
func BlockTypeName(t uint32) string {
	switch t {
	case BlockTypeSectionHeader:
		return "SHB"
	case BlockTypeInterfaceDescription:
		return "IDB"
	case BlockTypeSimplePacket:
		return "SPB"
	case BlockTypeNameResolution:
		return "NRB"
	case BlockTypeInterfaceStatistics:
		return "ISB"
	case BlockTypeEnhancedPacket:
		return "EPB"
	default:
		return fmt.Sprintf("0x%08X", t)
	}
}

// DetectByteOrder reads the byte-order magic of the section header at the
// start of b.
func DetectByteOrder(b []byte) (binary.ByteOrder, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("%w: %d bytes is too short for a section header", ErrMalformedBlock, len(b))
	}
	// The section header type reads the same in either byte order.
	if binary.LittleEndian.Uint32(b[0:4]) != BlockTypeSectionHeader {
		return nil, fmt.Errorf("%w: expected section header, got %s",
			ErrMalformedBlock, BlockTypeName(binary.LittleEndian.Uint32(b[0:4])))
	}
	switch {
	case binary.LittleEndian.Uint32(b[8:12]) == ByteOrderMagic:
		return binary.LittleEndian, nil
	case binary.BigEndian.Uint32(b[8:12]) == ByteOrderMagic:
		return binary.BigEndian, nil
	default:
		return nil, fmt.Errorf("%w: unknown byte-order magic % X", ErrMalformedBlock, b[8:12])
	}
}

// ValidateBlock checks that b holds exactly one block of type want: the
// declared length matches len(b), is a multiple of 4 and is repeated at the end.
func ValidateBlock(b []byte, order binary.ByteOrder, want uint32) (BlockHeader, error) {
	h, err := ReadHeader(b, order)
	if err != nil {
		return h, err
	}
	if h.Type != want {
		return h, fmt.Errorf("%w: expected %s block, got %s", ErrMalformedBlock, BlockTypeName(want), BlockTypeName(h.Type))
	}
	if len(b) < MinBlockSize || int(h.Length) != len(b) || h.Length%4 != 0 {
		return h, fmt.Errorf("%w: declared length %d, buffer length %d", ErrMalformedBlock, h.Length, len(b))
	}
	if trailer := order.Uint32(b[len(b)-4:]); trailer != h.Length {
		return h, fmt.Errorf("%w: trailing length %d does not match %d", ErrMalformedBlock, trailer, h.Length)
	}
	return h, nil
}

// pad4 rounds n up to a multiple of 4.
func pad4(n int) int {
	return (n + 3) &^ 3
}

// frame allocates a block of the given type and body size and fills in both
// length fields. It returns the block and the body slice to fill.
func frame(blockType uint32, bodySize int, order binary.ByteOrder) ([]byte, []byte) {
	total := HeaderSize + bodySize + 4
	buf := make([]byte, total)
	BlockHeader{Type: blockType, Length: uint32(total)}.Put(buf, order)
	order.PutUint32(buf[total-4:], uint32(total))
	return buf, buf[HeaderSize : total-4]
}

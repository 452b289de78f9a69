package codec

import (
	"encoding/binary"
	"fmt"
)

// shbFixedSize covers header, magic, version, section length and trailer.
const shbFixedSize = 28

// SectionLengthUnknown is the section length written when it is not tracked.
const SectionLengthUnknown int64 = -1

// SectionHeader is a decoded section header block.
type SectionHeader struct {
	MajorVersion  uint16
	MinorVersion  uint16
	SectionLength int64
	Options       Options
}

// NewSectionHeader returns a version 1.0 header of unknown section length.
func NewSectionHeader() *SectionHeader {
	return &SectionHeader{
		MajorVersion:  1,
		MinorVersion:  0,
		SectionLength: SectionLengthUnknown,
	}
}

// Size returns the encoded size of the header.
func (s *SectionHeader) Size() int {
	return shbFixedSize + s.Options.size()
}

// EncodeSection serializes a section header in the codec's byte order.
func (c *Codec) EncodeSection(s *SectionHeader) ([]byte, error) {
	buf, body := frame(BlockTypeSectionHeader, s.Size()-MinBlockSize, c.order)

	c.order.PutUint32(body[0:], ByteOrderMagic)
	c.order.PutUint16(body[4:], s.MajorVersion)
	c.order.PutUint16(body[6:], s.MinorVersion)
	c.order.PutUint64(body[8:], uint64(s.SectionLength))

	if err := s.Options.put(body[16:], c.order); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeSection deserializes the section header at the start of b and
// reports the byte order announced by its magic. b may extend past the block.
func DecodeSection(b []byte) (*SectionHeader, binary.ByteOrder, error) {
	order, err := DetectByteOrder(b)
	if err != nil {
		return nil, nil, err
	}
	h, err := ReadHeader(b, order)
	if err != nil {
		return nil, nil, err
	}
	if h.Length < shbFixedSize || int(h.Length) > len(b) {
		return nil, nil, fmt.Errorf("%w: section header length %d, %d bytes available", ErrMalformedBlock, h.Length, len(b))
	}
	block := b[:h.Length]
	if _, err := ValidateBlock(block, order, BlockTypeSectionHeader); err != nil {
		return nil, nil, err
	}

	s := &SectionHeader{
		MajorVersion:  order.Uint16(block[12:14]),
		MinorVersion:  order.Uint16(block[14:16]),
		SectionLength: int64(order.Uint64(block[16:24])),
	}
	opts, err := decodeOptions(block[24:len(block)-4], order)
	if err != nil {
		return nil, nil, err
	}
	s.Options = opts
	return s, order, nil
}

package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"
)

// epbFixedSize covers the header, interface id, timestamp, both lengths and
// the trailing length of an enhanced packet block.
const epbFixedSize = 32

// Hash algorithm identifiers of the epb_hash option.
const (
	HashAlgorithmCRC32 byte = 2
)

// EnhancedPacket is a decoded enhanced packet block.
type EnhancedPacket struct {
	InterfaceID uint32  // Index of the interface description the packet was captured on
	Timestamp   uint64  // Capture time in interface resolution units (microseconds by default)
	CapturedLen uint32  // Number of bytes in Data
	OriginalLen uint32  // Length of the packet on the wire
	Data        []byte  // Captured packet bytes
	Options     Options // Block options
}

// NewEnhancedPacket creates a packet captured in full at ts.
func NewEnhancedPacket(interfaceID uint32, ts time.Time, data []byte) *EnhancedPacket {
	if uint64(len(data)) > uint64(^uint32(0)) {
		panic("packet data too large")
	}
	return &EnhancedPacket{
		InterfaceID: interfaceID,
		Timestamp:   uint64(ts.UnixMicro()),
		CapturedLen: uint32(len(data)),
		OriginalLen: uint32(len(data)),
		Data:        data,
	}
}

// Size returns the total size of the packet when encoded.
func (p *EnhancedPacket) Size() int {
	return epbFixedSize + pad4(len(p.Data)) + p.Options.size()
}

// Time converts the timestamp assuming the default microsecond resolution.
func (p *EnhancedPacket) Time() time.Time {
	return p.TimeAt(time.Microsecond)
}

// TimeAt converts the timestamp using the given tick duration.
func (p *EnhancedPacket) TimeAt(tick time.Duration) time.Time {
	return time.Unix(0, int64(p.Timestamp)*int64(tick)).UTC()
}

// Comment returns the opt_comment option, if any.
func (p *EnhancedPacket) Comment() string {
	return p.Options.Comment()
}

// SetComment sets the opt_comment option. An empty comment removes it.
func (p *EnhancedPacket) SetComment(comment string) {
	if comment == "" {
		p.removeOption(OptComment)
		return
	}
	p.Options = p.Options.Set(OptComment, []byte(comment))
}

// Truncate cuts the captured data to n bytes. OriginalLen is kept.
func (p *EnhancedPacket) Truncate(n int) error {
	if n < 0 || n > len(p.Data) {
		return fmt.Errorf("%w: truncate to %d bytes, packet has %d", ErrMalformedBlock, n, len(p.Data))
	}
	p.Data = p.Data[:n]
	p.CapturedLen = uint32(n)
	// The stored hash no longer describes the data.
	if _, ok := p.Options.Get(OptEpbHash); ok {
		p.SetHash()
	}
	return nil
}

// SetHash stores a CRC32 of the packet data in the epb_hash option.
func (p *EnhancedPacket) SetHash() {
	value := make([]byte, 5)
	value[0] = HashAlgorithmCRC32
	binary.BigEndian.PutUint32(value[1:], crc32.ChecksumIEEE(p.Data))
	p.Options = p.Options.Set(OptEpbHash, value)
}

// Validate checks the captured length against the data and, when a CRC32
// epb_hash option is present, the data against the hash.
func (p *EnhancedPacket) Validate() error {
	if int(p.CapturedLen) != len(p.Data) {
		return fmt.Errorf("%w: captured length %d, data length %d", ErrMalformedBlock, p.CapturedLen, len(p.Data))
	}
	if hash, ok := p.Options.Get(OptEpbHash); ok && len(hash) == 5 && hash[0] == HashAlgorithmCRC32 {
		want := binary.BigEndian.Uint32(hash[1:])
		if got := crc32.ChecksumIEEE(p.Data); got != want {
			return fmt.Errorf("%w: CRC32 mismatch: %d != %d", ErrMalformedBlock, got, want)
		}
	}
	return nil
}

func (p *EnhancedPacket) removeOption(code uint16) {
	kept := p.Options[:0]
	for _, opt := range p.Options {
		if opt.Code != code {
			kept = append(kept, opt)
		}
	}
	p.Options = kept
}

// Codec handles serialization and deserialization of pcapng blocks in one
// byte order.
type Codec struct {
	order binary.ByteOrder
}

// NewCodec creates a codec for the given byte order. A nil order means
// little-endian.
func NewCodec(order binary.ByteOrder) *Codec {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Codec{order: order}
}

// Order returns the codec's byte order.
func (c *Codec) Order() binary.ByteOrder {
	return c.order
}

// Encode serializes a packet into an enhanced packet block.
// Format: [Type(4)][Len(4)][IfID(4)][TsHigh(4)][TsLow(4)][CapLen(4)][OrigLen(4)][Data][Options][Len(4)]
func (c *Codec) Encode(p *EnhancedPacket) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	buf, body := frame(BlockTypeEnhancedPacket, p.Size()-MinBlockSize, c.order)

	c.order.PutUint32(body[0:], p.InterfaceID)
	c.order.PutUint32(body[4:], uint32(p.Timestamp>>32))
	c.order.PutUint32(body[8:], uint32(p.Timestamp))
	c.order.PutUint32(body[12:], p.CapturedLen)
	c.order.PutUint32(body[16:], p.OriginalLen)
	copy(body[20:], p.Data)

	if err := p.Options.put(body[20+pad4(len(p.Data)):], c.order); err != nil {
		return nil, err
	}
	return buf, nil
}

// Decode deserializes an enhanced packet block. Data and option values alias b.
func (c *Codec) Decode(b []byte) (*EnhancedPacket, error) {
	if _, err := ValidateBlock(b, c.order, BlockTypeEnhancedPacket); err != nil {
		return nil, err
	}
	if len(b) < epbFixedSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for an enhanced packet", ErrMalformedBlock, len(b))
	}

	p := &EnhancedPacket{
		InterfaceID: c.order.Uint32(b[8:12]),
		Timestamp:   uint64(c.order.Uint32(b[12:16]))<<32 | uint64(c.order.Uint32(b[16:20])),
		CapturedLen: c.order.Uint32(b[20:24]),
		OriginalLen: c.order.Uint32(b[24:28]),
	}

	dataEnd := 28 + int(p.CapturedLen)
	optStart := 28 + pad4(int(p.CapturedLen))
	if p.CapturedLen > uint32(len(b)) || optStart > len(b)-4 {
		return nil, fmt.Errorf("%w: captured length %d overruns block of %d bytes", ErrMalformedBlock, p.CapturedLen, len(b))
	}
	p.Data = b[28:dataEnd]

	opts, err := decodeOptions(b[optStart:len(b)-4], c.order)
	if err != nil {
		return nil, err
	}
	p.Options = opts
	return p, nil
}

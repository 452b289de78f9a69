// Package codec provides pcapng block serialization and deserialization for pcapbend.
//
// The codec package implements the byte-exact framing of the pcapng blocks that
// pcapbend reads and writes: the section header that opens a capture, the
// interface descriptions that follow it, and the enhanced packet blocks that
// carry captured frames. Every other block type is treated as opaque payload.
//
// # Block Format
//
// Every block shares the same framing:
//
//	[Type(4)][TotalLength(4)][Body(TotalLength-12)][TotalLength(4)]
//
// TotalLength covers the whole block, including both length fields, and is
// always a multiple of 4. Multi-byte fields use the byte order announced by the
// section header magic (0x1A2B3C4D).
//
// # Enhanced Packet Block
//
//	[Type=6(4)][TotalLength(4)][InterfaceID(4)][TimestampHigh(4)][TimestampLow(4)]
//	[CapturedLen(4)][OriginalLen(4)][Data(CapturedLen, padded to 4)][Options][TotalLength(4)]
//
// The size of an encoded packet is 32 bytes + padded data + options.
//
// # Options
//
// Options are encoded as [Code(2)][Length(2)][Value(Length, padded to 4)] and
// terminated by an end-of-options entry (code 0, length 0). An empty option
// list is encoded as nothing at all.
//
// # Usage
//
//	c := codec.NewCodec(binary.LittleEndian)
//
//	// Encode a packet
//	p := codec.NewEnhancedPacket(0, time.Now(), frame)
//	encoded, err := c.Encode(p)
//	if err != nil {
//	    return err
//	}
//
//	// Decode a packet
//	decoded, err := c.Decode(encoded)
//	if err != nil {
//	    return err
//	}
//
// # Error Handling
//
// Malformed input (short buffers, wrong block type, length fields that do not
// agree with the buffer) is reported as ErrMalformedBlock wrapped with detail.
//
// # Thread Safety
//
// Codec instances hold no mutable state and are safe for concurrent use.
// Decoded packets alias the buffer they were decoded from.
package codec

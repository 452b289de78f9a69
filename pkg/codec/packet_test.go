package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

var testTime = time.Date(2024, 6, 22, 8, 0, 0, 0, time.UTC)

func TestCodec_EncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		order   binary.ByteOrder
		data    []byte
		comment string
	}{
		{
			name: "aligned data",
			data: []byte{0x01, 0x02, 0x03, 0x04},
		},
		{
			name: "unaligned data",
			data: []byte{0x01, 0x02, 0x03, 0x04, 0x05},
		},
		{
			name: "empty data",
			data: []byte{},
		},
		{
			name:    "with comment",
			data:    []byte("GET / HTTP/1.1\r\n"),
			comment: "interesting",
		},
		{
			name:    "big endian",
			order:   binary.BigEndian,
			data:    bytes.Repeat([]byte{0xAB}, 61),
			comment: "big",
		},
		{
			name: "jumbo frame",
			data: bytes.Repeat([]byte{0x5A}, 9000),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			codec := NewCodec(tc.order)
			p := NewEnhancedPacket(2, testTime, tc.data)
			p.SetComment(tc.comment)

			encoded, err := codec.Encode(p)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != p.Size() {
				t.Errorf("Encoded length %d, Size() %d", len(encoded), p.Size())
			}
			if len(encoded)%4 != 0 {
				t.Errorf("Encoded length %d is not a multiple of 4", len(encoded))
			}

			decoded, err := codec.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if err := decoded.Validate(); err != nil {
				t.Fatalf("Packet validation failed: %v", err)
			}

			if !bytes.Equal(decoded.Data, tc.data) {
				t.Errorf("Data mismatch: got %x, want %x", decoded.Data, tc.data)
			}
			if decoded.InterfaceID != 2 {
				t.Errorf("InterfaceID mismatch: got %d, want 2", decoded.InterfaceID)
			}
			if !decoded.Time().Equal(testTime) {
				t.Errorf("Time mismatch: got %v, want %v", decoded.Time(), testTime)
			}
			if decoded.Comment() != tc.comment {
				t.Errorf("Comment mismatch: got %q, want %q", decoded.Comment(), tc.comment)
			}
			if decoded.OriginalLen != uint32(len(tc.data)) {
				t.Errorf("OriginalLen mismatch: got %d, want %d", decoded.OriginalLen, len(tc.data))
			}

			reencoded, err := codec.Encode(decoded)
			if err != nil {
				t.Fatalf("Re-encode failed: %v", err)
			}
			if !bytes.Equal(reencoded, encoded) {
				t.Errorf("Re-encoded block differs from the original")
			}
		})
	}
}

func TestCodec_EncodeLayout(t *testing.T) {
	codec := NewCodec(binary.LittleEndian)
	p := NewEnhancedPacket(1, time.Unix(0, 0).Add(0x0000000100000002*time.Microsecond), []byte{0xAA, 0xBB, 0xCC})
	p.OriginalLen = 60

	encoded, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	expected := []byte{
		0x06, 0x00, 0x00, 0x00, // type
		0x24, 0x00, 0x00, 0x00, // total length 36
		0x01, 0x00, 0x00, 0x00, // interface id
		0x01, 0x00, 0x00, 0x00, // timestamp high
		0x02, 0x00, 0x00, 0x00, // timestamp low
		0x03, 0x00, 0x00, 0x00, // captured length
		0x3C, 0x00, 0x00, 0x00, // original length
		0xAA, 0xBB, 0xCC, 0x00, // data + padding
		0x24, 0x00, 0x00, 0x00, // total length
	}
	if !bytes.Equal(encoded, expected) {
		t.Errorf("Encoded layout mismatch:\n got %x\nwant %x", encoded, expected)
	}
}

func TestCodec_DecodeErrors(t *testing.T) {
	codec := NewCodec(nil)
	valid, err := codec.Encode(NewEnhancedPacket(0, testTime, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	mutate := func(f func(b []byte)) []byte {
		b := bytes.Clone(valid)
		f(b)
		return b
	}

	testCases := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "too short for header", data: valid[:6]},
		{name: "truncated", data: valid[:len(valid)-4]},
		{name: "wrong type", data: mutate(func(b []byte) { b[0] = 0x05 })},
		{name: "trailer mismatch", data: mutate(func(b []byte) { b[len(b)-4] = 0x10 })},
		{name: "declared length mismatch", data: mutate(func(b []byte) { b[4] = 0x40 })},
		{name: "captured length overruns", data: mutate(func(b []byte) { b[20] = 0xFF })},
		{name: "option overruns", data: func() []byte {
			p := NewEnhancedPacket(0, testTime, []byte{1})
			p.SetComment("abc")
			b, _ := codec.Encode(p)
			// Option length of the comment
			b[34] = 0x40
			return b
		}()},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.data)
			if err == nil {
				t.Fatal("Expected decode to fail")
			}
			if !errors.Is(err, ErrMalformedBlock) {
				t.Errorf("Expected ErrMalformedBlock, got %v", err)
			}
		})
	}
}

func TestEnhancedPacket_Hash(t *testing.T) {
	codec := NewCodec(nil)
	p := NewEnhancedPacket(0, testTime, []byte("payload"))
	p.SetHash()

	encoded, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := decoded.Validate(); err != nil {
		t.Fatalf("Validation failed: %v", err)
	}

	// Corrupt a data byte inside the block.
	encoded[28] ^= 0xFF
	corrupted, err := codec.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if err := corrupted.Validate(); !errors.Is(err, ErrMalformedBlock) {
		t.Errorf("Expected hash mismatch, got %v", err)
	}
}

func TestEnhancedPacket_Truncate(t *testing.T) {
	p := NewEnhancedPacket(0, testTime, []byte{1, 2, 3, 4, 5, 6})
	p.SetHash()

	if err := p.Truncate(2); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	if p.CapturedLen != 2 || p.OriginalLen != 6 {
		t.Errorf("Lengths after truncate: captured %d, original %d", p.CapturedLen, p.OriginalLen)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Truncated packet should validate: %v", err)
	}
	if err := p.Truncate(3); !errors.Is(err, ErrMalformedBlock) {
		t.Errorf("Expected error growing a packet, got %v", err)
	}
}

func TestEnhancedPacket_SetComment(t *testing.T) {
	p := NewEnhancedPacket(0, testTime, []byte{1})
	base := p.Size()

	p.SetComment("first")
	if p.Comment() != "first" {
		t.Errorf("Comment mismatch: got %q", p.Comment())
	}
	p.SetComment("second")
	if p.Comment() != "second" || len(p.Options) != 1 {
		t.Errorf("Expected one replaced comment, got %v", p.Options)
	}
	p.SetComment("")
	if p.Comment() != "" || p.Size() != base {
		t.Errorf("Expected comment removed, size %d want %d", p.Size(), base)
	}
}

func TestEnhancedPacket_Validate(t *testing.T) {
	p := NewEnhancedPacket(0, testTime, []byte{1, 2, 3})
	p.CapturedLen = 4

	if _, err := NewCodec(nil).Encode(p); !errors.Is(err, ErrMalformedBlock) {
		t.Errorf("Expected encode to reject mismatched length, got %v", err)
	}
}

package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ssargent/pcapbend/pkg/codec"
)

// Capture is a whole pcapng section held in memory: the section header, the
// interface descriptions that follow it, and an editable packet collection
// over every block after them. Nothing is written to disk while editing.
type Capture struct {
	section    []byte
	header     *codec.SectionHeader
	interfaces [][]byte
	order      binary.ByteOrder
	codec      *codec.Codec
	packets    *PacketCollection
}

// NewCapture creates an empty little-endian capture with one Ethernet interface.
func NewCapture() *Capture {
	pc := codec.NewCodec(binary.LittleEndian)
	header := codec.NewSectionHeader()
	section, err := pc.EncodeSection(header)
	if err != nil {
		// No options are set, encoding cannot fail.
		panic(err)
	}

	c := &Capture{
		section: section,
		header:  header,
		order:   pc.Order(),
		codec:   pc,
		packets: NewPacketCollection(nil, CollectionConfig{Order: pc.Order(), Codec: pc}),
	}

	idb := codec.NewInterfaceDescription(codec.LinkTypeEthernet, "pcapbend0")
	idb.SnapLen = 65535
	if _, err := c.AddInterface(idb); err != nil {
		panic(err)
	}
	return c
}

// ParseCapture reads a capture from r. The first block must be a section
// header; its magic decides the byte order of everything after it.
func ParseCapture(r io.Reader) (*Capture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parseCapture(data)
}

// OpenCapture reads a capture from a file.
func OpenCapture(path string) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseCapture(data)
}

func parseCapture(data []byte) (*Capture, error) {
	header, order, err := codec.DecodeSection(data)
	if err != nil {
		if errors.Is(err, codec.ErrMalformedBlock) {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		return nil, err
	}
	pc := codec.NewCodec(order)
	sectionLen := int(order.Uint32(data[4:8]))

	c := &Capture{
		section: data[:sectionLen:sectionLen],
		header:  header,
		order:   order,
		codec:   pc,
	}

	pos := sectionLen
	for len(data)-pos >= codec.HeaderSize {
		h, err := codec.ReadHeader(data[pos:], order)
		if err != nil {
			return nil, err
		}
		if h.Type != codec.BlockTypeInterfaceDescription {
			break
		}
		end := pos + int(h.Length)
		if h.Length < codec.MinBlockSize || end > len(data) {
			return nil, fmt.Errorf("%w: interface description at offset %d declares length %d", ErrFormat, pos, h.Length)
		}
		if _, err := pc.DecodeInterface(data[pos:end]); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrFormat, err)
		}
		c.interfaces = append(c.interfaces, data[pos:end:end])
		pos = end
	}

	c.packets = NewPacketCollection(data[pos:], CollectionConfig{Order: order, Codec: pc})
	return c, nil
}

// Section returns the decoded section header.
func (c *Capture) Section() *codec.SectionHeader {
	return c.header
}

// ByteOrder returns the byte order of the section.
func (c *Capture) ByteOrder() binary.ByteOrder {
	return c.order
}

// Codec returns a packet codec in the section's byte order.
func (c *Capture) Codec() *codec.Codec {
	return c.codec
}

// Packets returns the editable packet collection.
func (c *Capture) Packets() *PacketCollection {
	return c.packets
}

// Interfaces decodes the interface descriptions of the section.
func (c *Capture) Interfaces() ([]*codec.InterfaceDescription, error) {
	out := make([]*codec.InterfaceDescription, 0, len(c.interfaces))
	for _, raw := range c.interfaces {
		idb, err := c.codec.DecodeInterface(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, idb)
	}
	return out, nil
}

// InterfaceCount returns the number of interface descriptions.
func (c *Capture) InterfaceCount() int {
	return len(c.interfaces)
}

// AddInterface appends an interface description and returns its interface id.
func (c *Capture) AddInterface(idb *codec.InterfaceDescription) (uint32, error) {
	raw, err := c.codec.EncodeInterface(idb)
	if err != nil {
		return 0, err
	}
	c.interfaces = append(c.interfaces, raw)
	return uint32(len(c.interfaces) - 1), nil
}

// Len returns the encoded size of the capture.
func (c *Capture) Len() int64 {
	n := int64(len(c.section)) + int64(c.packets.Len())
	for _, raw := range c.interfaces {
		n += int64(len(raw))
	}
	return n
}

// WriteTo writes the section header, the interface descriptions and the
// packet blocks to w. A section length that no longer matches the content
// is written as unknown.
func (c *Capture) WriteTo(w io.Writer) (int64, error) {
	var total int64

	section := c.section
	if c.header.SectionLength >= 0 {
		actual := c.Len() - int64(len(c.section))
		if actual != c.header.SectionLength {
			section = bytes.Clone(c.section)
			unknown := codec.SectionLengthUnknown
			c.order.PutUint64(section[16:24], uint64(unknown))
		}
	}

	n, err := w.Write(section)
	total += int64(n)
	if err != nil {
		return total, err
	}
	for _, raw := range c.interfaces {
		n, err := w.Write(raw)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	m, err := c.packets.WriteTo(w)
	total += m
	return total, err
}

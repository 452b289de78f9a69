package store

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ssargent/pcapbend/pkg/bytestore"
	"github.com/ssargent/pcapbend/pkg/codec"
)

// PacketCollection exposes packet-index addressed edits over a block stream.
//
// The collection owns a version counter. Every edit that can shift a block
// other than the one it addresses bumps the version, which makes the block
// index rescan on its next access. Equal-length updates and swaps leave the
// version alone.
//
// A PacketCollection is not safe for concurrent use.
type PacketCollection struct {
	data    *bytestore.Store
	index   *BlockIndex
	codec   PacketCodec
	order   binary.ByteOrder
	version int
}

// NewPacketCollection creates a collection over data, which must hold whole
// blocks. The collection takes ownership of data.
func NewPacketCollection(data []byte, config CollectionConfig) *PacketCollection {
	order := config.Order
	if order == nil {
		order = binary.LittleEndian
	}
	pc := config.Codec
	if pc == nil {
		pc = codec.NewCodec(order)
	}
	return &PacketCollection{
		data:  bytestore.New(data),
		index: NewBlockIndex(IndexConfig{Order: order}),
		codec: pc,
		order: order,
	}
}

// Version returns the current structural version.
func (c *PacketCollection) Version() int {
	return c.version
}

func (c *PacketCollection) bump() {
	c.version++
}

// Count returns the number of packets.
func (c *PacketCollection) Count() (int, error) {
	return c.index.Count(c.data, c.version)
}

// Offsets returns the byte offset of every packet. The slice is valid until
// the next edit and must not be modified.
func (c *PacketCollection) Offsets() ([]int, error) {
	return c.index.Offsets(c.data, c.version)
}

// Lengths returns the block length of every packet, aligned with Offsets.
func (c *PacketCollection) Lengths() ([]int, error) {
	return c.index.Lengths(c.data, c.version)
}

// Stats returns statistics of the underlying block index.
func (c *PacketCollection) Stats() IndexStats {
	return c.index.Stats()
}

// Len returns the byte length of the block stream.
func (c *PacketCollection) Len() int {
	return c.data.Len()
}

// Fragments returns the fragment count of the underlying byte store.
func (c *PacketCollection) Fragments() int {
	return c.data.Fragments()
}

// Compact copies the block stream into a single buffer. Offsets are
// unchanged, so the version is kept.
func (c *PacketCollection) Compact() {
	c.data.Compact()
}

// WriteTo writes the block stream to w.
func (c *PacketCollection) WriteTo(w io.Writer) (int64, error) {
	return c.data.WriteTo(w)
}

// locate resolves packet i to its byte range.
func (c *PacketCollection) locate(i int) (offset, length int, err error) {
	offsets, err := c.Offsets()
	if err != nil {
		return 0, 0, err
	}
	lengths, err := c.Lengths()
	if err != nil {
		return 0, 0, err
	}
	if i < 0 || i >= len(offsets) {
		return 0, 0, fmt.Errorf("%w: packet %d of %d", ErrOutOfRange, i, len(offsets))
	}
	return offsets[i], lengths[i], nil
}

// validateRaw checks that b is exactly one well-formed packet block.
func (c *PacketCollection) validateRaw(b []byte) error {
	if _, err := codec.ValidateBlock(b, c.order, codec.BlockTypeEnhancedPacket); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return nil
}

// Raw returns a copy of the full block of packet i.
func (c *PacketCollection) Raw(i int) ([]byte, error) {
	offset, length, err := c.locate(i)
	if err != nil {
		return nil, err
	}
	return c.data.Slice(offset, length)
}

// Header decodes only the type and length of packet i.
func (c *PacketCollection) Header(i int) (codec.BlockHeader, error) {
	offset, _, err := c.locate(i)
	if err != nil {
		return codec.BlockHeader{}, err
	}
	var header [codec.HeaderSize]byte
	if err := c.data.CopyTo(offset, header[:], 0, codec.HeaderSize); err != nil {
		return codec.BlockHeader{}, err
	}
	return codec.ReadHeader(header[:], c.order)
}

// Packet decodes packet i. The result does not alias the collection.
func (c *PacketCollection) Packet(i int) (*codec.EnhancedPacket, error) {
	raw, err := c.Raw(i)
	if err != nil {
		return nil, err
	}
	return c.codec.Decode(raw)
}

// Remove deletes packet i.
func (c *PacketCollection) Remove(i int) error {
	offset, length, err := c.locate(i)
	if err != nil {
		return err
	}
	if err := c.data.Remove(offset, length); err != nil {
		return err
	}
	c.bump()
	return nil
}

// UpdateRaw replaces packet i with the block b. A block of the same length is
// overwritten in place and does not invalidate the index. The collection
// takes ownership of b.
func (c *PacketCollection) UpdateRaw(i int, b []byte) error {
	if err := c.validateRaw(b); err != nil {
		return err
	}
	offset, length, err := c.locate(i)
	if err != nil {
		return err
	}
	if len(b) == length {
		return c.data.Update(offset, b)
	}
	if err := c.data.Remove(offset, length); err != nil {
		return err
	}
	if err := c.data.Insert(offset, b); err != nil {
		return err
	}
	c.bump()
	return nil
}

// Update encodes p and replaces packet i with it.
func (c *PacketCollection) Update(i int, p *codec.EnhancedPacket) error {
	b, err := c.codec.Encode(p)
	if err != nil {
		return err
	}
	return c.UpdateRaw(i, b)
}

// PrependRaw adds the block b before the first packet. The collection takes
// ownership of b.
func (c *PacketCollection) PrependRaw(b []byte) error {
	if err := c.validateRaw(b); err != nil {
		return err
	}
	c.data.Prepend(b)
	c.bump()
	return nil
}

// AppendRaw adds the block b after the last block. The collection takes
// ownership of b.
func (c *PacketCollection) AppendRaw(b []byte) error {
	if err := c.validateRaw(b); err != nil {
		return err
	}
	c.data.Append(b)
	c.bump()
	return nil
}

// Prepend encodes p and adds it before the first packet.
func (c *PacketCollection) Prepend(p *codec.EnhancedPacket) error {
	b, err := c.codec.Encode(p)
	if err != nil {
		return err
	}
	return c.PrependRaw(b)
}

// Append encodes p and adds it at the end of the stream.
func (c *PacketCollection) Append(p *codec.EnhancedPacket) error {
	b, err := c.codec.Encode(p)
	if err != nil {
		return err
	}
	return c.AppendRaw(b)
}

// InsertRaw inserts the block b so that it becomes packet i. Index 0
// prepends and index Count appends. The collection takes ownership of b.
func (c *PacketCollection) InsertRaw(i int, b []byte) error {
	if err := c.validateRaw(b); err != nil {
		return err
	}
	offsets, err := c.Offsets()
	if err != nil {
		return err
	}
	n := len(offsets)
	if i < 0 || i > n {
		return fmt.Errorf("%w: insert at %d of %d", ErrOutOfRange, i, n)
	}

	switch i {
	case 0:
		c.data.Prepend(b)
	case n:
		c.data.Append(b)
	default:
		if err := c.data.Insert(offsets[i], b); err != nil {
			return err
		}
	}
	c.bump()
	return nil
}

// Insert encodes p and inserts it so that it becomes packet i.
func (c *PacketCollection) Insert(i int, p *codec.EnhancedPacket) error {
	b, err := c.codec.Encode(p)
	if err != nil {
		return err
	}
	return c.InsertRaw(i, b)
}

// Swap exchanges packets i and j. Packets of equal length swap without
// invalidating the index.
func (c *PacketCollection) Swap(i, j int) error {
	offsetI, lengthI, err := c.locate(i)
	if err != nil {
		return err
	}
	offsetJ, lengthJ, err := c.locate(j)
	if err != nil {
		return err
	}
	if i == j {
		return nil
	}
	if err := c.data.Swap(offsetI, lengthI, offsetJ, lengthJ); err != nil {
		return err
	}
	if lengthI != lengthJ {
		c.bump()
	}
	return nil
}

// Move relocates packet from so that it ends up at index to. Both indexes
// refer to the current order and must be in [0, Count).
func (c *PacketCollection) Move(from, to int) error {
	n, err := c.Count()
	if err != nil {
		return err
	}
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: move %d to %d of %d", ErrOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}

	block, err := c.Raw(from)
	if err != nil {
		return err
	}
	// The index only reads headers; a bad trailer must fail before the remove.
	if err := c.validateRaw(block); err != nil {
		return fmt.Errorf("move %d: %w", from, err)
	}
	if err := c.Remove(from); err != nil {
		return err
	}
	return c.InsertRaw(to, block)
}

// Iterator returns a streaming iterator over decoded packets. Editing the
// collection while iterating is not supported.
func (c *PacketCollection) Iterator() PacketIterator {
	return &packetIterator{collection: c, index: -1}
}

// packetIterator implements PacketIterator for streaming access
type packetIterator struct {
	collection *PacketCollection
	index      int
	packet     *codec.EnhancedPacket
	err        error
}

func (it *packetIterator) Next() bool {
	if it.err != nil {
		return false
	}
	n, err := it.collection.Count()
	if err != nil {
		it.err = err
		return false
	}
	if it.index+1 >= n {
		it.packet = nil
		return false
	}
	it.index++
	it.packet, it.err = it.collection.Packet(it.index)
	return it.err == nil
}

func (it *packetIterator) Index() int {
	return it.index
}

func (it *packetIterator) Packet() *codec.EnhancedPacket {
	return it.packet
}

func (it *packetIterator) Err() error {
	return it.err
}

func (it *packetIterator) Close() error {
	// The collection is owned by the caller
	return nil
}

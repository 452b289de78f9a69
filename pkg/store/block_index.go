package store

import (
	"encoding/binary"
	"fmt"

	"github.com/ssargent/pcapbend/pkg/bytestore"
	"github.com/ssargent/pcapbend/pkg/codec"
)

// BlockIndex maps packet positions to byte ranges of a block stream. It is
// rebuilt by a linear scan whenever the version it was built at differs from
// the version the caller passes in.
type BlockIndex struct {
	order        binary.ByteOrder
	target       uint32
	offsets      []int
	lengths      []int
	builtVersion int
	stats        IndexStats
}

// IndexStats holds statistics about the index
type IndexStats struct {
	Blocks   int // Blocks seen by the last successful scan
	Targets  int // Blocks of the target type
	Skipped  int // Blocks of any other type
	Rebuilds int // Scans performed, successful or not
}

// NewBlockIndex creates a new, stale block index
func NewBlockIndex(config IndexConfig) *BlockIndex {
	order := config.Order
	if order == nil {
		order = binary.LittleEndian
	}
	target := config.TargetType
	if target == 0 {
		target = codec.BlockTypeEnhancedPacket
	}
	return &BlockIndex{
		order:        order,
		target:       target,
		builtVersion: -1,
	}
}

// Offsets returns the start offset of every target block. The slice is owned
// by the index and must not be modified.
func (idx *BlockIndex) Offsets(src *bytestore.Store, version int) ([]int, error) {
	if err := idx.ensure(src, version); err != nil {
		return nil, err
	}
	return idx.offsets, nil
}

// Lengths returns the total length of every target block, aligned with Offsets.
func (idx *BlockIndex) Lengths(src *bytestore.Store, version int) ([]int, error) {
	if err := idx.ensure(src, version); err != nil {
		return nil, err
	}
	return idx.lengths, nil
}

// Count returns the number of target blocks.
func (idx *BlockIndex) Count(src *bytestore.Store, version int) (int, error) {
	if err := idx.ensure(src, version); err != nil {
		return 0, err
	}
	return len(idx.offsets), nil
}

// Stale reports whether the next access at version will rescan.
func (idx *BlockIndex) Stale(version int) bool {
	return idx.builtVersion != version
}

// Stats returns index statistics
func (idx *BlockIndex) Stats() IndexStats {
	return idx.stats
}

func (idx *BlockIndex) ensure(src *bytestore.Store, version int) error {
	if idx.builtVersion == version {
		return nil
	}
	return idx.rebuild(src, version)
}

// rebuild scans src from the start. On failure the index is left empty and
// stale so the next access scans again.
func (idx *BlockIndex) rebuild(src *bytestore.Store, version int) error {
	idx.stats.Rebuilds++
	idx.offsets = idx.offsets[:0]
	idx.lengths = idx.lengths[:0]
	idx.builtVersion = -1

	var header [codec.HeaderSize]byte
	total, targets, skipped := 0, 0, 0
	end := src.Len()

	for pos := 0; pos < end; {
		if end-pos < codec.HeaderSize {
			return idx.fail(fmt.Errorf("%w: %d trailing bytes at offset %d, need %d for a block header",
				ErrFormat, end-pos, pos, codec.HeaderSize))
		}
		if err := src.CopyTo(pos, header[:], 0, codec.HeaderSize); err != nil {
			return idx.fail(err)
		}
		h, err := codec.ReadHeader(header[:], idx.order)
		if err != nil {
			return idx.fail(err)
		}

		length := int(h.Length)
		if length < codec.HeaderSize {
			return idx.fail(fmt.Errorf("%w: block at offset %d declares length %d", ErrFormat, pos, length))
		}
		if length > end-pos {
			return idx.fail(fmt.Errorf("%w: block at offset %d declares length %d, %d bytes remain",
				ErrFormat, pos, length, end-pos))
		}

		if h.Type == idx.target {
			idx.offsets = append(idx.offsets, pos)
			idx.lengths = append(idx.lengths, length)
			targets++
		} else {
			skipped++
		}
		total++
		pos += length
	}

	idx.stats.Blocks = total
	idx.stats.Targets = targets
	idx.stats.Skipped = skipped
	idx.builtVersion = version
	return nil
}

func (idx *BlockIndex) fail(err error) error {
	idx.offsets = idx.offsets[:0]
	idx.lengths = idx.lengths[:0]
	idx.builtVersion = -1
	return err
}

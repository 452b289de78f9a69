package bytestore

import (
	"fmt"
	"io"
	"slices"
)

// Store is a byte stream assembled from fragments. The zero value is an empty
// stream ready for use.
//
// Positional operations scan the fragment list, so they cost O(number of
// fragments). Fragment counts stay small relative to payload size for the
// edit patterns this is built for.
type Store struct {
	frags []Fragment
}

// New returns a store holding data as a single fragment.
func New(data []byte) *Store {
	s := &Store{}
	s.Append(data)
	return s
}

// Len returns the length of the logical stream.
func (s *Store) Len() int {
	n := 0
	for _, f := range s.frags {
		n += f.length
	}
	return n
}

// Fragments returns the number of fragments backing the stream.
func (s *Store) Fragments() int {
	return len(s.frags)
}

// Append adds data at the end of the stream.
func (s *Store) Append(data []byte) {
	if len(data) == 0 {
		return
	}
	s.frags = append(s.frags, NewFragment(data))
}

// Prepend adds data at the start of the stream.
func (s *Store) Prepend(data []byte) {
	if len(data) == 0 {
		return
	}
	s.frags = slices.Insert(s.frags, 0, NewFragment(data))
}

// locate returns the index of the fragment containing offset and the logical
// offset at which that fragment starts. ok is false when offset is outside
// [0, Len()).
func (s *Store) locate(offset int) (idx, blockStart int, ok bool) {
	blockEnd := 0
	for i, f := range s.frags {
		blockStart = blockEnd
		blockEnd = blockStart + f.length
		if offset >= blockStart && offset < blockEnd {
			return i, blockStart, true
		}
	}
	return 0, 0, false
}

// Insert places data at offset, shifting everything after it.
func (s *Store) Insert(offset int, data []byte) error {
	length := s.Len()
	if offset < 0 || offset > length {
		return fmt.Errorf("%w: insert at %d, stream length %d", ErrInvalidArgument, offset, length)
	}
	if len(data) == 0 {
		return nil
	}
	if offset == length {
		s.Append(data)
		return nil
	}

	i, blockStart, ok := s.locate(offset)
	if !ok {
		return fmt.Errorf("%w: no fragment boundary for insert at %d", ErrInvalidArgument, offset)
	}
	frag := NewFragment(data)
	if offset == blockStart {
		s.frags = slices.Insert(s.frags, i, frag)
		return nil
	}

	// Split required. Both halves keep the original backing buffer.
	cur := s.frags[i]
	head := Fragment{buf: cur.buf, start: cur.start, length: offset - blockStart}
	tail := Fragment{buf: cur.buf, start: head.start + head.length, length: cur.length - head.length}
	s.frags = slices.Replace(s.frags, i, i+1, head, frag, tail)
	return nil
}

// Remove deletes amount bytes starting at offset.
func (s *Store) Remove(offset, amount int) error {
	length := s.Len()
	if offset < 0 || amount < 0 || offset+amount > length {
		return fmt.Errorf("%w: remove [%d, %d), stream length %d", ErrInvalidArgument, offset, offset+amount, length)
	}
	if amount == 0 {
		return nil
	}

	first, firstStart, ok := s.locate(offset)
	if !ok {
		return fmt.Errorf("%w: no fragment boundary for remove at %d", ErrInvalidArgument, offset)
	}

	// A start inside the fragment splits it: the head survives and the tail
	// is handled as a start-aligned removal.
	var keep []Fragment
	cur := s.frags[first]
	if skip := offset - firstStart; skip > 0 {
		keep = append(keep, Fragment{buf: cur.buf, start: cur.start, length: skip})
		cur = Fragment{buf: cur.buf, start: cur.start + skip, length: cur.length - skip}
	}

	last := first
	for {
		if amount < cur.length {
			// Deletion ends inside this fragment: advance its start.
			keep = append(keep, Fragment{buf: cur.buf, start: cur.start + amount, length: cur.length - amount})
			break
		}
		// Whole fragment goes. Carry the remainder into the next one.
		amount -= cur.length
		if amount == 0 {
			break
		}
		last++
		cur = s.frags[last]
	}
	s.frags = slices.Replace(s.frags, first, last+1, keep...)
	return nil
}

// Update overwrites len(data) bytes at offset with data.
func (s *Store) Update(offset int, data []byte) error {
	length := s.Len()
	if offset < 0 || offset+len(data) > length {
		return fmt.Errorf("%w: update [%d, %d), stream length %d", ErrInvalidArgument, offset, offset+len(data), length)
	}
	if err := s.Remove(offset, len(data)); err != nil {
		return err
	}
	return s.Insert(offset, data)
}

// CopyTo copies length bytes of the stream starting at offset into dst at dstOffset.
func (s *Store) CopyTo(offset int, dst []byte, dstOffset, length int) error {
	if offset < 0 || length < 0 || offset+length > s.Len() {
		return fmt.Errorf("%w: copy [%d, %d), stream length %d", ErrOutOfRange, offset, offset+length, s.Len())
	}
	if dstOffset < 0 || dstOffset+length > len(dst) {
		return fmt.Errorf("%w: copy of %d bytes into destination at %d (len %d)", ErrOutOfRange, length, dstOffset, len(dst))
	}

	taken := 0
	blockStart := 0
	for _, f := range s.frags {
		if taken == length {
			break
		}
		blockEnd := blockStart + f.length
		if blockEnd > offset {
			fragOffset := 0
			if offset > blockStart {
				fragOffset = offset - blockStart
			}
			n := min(length-taken, f.length-fragOffset)
			copy(dst[dstOffset:dstOffset+n], f.buf[f.start+fragOffset:])
			dstOffset += n
			taken += n
		}
		blockStart = blockEnd
	}
	return nil
}

// Slice returns a copy of length bytes starting at offset.
func (s *Store) Slice(offset, length int) ([]byte, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfRange, length)
	}
	out := make([]byte, length)
	if err := s.CopyTo(offset, out, 0, length); err != nil {
		return nil, err
	}
	return out, nil
}

// Bytes returns a copy of the whole stream.
func (s *Store) Bytes() []byte {
	out := make([]byte, 0, s.Len())
	for _, f := range s.frags {
		out = append(out, f.Bytes()...)
	}
	return out
}

// WriteTo writes the whole stream to w, one fragment at a time.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, f := range s.frags {
		n, err := f.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// At returns the byte at logical position i.
func (s *Store) At(i int) (byte, error) {
	idx, blockStart, ok := s.locate(i)
	if !ok {
		return 0, fmt.Errorf("%w: index %d, stream length %d", ErrOutOfRange, i, s.Len())
	}
	return s.frags[idx].At(i - blockStart)
}

// Set writes b at logical position i.
func (s *Store) Set(i int, b byte) error {
	idx, blockStart, ok := s.locate(i)
	if !ok {
		return fmt.Errorf("%w: index %d, stream length %d", ErrOutOfRange, i, s.Len())
	}
	return s.frags[idx].Set(i-blockStart, b)
}

// Compact copies the stream into a single new backing buffer, dropping
// references to every buffer previously held.
func (s *Store) Compact() {
	if len(s.frags) <= 1 {
		return
	}
	s.frags = []Fragment{NewFragment(s.Bytes())}
}

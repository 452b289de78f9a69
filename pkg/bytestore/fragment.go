package bytestore

import (
	"fmt"
	"io"
	"iter"
)

// Fragment is a view over a range of a backing buffer.
type Fragment struct {
	buf    []byte
	start  int
	length int
}

// NewFragment returns a fragment covering all of buf.
func NewFragment(buf []byte) Fragment {
	return Fragment{buf: buf, start: 0, length: len(buf)}
}

// Len returns the number of bytes visible through the fragment.
func (f Fragment) Len() int {
	return f.length
}

// CutFrom returns the tail of the fragment starting at offset.
// The result shares the backing buffer.
func (f Fragment) CutFrom(offset int) (Fragment, error) {
	if offset < 0 {
		return Fragment{}, fmt.Errorf("%w: cannot expand a fragment (offset %d)", ErrInvalidArgument, offset)
	}
	if offset > f.length {
		return Fragment{}, fmt.Errorf("%w: cut offset %d, fragment length %d", ErrOutOfRange, offset, f.length)
	}
	return Fragment{buf: f.buf, start: f.start + offset, length: f.length - offset}, nil
}

// CutTo returns the first length bytes of the fragment.
// The result shares the backing buffer.
func (f Fragment) CutTo(length int) (Fragment, error) {
	if length < 0 || length > f.length {
		return Fragment{}, fmt.Errorf("%w: cut length %d, fragment length %d", ErrOutOfRange, length, f.length)
	}
	return Fragment{buf: f.buf, start: f.start, length: length}, nil
}

// At returns the byte at position i of the fragment.
func (f Fragment) At(i int) (byte, error) {
	if i < 0 || i >= f.length {
		return 0, fmt.Errorf("%w: index %d, fragment length %d", ErrOutOfRange, i, f.length)
	}
	return f.buf[f.start+i], nil
}

// Set writes b at position i of the fragment, directly into the backing buffer.
func (f Fragment) Set(i int, b byte) error {
	if i < 0 || i >= f.length {
		return fmt.Errorf("%w: index %d, fragment length %d", ErrOutOfRange, i, f.length)
	}
	f.buf[f.start+i] = b
	return nil
}

// CopyTo copies n bytes starting at srcOffset of the fragment into dst at dstOffset.
func (f Fragment) CopyTo(srcOffset int, dst []byte, dstOffset, n int) error {
	if srcOffset < 0 || n < 0 || srcOffset+n > f.length {
		return fmt.Errorf("%w: copy [%d, %d) from fragment of length %d", ErrOutOfRange, srcOffset, srcOffset+n, f.length)
	}
	if dstOffset < 0 || dstOffset+n > len(dst) {
		return fmt.Errorf("%w: copy of %d bytes into destination at %d (len %d)", ErrOutOfRange, n, dstOffset, len(dst))
	}
	copy(dst[dstOffset:dstOffset+n], f.buf[f.start+srcOffset:])
	return nil
}

// CopyFrom overwrites the fragment bytes starting at offset with src.
func (f Fragment) CopyFrom(src []byte, offset int) error {
	if offset < 0 || offset+len(src) > f.length {
		return fmt.Errorf("%w: write [%d, %d) into fragment of length %d", ErrOutOfRange, offset, offset+len(src), f.length)
	}
	copy(f.buf[f.start+offset:], src)
	return nil
}

// Bytes returns the visible range without copying. The capacity is capped so
// appending to the result never writes into a neighbouring fragment.
func (f Fragment) Bytes() []byte {
	end := f.start + f.length
	return f.buf[f.start:end:end]
}

// WriteTo writes the fragment bytes to w.
func (f Fragment) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f.Bytes())
	return int64(n), err
}

// All yields the fragment bytes in order.
func (f Fragment) All() iter.Seq[byte] {
	return func(yield func(byte) bool) {
		for i := f.start; i < f.start+f.length; i++ {
			if !yield(f.buf[i]) {
				return
			}
		}
	}
}

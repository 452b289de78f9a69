package bytestore

import "iter"

// All yields every byte of the stream in order. The sequence covers the
// fragments present when iteration starts and can be ranged over any number
// of times. The store must not be modified while a range over All is running.
func (s *Store) All() iter.Seq[byte] {
	return func(yield func(byte) bool) {
		for _, f := range s.frags {
			for b := range f.All() {
				if !yield(b) {
					return
				}
			}
		}
	}
}

// Chunks yields the fragments' bytes without copying, in stream order.
// The slices alias the store's backing buffers.
func (s *Store) Chunks() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		for _, f := range s.frags {
			if !yield(f.Bytes()) {
				return
			}
		}
	}
}

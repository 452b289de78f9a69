package bytestore

import "fmt"

// exactFragment reports the index of the fragment whose span is exactly
// [offset, offset+length).
func (s *Store) exactFragment(offset, length int) (int, bool) {
	blockEnd := 0
	for i, f := range s.frags {
		blockStart := blockEnd
		blockEnd = blockStart + f.length
		if offset == blockStart {
			return i, f.length == length
		}
		if offset > blockStart && offset < blockEnd {
			return 0, false
		}
	}
	return 0, false
}

// Swap exchanges the byte ranges [offsetA, offsetA+lenA) and
// [offsetB, offsetB+lenB). The ranges may differ in length but must not overlap.
// Argument order does not matter: Swap(a, b) and Swap(b, a) give the same stream.
func (s *Store) Swap(offsetA, lenA, offsetB, lenB int) error {
	length := s.Len()
	if offsetA < 0 || lenA < 0 || offsetA+lenA > length ||
		offsetB < 0 || lenB < 0 || offsetB+lenB > length {
		return fmt.Errorf("%w: swap [%d, %d) with [%d, %d), stream length %d",
			ErrInvalidArgument, offsetA, offsetA+lenA, offsetB, offsetB+lenB, length)
	}
	if offsetA < offsetB+lenB && offsetB < offsetA+lenA {
		return fmt.Errorf("%w: swap ranges [%d, %d) and [%d, %d) overlap",
			ErrInvalidArgument, offsetA, offsetA+lenA, offsetB, offsetB+lenB)
	}
	if lenA == 0 && lenB == 0 {
		return nil
	}

	// Both ranges are whole fragments: exchange the entries, copy nothing.
	if i, ok := s.exactFragment(offsetA, lenA); ok {
		if j, ok := s.exactFragment(offsetB, lenB); ok {
			s.frags[i], s.frags[j] = s.frags[j], s.frags[i]
			return nil
		}
	}

	earlyOffset, earlyLen := offsetA, lenA
	laterOffset, laterLen := offsetB, lenB
	// An empty range sharing its offset with the other one sorts first.
	if offsetB < offsetA || (offsetB == offsetA && lenB < lenA) {
		earlyOffset, earlyLen, laterOffset, laterLen = offsetB, lenB, offsetA, lenA
	}

	earlyBlock, err := s.Slice(earlyOffset, earlyLen)
	if err != nil {
		return err
	}
	laterBlock, err := s.Slice(laterOffset, laterLen)
	if err != nil {
		return err
	}

	if earlyLen == laterLen {
		// Nothing shifts, both offsets stay valid.
		if err := s.Update(earlyOffset, laterBlock); err != nil {
			return err
		}
		return s.Update(laterOffset, earlyBlock)
	}

	if err := s.Remove(earlyOffset, earlyLen); err != nil {
		return err
	}
	if err := s.Insert(earlyOffset, laterBlock); err != nil {
		return err
	}
	// The later range moved by the size difference introduced above.
	adjusted := laterOffset + (laterLen - earlyLen)
	if err := s.Remove(adjusted, laterLen); err != nil {
		return err
	}
	return s.Insert(adjusted, earlyBlock)
}

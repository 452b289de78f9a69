// Package bytestore provides an editable byte stream built from fragments of
// backing buffers.
//
// # Representation
//
// A Store is an ordered list of Fragments. Each Fragment is a view
// (buffer, start, length) into a backing buffer and the logical stream is
// the concatenation of all fragments in order:
//
//	[frag 0][frag 1][frag 2] ... [frag n-1]
//
// Fragments never record their own global offset. Every positional call
// derives offsets by walking the list and summing lengths, so inserting or
// removing bytes never requires fixing up any other fragment.
//
// # Editing
//
// Insert splits the fragment that contains the offset into a head and a tail
// that keep pointing at the same backing buffer, then splices the new data
// between them. Remove trims or drops fragments. Neither operation copies
// existing payload bytes. Swap exchanges two fragment entries when both ranges
// line up with whole fragments and falls back to copy + remove + insert
// otherwise.
//
// Set writes through to the backing buffer. Fragments produced by a split
// share that buffer, so a write through one view is visible to any other view
// of the same bytes. Ranges of different fragments never overlap.
//
// # Ownership
//
// New, Append, Prepend, Insert and Update keep a reference to the slice they
// are given instead of copying it. Callers must not modify a slice after
// handing it to a Store.
//
// # Thread Safety
//
// A Store is not safe for concurrent use. Callers serialise access or take a
// full copy with Bytes before sharing a snapshot. Mutating a Store while
// ranging over All is a precondition violation and is not detected.
package bytestore

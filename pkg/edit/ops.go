package edit

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind names an edit operation
type Kind string

// Edit operations
const (
	KindRemove   Kind = "remove"   // remove:I
	KindSwap     Kind = "swap"     // swap:I:J
	KindMove     Kind = "move"     // move:FROM:TO
	KindDup      Kind = "dup"      // dup:I, inserts a copy after I
	KindTruncate Kind = "truncate" // truncate:I:N, keeps the first N data bytes
	KindComment  Kind = "comment"  // comment:I:TEXT, empty TEXT clears the comment
)

// Op represents a single edit of a packet collection
type Op struct {
	Kind   Kind   `json:"op"`
	Index  int    `json:"index"`
	Target int    `json:"target,omitempty"` // Swap partner or move destination
	Length int    `json:"length,omitempty"` // Truncate length
	Text   string `json:"text,omitempty"`   // Comment text
}

// EditError represents an edit script error
type EditError struct {
	Message string
}

func (e *EditError) Error() string {
	return e.Message
}

// ErrInvalidOp is returned for edit operations that cannot be parsed or validated
var ErrInvalidOp = &EditError{"invalid edit operation"}

// Parse reads an operation in its textual form, e.g. "swap:0:3".
func Parse(s string) (Op, error) {
	name, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	op := Op{Kind: Kind(strings.ToLower(name))}

	var fields []string
	switch op.Kind {
	case KindRemove, KindDup, KindSwap, KindMove, KindTruncate:
		fields = splitArgs(rest)
	case KindComment:
		// The text may itself contain colons.
		fields = strings.SplitN(rest, ":", 2)
	default:
		return Op{}, fmt.Errorf("%w: unknown operation %q", ErrInvalidOp, name)
	}

	want := 1
	if op.Kind != KindRemove && op.Kind != KindDup {
		want = 2
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("%w: %q takes %d arguments", ErrInvalidOp, s, want)
	}

	var err error
	if op.Index, err = parseIndex(fields[0]); err != nil {
		return Op{}, fmt.Errorf("%w: %q: %v", ErrInvalidOp, s, err)
	}
	switch op.Kind {
	case KindSwap, KindMove:
		op.Target, err = parseIndex(fields[1])
	case KindTruncate:
		op.Length, err = parseIndex(fields[1])
	case KindComment:
		op.Text = fields[1]
	}
	if err != nil {
		return Op{}, fmt.Errorf("%w: %q: %v", ErrInvalidOp, s, err)
	}
	return op, op.Validate()
}

// ParseAll parses every operation, stopping at the first bad one.
func ParseAll(specs []string) ([]Op, error) {
	ops := make([]Op, 0, len(specs))
	for _, s := range specs {
		op, err := Parse(s)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Validate checks if the operation is properly formed. Index bounds are
// checked against the collection when the operation is applied.
func (o Op) Validate() error {
	if o.Index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrInvalidOp, o.Index)
	}
	switch o.Kind {
	case KindRemove, KindDup, KindComment:
	case KindSwap, KindMove:
		if o.Target < 0 {
			return fmt.Errorf("%w: negative target %d", ErrInvalidOp, o.Target)
		}
	case KindTruncate:
		if o.Length < 0 {
			return fmt.Errorf("%w: negative length %d", ErrInvalidOp, o.Length)
		}
	case "":
		return fmt.Errorf("%w: operation cannot be empty", ErrInvalidOp)
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidOp, o.Kind)
	}
	return nil
}

// String returns the textual form accepted by Parse.
func (o Op) String() string {
	switch o.Kind {
	case KindSwap, KindMove:
		return fmt.Sprintf("%s:%d:%d", o.Kind, o.Index, o.Target)
	case KindTruncate:
		return fmt.Sprintf("%s:%d:%d", o.Kind, o.Index, o.Length)
	case KindComment:
		return fmt.Sprintf("%s:%d:%s", o.Kind, o.Index, o.Text)
	default:
		return fmt.Sprintf("%s:%d", o.Kind, o.Index)
	}
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ":")
}

func parseIndex(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

package edit

import (
	"fmt"

	"github.com/ssargent/pcapbend/pkg/store"
)

// Result summarizes an applied edit script
type Result struct {
	Applied int `json:"applied"` // Operations applied before stopping
	Count   int `json:"count"`   // Packets after the last applied operation
	Version int `json:"version"` // Collection version after the last applied operation
}

// ApplyError reports the operation that stopped an edit script
type ApplyError struct {
	Position int
	Op       Op
	Err      error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("edit %d (%s): %v", e.Position, e.Op, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}

// Apply runs ops in order against c and stops at the first failure. Edits
// applied before the failure are kept.
func Apply(c *store.PacketCollection, ops []Op) (Result, error) {
	var res Result
	for i, op := range ops {
		if err := ApplyOne(c, op); err != nil {
			res.Count, _ = c.Count()
			res.Version = c.Version()
			return res, &ApplyError{Position: i, Op: op, Err: err}
		}
		res.Applied++
	}

	count, err := c.Count()
	if err != nil {
		return res, err
	}
	res.Count = count
	res.Version = c.Version()
	return res, nil
}

// ApplyOne applies a single operation to c.
func ApplyOne(c *store.PacketCollection, op Op) error {
	if err := op.Validate(); err != nil {
		return err
	}

	switch op.Kind {
	case KindRemove:
		return c.Remove(op.Index)
	case KindSwap:
		return c.Swap(op.Index, op.Target)
	case KindMove:
		return c.Move(op.Index, op.Target)
	case KindDup:
		raw, err := c.Raw(op.Index)
		if err != nil {
			return err
		}
		return c.InsertRaw(op.Index+1, raw)
	case KindTruncate:
		p, err := c.Packet(op.Index)
		if err != nil {
			return err
		}
		if op.Length >= len(p.Data) {
			return nil
		}
		if err := p.Truncate(op.Length); err != nil {
			return err
		}
		return c.Update(op.Index, p)
	case KindComment:
		p, err := c.Packet(op.Index)
		if err != nil {
			return err
		}
		p.SetComment(op.Text)
		return c.Update(op.Index, p)
	}
	return fmt.Errorf("%w: unknown operation %q", ErrInvalidOp, op.Kind)
}

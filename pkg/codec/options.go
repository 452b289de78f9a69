package codec

import (
	"encoding/binary"
	"fmt"
)

// Option codes shared by all blocks.
const (
	OptEndOfOpt uint16 = 0
	OptComment  uint16 = 1
)

// Section header option codes.
const (
	OptShbHardware uint16 = 2
	OptShbOS       uint16 = 3
	OptShbUserAppl uint16 = 4
)

// Interface description option codes.
const (
	OptIfName        uint16 = 2
	OptIfDescription uint16 = 3
	OptIfTsResol     uint16 = 9
)

// Enhanced packet option codes.
const (
	OptEpbFlags     uint16 = 2
	OptEpbHash      uint16 = 3
	OptEpbDropCount uint16 = 4
)

// Option is a single TLV option of a block.
type Option struct {
	Code  uint16
	Value []byte
}

// Options is an ordered option list. The end-of-options marker is implied.
type Options []Option

// Get returns the value of the first option with the given code.
func (o Options) Get(code uint16) ([]byte, bool) {
	for _, opt := range o {
		if opt.Code == code {
			return opt.Value, true
		}
	}
	return nil, false
}

// Set replaces the first option with the given code, or appends one.
func (o Options) Set(code uint16, value []byte) Options {
	for i := range o {
		if o[i].Code == code {
			o[i].Value = value
			return o
		}
	}
	return append(o, Option{Code: code, Value: value})
}

// Comment returns the opt_comment value, if any.
func (o Options) Comment() string {
	v, _ := o.Get(OptComment)
	return string(v)
}

// size returns the encoded size of the list including the end-of-options marker.
func (o Options) size() int {
	if len(o) == 0 {
		return 0
	}
	n := 4
	for _, opt := range o {
		n += 4 + pad4(len(opt.Value))
	}
	return n
}

// put encodes the list into b, which must be at least o.size() bytes.
func (o Options) put(b []byte, order binary.ByteOrder) error {
	if len(o) == 0 {
		return nil
	}
	pos := 0
	for _, opt := range o {
		if opt.Code == OptEndOfOpt {
			return fmt.Errorf("%w: end-of-options code inside option list", ErrMalformedBlock)
		}
		if len(opt.Value) > 0xFFFF {
			return fmt.Errorf("%w: option %d value of %d bytes", ErrMalformedBlock, opt.Code, len(opt.Value))
		}
		order.PutUint16(b[pos:], opt.Code)
		order.PutUint16(b[pos+2:], uint16(len(opt.Value)))
		copy(b[pos+4:], opt.Value)
		pos += 4 + pad4(len(opt.Value))
	}
	// End of options: code 0, length 0. The buffer is zeroed already.
	order.PutUint16(b[pos:], OptEndOfOpt)
	order.PutUint16(b[pos+2:], 0)
	return nil
}

// decodeOptions parses an option list. A missing end-of-options marker is
// accepted when the region ends exactly after the last option.
func decodeOptions(b []byte, order binary.ByteOrder) (Options, error) {
	var opts Options
	pos := 0
	for pos < len(b) {
		if len(b)-pos < 4 {
			return nil, fmt.Errorf("%w: truncated option header at %d", ErrMalformedBlock, pos)
		}
		code := order.Uint16(b[pos:])
		length := int(order.Uint16(b[pos+2:]))
		if code == OptEndOfOpt {
			break
		}
		end := pos + 4 + length
		if end > len(b) {
			return nil, fmt.Errorf("%w: option %d overruns block (%d > %d)", ErrMalformedBlock, code, end, len(b))
		}
		opts = append(opts, Option{Code: code, Value: b[pos+4 : end]})
		pos += 4 + pad4(length)
	}
	return opts, nil
}

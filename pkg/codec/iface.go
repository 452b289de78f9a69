package codec

import (
	"fmt"
	"math"
	"time"
)

// idbFixedSize covers header, link type, reserved, snap length and trailer.
const idbFixedSize = 20

// Link types
const (
	LinkTypeNull     uint16 = 0
	LinkTypeEthernet uint16 = 1
	LinkTypeRaw      uint16 = 101
)

// InterfaceDescription is a decoded interface description block.
type InterfaceDescription struct {
	LinkType uint16
	SnapLen  uint32
	Options  Options
}

// NewInterfaceDescription returns an interface with no snap length limit.
func NewInterfaceDescription(linkType uint16, name string) *InterfaceDescription {
	idb := &InterfaceDescription{LinkType: linkType}
	if name != "" {
		idb.Options = idb.Options.Set(OptIfName, []byte(name))
	}
	return idb
}

// Name returns the if_name option, if any.
func (i *InterfaceDescription) Name() string {
	v, _ := i.Options.Get(OptIfName)
	return string(v)
}

// Tick returns the duration of one timestamp unit from if_tsresol.
// Without the option the resolution is one microsecond.
func (i *InterfaceDescription) Tick() time.Duration {
	v, ok := i.Options.Get(OptIfTsResol)
	if !ok || len(v) == 0 {
		return time.Microsecond
	}
	exp := int(v[0] & 0x7F)
	var perSecond float64
	if v[0]&0x80 != 0 {
		perSecond = math.Pow(2, float64(exp))
	} else {
		perSecond = math.Pow(10, float64(exp))
	}
	tick := time.Duration(float64(time.Second) / perSecond)
	if tick < 1 {
		return 1
	}
	return tick
}

// Size returns the encoded size of the block.
func (i *InterfaceDescription) Size() int {
	return idbFixedSize + i.Options.size()
}

// EncodeInterface serializes an interface description block.
func (c *Codec) EncodeInterface(i *InterfaceDescription) ([]byte, error) {
	buf, body := frame(BlockTypeInterfaceDescription, i.Size()-MinBlockSize, c.order)

	c.order.PutUint16(body[0:], i.LinkType)
	c.order.PutUint16(body[2:], 0)
	c.order.PutUint32(body[4:], i.SnapLen)

	if err := i.Options.put(body[8:], c.order); err != nil {
		return nil, err
	}
	return buf, nil
}

// DecodeInterface deserializes an interface description block.
func (c *Codec) DecodeInterface(b []byte) (*InterfaceDescription, error) {
	if _, err := ValidateBlock(b, c.order, BlockTypeInterfaceDescription); err != nil {
		return nil, err
	}
	if len(b) < idbFixedSize {
		return nil, fmt.Errorf("%w: %d bytes is too short for an interface description", ErrMalformedBlock, len(b))
	}

	i := &InterfaceDescription{
		LinkType: c.order.Uint16(b[8:10]),
		SnapLen:  c.order.Uint32(b[12:16]),
	}
	opts, err := decodeOptions(b[16:len(b)-4], c.order)
	if err != nil {
		return nil, err
	}
	i.Options = opts
	return i, nil
}

package codec

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// Summary is a flat description of a packet, shaped for JSON output and
// document-style filtering.
type Summary struct {
	Index       int    `json:"index"`
	InterfaceID uint32 `json:"interface_id"`
	Timestamp   uint64 `json:"timestamp"`
	Time        string `json:"time"`
	CapturedLen uint32 `json:"captured_len"`
	OriginalLen uint32 `json:"original_len"`
	Truncated   bool   `json:"truncated"`
	Comment     string `json:"comment,omitempty"`
	SrcMAC      string `json:"src_mac,omitempty"`
	DstMAC      string `json:"dst_mac,omitempty"`
	EtherType   string `json:"ethertype,omitempty"`
}

// Summarize describes the packet at position index. Ethernet fields are
// filled when the data holds at least an Ethernet header.
func Summarize(index int, p *EnhancedPacket) Summary {
	s := Summary{
		Index:       index,
		InterfaceID: p.InterfaceID,
		Timestamp:   p.Timestamp,
		Time:        p.Time().Format(time.RFC3339Nano),
		CapturedLen: p.CapturedLen,
		OriginalLen: p.OriginalLen,
		Truncated:   p.CapturedLen < p.OriginalLen,
		Comment:     p.Comment(),
	}
	if len(p.Data) >= 14 {
		s.DstMAC = net.HardwareAddr(p.Data[0:6]).String()
		s.SrcMAC = net.HardwareAddr(p.Data[6:12]).String()
		s.EtherType = fmt.Sprintf("0x%04x", binary.BigEndian.Uint16(p.Data[12:14]))
	}
	return s
}

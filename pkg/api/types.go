package api

import (
	"time"

	"github.com/ssargent/pcapbend/pkg/codec"
	"github.com/ssargent/pcapbend/pkg/storage"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Bind            string
	Port            int
	APIKey          string // empty disables the X-API-Key check
	MaxCaptureBytes int64  // 0 = unlimited
	TransportKind   string // default sink for /send
	TransportTarget string
}

// CaptureInfo describes a session and the interfaces of its capture
type CaptureInfo struct {
	storage.SessionInfo
	Interfaces []InterfaceInfo `json:"interface_list"`
}

// InterfaceInfo is the JSON view of an interface description
type InterfaceInfo struct {
	ID       int    `json:"id"`
	LinkType uint16 `json:"link_type"`
	SnapLen  uint32 `json:"snap_len"`
	Name     string `json:"name,omitempty"`
}

// PacketRequest is the JSON body for adding or replacing a packet.
// Data is base64 encoded. A zero Timestamp means now.
type PacketRequest struct {
	InterfaceID uint32    `json:"interface_id"`
	Timestamp   time.Time `json:"timestamp"`
	Data        []byte    `json:"data"`
	OriginalLen uint32    `json:"original_len,omitempty"`
	Comment     string    `json:"comment,omitempty"`
}

// PacketDetail is a packet summary together with its payload
type PacketDetail struct {
	codec.Summary
	Data []byte `json:"data"`
}

// FindRequest filters packet summaries with a connor expression, e.g.
// {"filter": {"captured_len": {"$gt": 60}}}
type FindRequest struct {
	Filter map[string]interface{} `json:"filter"`
	Skip   int                    `json:"skip"`
	Limit  int                    `json:"limit"`
}

// SwapRequest exchanges two packets
type SwapRequest struct {
	I int `json:"i"`
	J int `json:"j"`
}

// MoveRequest moves a packet to a new position
type MoveRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// EditRequest is an ordered list of edit operations in their text form,
// e.g. "remove:3" or "swap:0:2"
type EditRequest struct {
	Ops []string `json:"ops"`
}

// SendRequest selects the sink for a capture. Empty fields fall back to
// the server's transport configuration.
type SendRequest struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// SendResult reports a completed send
type SendResult struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Bytes  int64  `json:"bytes"`
}

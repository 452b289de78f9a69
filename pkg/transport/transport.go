// Package transport delivers a serialized capture to a downstream consumer,
// such as Wireshark reading a named pipe (wireshark -k -i PATH) or a TCP socket.
package transport

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Sender writes a whole capture to one consumer.
type Sender interface {
	Send(ctx context.Context, src io.WriterTo) error
}

// Transport kinds
const (
	KindPipe = "pipe"
	KindTCP  = "tcp"
)

// pollInterval is how often a sender checks for a consumer.
const pollInterval = 50 * time.Millisecond

// TransportError represents a transport error
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string {
	return e.Message
}

// Errors
var (
	ErrUnknownKind = &TransportError{"unknown transport kind"}
	ErrNotFifo     = &TransportError{"path exists and is not a named pipe"}
	ErrUnsupported = &TransportError{"transport not supported on this platform"}
)

// New creates a sender of the given kind. target is the FIFO path for pipes
// and the listen address for TCP.
func New(kind, target string) (Sender, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: empty target for %q", ErrUnknownKind, kind)
	}
	switch kind {
	case KindPipe:
		return NewPipeSender(target), nil
	case KindTCP:
		return NewTCPSender(target), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

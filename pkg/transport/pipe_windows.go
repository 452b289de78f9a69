//go:build windows

package transport

import (
	"context"
	"fmt"
	"io"
)

// PipeSender writes to a named pipe. Only unix FIFOs are supported.
type PipeSender struct {
	Path string
	Mode uint32
}

// NewPipeSender creates a sender for the pipe at path
func NewPipeSender(path string) *PipeSender {
	return &PipeSender{Path: path}
}

// Send always fails on windows.
func (s *PipeSender) Send(ctx context.Context, src io.WriterTo) error {
	return fmt.Errorf("%w: named pipe %s", ErrUnsupported, s.Path)
}

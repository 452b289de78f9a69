//go:build !windows

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// PipeSender writes to a named pipe, creating it when missing.
type PipeSender struct {
	Path string
	Mode uint32 // Permission bits for a created FIFO (0 = 0600)
}

// NewPipeSender creates a sender for the FIFO at path
func NewPipeSender(path string) *PipeSender {
	return &PipeSender{Path: path}
}

// Send waits for a reader to open the pipe, writes src and closes the pipe.
// Cancelling ctx stops the wait or interrupts the write.
func (s *PipeSender) Send(ctx context.Context, src io.WriterTo) error {
	if err := s.ensureFifo(); err != nil {
		return err
	}

	f, err := s.openWriter(ctx)
	if err != nil {
		return err
	}
	defer f.Close()

	stop := context.AfterFunc(ctx, func() { f.Close() })
	defer stop()

	if _, err := src.WriteTo(f); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("write to %s: %w", s.Path, err)
	}
	return nil
}

func (s *PipeSender) ensureFifo() error {
	info, err := os.Lstat(s.Path)
	switch {
	case err == nil:
		if info.Mode()&fs.ModeNamedPipe == 0 {
			return fmt.Errorf("%w: %s", ErrNotFifo, s.Path)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		mode := s.Mode
		if mode == 0 {
			mode = 0600
		}
		if err := unix.Mkfifo(s.Path, mode); err != nil {
			return fmt.Errorf("mkfifo %s: %w", s.Path, err)
		}
		return nil
	default:
		return err
	}
}

// openWriter polls a non-blocking open until a reader is present.
func (s *PipeSender) openWriter(ctx context.Context) (*os.File, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		fd, err := unix.Open(s.Path, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err == nil {
			// A non-blocking fd is registered with the runtime poller, so
			// Close interrupts a pending Write.
			return os.NewFile(uintptr(fd), s.Path), nil
		}
		// ENXIO: no reader yet.
		if !errors.Is(err, unix.ENXIO) {
			return nil, fmt.Errorf("open %s: %w", s.Path, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

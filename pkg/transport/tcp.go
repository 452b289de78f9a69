package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// TCPSender listens on an address and hands the capture to each consumer
// that connects, one Send per connection.
type TCPSender struct {
	addr     string
	listener net.Listener
	mutex    sync.Mutex
}

// NewTCPSender creates a sender listening on addr once first used
func NewTCPSender(addr string) *TCPSender {
	return &TCPSender{addr: addr}
}

// Listen binds the listening socket. Send calls it when needed.
func (s *TCPSender) Listen() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *TCPSender) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Send accepts one consumer, writes src and closes the connection.
// Cancelling ctx stops the accept or interrupts the write.
func (s *TCPSender) Send(ctx context.Context, src io.WriterTo) error {
	if err := s.Listen(); err != nil {
		return err
	}

	s.mutex.Lock()
	ln := s.listener
	s.mutex.Unlock()

	conn, err := accept(ctx, ln)
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := src.WriteTo(conn); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("write to %s: %w", conn.RemoteAddr(), err)
	}
	return nil
}

// Close stops listening.
func (s *TCPSender) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	return err
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

// accept waits for one connection, unblocking through a past deadline when
// ctx is cancelled.
func accept(ctx context.Context, ln net.Listener) (net.Conn, error) {
	dl, ok := ln.(deadliner)
	if ok {
		stop := context.AfterFunc(ctx, func() { dl.SetDeadline(time.Unix(1, 0)) })
		defer func() {
			stop()
			dl.SetDeadline(time.Time{})
		}()
	}

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept on %s: %w", ln.Addr(), err)
	}
	return conn, nil
}

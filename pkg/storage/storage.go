// Package storage keeps the editing sessions of the HTTP API in memory,
// keyed by KSUID.
package storage

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/ssargent/pcapbend/pkg/store"
)

// StorageError represents a session storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}

// Errors
var (
	ErrSessionNotFound = &StorageError{"session not found"}
	ErrTooManySessions = &StorageError{"too many sessions"}
	ErrStorageClosed   = &StorageError{"storage closed"}
)

// Config holds configuration for session storage
type Config struct {
	MaxSessions int // 0 = unlimited
}

// Session is one capture being edited. All access to the capture goes
// through View or Edit, which serialize callers.
type Session struct {
	ID      ksuid.KSUID
	Name    string
	Created time.Time

	mutex   sync.Mutex
	capture *store.Capture
	edits   int
	updated time.Time
}

// SessionInfo is a point-in-time description of a session
type SessionInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name,omitempty"`
	Created    time.Time `json:"created"`
	Updated    time.Time `json:"updated"`
	Packets    int       `json:"packets"`
	Interfaces int       `json:"interfaces"`
	Bytes      int64     `json:"bytes"`
	Fragments  int       `json:"fragments"`
	Version    int       `json:"version"`
	Edits      int       `json:"edits"`
	ByteOrder  string    `json:"byte_order"`
}

// View runs fn with exclusive read access to the capture.
func (s *Session) View(fn func(c *store.Capture) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return fn(s.capture)
}

// Edit runs fn with exclusive access to the capture and counts it as an
// edit when it succeeds.
func (s *Session) Edit(fn func(c *store.Capture) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := fn(s.capture); err != nil {
		return err
	}
	s.edits++
	s.updated = time.Now()
	return nil
}

// Touch counts n edits made under View.
func (s *Session) Touch(n int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.edits += n
	s.updated = time.Now()
}

// Info describes the session. A capture whose block stream cannot be
// framed reports zero packets.
func (s *Session) Info() SessionInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	packets := s.capture.Packets()
	count, _ := packets.Count()
	return SessionInfo{
		ID:         s.ID.String(),
		Name:       s.Name,
		Created:    s.Created,
		Updated:    s.updated,
		Packets:    count,
		Interfaces: s.capture.InterfaceCount(),
		Bytes:      s.capture.Len(),
		Fragments:  packets.Fragments(),
		Version:    packets.Version(),
		Edits:      s.edits,
		ByteOrder:  s.capture.ByteOrder().String(),
	}
}

// Bytes returns the encoded size of the capture.
func (s *Session) Bytes() int64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.capture.Len()
}

// DefaultStorage is the in-memory session store
type DefaultStorage struct {
	sessions map[ksuid.KSUID]*Session
	config   Config
	mutex    sync.RWMutex
	closed   bool
}

// NewDefaultStorage creates an empty session store
func NewDefaultStorage(config Config) *DefaultStorage {
	return &DefaultStorage{
		sessions: make(map[ksuid.KSUID]*Session),
		config:   config,
	}
}

// Create registers a capture under a new id.
func (s *DefaultStorage) Create(name string, capture *store.Capture) (*Session, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, ErrStorageClosed
	}
	if s.config.MaxSessions > 0 && len(s.sessions) >= s.config.MaxSessions {
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, s.config.MaxSessions)
	}

	now := time.Now()
	session := &Session{
		ID:      ksuid.New(),
		Name:    name,
		Created: now,
		updated: now,
		capture: capture,
	}
	s.sessions[session.ID] = session
	return session, nil
}

// Read looks a session up by its string id.
func (s *DefaultStorage) Read(id string) (*Session, error) {
	key, err := ksuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	session, exists := s.sessions[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Delete drops a session.
func (s *DefaultStorage) Delete(id string) error {
	key, err := ksuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.sessions[key]; !exists {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, key)
	return nil
}

// List returns all sessions, oldest first.
func (s *DefaultStorage) List() []*Session {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	slices.SortFunc(out, func(a, b *Session) int {
		return ksuid.Compare(a.ID, b.ID)
	})
	return out
}

// Len returns the number of sessions.
func (s *DefaultStorage) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// TotalBytes returns the encoded size of every capture held.
func (s *DefaultStorage) TotalBytes() int64 {
	var total int64
	for _, session := range s.List() {
		total += session.Bytes()
	}
	return total
}

// Close drops every session and rejects new ones.
func (s *DefaultStorage) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessions = make(map[ksuid.KSUID]*Session)
	s.closed = true
	return nil
}

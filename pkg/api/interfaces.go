// Package api provides interfaces for dependency injection
package api

import (
	"context"
	"log/slog"

	"github.com/ssargent/pcapbend/pkg/storage"
	"github.com/ssargent/pcapbend/pkg/store"
)

// SessionStore holds the capture editing sessions served by the API
type SessionStore interface {
	Create(name string, capture *store.Capture) (*storage.Session, error)
	Read(id string) (*storage.Session, error)
	Delete(id string) error
	List() []*storage.Session
	Len() int
	TotalBytes() int64
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer serves the API until ctx is cancelled
	StartServer(ctx context.Context, sessions SessionStore, config ServerConfig, logger *slog.Logger) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}

// SessionStoreFactory creates session stores
type SessionStoreFactory interface {
	// CreateSessionStore creates an empty session store
	CreateSessionStore(maxSessions int) SessionStore
}

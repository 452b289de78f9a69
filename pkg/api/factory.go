// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"log/slog"

	"github.com/ssargent/pcapbend/pkg/storage"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(
	ctx context.Context,
	sessions SessionStore,
	config ServerConfig,
	logger *slog.Logger,
) error {
	return StartServer(ctx, sessions, config, logger)
}

// DefaultSessionStoreFactory is the default implementation of SessionStoreFactory
type DefaultSessionStoreFactory struct{}

// NewSessionStoreFactory creates a new session store factory
func NewSessionStoreFactory() SessionStoreFactory {
	return &DefaultSessionStoreFactory{}
}

// CreateSessionStore creates an in-memory session store
func (f *DefaultSessionStoreFactory) CreateSessionStore(maxSessions int) SessionStore {
	return storage.NewDefaultStorage(storage.Config{MaxSessions: maxSessions})
}

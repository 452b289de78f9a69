// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/pcapbend/pkg/api"       //nolint:depguard
	"github.com/ssargent/pcapbend/pkg/transport" //nolint:depguard
)

// SenderFactory creates a transport sender of the given kind
type SenderFactory func(kind, target string) (transport.Sender, error)

// Container holds all the dependencies for the application
type Container struct {
	sessionStoreFactory api.SessionStoreFactory
	serverFactory       api.ServerFactory
	senderFactory       SenderFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		sessionStoreFactory: api.NewSessionStoreFactory(),
		serverFactory:       api.NewServerFactory(),
		senderFactory:       transport.New,
	}
}

// GetSessionStoreFactory returns the session store factory
func (c *Container) GetSessionStoreFactory() api.SessionStoreFactory {
	return c.sessionStoreFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// GetSenderFactory returns the transport sender factory
func (c *Container) GetSenderFactory() SenderFactory {
	return c.senderFactory
}

// SetSessionStoreFactory allows overriding the session store factory (for testing)
func (c *Container) SetSessionStoreFactory(factory api.SessionStoreFactory) {
	c.sessionStoreFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetSenderFactory allows overriding the transport sender factory (for testing)
func (c *Container) SetSenderFactory(factory SenderFactory) {
	c.senderFactory = factory
}

package client

import (
	"github.com/parley-chat/parley/pkg/protocol"
)

// ConnectionInterface defines the interface for client connections.
// This allows for mocking in tests while the real Connection implements all
// these methods.
type ConnectionInterface interface {
	// Connection management
	Connect() error
	Disconnect()
	Close()
	IsConnected() bool
	Address() string

	// Envelope sending
	Send(env *protocol.Envelope) error
	SendPayload(envType string, payload interface{}) error

	// Channels for receiving data
	Incoming() <-chan *protocol.Envelope
	Errors() <-chan error
	StateChanges() <-chan ConnectionStateUpdate

	// Configuration
	DisableAutoReconnect()
}

// StateInterface defines the interface for client state persistence.
// This allows for mocking in tests while the real State implements all
// these methods.
type StateInterface interface {
	// Generic key/value configuration
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error

	// Session identity
	Username() string
	SetUsername(name string) error

	// Active room selection. The empty string is a valid room key (the
	// public room), distinct from no selection at all.
	ActiveRoom() (string, bool)
	SetActiveRoom(room string) error
	ClearActiveRoom() error

	// Close the state
	Close() error
}

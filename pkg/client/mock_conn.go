package client

import (
	"sync"

	"github.com/parley-chat/parley/pkg/protocol"
)

// MockConnection is an in-memory test implementation of ConnectionInterface
type MockConnection struct {
	mu        sync.Mutex
	connected bool
	sent      []*protocol.Envelope

	incoming    chan *protocol.Envelope
	errors      chan error
	stateChange chan ConnectionStateUpdate

	// Error injection
	connectErr error
	sendErr    error
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming:    make(chan *protocol.Envelope, 100),
		errors:      make(chan error, 10),
		stateChange: make(chan ConnectionStateUpdate, 10),
	}
}

// Connect marks the mock as connected
func (c *MockConnection) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

// Disconnect marks the mock as disconnected
func (c *MockConnection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

// Close marks the mock as disconnected
func (c *MockConnection) Close() {
	c.Disconnect()
}

// IsConnected reports the mock connection state
func (c *MockConnection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Address returns a fixed test address
func (c *MockConnection) Address() string {
	return "ws://mock:7070/chat"
}

// Send records the envelope
func (c *MockConnection) Send(env *protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, env)
	return nil
}

// SendPayload wraps payload in an envelope and records it
func (c *MockConnection) SendPayload(envType string, payload interface{}) error {
	env, err := protocol.NewEnvelope(envType, payload)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// Incoming returns the mock incoming channel
func (c *MockConnection) Incoming() <-chan *protocol.Envelope {
	return c.incoming
}

// Errors returns the mock error channel
func (c *MockConnection) Errors() <-chan error {
	return c.errors
}

// StateChanges returns the mock state-change channel
func (c *MockConnection) StateChanges() <-chan ConnectionStateUpdate {
	return c.stateChange
}

// DisableAutoReconnect does nothing for the mock
func (c *MockConnection) DisableAutoReconnect() {}

// Sent returns a copy of all recorded envelopes
func (c *MockConnection) Sent() []*protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*protocol.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

// LastSent returns the most recently recorded envelope, or nil
func (c *MockConnection) LastSent() *protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

// Deliver pushes an envelope onto the mock incoming channel
func (c *MockConnection) Deliver(env *protocol.Envelope) {
	c.incoming <- env
}

// SetConnectError injects an error into Connect
func (c *MockConnection) SetConnectError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectErr = err
}

// SetSendError injects an error into Send
func (c *MockConnection) SetSendError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

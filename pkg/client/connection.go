package client

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/parley-chat/parley/pkg/protocol"
)

// ConnectionStateType represents the connection status
type ConnectionStateType int

const (
	StateTypeConnected ConnectionStateType = iota
	StateTypeDisconnected
	StateTypeReconnecting
)

// ConnectionStateUpdate represents a connection state change
type ConnectionStateUpdate struct {
	State   ConnectionStateType
	Attempt int
	Err     error
}

// Connection represents a client connection to the server. It owns the
// single WebSocket and pumps decoded envelopes onto the Incoming channel;
// decode failures are reported on Errors and dropped without closing the
// connection.
type Connection struct {
	serverURL    string
	ws           *websocket.Conn
	mu           sync.RWMutex
	connected    bool
	reconnecting bool

	// Channels for communication
	incoming    chan *protocol.Envelope
	outgoing    chan *protocol.Envelope
	errors      chan error
	stateChange chan ConnectionStateUpdate

	// Auto-reconnect settings
	autoReconnect     bool
	reconnectDelay    time.Duration
	maxReconnectDelay time.Duration

	// Logging
	logger *log.Logger

	// Shutdown
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewConnection creates a new client connection for the given address.
// Accepted forms: "host:port", "ws://host:port/chat", "wss://host/chat".
func NewConnection(addr string) (*Connection, error) {
	serverURL, err := parseServerURL(addr)
	if err != nil {
		return nil, err
	}

	return &Connection{
		serverURL:         serverURL,
		incoming:          make(chan *protocol.Envelope, 100),
		outgoing:          make(chan *protocol.Envelope, 100),
		errors:            make(chan error, 10),
		stateChange:       make(chan ConnectionStateUpdate, 10),
		autoReconnect:     true,
		reconnectDelay:    1 * time.Second,
		maxReconnectDelay: 30 * time.Second,
		shutdown:          make(chan struct{}),
	}, nil
}

// SetLogger sets a logger for debugging connection events
func (c *Connection) SetLogger(logger *log.Logger) {
	c.logger = logger
}

// DisableAutoReconnect disables automatic reconnection on connection loss
func (c *Connection) DisableAutoReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoReconnect = false
}

// SetMaxReconnectDelay caps the exponential backoff between reconnect
// attempts
func (c *Connection) SetMaxReconnectDelay(max time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if max > 0 {
		c.maxReconnectDelay = max
	}
}

// logf logs a message if a logger is set
func (c *Connection) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}

// Connect establishes the WebSocket connection to the server
func (c *Connection) Connect() error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return fmt.Errorf("already connected")
	}
	c.mu.Unlock()

	c.logf("Connecting to %s...", c.serverURL)

	dialer := &websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	ws, _, err := dialer.Dial(c.serverURL, nil)
	if err != nil {
		c.logf("Connection failed: %v", err)
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.ws = ws
	c.connected = true
	c.mu.Unlock()

	c.logf("Connected successfully to %s", c.serverURL)

	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()

	return nil
}

// Disconnect closes the connection
func (c *Connection) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	c.logf("Disconnecting from %s", c.serverURL)
	c.connected = false
	if c.ws != nil {
		c.ws.Close()
	}
	c.mu.Unlock()
}

// Close shuts down the connection permanently
func (c *Connection) Close() {
	close(c.shutdown)
	c.Disconnect()
	c.wg.Wait()
	close(c.incoming)
	close(c.outgoing)
	close(c.errors)
	close(c.stateChange)
}

// Send queues an envelope for delivery to the server
func (c *Connection) Send(env *protocol.Envelope) error {
	select {
	case c.outgoing <- env:
		return nil
	case <-c.shutdown:
		return fmt.Errorf("connection closed")
	default:
		return fmt.Errorf("outgoing queue full")
	}
}

// SendPayload wraps payload in an envelope of the given type and sends it
func (c *Connection) SendPayload(envType string, payload interface{}) error {
	env, err := protocol.NewEnvelope(envType, payload)
	if err != nil {
		return err
	}
	return c.Send(env)
}

// Incoming returns the channel for receiving envelopes from the server
func (c *Connection) Incoming() <-chan *protocol.Envelope {
	return c.incoming
}

// Errors returns the channel for connection errors
func (c *Connection) Errors() <-chan error {
	return c.errors
}

// StateChanges returns the channel for connection state updates
func (c *Connection) StateChanges() <-chan ConnectionStateUpdate {
	return c.stateChange
}

// IsConnected returns whether the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Address returns the server URL
func (c *Connection) Address() string {
	return c.serverURL
}

// readLoop reads envelopes from the connection
func (c *Connection) readLoop() {
	defer c.wg.Done()

	for {
		c.mu.RLock()
		ws := c.ws
		connected := c.connected
		c.mu.RUnlock()

		if !connected || ws == nil {
			return
		}

		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logf("Connection closed by server")
			} else {
				c.logf("Read error: %v", err)
			}
			c.handleDisconnect(err)
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			// Malformed envelope: drop the message, keep the connection
			c.logf("Decode error: %v", err)
			select {
			case c.errors <- err:
			default:
			}
			continue
		}

		c.logf("← RECV: Type=%s PayloadLen=%d", env.Type, len(env.Data))

		select {
		case c.incoming <- env:
		case <-c.shutdown:
			return
		}
	}
}

// writeLoop sends envelopes to the connection
func (c *Connection) writeLoop() {
	defer c.wg.Done()

	for {
		select {
		case env := <-c.outgoing:
			c.mu.RLock()
			ws := c.ws
			connected := c.connected
			c.mu.RUnlock()

			if !connected || ws == nil {
				continue
			}

			data, err := protocol.Encode(env)
			if err != nil {
				c.logf("Encode error: %v", err)
				c.errors <- fmt.Errorf("encode error: %w", err)
				continue
			}

			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logf("Write error: %v", err)
				c.errors <- fmt.Errorf("write error: %w", err)
				c.handleDisconnect(err)
				return
			}

			c.logf("→ SEND: Type=%s PayloadLen=%d", env.Type, len(env.Data))

		case <-c.shutdown:
			return
		}
	}
}

// handleDisconnect handles unexpected disconnection
func (c *Connection) handleDisconnect(cause error) {
	c.mu.Lock()
	wasConnected := c.connected
	c.connected = false
	if c.ws != nil {
		c.ws.Close()
		c.ws = nil
	}
	c.mu.Unlock()

	if !wasConnected {
		return
	}

	c.logf("Disconnected from server")

	disconnectErr := fmt.Errorf("disconnected from server: %w", cause)

	select {
	case c.stateChange <- ConnectionStateUpdate{State: StateTypeDisconnected, Err: disconnectErr}:
	default:
	}

	if c.autoReconnect {
		c.logf("Auto-reconnect enabled, starting reconnect loop")
		go c.reconnectLoop()
	}
}

// reconnectLoop attempts to reconnect with exponential backoff
func (c *Connection) reconnectLoop() {
	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	delay := c.reconnectDelay
	attempt := 1

	for {
		select {
		case <-c.shutdown:
			c.logf("Reconnect loop cancelled (shutdown)")
			return
		case <-time.After(delay):
			c.logf("Reconnect attempt %d to %s", attempt, c.serverURL)

			select {
			case c.stateChange <- ConnectionStateUpdate{State: StateTypeReconnecting, Attempt: attempt}:
			default:
			}

			if err := c.Connect(); err != nil {
				c.logf("Reconnect attempt %d failed: %v", attempt, err)

				delay = delay * 2
				if delay > c.maxReconnectDelay {
					delay = c.maxReconnectDelay
				}
				c.logf("Next reconnect attempt in %v", delay)
				attempt++
				continue
			}

			c.logf("Reconnected successfully after %d attempts", attempt)

			select {
			case c.stateChange <- ConnectionStateUpdate{State: StateTypeConnected}:
			default:
			}

			return
		}
	}
}

const (
	defaultPort     = "7070"
	defaultEndpoint = "/chat"
)

// parseServerURL normalizes a server address into a WebSocket URL. Bare
// "host" or "host:port" forms get the default port and endpoint; explicit
// ws:// and wss:// URLs pass through with only defaults filled in.
func parseServerURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("server address is empty")
	}

	if !strings.Contains(trimmed, "://") {
		host, port, err := splitHostPortWithDefault(trimmed, defaultPort)
		if err != nil {
			return "", err
		}
		u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, port), Path: defaultEndpoint}
		return u.String(), nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}

	if u.Host == "" {
		return "", errors.New("missing host in server address")
	}
	if u.Path == "" {
		u.Path = defaultEndpoint
	}

	return u.String(), nil
}

func splitHostPortWithDefault(hostPort, fallback string) (string, string, error) {
	hostPort = strings.TrimSpace(hostPort)
	if hostPort == "" {
		return "", "", errors.New("missing host in server address")
	}

	host, port, err := net.SplitHostPort(hostPort)
	if err == nil {
		return host, port, nil
	}

	var addrErr *net.AddrError
	if errors.As(err, &addrErr) && strings.Contains(strings.ToLower(addrErr.Err), "missing port") {
		host = hostPort
		if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
			host = strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
		}
		return host, fallback, nil
	}

	return "", "", err
}

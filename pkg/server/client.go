package server

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/pkg/protocol"
)

const sendBufferSize = 32

// wsConn is the subset of *websocket.Conn the client uses, extracted so
// tests can drive a client without a network connection.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one websocket connection. A client starts anonymous and
// gains a username after a successful login; only named clients receive
// fan-out traffic.
type Client struct {
	id     string
	conn   wsConn
	server *Server
	send   chan *protocol.Envelope
	log    zerolog.Logger

	mu   sync.Mutex
	name string

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn wsConn, s *Server) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		server: s,
		send:   make(chan *protocol.Envelope, sendBufferSize),
		log:    s.log.With().Str("session", id).Logger(),
		done:   make(chan struct{}),
	}
}

// Name returns the username claimed at login, or "" before login.
func (c *Client) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// Send queues an envelope for delivery. Envelopes are dropped when the
// client's buffer is full so one slow reader cannot stall fan-out.
func (c *Client) Send(env *protocol.Envelope) {
	select {
	case c.send <- env:
	case <-c.done:
	default:
		c.server.metrics.RecordEnvelopeDropped("slow_client")
		c.log.Warn().Str("type", env.Type).Msg("dropping envelope for slow client")
	}
}

// run starts the read and write pumps and blocks until the connection
// is gone.
func (c *Client) run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer c.close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}

		env, err := protocol.Decode(data)
		if err != nil {
			c.server.metrics.RecordEnvelopeDropped("malformed")
			c.log.Warn().Err(err).Msg("dropping malformed envelope")
			continue
		}

		c.server.metrics.RecordEnvelopeReceived(env.Type)
		if err := c.handleEnvelope(env); err != nil {
			c.log.Warn().Err(err).Str("type", env.Type).Msg("failed to handle envelope")
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case env := <-c.send:
			data, err := protocol.Encode(env)
			if err != nil {
				c.log.Error().Err(err).Msg("failed to encode envelope")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}
		}
	}
}

func (c *Client) handleEnvelope(env *protocol.Envelope) error {
	switch env.Type {
	case protocol.TypeLogin:
		return c.handleLogin(env)
	case protocol.TypeHistory:
		return c.handleHistory(env)
	case protocol.TypeMessage:
		return c.handleMessage(env)
	default:
		// join, leave and error only flow server to client.
		c.server.metrics.RecordEnvelopeDropped("unexpected_type")
		return nil
	}
}

func (c *Client) handleLogin(env *protocol.Envelope) error {
	req, err := protocol.DecodeLoginRequest(env)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.server.metrics.RecordLogin("rejected")
		return c.sendError("username must not be empty")
	}

	ctx := context.Background()
	if err := c.server.Login(ctx, c, name); err != nil {
		c.server.metrics.RecordLogin("rejected")
		if errors.Is(err, ErrNameTaken) {
			return c.sendError(err.Error())
		}
		return err
	}

	c.server.metrics.RecordLogin("ok")
	c.log.Info().Str("user", name).Msg("logged in")

	resp, err := c.server.loginSnapshot(ctx, name)
	if err != nil {
		return err
	}

	out, err := protocol.NewEnvelope(protocol.TypeLogin, resp)
	if err != nil {
		return err
	}
	c.Send(out)
	return nil
}

func (c *Client) handleHistory(env *protocol.Envelope) error {
	req, err := protocol.DecodeHistoryRequest(env)
	if err != nil {
		return err
	}

	// The request names the two thread participants; an empty Room
	// asks for the public room.
	key := (&protocol.Message{Author: req.User, Recipient: req.Room}).ThreadKey()

	messages, err := c.server.storage.History(context.Background(), key, c.server.cfg.History.Size)
	if err != nil {
		return err
	}

	out, err := protocol.NewEnvelope(protocol.TypeHistory, protocol.HistoryResponse{Messages: messages})
	if err != nil {
		return err
	}
	c.Send(out)
	return nil
}

func (c *Client) handleMessage(env *protocol.Envelope) error {
	msg, err := protocol.DecodeMessage(env)
	if err != nil {
		return err
	}
	if c.Name() == "" {
		c.server.metrics.RecordEnvelopeDropped("unauthenticated")
		return c.sendError("log in before sending messages")
	}

	msg.Time = time.Now().Unix()
	return c.server.SaveMessage(context.Background(), msg)
}

func (c *Client) sendError(text string) error {
	env, err := protocol.NewEnvelope(protocol.TypeError, protocol.ErrorResponse{Message: text})
	if err != nil {
		return err
	}
	c.Send(env)
	return nil
}

// close tears down the connection and releases the username.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()

		if name := c.Name(); name != "" {
			if err := c.server.Logout(context.Background(), name); err != nil {
				c.log.Warn().Err(err).Str("user", name).Msg("logout failed")
			}
		}
		c.server.removeClient(c)
	})
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/pkg/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server accepts websocket connections and fans chat traffic out to
// them. Delivery always goes through the storage pub/sub bus, so
// multiple instances behind the same redis see each other's events.
type Server struct {
	cfg     TOMLConfig
	storage Storage
	metrics *Metrics
	log     zerolog.Logger

	mu      sync.Mutex
	clients map[*Client]struct{}

	httpServer *http.Server
}

func NewServer(cfg TOMLConfig, storage Storage, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		storage: storage,
		metrics: serverMetrics(),
		log:     logger.With().Str("component", "server").Logger(),
		clients: make(map[*Client]struct{}),
	}
}

// Start subscribes to the pub/sub bus and begins consuming events. It
// must be called before clients are attached.
func (s *Server) Start(ctx context.Context) error {
	events, err := s.storage.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to start event consumer: %w", err)
	}

	go func() {
		for ev := range events {
			s.consume(ev)
		}
		s.log.Info().Msg("event consumer stopped")
	}()

	return nil
}

// Run starts the event consumer and serves the websocket endpoint (and
// /metrics when enabled) until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Server.Endpoint, s.handleWebSocket)
	if s.cfg.Server.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
	}

	s.httpServer = &http.Server{
		Addr:    s.cfg.Server.ListenAddress,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("address", s.cfg.Server.ListenAddress).
			Str("endpoint", s.cfg.Server.Endpoint).
			Msg("listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}

	c := newClient(conn, s)
	s.addClient(c)
	s.metrics.RecordConnectionOpened()
	s.log.Debug().Str("session", c.id).Str("remote", r.RemoteAddr).Msg("connected")

	go func() {
		c.run()
		s.metrics.RecordConnectionClosed()
		s.log.Debug().Str("session", c.id).Msg("disconnected")
	}()
}

func (s *Server) addClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) removeClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// Login claims the username for the client and announces the join.
func (s *Server) Login(ctx context.Context, c *Client, name string) error {
	if err := s.storage.AddUser(ctx, name); err != nil {
		return err
	}
	c.setName(name)

	if err := s.storage.Publish(ctx, JoinChannel, []byte(name)); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish join")
	}
	return nil
}

// Logout releases the username and announces the leave.
func (s *Server) Logout(ctx context.Context, name string) error {
	if err := s.storage.RemoveUser(ctx, name); err != nil {
		return err
	}

	if err := s.storage.Publish(ctx, LeaveChannel, []byte(name)); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish leave")
	}
	return nil
}

// SaveMessage persists a message and publishes it for fan-out.
func (s *Server) SaveMessage(ctx context.Context, msg *protocol.Message) error {
	if err := s.storage.SaveMessage(ctx, msg); err != nil {
		return err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.storage.Publish(ctx, MessageChannel, data)
}

// loginSnapshot assembles the full state a freshly logged-in client
// needs: everyone online, the user's rooms and the public history.
func (s *Server) loginSnapshot(ctx context.Context, name string) (*protocol.LoginResponse, error) {
	users, err := s.storage.ActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	rooms, err := s.storage.Rooms(ctx, name)
	if err != nil {
		return nil, err
	}
	messages, err := s.storage.History(ctx, "", s.cfg.History.Size)
	if err != nil {
		return nil, err
	}

	return &protocol.LoginResponse{
		Username: name,
		Rooms:    rooms,
		Users:    users,
		Messages: messages,
	}, nil
}

func (s *Server) consume(ev Event) {
	switch ev.Channel {
	case JoinChannel:
		s.broadcastUserEvent(protocol.TypeJoin, string(ev.Data))
	case LeaveChannel:
		s.broadcastUserEvent(protocol.TypeLeave, string(ev.Data))
	case MessageChannel:
		msg := new(protocol.Message)
		if err := json.Unmarshal(ev.Data, msg); err != nil {
			s.log.Warn().Err(err).Msg("dropping unreadable message event")
			return
		}
		s.deliverMessage(msg, ev.Data)
	default:
		s.log.Warn().Str("channel", ev.Channel).Msg("event on unknown channel")
	}
}

func (s *Server) broadcastUserEvent(envType, name string) {
	env, err := protocol.NewEnvelope(envType, protocol.UserEvent{Name: name})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build user event")
		return
	}

	delivered := 0
	for _, c := range s.namedClients() {
		c.Send(env)
		delivered++
	}
	s.metrics.RecordBroadcastFanout(delivered)
}

// deliverMessage routes a chat message: public messages go to every
// logged-in client, direct messages only to the author and recipient.
func (s *Server) deliverMessage(msg *protocol.Message, raw []byte) {
	env := &protocol.Envelope{Type: protocol.TypeMessage, Data: raw}

	if msg.Recipient == "" {
		delivered := 0
		for _, c := range s.namedClients() {
			c.Send(env)
			delivered++
		}
		s.metrics.RecordBroadcastFanout(delivered)
		s.metrics.RecordMessageDelivered("public")
		return
	}

	for _, c := range s.namedClients() {
		if name := c.Name(); name == msg.Author || name == msg.Recipient {
			c.Send(env)
		}
	}
	s.metrics.RecordMessageDelivered("direct")
}

// namedClients snapshots the logged-in clients outside the lock.
func (s *Server) namedClients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		if c.Name() != "" {
			out = append(out, c)
		}
	}
	return out
}

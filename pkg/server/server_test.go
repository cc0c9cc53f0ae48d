package server

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/pkg/protocol"
)

// stubConn satisfies wsConn for clients that are driven directly
// through handleEnvelope instead of a real websocket.
type stubConn struct{}

func (stubConn) ReadMessage() (int, []byte, error) { select {} }
func (stubConn) WriteMessage(int, []byte) error    { return nil }
func (stubConn) Close() error                      { return nil }

func newTestServer(t *testing.T) (*Server, *MemoryStorage) {
	t.Helper()

	storage := NewMemoryStorage()
	s := NewServer(DefaultTOMLConfig(), storage, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.Start(ctx))

	return s, storage
}

func attachClient(s *Server) *Client {
	c := newClient(stubConn{}, s)
	s.addClient(c)
	return c
}

func mustEnvelope(t *testing.T, envType string, payload interface{}) *protocol.Envelope {
	t.Helper()
	env, err := protocol.NewEnvelope(envType, payload)
	require.NoError(t, err)
	return env
}

// recvByType drains the client's outgoing queue until an envelope of
// the wanted type arrives.
func recvByType(t *testing.T, c *Client, envType string) *protocol.Envelope {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case env := <-c.send:
			if env.Type == envType {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q envelope", envType)
			return nil
		}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func login(t *testing.T, c *Client, name string) *protocol.LoginResponse {
	t.Helper()

	require.NoError(t, c.handleEnvelope(mustEnvelope(t, protocol.TypeLogin, protocol.LoginRequest{Name: name})))
	resp, err := protocol.DecodeLoginResponse(recvByType(t, c, protocol.TypeLogin))
	require.NoError(t, err)
	return resp
}

func TestLoginGrantsSnapshot(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachClient(s)

	resp := login(t, c, "alice")

	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{"alice"}, resp.Users)
	assert.Equal(t, []string{""}, resp.Rooms)
	assert.Empty(t, resp.Messages)
	assert.Equal(t, "alice", c.Name())
}

func TestLoginAnnouncedToOthers(t *testing.T) {
	s, _ := newTestServer(t)
	a := attachClient(s)
	b := attachClient(s)

	login(t, a, "alice")
	login(t, b, "bob")

	joined, err := protocol.DecodeUserEvent(recvByType(t, a, protocol.TypeJoin))
	require.NoError(t, err)
	// alice sees her own join first, then bob's
	if joined.Name == "alice" {
		joined, err = protocol.DecodeUserEvent(recvByType(t, a, protocol.TypeJoin))
		require.NoError(t, err)
	}
	assert.Equal(t, "bob", joined.Name)
}

func TestLoginDuplicateNameRejected(t *testing.T) {
	s, storage := newTestServer(t)
	a := attachClient(s)
	b := attachClient(s)

	login(t, a, "alice")

	require.NoError(t, b.handleEnvelope(mustEnvelope(t, protocol.TypeLogin, protocol.LoginRequest{Name: "alice"})))
	errResp, err := protocol.DecodeErrorResponse(recvByType(t, b, protocol.TypeError))
	require.NoError(t, err)
	assert.Contains(t, errResp.Message, "already logged in")
	assert.Empty(t, b.Name())

	users, err := storage.ActiveUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}

func TestLoginEmptyNameRejected(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachClient(s)

	require.NoError(t, c.handleEnvelope(mustEnvelope(t, protocol.TypeLogin, protocol.LoginRequest{Name: "   "})))
	errResp, err := protocol.DecodeErrorResponse(recvByType(t, c, protocol.TypeError))
	require.NoError(t, err)
	assert.Contains(t, errResp.Message, "must not be empty")
}

func TestPublicMessageBroadcastToAll(t *testing.T) {
	s, _ := newTestServer(t)
	a := attachClient(s)
	b := attachClient(s)
	login(t, a, "alice")
	login(t, b, "bob")

	require.NoError(t, a.handleEnvelope(mustEnvelope(t, protocol.TypeMessage, protocol.Message{
		Author: "alice",
		Body:   "hello everyone",
	})))

	for _, c := range []*Client{a, b} {
		msg, err := protocol.DecodeMessage(recvByType(t, c, protocol.TypeMessage))
		require.NoError(t, err)
		assert.Equal(t, "alice", msg.Author)
		assert.Equal(t, "hello everyone", msg.Body)
		assert.NotZero(t, msg.Time, "server should stamp the message")
	}
}

func TestDirectMessageOnlyReachesParticipants(t *testing.T) {
	s, _ := newTestServer(t)
	a := attachClient(s)
	b := attachClient(s)
	c := attachClient(s)
	login(t, a, "alice")
	login(t, b, "bob")
	login(t, c, "carol")

	drain(a)
	drain(b)
	drain(c)

	require.NoError(t, a.handleEnvelope(mustEnvelope(t, protocol.TypeMessage, protocol.Message{
		Author:    "alice",
		Recipient: "bob",
		Body:      "just for you",
	})))

	for _, participant := range []*Client{a, b} {
		msg, err := protocol.DecodeMessage(recvByType(t, participant, protocol.TypeMessage))
		require.NoError(t, err)
		assert.Equal(t, "just for you", msg.Body)
	}

	// Delivery for this event already completed, so any message in
	// carol's queue means she was not skipped. Join broadcasts from
	// the logins may still be queued and are fine.
	for {
		select {
		case env := <-c.send:
			if env.Type == protocol.TypeMessage {
				t.Fatalf("bystander received a direct message")
			}
		default:
			return
		}
	}
}

func TestMessageBeforeLoginRejected(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachClient(s)

	require.NoError(t, c.handleEnvelope(mustEnvelope(t, protocol.TypeMessage, protocol.Message{
		Author: "ghost",
		Body:   "boo",
	})))

	errResp, err := protocol.DecodeErrorResponse(recvByType(t, c, protocol.TypeError))
	require.NoError(t, err)
	assert.Contains(t, errResp.Message, "log in")
}

func TestHistoryRequestReturnsNewestFirst(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachClient(s)
	login(t, c, "alice")

	ctx := context.Background()
	require.NoError(t, s.SaveMessage(ctx, &protocol.Message{Author: "alice", Body: "first"}))
	require.NoError(t, s.SaveMessage(ctx, &protocol.Message{Author: "alice", Body: "second"}))
	drain(c)

	require.NoError(t, c.handleEnvelope(mustEnvelope(t, protocol.TypeHistory, protocol.HistoryRequest{
		User: "alice",
		Room: "",
	})))

	resp, err := protocol.DecodeHistoryResponse(recvByType(t, c, protocol.TypeHistory))
	require.NoError(t, err)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "second", resp.Messages[0].Body)
	assert.Equal(t, "first", resp.Messages[1].Body)
}

func TestHistoryRequestForDirectThread(t *testing.T) {
	s, _ := newTestServer(t)
	c := attachClient(s)
	login(t, c, "bob")

	ctx := context.Background()
	require.NoError(t, s.SaveMessage(ctx, &protocol.Message{Author: "alice", Recipient: "bob", Body: "psst"}))
	require.NoError(t, s.SaveMessage(ctx, &protocol.Message{Author: "alice", Body: "public"}))
	drain(c)

	// Bob asks for his thread with alice; the public message must not
	// leak into it.
	require.NoError(t, c.handleEnvelope(mustEnvelope(t, protocol.TypeHistory, protocol.HistoryRequest{
		User: "bob",
		Room: "alice",
	})))

	resp, err := protocol.DecodeHistoryResponse(recvByType(t, c, protocol.TypeHistory))
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "psst", resp.Messages[0].Body)
}

func TestDisconnectReleasesNameAndAnnouncesLeave(t *testing.T) {
	s, storage := newTestServer(t)
	a := attachClient(s)
	b := attachClient(s)
	login(t, a, "alice")
	login(t, b, "bob")
	drain(a)

	b.close()

	left, err := protocol.DecodeUserEvent(recvByType(t, a, protocol.TypeLeave))
	require.NoError(t, err)
	assert.Equal(t, "bob", left.Name)

	users, err := storage.ActiveUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, users)
}

func TestDirectMessageRecordsRoomsForBothSides(t *testing.T) {
	s, storage := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, s.SaveMessage(ctx, &protocol.Message{Author: "alice", Recipient: "bob", Body: "hi"}))

	rooms, err := storage.Rooms(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "bob"}, rooms)

	rooms, err = storage.Rooms(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "alice"}, rooms)
}

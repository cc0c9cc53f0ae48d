package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope type constants. The set is closed: an envelope with any other
// Type value is malformed.
const (
	TypeLogin   = "login"
	TypeMessage = "message"
	TypeJoin    = "join"
	TypeLeave   = "leave"
	TypeHistory = "history"
	TypeError   = "error"
)

// ErrMalformedEnvelope is returned when a payload is not a structurally
// valid envelope: missing or unknown Type, or Data that does not match the
// shape implied by Type. Malformed envelopes are dropped by the receiver;
// the connection stays open.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Envelope is the top-level wire unit. Every WebSocket text message carries
// exactly one envelope; the transport guarantees whole-message framing.
type Envelope struct {
	Type string
	Data json.RawMessage
}

// Message is a chat message, used in both directions. An empty Recipient
// means a public-room broadcast; otherwise the message is a direct message
// between Author and Recipient. Time is set by the server when the message
// is stored.
type Message struct {
	Author    string
	Recipient string `json:",omitempty"`
	Body      string
	Time      int64 `json:",omitempty"`
}

// ThreadKey returns the canonical storage key for the thread this message
// belongs to: empty for the public room, otherwise the two participant
// names joined in lexicographic order so both directions of a direct
// thread share one key.
func (m *Message) ThreadKey() string {
	if m.Recipient == "" {
		return ""
	}
	if m.Author < m.Recipient {
		return m.Author + ":" + m.Recipient
	}
	return m.Recipient + ":" + m.Author
}

// LoginRequest (client → server) asks for a username. The server is
// authoritative: the granted identity arrives in LoginResponse and may
// differ from the requested name.
type LoginRequest struct {
	Name string
}

// LoginResponse (server → client) carries the assigned identity and a full
// snapshot of server state. Messages are ordered newest-first.
type LoginResponse struct {
	Username string
	Rooms    []string
	Users    []string
	Messages []*Message
}

// UserEvent (server → client) announces a join or leave.
type UserEvent struct {
	Name string
}

// HistoryRequest (client → server) asks for the message history of a room.
type HistoryRequest struct {
	User string
	Room string
}

// HistoryResponse (server → client) carries a room's history, newest-first.
type HistoryResponse struct {
	Messages []*Message
}

// ErrorResponse (server → client) carries a human-readable error message.
type ErrorResponse struct {
	Message string
}

// validTypes maps each envelope type to whether a Data payload is required.
var validTypes = map[string]bool{
	TypeLogin:   true,
	TypeMessage: true,
	TypeJoin:    true,
	TypeLeave:   true,
	TypeHistory: true,
	TypeError:   true,
}

// NewEnvelope marshals payload and wraps it in an envelope of the given type.
func NewEnvelope(envType string, payload interface{}) (*Envelope, error) {
	if !validTypes[envType] {
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEnvelope, envType)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", envType, err)
	}

	return &Envelope{Type: envType, Data: data}, nil
}

// Encode serializes an envelope for the wire.
func Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Decode parses an envelope from the wire. It validates the type against
// the closed set but leaves the payload opaque; callers decode Data with
// the typed helpers below once they have matched on Type.
func Decode(data []byte) (*Envelope, error) {
	env := new(Envelope)
	if err := json.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	if !validTypes[env.Type] {
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEnvelope, env.Type)
	}

	return env, nil
}

// decodePayload unmarshals env.Data into v, converting any failure into
// ErrMalformedEnvelope.
func decodePayload(env *Envelope, v interface{}) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s envelope without payload", ErrMalformedEnvelope, env.Type)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: bad %s payload: %v", ErrMalformedEnvelope, env.Type, err)
	}
	return nil
}

// DecodeLoginRequest decodes the payload of a client login envelope.
func DecodeLoginRequest(env *Envelope) (*LoginRequest, error) {
	req := new(LoginRequest)
	if err := decodePayload(env, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeLoginResponse decodes the payload of a server login envelope.
func DecodeLoginResponse(env *Envelope) (*LoginResponse, error) {
	resp := new(LoginResponse)
	if err := decodePayload(env, resp); err != nil {
		return nil, err
	}
	if resp.Username == "" {
		return nil, fmt.Errorf("%w: login response without username", ErrMalformedEnvelope)
	}
	return resp, nil
}

// DecodeMessage decodes the payload of a message envelope.
func DecodeMessage(env *Envelope) (*Message, error) {
	msg := new(Message)
	if err := decodePayload(env, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeUserEvent decodes the payload of a join or leave envelope.
func DecodeUserEvent(env *Envelope) (*UserEvent, error) {
	ev := new(UserEvent)
	if err := decodePayload(env, ev); err != nil {
		return nil, err
	}
	if ev.Name == "" {
		return nil, fmt.Errorf("%w: %s envelope without name", ErrMalformedEnvelope, env.Type)
	}
	return ev, nil
}

// DecodeHistoryRequest decodes the payload of a client history envelope.
func DecodeHistoryRequest(env *Envelope) (*HistoryRequest, error) {
	req := new(HistoryRequest)
	if err := decodePayload(env, req); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeHistoryResponse decodes the payload of a server history envelope.
func DecodeHistoryResponse(env *Envelope) (*HistoryResponse, error) {
	resp := new(HistoryResponse)
	if err := decodePayload(env, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DecodeErrorResponse decodes the payload of an error envelope.
func DecodeErrorResponse(env *Envelope) (*ErrorResponse, error) {
	resp := new(ErrorResponse)
	if err := decodePayload(env, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

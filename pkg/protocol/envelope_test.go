package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeLoginRequest(t *testing.T) {
	env, err := NewEnvelope(TypeLogin, &LoginRequest{Name: "alice"})
	require.NoError(t, err)

	data, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, TypeLogin, decoded.Type)

	req, err := DecodeLoginRequest(decoded)
	require.NoError(t, err)
	assert.Equal(t, "alice", req.Name)
}

func TestDecodeLoginResponse(t *testing.T) {
	env, err := NewEnvelope(TypeLogin, &LoginResponse{
		Username: "alice",
		Rooms:    []string{"", "bob"},
		Users:    []string{"alice", "bob"},
		Messages: []*Message{
			{Author: "bob", Body: "m2"},
			{Author: "alice", Body: "m1"},
		},
	})
	require.NoError(t, err)

	resp, err := DecodeLoginResponse(env)
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, []string{"", "bob"}, resp.Rooms)
	assert.Len(t, resp.Messages, 2)
	assert.Equal(t, "m2", resp.Messages[0].Body)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"Type":"shutdown","Data":{}}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"Data":{"Body":"hi"}}`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := Decode([]byte(`{"Type":"message"`))
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodePayloadShapeMismatch(t *testing.T) {
	env := &Envelope{Type: TypeMessage, Data: json.RawMessage(`"not an object"`)}
	_, err := DecodeMessage(env)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeEmptyPayload(t *testing.T) {
	env := &Envelope{Type: TypeJoin}
	_, err := DecodeUserEvent(env)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeUserEventRequiresName(t *testing.T) {
	env, err := NewEnvelope(TypeLeave, &UserEvent{})
	require.NoError(t, err)

	_, err = DecodeUserEvent(env)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestDecodeLoginResponseRequiresUsername(t *testing.T) {
	env, err := NewEnvelope(TypeLogin, &LoginResponse{})
	require.NoError(t, err)

	_, err = DecodeLoginResponse(env)
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestNewEnvelopeRejectsUnknownType(t *testing.T) {
	_, err := NewEnvelope("ping", struct{}{})
	assert.ErrorIs(t, err, ErrMalformedEnvelope)
}

func TestMessageRecipientOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(&Message{Author: "alice", Body: "hi"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Recipient")
}

func TestThreadKey(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"public", Message{Author: "alice", Body: "hi"}, ""},
		{"direct ordered", Message{Author: "alice", Recipient: "bob"}, "alice:bob"},
		{"direct reversed", Message{Author: "bob", Recipient: "alice"}, "alice:bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.ThreadKey())
		})
	}
}

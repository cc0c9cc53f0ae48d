package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerURLHostPort(t *testing.T) {
	u, err := parseServerURL("example.com:1234")
	require.NoError(t, err)
	assert.Equal(t, "ws://example.com:1234/chat", u)
}

func TestParseServerURLDefaultPort(t *testing.T) {
	u, err := parseServerURL("example.com")
	require.NoError(t, err)
	assert.Equal(t, "ws://example.com:7070/chat", u)
}

func TestParseServerURLExplicitScheme(t *testing.T) {
	u, err := parseServerURL("wss://example.com/ws")
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/ws", u)
}

func TestParseServerURLDefaultEndpoint(t *testing.T) {
	u, err := parseServerURL("ws://example.com:7070")
	require.NoError(t, err)
	assert.Equal(t, "ws://example.com:7070/chat", u)
}

func TestParseServerURLRejectsUnsupportedScheme(t *testing.T) {
	_, err := parseServerURL("http://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestParseServerURLRejectsEmpty(t *testing.T) {
	_, err := parseServerURL("   ")
	assert.Error(t, err)
}

func TestParseServerURLIPv6(t *testing.T) {
	u, err := parseServerURL("[::1]:9000")
	require.NoError(t, err)
	assert.Equal(t, "ws://[::1]:9000/chat", u)
}

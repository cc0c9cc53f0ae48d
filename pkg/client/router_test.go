package client

import (
	"testing"

	"github.com/parley-chat/parley/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRouteRoomPublic(t *testing.T) {
	msg := &protocol.Message{Author: "bob", Body: "hi"}
	assert.Equal(t, "", RouteRoom(msg, "alice"))
	// Even the author's own broadcast routes to the public room
	assert.Equal(t, "", RouteRoom(msg, "bob"))
}

func TestRouteRoomDirect(t *testing.T) {
	msg := &protocol.Message{Author: "bob", Recipient: "alice", Body: "hey"}

	// The recipient files it under the sender
	assert.Equal(t, "bob", RouteRoom(msg, "alice"))

	// The author files it under the recipient
	assert.Equal(t, "alice", RouteRoom(msg, "bob"))

	// A bystander also files it under the named recipient
	assert.Equal(t, "alice", RouteRoom(msg, "carol"))
}

// TestRouteRoomCounterpart checks the symmetry invariant: both participants
// of a direct thread resolve to the *other* party's identity, never their
// own.
func TestRouteRoomCounterpart(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		author := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "author")
		recipient := rapid.StringMatching(`[a-z]{1,8}`).Draw(t, "recipient")
		if author == recipient {
			t.Skip("self-messaging is not a two-party thread")
		}

		msg := &protocol.Message{Author: author, Recipient: recipient, Body: "x"}

		fromAuthor := RouteRoom(msg, author)
		fromRecipient := RouteRoom(msg, recipient)

		if fromAuthor != recipient {
			t.Fatalf("author resolved %q, want counterpart %q", fromAuthor, recipient)
		}
		if fromRecipient != author {
			t.Fatalf("recipient resolved %q, want counterpart %q", fromRecipient, author)
		}
		if fromAuthor == author || fromRecipient == recipient {
			t.Fatalf("a participant resolved to their own identity")
		}
	})
}

package client

import (
	"github.com/parley-chat/parley/pkg/protocol"
)

// RouteRoom computes the room key a chat message belongs to, from the point
// of view of the given local identity.
//
// A message without a recipient is a public-room broadcast and always files
// under the public key (""). A direct message files under the *other*
// participant: the author when we are the recipient, the recipient when we
// are the author or a bystander. Both ends of a direct thread therefore
// converge on the same key regardless of who is viewing.
func RouteRoom(msg *protocol.Message, self string) string {
	if msg.Recipient == "" {
		return ""
	}

	if self == msg.Recipient {
		return msg.Author
	}

	return msg.Recipient
}

package client

import (
	"fmt"

	"github.com/parley-chat/parley/pkg/protocol"
)

// PublicRoomName is how the public room (key "") is shown to the user.
const PublicRoomName = "Public room"

// DisplayRoomName returns the user-visible name for a room key.
func DisplayRoomName(key string) string {
	if key == "" {
		return PublicRoomName
	}
	return key
}

// FormatMessage renders one transcript line. The local user's own messages
// are attributed to "I" instead of their username.
func FormatMessage(msg *protocol.Message, self string) string {
	author := msg.Author
	if author == self {
		author = "I"
	}
	return fmt.Sprintf("%s: %s", author, msg.Body)
}

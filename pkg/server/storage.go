package server

import (
	"context"
	"errors"

	"github.com/parley-chat/parley/pkg/protocol"
)

// Pub/sub channels connecting server instances. Every login, logout and
// chat message is published so that peers behind the same redis can fan
// out to their own connected clients.
const (
	JoinChannel    = "join"
	LeaveChannel   = "leave"
	MessageChannel = "message"
)

// ErrNameTaken is returned by AddUser when the username is already
// claimed by an active session.
var ErrNameTaken = errors.New("user with this name already logged in")

// Event is a single pub/sub notification. Data is the raw payload the
// publisher sent: a bare username for JoinChannel/LeaveChannel, a JSON
// message for MessageChannel.
type Event struct {
	Channel string
	Data    []byte
}

// Storage persists chat state shared between server instances: the set
// of active usernames, per-thread message history, the direct-thread
// membership of each user, and the pub/sub fan-out bus.
//
// Message lists are newest-first: SaveMessage prepends, History returns
// the most recent messages starting with the newest.
type Storage interface {
	// AddUser claims a username, returning ErrNameTaken if it is
	// already active.
	AddUser(ctx context.Context, name string) error
	// RemoveUser releases a username. Unknown names are a no-op.
	RemoveUser(ctx context.Context, name string) error
	// ActiveUsers lists all currently claimed usernames.
	ActiveUsers(ctx context.Context) ([]string, error)

	// SaveMessage appends a message to its thread's history and, for
	// direct messages, records the thread on both participants.
	SaveMessage(ctx context.Context, msg *protocol.Message) error
	// Rooms lists the room keys known for a user: the public room ""
	// plus the counterpart of every direct thread, sorted.
	Rooms(ctx context.Context, user string) ([]string, error)
	// History returns up to size messages for a thread key, newest
	// first. The empty key is the public room.
	History(ctx context.Context, threadKey string, size int) ([]*protocol.Message, error)

	// Publish sends an event to all subscribers, including this
	// instance's own subscription.
	Publish(ctx context.Context, channel string, data []byte) error
	// Subscribe returns a channel of events published on the join,
	// leave and message channels. The channel closes when ctx is
	// cancelled or the underlying subscription fails.
	Subscribe(ctx context.Context) (<-chan Event, error)

	Close() error
}

package client

import "time"

// Container and element identifiers understood by the presentation layer.
const (
	RoomList    = "rooms"
	UserList    = "users"
	HistoryList = "history"

	LoginPanel = "login"
	ChatPanel  = "chat"
)

// ListItem is one renderable entry in a list container. Key identifies the
// item to later SetSelected/MarkUnread calls; Text is what the user sees.
// The two are kept separate so the UI never has to re-derive identity from
// rendered text (the public room renders as "Public room" but keys as "").
type ListItem struct {
	Key  string
	Text string
}

// Ports is the capability surface the dispatcher uses to reflect protocol
// state into a UI. The dispatcher calls these synchronously from its event
// loop; implementations must not block.
type Ports interface {
	// RenderList replaces the container's contents with items.
	RenderList(container string, items []ListItem)

	// RenderAppend appends one item to the container.
	RenderAppend(container string, item ListItem)

	// SetSelected marks the item with the given key as the container's
	// single selection.
	SetSelected(container, key string)

	// MarkUnread flags the item with the given key as having unseen
	// activity.
	MarkUnread(container, key string)

	// ClearUnread removes the unseen-activity flag from the item.
	ClearUnread(container, key string)

	// SetVisible shows or hides a top-level element.
	SetVisible(element string, visible bool)

	// Notify surfaces a transient notification that clears itself after
	// the given duration.
	Notify(text string, duration time.Duration)
}

package ui

import (
	"time"

	"github.com/parley-chat/parley/pkg/client"
)

// surface is the concrete implementation of the presentation ports. It is
// heap-allocated and shared by pointer between the dispatcher and the
// bubbletea model, so the model can be copied by value on every Update
// without losing the state the dispatcher writes into.
//
// All mutations happen on the bubbletea update goroutine.
type surface struct {
	rooms      []client.ListItem
	users      []client.ListItem
	transcript []client.ListItem

	unread       map[string]bool
	selectedRoom string

	loginVisible bool
	chatVisible  bool

	notice    string
	noticeFor time.Duration
	noticeSeq int

	// transcriptDirty tells the model the viewport content must be
	// rebuilt; transcriptAppended additionally requests a scroll to the
	// newest entry.
	transcriptDirty    bool
	transcriptAppended bool
}

func newSurface() *surface {
	return &surface{
		unread:       make(map[string]bool),
		loginVisible: true,
	}
}

func (s *surface) RenderList(container string, items []client.ListItem) {
	switch container {
	case client.RoomList:
		s.rooms = items
		s.unread = make(map[string]bool)
	case client.UserList:
		s.users = items
	case client.HistoryList:
		s.transcript = items
		s.transcriptDirty = true
	}
}

func (s *surface) RenderAppend(container string, item client.ListItem) {
	switch container {
	case client.RoomList:
		s.rooms = append(s.rooms, item)
	case client.UserList:
		s.users = append(s.users, item)
	case client.HistoryList:
		s.transcript = append(s.transcript, item)
		s.transcriptDirty = true
		s.transcriptAppended = true
	}
}

func (s *surface) SetSelected(container, key string) {
	if container == client.RoomList {
		s.selectedRoom = key
	}
}

func (s *surface) MarkUnread(container, key string) {
	if container == client.RoomList {
		s.unread[key] = true
	}
}

func (s *surface) ClearUnread(container, key string) {
	if container == client.RoomList {
		delete(s.unread, key)
	}
}

func (s *surface) SetVisible(element string, visible bool) {
	switch element {
	case client.LoginPanel:
		s.loginVisible = visible
	case client.ChatPanel:
		s.chatVisible = visible
	}
}

func (s *surface) Notify(text string, duration time.Duration) {
	s.notice = text
	s.noticeFor = duration
	s.noticeSeq++
}

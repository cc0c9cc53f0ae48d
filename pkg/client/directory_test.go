package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceAllDiscardsPreviousState(t *testing.T) {
	d := NewDirectory()
	d.ReplaceAll([]string{"", "bob"}, []string{"alice"})
	d.MarkUnread("bob")

	d.ReplaceAll([]string{""}, []string{"carol"})

	assert.Equal(t, []RoomEntry{{Key: ""}}, d.Rooms())
	assert.Equal(t, []string{"carol"}, d.Users())

	_, ok := d.Lookup("bob")
	assert.False(t, ok)
}

func TestEnsureRoomIdempotent(t *testing.T) {
	d := NewDirectory()

	first, created := d.EnsureRoom("bob")
	require.True(t, created)

	second, created := d.EnsureRoom("bob")
	assert.False(t, created)
	assert.Same(t, first, second)
	assert.Len(t, d.Rooms(), 1)
}

func TestEnsureRoomPreservesUnread(t *testing.T) {
	d := NewDirectory()
	d.EnsureRoom("bob")
	d.MarkUnread("bob")

	d.EnsureRoom("bob")

	entry, ok := d.Lookup("bob")
	require.True(t, ok)
	assert.True(t, entry.Unread)
}

func TestUnreadMarkAndClear(t *testing.T) {
	d := NewDirectory()
	d.ReplaceAll([]string{"", "bob"}, nil)

	d.MarkUnread("bob")
	entry, _ := d.Lookup("bob")
	assert.True(t, entry.Unread)

	d.ClearUnread("bob")
	entry, _ = d.Lookup("bob")
	assert.False(t, entry.Unread)
}

func TestUnreadUnknownKeyIsNoop(t *testing.T) {
	d := NewDirectory()
	d.MarkUnread("ghost")
	d.ClearUnread("ghost")
	assert.Empty(t, d.Rooms())
}

func TestAddUserDoesNotDeduplicate(t *testing.T) {
	d := NewDirectory()
	d.AddUser("bob")
	d.AddUser("bob")

	assert.Equal(t, []string{"bob", "bob"}, d.Users())
}

func TestRemoveUser(t *testing.T) {
	d := NewDirectory()
	d.ReplaceAll(nil, []string{"alice", "bob", "bob"})

	d.RemoveUser("bob")
	assert.Equal(t, []string{"alice", "bob"}, d.Users())

	// Unknown names are a silent no-op
	d.RemoveUser("ghost")
	assert.Equal(t, []string{"alice", "bob"}, d.Users())
}

func TestReplaceAllDropsDuplicateRoomKeys(t *testing.T) {
	d := NewDirectory()
	d.ReplaceAll([]string{"", "bob", "bob"}, nil)

	assert.Len(t, d.Rooms(), 2)
}

func TestSnapshotsAreCopies(t *testing.T) {
	d := NewDirectory()
	d.ReplaceAll([]string{""}, []string{"alice"})

	rooms := d.Rooms()
	rooms[0].Unread = true
	entry, _ := d.Lookup("")
	assert.False(t, entry.Unread)

	users := d.Users()
	users[0] = "mallory"
	assert.Equal(t, []string{"alice"}, d.Users())
}

package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestState(t *testing.T) *State {
	t.Helper()

	state, err := OpenState(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state
}

func TestStateUsernameRoundTrip(t *testing.T) {
	state := openTestState(t)

	assert.Equal(t, "", state.Username())

	require.NoError(t, state.SetUsername("alice"))
	assert.Equal(t, "alice", state.Username())
}

func TestStateActiveRoomDistinguishesUnsetFromPublic(t *testing.T) {
	state := openTestState(t)

	_, ok := state.ActiveRoom()
	assert.False(t, ok, "fresh state should have no selection")

	// The empty string is a real selection: the public room
	require.NoError(t, state.SetActiveRoom(""))
	room, ok := state.ActiveRoom()
	require.True(t, ok)
	assert.Equal(t, "", room)

	require.NoError(t, state.SetActiveRoom("bob"))
	room, ok = state.ActiveRoom()
	require.True(t, ok)
	assert.Equal(t, "bob", room)

	require.NoError(t, state.ClearActiveRoom())
	_, ok = state.ActiveRoom()
	assert.False(t, ok)
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	state, err := OpenState(path)
	require.NoError(t, err)
	require.NoError(t, state.SetUsername("alice"))
	require.NoError(t, state.SetActiveRoom("bob"))
	require.NoError(t, state.Close())

	reopened, err := OpenState(path)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "alice", reopened.Username())
	room, ok := reopened.ActiveRoom()
	require.True(t, ok)
	assert.Equal(t, "bob", room)
}

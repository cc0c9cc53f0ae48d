package server

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/pkg/protocol"
)

func TestMemoryStorageUniqueUsers(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, "alice"))
	assert.ErrorIs(t, s.AddUser(ctx, "alice"), ErrNameTaken)

	require.NoError(t, s.RemoveUser(ctx, "alice"))
	assert.NoError(t, s.AddUser(ctx, "alice"), "name is free again after removal")
}

func TestMemoryStorageRemoveUnknownUser(t *testing.T) {
	s := NewMemoryStorage()
	assert.NoError(t, s.RemoveUser(context.Background(), "nobody"))
}

func TestMemoryStorageHistoryNewestFirstAndCapped(t *testing.T) {
	s := NewMemoryStorage()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.SaveMessage(ctx, &protocol.Message{
			Author: "alice",
			Body:   fmt.Sprintf("msg-%d", i),
		}))
	}

	history, err := s.History(ctx, "", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "msg-4", history[0].Body)
	assert.Equal(t, "msg-2", history[2].Body)
}

func TestMemoryStoragePublishReachesAllSubscribers(t *testing.T) {
	s := NewMemoryStorage()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := s.Subscribe(ctx)
	require.NoError(t, err)
	second, err := s.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Publish(ctx, JoinChannel, []byte("alice")))

	for _, sub := range []<-chan Event{first, second} {
		ev := <-sub
		assert.Equal(t, JoinChannel, ev.Channel)
		assert.Equal(t, "alice", string(ev.Data))
	}
}

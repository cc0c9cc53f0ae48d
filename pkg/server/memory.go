package server

import (
	"context"
	"sort"
	"sync"

	"github.com/parley-chat/parley/pkg/protocol"
)

// MemoryStorage is an in-process Storage for tests and single-instance
// deployments without redis. Publish loops events straight back to this
// instance's subscribers.
type MemoryStorage struct {
	mu          sync.Mutex
	users       map[string]struct{}
	messages    map[string][]*protocol.Message // newest first
	rooms       map[string]map[string]struct{}
	subscribers []chan Event
	closed      bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:    make(map[string]struct{}),
		messages: make(map[string][]*protocol.Message),
		rooms:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStorage) AddUser(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.users[name]; taken {
		return ErrNameTaken
	}
	s.users[name] = struct{}{}
	return nil
}

func (s *MemoryStorage) RemoveUser(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, name)
	return nil
}

func (s *MemoryStorage) ActiveUsers(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStorage) SaveMessage(ctx context.Context, msg *protocol.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := msg.ThreadKey()
	s.messages[key] = append([]*protocol.Message{msg}, s.messages[key]...)

	if msg.Recipient != "" {
		s.addRoom(msg.Author, msg.Recipient)
		s.addRoom(msg.Recipient, msg.Author)
	}
	return nil
}

func (s *MemoryStorage) addRoom(user, other string) {
	if s.rooms[user] == nil {
		s.rooms[user] = make(map[string]struct{})
	}
	s.rooms[user][other] = struct{}{}
}

func (s *MemoryStorage) Rooms(ctx context.Context, user string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := []string{""}
	for other := range s.rooms[user] {
		rooms = append(rooms, other)
	}
	sort.Strings(rooms)
	return rooms, nil
}

func (s *MemoryStorage) History(ctx context.Context, threadKey string, size int) ([]*protocol.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.messages[threadKey]
	if len(history) > size {
		history = history[:size]
	}

	out := make([]*protocol.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStorage) Publish(ctx context.Context, channel string, data []byte) error {
	s.mu.Lock()
	subscribers := make([]chan Event, len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub <- Event{Channel: channel, Data: data}
	}
	return nil
}

func (s *MemoryStorage) Subscribe(ctx context.Context) (<-chan Event, error) {
	events := make(chan Event, 100)

	s.mu.Lock()
	s.subscribers = append(s.subscribers, events)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subscribers {
			if sub == events {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				close(events)
				break
			}
		}
	}()

	return events, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/pkg/protocol"
)

const (
	usersKey       = "parley:users"
	messagesPrefix = "parley:messages"
	roomsPrefix    = "parley:rooms"
)

// RedisStorage implements Storage on a redis instance shared between
// server processes.
type RedisStorage struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisStorage connects to redis and verifies the connection.
func NewRedisStorage(ctx context.Context, addr string, logger zerolog.Logger) (*RedisStorage, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStorage{
		client: client,
		log:    logger.With().Str("component", "redis").Logger(),
	}, nil
}

func (s *RedisStorage) AddUser(ctx context.Context, name string) error {
	added, err := s.client.SAdd(ctx, usersKey, name).Result()
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	if added == 0 {
		return ErrNameTaken
	}
	return nil
}

func (s *RedisStorage) RemoveUser(ctx context.Context, name string) error {
	if err := s.client.SRem(ctx, usersKey, name).Err(); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	return nil
}

func (s *RedisStorage) ActiveUsers(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, usersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return names, nil
}

func (s *RedisStorage) SaveMessage(ctx context.Context, msg *protocol.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, messagesKey(msg.ThreadKey()), data)
	if msg.Recipient != "" {
		// Both participants see the thread under the other's name.
		pipe.SAdd(ctx, roomsKey(msg.Author), msg.Recipient)
		pipe.SAdd(ctx, roomsKey(msg.Recipient), msg.Author)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

func (s *RedisStorage) Rooms(ctx context.Context, user string) ([]string, error) {
	rooms, err := s.client.SMembers(ctx, roomsKey(user)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms = append(rooms, "")
	sort.Strings(rooms)
	return rooms, nil
}

func (s *RedisStorage) History(ctx context.Context, threadKey string, size int) ([]*protocol.Message, error) {
	data, err := s.client.LRange(ctx, messagesKey(threadKey), 0, int64(size)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	messages := make([]*protocol.Message, 0, len(data))
	for _, raw := range data {
		msg := new(protocol.Message)
		if err := json.Unmarshal([]byte(raw), msg); err != nil {
			s.log.Warn().Err(err).Msg("skipping unreadable history entry")
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

func (s *RedisStorage) Publish(ctx context.Context, channel string, data []byte) error {
	if err := s.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", channel, err)
	}
	return nil
}

func (s *RedisStorage) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := s.client.Subscribe(ctx, JoinChannel, LeaveChannel, MessageChannel)

	// Force the subscription to be established before we report success.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	events := make(chan Event, 100)
	go func() {
		defer close(events)
		defer pubsub.Close()

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				events <- Event{Channel: msg.Channel, Data: []byte(msg.Payload)}
			}
		}
	}()

	return events, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

func roomsKey(user string) string {
	return roomsPrefix + ":" + user
}

func messagesKey(threadKey string) string {
	if threadKey == "" {
		return messagesPrefix
	}
	return messagesPrefix + ":" + threadKey
}

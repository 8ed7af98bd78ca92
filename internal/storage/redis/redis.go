// Package redis stores snapshots as Redis strings and announces
// replacements over pub/sub.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/staffdesk/messenger/internal/config"
	"github.com/staffdesk/messenger/internal/service"
)

const changesChannel = "messenger:snapshots"

type Storage struct {
	client *redis.Client
}

var (
	_ service.SnapshotStorage = (*Storage)(nil)
	_ service.SnapshotWatcher = (*Storage)(nil)
)

func New(ctx context.Context, cfg config.Redis) (*Storage, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return &Storage{client: client}, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return data, true, nil
}

// Put sets the value and publishes the key in one MULTI/EXEC block.
func (s *Storage) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, 0)
		pipe.Publish(ctx, changesChannel, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set snapshot: %w", err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Publish(ctx, changesChannel, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *Storage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	sub := s.client.Subscribe(ctx, changesChannel)
	// Wait for the subscription confirmation so no change published after
	// Watch returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				if msg.Payload != key {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

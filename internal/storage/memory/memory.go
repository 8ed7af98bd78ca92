// Package memory is an in-process snapshot storage. Stores sharing one
// Storage behave like surfaces sharing one browser-local key-value store.
package memory

import (
	"context"
	"sync"

	"github.com/staffdesk/messenger/internal/service"
)

type Storage struct {
	mu       sync.RWMutex
	values   map[string][]byte
	watchers map[string][]chan struct{}
}

var (
	_ service.SnapshotStorage = (*Storage)(nil)
	_ service.SnapshotWatcher = (*Storage)(nil)
)

func New() *Storage {
	return &Storage{
		values:   make(map[string][]byte),
		watchers: make(map[string][]chan struct{}),
	}
}

func (s *Storage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Storage) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	s.values[key] = append([]byte(nil), data...)
	s.notify(key)
	s.mu.Unlock()
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.notify(key)
	s.mu.Unlock()
	return nil
}

// Watch signals every replacement of key. Signals are coalesced: a watcher
// that has not drained the previous one gets no second signal.
func (s *Storage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.watchers[key] = append(s.watchers[key], ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.watchers[key]
		for i, w := range list {
			if w == ch {
				s.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch, nil
}

// must hold s.mu
func (s *Storage) notify(key string) {
	for _, ch := range s.watchers[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

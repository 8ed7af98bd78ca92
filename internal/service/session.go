package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/metrics"
	"github.com/staffdesk/messenger/internal/roster"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/logger"
)

// Surface names an independent renderer over the chats of the logged in user.
type Surface string

const (
	SurfaceFull Surface = "full"
	SurfaceMini Surface = "mini"
)

var Surfaces = []Surface{SurfaceFull, SurfaceMini}

// ParseSurface maps a client supplied surface name. Empty means full view.
func ParseSurface(s string) (Surface, error) {
	switch Surface(s) {
	case "", SurfaceFull:
		return SurfaceFull, nil
	case SurfaceMini:
		return SurfaceMini, nil
	}
	return "", fmt.Errorf("unknown surface %q", s)
}

// Identity is the host's identity layer: a roster provider whose current
// user can be switched.
type Identity interface {
	roster.Provider
	Login(id domain.UserId) (domain.User, error)
	Logout()
}

type session struct {
	owner  domain.User
	users  []domain.User
	stores map[Surface]*ChatStore
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Sessions ties chat stores to the authenticated identity. A session holds
// one ChatStore per surface, all over the same storage key, and lives from
// login until logout or a user switch.
type Sessions struct {
	mu       sync.Mutex
	identity Identity
	storage  SnapshotStorage
	prefix   string
	opts     []Option
	current  *session
	log      *slog.Logger
}

func NewSessions(identity Identity, storage SnapshotStorage, keyPrefix string, opts ...Option) *Sessions {
	return &Sessions{
		identity: identity,
		storage:  storage,
		prefix:   keyPrefix,
		opts:     opts,
		log:      logger.Component("session"),
	}
}

// Login makes id the current user and opens its stores. Logging in as the
// current user keeps the session; another user is a switch.
func (s *Sessions) Login(ctx context.Context, id domain.UserId) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.owner.Id == id {
		return s.current.owner, nil
	}
	u, err := s.identity.Login(id)
	if err != nil {
		return domain.User{}, err
	}
	s.teardown()
	if err := s.open(ctx, u, s.identity.Roster()); err != nil {
		s.identity.Logout()
		return domain.User{}, err
	}
	return u, nil
}

// Logout tears the session down. The persisted chats stay in storage.
func (s *Sessions) Logout(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
	s.identity.Logout()
}

// Sync follows identity changes made outside Login/Logout: a different
// current user switches the session, a changed roster is reconciled into
// the open stores.
func (s *Sessions) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.identity.CurrentUser()
	users := s.identity.Roster()
	switch {
	case !ok:
		s.teardown()
		return nil
	case s.current == nil || s.current.owner.Id != u.Id:
		s.teardown()
		return s.open(ctx, u, users)
	case !slices.Equal(s.current.users, users) || s.current.owner != u:
		s.log.Info("roster changed", "owner", u.Id, "users", len(users))
		for _, surface := range Surfaces {
			if err := s.current.stores[surface].UpdateRoster(ctx, u, users); err != nil {
				return err
			}
		}
		s.current.owner = u
		s.current.users = users
	}
	return nil
}

// Current returns the owner of the open session.
func (s *Sessions) Current() (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.User{}, false
	}
	return s.current.owner, true
}

// Store returns the chat store backing surface.
func (s *Sessions) Store(surface Surface) (*ChatStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, internal_errors.ErrNoSession
	}
	store, ok := s.current.stores[surface]
	if !ok {
		return nil, fmt.Errorf("unknown surface %q", surface)
	}
	return store, nil
}

// Close tears down the open session without touching the identity.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

func (s *Sessions) open(ctx context.Context, owner domain.User, users []domain.User) error {
	key := SnapshotKey(s.prefix, owner.Id)
	sess := &session{
		owner:  owner,
		users:  users,
		stores: make(map[Surface]*ChatStore, len(Surfaces)),
	}
	for _, surface := range Surfaces {
		store := NewChatStore(s.storage, key, owner, users, s.opts...)
		if err := store.Load(ctx); err != nil {
			return fmt.Errorf("failed to open %s surface: %w", surface, err)
		}
		sess.stores[surface] = store
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	sess.cancel = cancel
	if w, ok := s.storage.(SnapshotWatcher); ok {
		for _, surface := range Surfaces {
			if err := s.watch(watchCtx, sess, w, surface, key); err != nil {
				cancel()
				sess.wg.Wait()
				return err
			}
		}
	}

	s.current = sess
	metrics.ActiveSessions.Inc()
	s.log.Info("session opened", "owner", owner.Id, "role", owner.Role, "key", key)
	return nil
}

// watch re-reads the surface's store whenever another writer replaces the
// snapshot.
func (s *Sessions) watch(ctx context.Context, sess *session, w SnapshotWatcher, surface Surface, key string) error {
	changes, err := w.Watch(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", key, err)
	}
	store := sess.stores[surface]
	sess.wg.Add(1)
	go func() {
		defer sess.wg.Done()
		for range changes {
			if err := store.Load(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("failed to reload after change", "surface", surface, "error", err)
			}
		}
	}()
	return nil
}

func (s *Sessions) teardown() {
	if s.current == nil {
		return
	}
	s.current.cancel()
	s.current.wg.Wait()
	metrics.ActiveSessions.Dec()
	s.log.Info("session closed", "owner", s.current.owner.Id)
	s.current = nil
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/metrics"
	"github.com/staffdesk/messenger/internal/roster"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/logger"
)

// SnapshotStorage is a key-value store holding whole serialized snapshots.
// Put replaces the previous value atomically; readers never observe a
// partial write.
type SnapshotStorage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// SnapshotWatcher is implemented by storages that can tell when a key was
// replaced by another writer. The channel is closed when ctx is done.
type SnapshotWatcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

type Option func(*ChatStore)

// WithClock overrides time.Now for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *ChatStore) { s.now = now }
}

// WithIdGenerator overrides the message id generator (random UUIDs by default).
func WithIdGenerator(gen func() string) Option {
	return func(s *ChatStore) { s.newId = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *ChatStore) { s.log = l }
}

// ChatStore owns the chats of one user. Every mutation first re-reads the
// persisted snapshot, applies the change and writes the full snapshot back
// before returning, so several stores over the same storage key converge on
// the last write.
type ChatStore struct {
	mu      sync.Mutex
	storage SnapshotStorage
	key     string
	owner   domain.User
	users   []domain.User

	chats     []*domain.Chat
	index     map[domain.ChatId]int
	lastSaved []byte

	newId func() string
	now   func() time.Time
	log   *slog.Logger
}

// SnapshotKey namespaces the logical storage key by owner.
func SnapshotKey(prefix string, owner domain.UserId) string {
	return prefix + ":" + owner
}

// NewChatStore creates an empty store. Call Load before use.
func NewChatStore(storage SnapshotStorage, key string, owner domain.User, users []domain.User, opts ...Option) *ChatStore {
	s := &ChatStore{
		storage: storage,
		key:     key,
		owner:   owner,
		users:   append([]domain.User(nil), users...),
		index:   map[domain.ChatId]int{},
		newId:   uuid.NewString,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Component("chat_store")
	}
	s.log = s.log.With("owner", owner.Id)
	return s
}

func (s *ChatStore) Owner() domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

func (s *ChatStore) Key() string {
	return s.key
}

// Load replaces the in-memory state with the persisted snapshot. A missing
// or corrupt snapshot is replaced by chats derived from the roster; a
// snapshot that no longer matches the roster is reconciled. Only storage
// I/O failures are returned, and the store is still usable afterwards.
func (s *ChatStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh(ctx)
}

func (s *ChatStore) refresh(ctx context.Context) error {
	data, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if len(s.chats) == 0 {
			s.set(derive(s.owner, s.users))
		}
		s.log.Error("failed to read snapshot", "error", err)
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	if ok && bytes.Equal(data, s.lastSaved) {
		return nil
	}

	var chats []*domain.Chat
	changed := true
	if ok {
		snap, err := domain.DecodeSnapshot(data)
		if err != nil {
			metrics.SnapshotRecoveries.Inc()
			s.log.Warn("persisted chats unreadable, deriving from roster",
				"error", fmt.Errorf("%w: %w", internal_errors.ErrCorruptSnapshot, err))
			chats = derive(s.owner, s.users)
		} else {
			chats, changed = reconcile(snap, roster.Counterparts(s.owner, s.users))
			if changed {
				s.log.Info("persisted chats reconciled with roster", "chats", len(chats))
			}
		}
	} else {
		s.lastSaved = nil
		chats = derive(s.owner, s.users)
		s.log.Debug("no persisted chats, derived from roster", "chats", len(chats))
	}

	if !changed {
		s.set(chats)
		s.lastSaved = data
		return nil
	}
	return s.commit(ctx, chats)
}

// UpdateRoster swaps the owner record and the roster the store derives
// from, then reconciles the chat set with them. Messages sent afterwards
// carry the new owner name. The owner id cannot change.
func (s *ChatStore) UpdateRoster(ctx context.Context, owner domain.User, users []domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner.Id != s.owner.Id {
		return fmt.Errorf("store of %s cannot be handed to %s", s.owner.Id, owner.Id)
	}
	s.owner = owner
	s.users = append([]domain.User(nil), users...)
	if err := s.refresh(ctx); err != nil {
		return err
	}
	chats, changed := reconcile(s.chats, roster.Counterparts(s.owner, s.users))
	if !changed {
		return nil
	}
	return s.commit(ctx, chats)
}

// Save writes the current state. Writing an unchanged state is skipped.
func (s *ChatStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, s.chats)
}

// commit persists chats and only then installs them as the in-memory state.
func (s *ChatStore) commit(ctx context.Context, chats []*domain.Chat) error {
	data, err := domain.EncodeSnapshot(chats)
	if err != nil {
		return err
	}
	if bytes.Equal(data, s.lastSaved) {
		s.set(chats)
		return nil
	}
	if err := s.storage.Put(ctx, s.key, data); err != nil {
		s.log.Error("failed to persist snapshot", "error", err)
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	s.set(chats)
	s.lastSaved = data
	return nil
}

func (s *ChatStore) set(chats []*domain.Chat) {
	s.chats = chats
	s.index = make(map[domain.ChatId]int, len(chats))
	for i, c := range chats {
		s.index[c.Id] = i
	}
}

// SendMessage appends a message from the owner to chatId. An empty chatId
// or a message with neither body nor attachment is a no-op and returns a
// nil message without error.
func (s *ChatStore) SendMessage(ctx context.Context, chatId domain.ChatId, body string, attachment *domain.Attachment) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if chatId == "" || (body == "" && attachment == nil) {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	i, ok := s.index[chatId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", internal_errors.ErrChatNotFound, chatId)
	}

	msg := &domain.Message{
		Id:         s.newId(),
		SenderId:   s.owner.Id,
		SenderName: s.owner.Name,
		Body:       body,
		Attachment: attachment,
		CreatedAt:  s.now(),
	}

	next := make([]*domain.Chat, len(s.chats))
	copy(next, s.chats)
	chat := next[i].Clone()
	chat.Messages = append(chat.Messages, msg)
	next[i] = chat

	if err := s.commit(ctx, next); err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()
	s.log.Debug("message sent", "chat", chatId, "message", msg.Id, "attachment", attachment != nil)
	return msg, nil
}

// MarkRead resets the unread counter of chatId. An empty chatId is a no-op.
func (s *ChatStore) MarkRead(ctx context.Context, chatId domain.ChatId) error {
	if chatId == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return err
	}
	i, ok := s.index[chatId]
	if !ok {
		return fmt.Errorf("%w: %s", internal_errors.ErrChatNotFound, chatId)
	}
	if s.chats[i].UnreadCount == 0 {
		return nil
	}

	next := make([]*domain.Chat, len(s.chats))
	copy(next, s.chats)
	chat := next[i].Clone()
	chat.UnreadCount = 0
	next[i] = chat
	return s.commit(ctx, next)
}

// Chats returns copies of all chats in display order.
func (s *ChatStore) Chats() []*domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

func (s *ChatStore) Chat(id domain.ChatId) (*domain.Chat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.chats[i].Clone(), true
}

// TotalUnread is the sum of unread counters over all chats.
func (s *ChatStore) TotalUnread() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalUnread(s.chats)
}

func totalUnread(chats []*domain.Chat) uint {
	var n uint
	for _, c := range chats {
		n += c.UnreadCount
	}
	return n
}

func derive(owner domain.User, users []domain.User) []*domain.Chat {
	counterparts := roster.Counterparts(owner, users)
	chats := make([]*domain.Chat, 0, len(counterparts))
	for _, u := range counterparts {
		chats = append(chats, domain.NewChat(u))
	}
	return chats
}

// reconcile keeps the history of every persisted chat whose counterpart is
// still eligible, adds chats for new counterparts and drops the rest. The
// result follows roster order.
func reconcile(persisted []*domain.Chat, counterparts []domain.User) ([]*domain.Chat, bool) {
	byId := make(map[domain.ChatId]*domain.Chat, len(persisted))
	for _, c := range persisted {
		byId[c.Id] = c
	}

	changed := len(persisted) != len(counterparts)
	out := make([]*domain.Chat, 0, len(counterparts))
	for i, u := range counterparts {
		old, ok := byId[u.Id]
		if !ok {
			changed = true
			out = append(out, domain.NewChat(u))
			continue
		}
		if i >= len(persisted) || persisted[i].Id != u.Id {
			changed = true
		}
		if old.ParticipantName != u.Name || old.ParticipantRole != u.Role || old.ParticipantId != u.Id {
			changed = true
			old = old.Clone()
			old.ParticipantId = u.Id
			old.ParticipantName = u.Name
			old.ParticipantRole = u.Role
		}
		out = append(out, old)
	}
	return out, changed
}

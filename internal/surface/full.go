package surface

import (
	"context"
	"sync"

	"github.com/staffdesk/messenger/internal/composer"
	"github.com/staffdesk/messenger/internal/domain"
)

// FullView is the messenger page: a searchable chat list next to the
// selected conversation and its compose box.
type FullView struct {
	mu        sync.Mutex
	store     Store
	presenter *Presenter
	composer  *composer.Composer
	query     string
	selected  domain.ChatId
}

type FullPage struct {
	Query    string     `json:"query"`
	Chats    []ChatItem `json:"chats"`
	Selected *ChatView  `json:"selected,omitempty"`
	Unread   uint       `json:"unread"`
}

func NewFullView(store Store, presenter *Presenter, c *composer.Composer) *FullView {
	return &FullView{store: store, presenter: presenter, composer: c}
}

// Mount re-reads the persisted chats.
func (v *FullView) Mount(ctx context.Context) error {
	return v.store.Load(ctx)
}

func (v *FullView) Composer() *composer.Composer {
	return v.composer
}

func (v *FullView) Search(query string) {
	v.mu.Lock()
	v.query = query
	v.mu.Unlock()
}

// Select makes chatId the open conversation and marks it read. An empty
// chatId closes the conversation.
func (v *FullView) Select(ctx context.Context, chatId domain.ChatId) error {
	if err := v.store.MarkRead(ctx, chatId); err != nil {
		return err
	}
	v.mu.Lock()
	v.selected = chatId
	v.mu.Unlock()
	return nil
}

func (v *FullView) Selected() domain.ChatId {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Send sends the composed message to the open conversation. Without an open
// conversation nothing is sent and the draft is kept.
func (v *FullView) Send(ctx context.Context) (*domain.Message, error) {
	return v.composer.Send(ctx, v.Selected())
}

// Render builds the page from the store's current state.
func (v *FullView) Render() FullPage {
	v.mu.Lock()
	query, selected := v.query, v.selected
	v.mu.Unlock()

	chats := v.store.Chats()
	page := FullPage{
		Query:  query,
		Chats:  v.presenter.Items(chats, query, selected),
		Unread: v.store.TotalUnread(),
	}
	if c, ok := v.store.Chat(selected); ok {
		view := v.presenter.Chat(v.store.Owner(), c, true)
		page.Selected = &view
	}
	return page
}

package surface

import (
	"context"
	"strings"
	"sync"

	"github.com/staffdesk/messenger/internal/composer"
	"github.com/staffdesk/messenger/internal/domain"
)

// MessengerTab is the host navigation id of the full messenger page.
const MessengerTab = "messenger"

// availableShown caps the chats without history listed in the widget.
const availableShown = 3

type WidgetState string

const (
	WidgetClosed    WidgetState = "closed"
	WidgetOpen      WidgetState = "open"
	WidgetMinimized WidgetState = "minimized"
)

// MiniWidget is the floating messenger shown on every page. Its open state
// lives only as long as the widget.
type MiniWidget struct {
	mu        sync.Mutex
	store     Store
	presenter *Presenter
	composer  *composer.Composer
	navigate  func(tab string)
	state     WidgetState
	selected  domain.ChatId
}

type WidgetItem struct {
	Id     domain.ChatId `json:"id"`
	Name   string        `json:"name"`
	Role   domain.Role   `json:"role"`
	Unread bool          `json:"unread"`
}

type WidgetPage struct {
	State     WidgetState  `json:"state"`
	Badge     uint         `json:"badge"`
	Active    []WidgetItem `json:"active"`
	Available []WidgetItem `json:"available"`
	Selected  *ChatView    `json:"selected,omitempty"`
}

// NewMiniWidget creates a closed widget. navigate is the host's tab switch
// and may be nil.
func NewMiniWidget(store Store, presenter *Presenter, c *composer.Composer, navigate func(tab string)) *MiniWidget {
	return &MiniWidget{store: store, presenter: presenter, composer: c, navigate: navigate, state: WidgetClosed}
}

// Mount re-reads the persisted chats.
func (w *MiniWidget) Mount(ctx context.Context) error {
	return w.store.Load(ctx)
}

func (w *MiniWidget) Composer() *composer.Composer {
	return w.composer
}

func (w *MiniWidget) State() WidgetState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *MiniWidget) Open() {
	w.setState(WidgetOpen)
}

func (w *MiniWidget) Close() {
	w.setState(WidgetClosed)
}

// ToggleMinimized switches an open widget between minimized and expanded.
func (w *MiniWidget) ToggleMinimized() {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.state {
	case WidgetOpen:
		w.state = WidgetMinimized
	case WidgetMinimized:
		w.state = WidgetOpen
	}
}

func (w *MiniWidget) setState(s WidgetState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// OpenFull asks the host to show the messenger page and returns the tab id
// it navigated to.
func (w *MiniWidget) OpenFull() string {
	if w.navigate != nil {
		w.navigate(MessengerTab)
	}
	return MessengerTab
}

// Select opens a conversation inside the widget and marks it read.
func (w *MiniWidget) Select(ctx context.Context, chatId domain.ChatId) error {
	if err := w.store.MarkRead(ctx, chatId); err != nil {
		return err
	}
	w.mu.Lock()
	w.selected = chatId
	w.mu.Unlock()
	return nil
}

func (w *MiniWidget) Selected() domain.ChatId {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

func (w *MiniWidget) Send(ctx context.Context) (*domain.Message, error) {
	return w.composer.Send(ctx, w.Selected())
}

// Badge is the total unread count shown on the closed widget.
func (w *MiniWidget) Badge() uint {
	return w.store.TotalUnread()
}

func (w *MiniWidget) Render() WidgetPage {
	w.mu.Lock()
	state, selected := w.state, w.selected
	w.mu.Unlock()

	page := Widget(w.store.Chats())
	page.State = state
	if c, ok := w.store.Chat(selected); ok && state == WidgetOpen {
		view := w.presenter.Chat(w.store.Owner(), c, true)
		page.Selected = &view
	}
	return page
}

// Widget splits chats into those with history and the first few without,
// with the aggregate unread badge.
func Widget(chats []*domain.Chat) WidgetPage {
	page := WidgetPage{Active: []WidgetItem{}, Available: []WidgetItem{}}
	for _, c := range chats {
		page.Badge += c.UnreadCount
		item := WidgetItem{
			Id:     c.Id,
			Name:   firstName(c.ParticipantName),
			Role:   c.ParticipantRole,
			Unread: c.UnreadCount > 0,
		}
		if len(c.Messages) > 0 {
			page.Active = append(page.Active, item)
		} else if len(page.Available) < availableShown {
			page.Available = append(page.Available, item)
		}
	}
	return page
}

func firstName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return f[0]
	}
	return name
}

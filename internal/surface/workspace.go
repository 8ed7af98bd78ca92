package surface

import (
	"context"
	"sync"

	"github.com/staffdesk/messenger/internal/composer"
	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/shared/logger"
)

// SessionStore is the chat store of one surface: views read it and their
// composers send through it.
type SessionStore interface {
	Store
	composer.Sender
}

// View is what both surfaces share: an open conversation and its compose box.
type View interface {
	Mount(ctx context.Context) error
	Select(ctx context.Context, chatId domain.ChatId) error
	Selected() domain.ChatId
	Send(ctx context.Context) (*domain.Message, error)
	Composer() *composer.Composer
}

var (
	_ View = (*FullView)(nil)
	_ View = (*MiniWidget)(nil)
)

// Workspace is the presentation state of one session: the messenger page
// over the full surface's store and the widget over the mini one.
type Workspace struct {
	Full *FullView
	Mini *MiniWidget
}

// Workspaces keeps the workspace of the open session. A workspace lives as
// long as the stores it was built over.
type Workspaces struct {
	mu        sync.Mutex
	presenter *Presenter
	attacher  composer.Attacher
	navigate  func(tab string)

	full, mini SessionStore
	current    *Workspace
}

// NewWorkspaces builds workspaces whose composers store files through
// attacher. navigate is passed to every widget and may be nil.
func NewWorkspaces(presenter *Presenter, attacher composer.Attacher, navigate func(tab string)) *Workspaces {
	return &Workspaces{presenter: presenter, attacher: attacher, navigate: navigate}
}

// For returns the workspace bound to the given stores. When the stores
// changed (login as another user) the previous workspace is dropped along
// with its drafts.
func (ws *Workspaces) For(full, mini SessionStore) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.current != nil && ws.full == full && ws.mini == mini {
		return ws.current
	}
	ws.drop()
	ws.full, ws.mini = full, mini
	ws.current = &Workspace{
		Full: NewFullView(full, ws.presenter, composer.New(full, ws.attacher)),
		Mini: NewMiniWidget(mini, ws.presenter, composer.New(mini, ws.attacher), ws.navigate),
	}
	return ws.current
}

// Drop forgets the current workspace and discards its pending attachments.
func (ws *Workspaces) Drop() {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.drop()
}

func (ws *Workspaces) drop() {
	if ws.current == nil {
		return
	}
	for _, c := range []*composer.Composer{ws.current.Full.Composer(), ws.current.Mini.Composer()} {
		if err := c.ClearAttachment(); err != nil {
			logger.Log.Error("failed to discard pending attachment", "error", err)
		}
	}
	ws.current, ws.full, ws.mini = nil, nil, nil
}

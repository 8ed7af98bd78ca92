// Package surface holds the presentation models of the two messenger
// renderers: the full page view and the floating mini widget. Both read
// everything through their own chat store and keep no chat data of their
// own between renders.
package surface

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/markdown"
)

// Store is the chat store API the surfaces render from.
// *service.ChatStore implements it.
type Store interface {
	Load(ctx context.Context) error
	Owner() domain.User
	Chats() []*domain.Chat
	Chat(id domain.ChatId) (*domain.Chat, bool)
	TotalUnread() uint
	MarkRead(ctx context.Context, chatId domain.ChatId) error
}

const (
	labelToday     = "Today"
	labelYesterday = "Yesterday"
	labelFile      = "File"
	dateLayout     = "02.01.2006"
	timeLayout     = "15:04"
	snippetLength  = 60
)

type ChatItem struct {
	Id          domain.ChatId `json:"id"`
	Name        string        `json:"name"`
	Role        domain.Role   `json:"role"`
	LastMessage string        `json:"lastMessage,omitempty"`
	LastTime    string        `json:"lastTime,omitempty"`
	Unread      uint          `json:"unread"`
	Selected    bool          `json:"selected,omitempty"`
}

type AttachmentView struct {
	Name        string `json:"name"`
	Size        string `json:"size"`
	MimeType    string `json:"type"`
	Url         string `json:"url"`
	PreviewUrl  string `json:"previewUrl,omitempty"`
	Previewable bool   `json:"previewable"`
}

type MessageView struct {
	Id         domain.MessageId `json:"id"`
	SenderName string           `json:"senderName"`
	Own        bool             `json:"own"`
	HTML       string           `json:"html,omitempty"`
	Time       string           `json:"time"`
	Attachment *AttachmentView  `json:"file,omitempty"`
}

// DateGroup is a run of consecutive messages sent on the same day.
type DateGroup struct {
	Label    string        `json:"label"`
	Messages []MessageView `json:"messages"`
}

type ChatView struct {
	ChatItem
	Groups []DateGroup `json:"groups"`
}

// Presenter turns chats into view models.
type Presenter struct {
	text *markdown.TextProcessor
	now  func() time.Time
	loc  *time.Location
}

type PresenterOption func(*Presenter)

func WithNow(now func() time.Time) PresenterOption {
	return func(p *Presenter) { p.now = now }
}

// WithLocation sets the time zone messages are displayed in.
func WithLocation(loc *time.Location) PresenterOption {
	return func(p *Presenter) { p.loc = loc }
}

func NewPresenter(text *markdown.TextProcessor, opts ...PresenterOption) *Presenter {
	p := &Presenter{text: text, now: time.Now, loc: time.Local}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Matches reports whether the chat's participant name or role contains
// query, ignoring case. An empty query matches everything.
func Matches(chat *domain.Chat, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(chat.ParticipantName), q) ||
		strings.Contains(strings.ToLower(string(chat.ParticipantRole)), q)
}

// Items lists the chats matching query in store order.
func (p *Presenter) Items(chats []*domain.Chat, query string, selected domain.ChatId) []ChatItem {
	out := make([]ChatItem, 0, len(chats))
	for _, c := range chats {
		if !Matches(c, query) {
			continue
		}
		out = append(out, p.item(c, selected))
	}
	return out
}

func (p *Presenter) item(c *domain.Chat, selected domain.ChatId) ChatItem {
	item := ChatItem{
		Id:       c.Id,
		Name:     c.ParticipantName,
		Role:     c.ParticipantRole,
		Unread:   c.UnreadCount,
		Selected: c.Id == selected,
	}
	if last := c.Last(); last != nil {
		item.LastMessage = p.text.Plain(last.Body, snippetLength)
		if item.LastMessage == "" && last.Attachment != nil {
			item.LastMessage = labelFile
		}
		item.LastTime = p.FormatTime(last.CreatedAt)
	}
	return item
}

// Chat renders the message log of c as seen by owner, grouped by day.
func (p *Presenter) Chat(owner domain.User, c *domain.Chat, selected bool) ChatView {
	view := ChatView{ChatItem: p.item(c, ""), Groups: []DateGroup{}}
	view.Selected = selected
	for _, m := range c.Messages {
		label := p.DateLabel(m.CreatedAt)
		if n := len(view.Groups); n == 0 || view.Groups[n-1].Label != label {
			view.Groups = append(view.Groups, DateGroup{Label: label})
		}
		g := &view.Groups[len(view.Groups)-1]
		g.Messages = append(g.Messages, p.Message(owner, c.Id, m))
	}
	return view
}

func (p *Presenter) Message(owner domain.User, chatId domain.ChatId, m *domain.Message) MessageView {
	v := MessageView{
		Id:         m.Id,
		SenderName: m.SenderName,
		Own:        m.SenderId == owner.Id,
		HTML:       p.text.Render(m.Body),
		Time:       p.FormatTime(m.CreatedAt),
	}
	if a := m.Attachment; a != nil {
		u := FileURL(chatId, m.Id)
		v.Attachment = &AttachmentView{
			Name:        a.Name,
			Size:        attachment.FormatSize(a.SizeBytes),
			MimeType:    a.MimeType,
			Url:         u,
			Previewable: a.IsImage(),
		}
		if a.IsImage() {
			v.Attachment.PreviewUrl = u + "/preview"
		}
	}
	return v
}

// FileURL is where the attachment of a message is downloaded from.
func FileURL(chatId domain.ChatId, messageId domain.MessageId) string {
	return "/v1/chats/" + url.PathEscape(chatId) + "/messages/" + url.PathEscape(messageId) + "/file"
}

// FormatTime renders the 24 hour clock time of t.
func (p *Presenter) FormatTime(t time.Time) string {
	return t.In(p.loc).Format(timeLayout)
}

// DateLabel is "Today", "Yesterday" or the DD.MM.YYYY date of t.
func (p *Presenter) DateLabel(t time.Time) string {
	now := p.now().In(p.loc)
	t = t.In(p.loc)
	y, m, d := t.Date()
	if ny, nm, nd := now.Date(); y == ny && m == nm && d == nd {
		return labelToday
	}
	if yy, ym, yd := now.AddDate(0, 0, -1).Date(); y == yy && m == ym && d == yd {
		return labelYesterday
	}
	return t.Format(dateLayout)
}

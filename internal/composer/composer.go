// Package composer holds the in-progress message of one surface: a text
// buffer and at most one pending attachment.
package composer

import (
	"context"
	"fmt"
	"sync"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/domain"
)

// Sender appends a message to a chat. *service.ChatStore implements it.
type Sender interface {
	SendMessage(ctx context.Context, chatId domain.ChatId, body string, attachment *domain.Attachment) (*domain.Message, error)
}

// Attacher validates a selected file into an attachment and drops
// attachments that will not be sent. *attachment.Handler implements it.
type Attacher interface {
	Prepare(f attachment.File) (*domain.Attachment, error)
	Discard(a *domain.Attachment) error
}

type Composer struct {
	mu       sync.Mutex
	sender   Sender
	attacher Attacher
	text     string
	pending  *domain.Attachment
}

func New(sender Sender, attacher Attacher) *Composer {
	return &Composer{sender: sender, attacher: attacher}
}

func (c *Composer) SetText(text string) {
	c.mu.Lock()
	c.text = text
	c.mu.Unlock()
}

func (c *Composer) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Pending returns the attachment waiting to be sent, if any.
func (c *Composer) Pending() *domain.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	a := *c.pending
	return &a
}

// Attach replaces the pending attachment with f. A rejected file leaves the
// previous attachment in place.
func (c *Composer) Attach(f attachment.File) (*domain.Attachment, error) {
	a, err := c.attacher.Prepare(f)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	prev := c.pending
	c.pending = a
	c.mu.Unlock()

	if prev != nil {
		if err := c.attacher.Discard(prev); err != nil {
			return a, fmt.Errorf("failed to drop replaced attachment: %w", err)
		}
	}
	return a, nil
}

// ClearAttachment drops the pending attachment.
func (c *Composer) ClearAttachment() error {
	c.mu.Lock()
	prev := c.pending
	c.pending = nil
	c.mu.Unlock()
	return c.attacher.Discard(prev)
}

// Send sends the buffered text and attachment to chatId and clears both. A
// no-op send (no chat, nothing to send) or a failed one leaves the buffer
// as it was.
func (c *Composer) Send(ctx context.Context, chatId domain.ChatId) (*domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, err := c.sender.SendMessage(ctx, chatId, c.text, c.pending)
	if err != nil || msg == nil {
		return nil, err
	}
	c.text = ""
	c.pending = nil
	return msg, nil
}

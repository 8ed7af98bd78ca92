package domain

import (
	"fmt"
	"strings"
	"time"
)

type (
	ChatId     = string
	MessageId  = string
	ContentRef = string
)

// MaxAttachmentSize is the upper bound for a single attachment, inclusive.
const MaxAttachmentSize = 10 * 1024 * 1024

// Attachment describes a file attached to a message. Ref resolves to the
// original bytes through the attachment handler.
type Attachment struct {
	Name      string     `json:"name"`
	SizeBytes uint64     `json:"size"`
	MimeType  string     `json:"type"`
	Ref       ContentRef `json:"url"`
}

func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// Message is immutable once appended to a chat.
type Message struct {
	Id         MessageId   `json:"id"`
	SenderId   UserId      `json:"senderId"`
	SenderName string      `json:"senderName"`
	Body       string      `json:"content"`
	Attachment *Attachment `json:"file,omitempty"`
	CreatedAt  time.Time   `json:"timestamp"`
}

// for debug
func (m *Message) String() string {
	s := fmt.Sprintf("[id:%s, sender:%s, body:%q, created:%s", m.Id, m.SenderId, m.Body, m.CreatedAt.Format(time.StampMilli))
	if m.Attachment != nil {
		s += fmt.Sprintf(", file:%+v", *m.Attachment)
	}
	return s + "]"
}

// Chat is the thread between the current user and one counterpart. Id equals
// the counterpart's user id.
type Chat struct {
	Id              ChatId     `json:"id"`
	ParticipantId   UserId     `json:"participantId"`
	ParticipantName string     `json:"participantName"`
	ParticipantRole Role       `json:"participantRole"`
	Messages        []*Message `json:"messages"`
	UnreadCount     uint       `json:"unreadCount"`
}

// NewChat builds an empty chat with the counterpart's details snapshotted.
func NewChat(counterpart User) *Chat {
	return &Chat{
		Id:              counterpart.Id,
		ParticipantId:   counterpart.Id,
		ParticipantName: counterpart.Name,
		ParticipantRole: counterpart.Role,
		Messages:        []*Message{},
	}
}

// Last returns the most recent message or nil.
func (c *Chat) Last() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// Clone returns a copy whose message slice can be appended to without
// affecting the receiver. Messages themselves are shared since they are immutable.
func (c *Chat) Clone() *Chat {
	cp := *c
	cp.Messages = make([]*Message, len(c.Messages))
	copy(cp.Messages, c.Messages)
	return &cp
}

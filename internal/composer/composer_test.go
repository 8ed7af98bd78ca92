package composer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/service"
	"github.com/staffdesk/messenger/internal/storage/blob"
	"github.com/staffdesk/messenger/internal/storage/memory"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
)

var (
	admin = domain.User{Id: "admin1", Name: "Anna", Role: domain.RoleAdmin}
	emp   = domain.User{Id: "emp1", Name: "Vera", Role: domain.RolePhotographer}
)

type MockSender struct {
	SendMessageFunc func(chatId domain.ChatId, body string, a *domain.Attachment) (*domain.Message, error)
}

func (m *MockSender) SendMessage(_ context.Context, chatId domain.ChatId, body string, a *domain.Attachment) (*domain.Message, error) {
	return m.SendMessageFunc(chatId, body, a)
}

func setup(t *testing.T) (*Composer, *service.ChatStore, *blob.Storage) {
	t.Helper()
	store := service.NewChatStore(memory.New(), "messenger_chats:emp1", emp, []domain.User{admin, emp})
	require.NoError(t, store.Load(context.Background()))
	blobs, err := blob.New(t.TempDir())
	require.NoError(t, err)
	return New(store, attachment.New(blobs, domain.MaxAttachmentSize, 320)), store, blobs
}

func textFile(name, content string) attachment.File {
	return attachment.File{Name: name, Size: int64(len(content)), Data: strings.NewReader(content)}
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("clears the buffer on success", func(t *testing.T) {
		c, store, _ := setup(t)
		c.SetText("hello")
		_, err := c.Attach(textFile("notes.txt", "some notes"))
		require.NoError(t, err)

		msg, err := c.Send(ctx, "admin1")
		require.NoError(t, err)
		require.NotNil(t, msg)
		assert.Equal(t, "hello", msg.Body)
		require.NotNil(t, msg.Attachment)
		assert.Equal(t, "notes.txt", msg.Attachment.Name)

		assert.Empty(t, c.Text())
		assert.Nil(t, c.Pending())
		chat, _ := store.Chat("admin1")
		assert.Len(t, chat.Messages, 1)
	})

	t.Run("no chat selected keeps the text", func(t *testing.T) {
		c, _, _ := setup(t)
		c.SetText("draft")
		msg, err := c.Send(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, msg)
		assert.Equal(t, "draft", c.Text())
	})

	t.Run("nothing to send", func(t *testing.T) {
		c, store, _ := setup(t)
		c.SetText("   ")
		msg, err := c.Send(ctx, "admin1")
		assert.NoError(t, err)
		assert.Nil(t, msg)
		assert.Equal(t, "   ", c.Text())
		chat, _ := store.Chat("admin1")
		assert.Empty(t, chat.Messages)
	})

	t.Run("attachment only", func(t *testing.T) {
		c, _, _ := setup(t)
		data := bytes.Repeat([]byte{0xff}, 2*1024*1024)
		_, err := c.Attach(attachment.File{Name: "photo.jpg", MimeType: "image/jpeg", Size: int64(len(data)), Data: bytes.NewReader(data)})
		require.NoError(t, err)

		msg, err := c.Send(ctx, "admin1")
		require.NoError(t, err)
		assert.Empty(t, msg.Body)
		require.NotNil(t, msg.Attachment)
		assert.EqualValues(t, 2*1024*1024, msg.Attachment.SizeBytes)
	})

	t.Run("failure keeps the buffer", func(t *testing.T) {
		blobs, err := blob.New(t.TempDir())
		require.NoError(t, err)
		sender := &MockSender{SendMessageFunc: func(domain.ChatId, string, *domain.Attachment) (*domain.Message, error) {
			return nil, errors.New("storage down")
		}}
		c := New(sender, attachment.New(blobs, 0, 0))
		c.SetText("hello")
		_, err = c.Attach(textFile("a.txt", "a"))
		require.NoError(t, err)

		_, err = c.Send(ctx, "admin1")
		assert.Error(t, err)
		assert.Equal(t, "hello", c.Text())
		assert.NotNil(t, c.Pending())
	})
}

func TestAttach(t *testing.T) {
	t.Run("too large keeps the previous attachment", func(t *testing.T) {
		c, _, _ := setup(t)
		first, err := c.Attach(textFile("a.txt", "a"))
		require.NoError(t, err)

		_, err = c.Attach(attachment.File{Name: "huge.bin", Size: domain.MaxAttachmentSize + 1, Data: strings.NewReader("")})
		assert.ErrorIs(t, err, internal_errors.ErrAttachmentTooLarge)
		assert.Equal(t, first, c.Pending())
	})

	t.Run("replacing drops the old bytes", func(t *testing.T) {
		c, _, blobs := setup(t)
		first, err := c.Attach(textFile("a.txt", "a"))
		require.NoError(t, err)
		second, err := c.Attach(textFile("b.txt", "b"))
		require.NoError(t, err)

		assert.Equal(t, second, c.Pending())
		_, err = blobs.Read(first.Ref)
		assert.ErrorIs(t, err, internal_errors.ErrAttachmentNotFound)
	})

	t.Run("clear", func(t *testing.T) {
		c, _, blobs := setup(t)
		a, err := c.Attach(textFile("a.txt", "a"))
		require.NoError(t, err)
		require.NoError(t, c.ClearAttachment())
		assert.Nil(t, c.Pending())
		_, err = blobs.Read(a.Ref)
		assert.ErrorIs(t, err, internal_errors.ErrAttachmentNotFound)

		assert.NoError(t, c.ClearAttachment(), "clearing twice is fine")
	})
}

package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/composer"
	"github.com/staffdesk/messenger/internal/domain"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/logger"
	"github.com/staffdesk/messenger/shared/utils"
	"github.com/staffdesk/messenger/shared/validation"
)

type sendBody struct {
	Text *string `json:"text" validate:"omitempty,max=10000"`
}

// SendMessage opens the chat on the requesting surface and sends its draft.
// The request may update the draft first: a JSON body {"text"} or a
// multipart form with the same JSON in the "json" field and an optional
// "file" part. With nothing to send the draft is kept and the answer is 204.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	chatId := chi.URLParam(r, "chat")
	if v.Selected() != chatId {
		if err := v.Select(ctx, chatId); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return
		}
	}

	c := v.Composer()
	var body sendBody
	if isMultipart(r) {
		if !h.readForm(w, r, c, &body, false) {
			return
		}
	} else if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if body.Text != nil {
		c.SetText(*body.Text)
	}

	msg, err := v.Send(ctx)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	owner, _ := h.sessions.Current()
	utils.WriteJSONWithStatus(w, http.StatusCreated, h.presenter.Message(owner, chatId, msg))
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readForm parses a multipart request: the "json" field is decoded into
// body and the "file" part, when present, becomes c's pending attachment.
func (h *Handler) readForm(w http.ResponseWriter, r *http.Request, c *composer.Composer, body any, fileRequired bool) bool {
	maxRequestSize := validation.CalculateMaxRequestSize(int64(h.attachments.MaxSize()))
	if err := validation.ValidateAndParseMultipart(r, w, maxRequestSize); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return false
	}
	defer r.MultipartForm.RemoveAll()

	if payload := r.FormValue("json"); payload != "" && body != nil {
		if err := utils.DecodeValidate(strings.NewReader(payload), body); err != nil {
			utils.WriteErrorAndStatusCode(w, err)
			return false
		}
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile) && !fileRequired:
		return true
	case err != nil:
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: "Invalid file part", StatusCode: http.StatusBadRequest})
		return false
	}
	defer file.Close()
	if _, err := c.Attach(attachment.File{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Data:     file,
	}); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return false
	}
	return true
}

// attachmentOf finds the attachment of a message in the requesting
// surface's chats.
func (h *Handler) attachmentOf(w http.ResponseWriter, r *http.Request) (*domain.Attachment, bool) {
	store, ok := h.store(w, r)
	if !ok {
		return nil, false
	}
	chatId, messageId := chi.URLParam(r, "chat"), chi.URLParam(r, "message")
	chat, ok := store.Chat(chatId)
	if !ok {
		utils.WriteErrorAndStatusCode(w, fmt.Errorf("%w: %s", internal_errors.ErrChatNotFound, chatId))
		return nil, false
	}
	for _, m := range chat.Messages {
		if m.Id == messageId && m.Attachment != nil {
			return m.Attachment, true
		}
	}
	utils.WriteErrorAndStatusCode(w, fmt.Errorf("%w: message %s", internal_errors.ErrAttachmentNotFound, messageId))
	return nil, false
}

func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.attachmentOf(w, r)
	if !ok {
		return
	}
	d, err := h.attachments.Open(a)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	defer d.Body.Close()

	w.Header().Set("Content-Type", d.MimeType)
	w.Header().Set("Content-Disposition", d.ContentDisposition())
	w.Header().Set("Content-Length", fmt.Sprint(d.Size))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, d.Body); err != nil {
		logger.Log.Warn("download interrupted", "ref", a.Ref, "error", err)
	}
}

func (h *Handler) PreviewAttachment(w http.ResponseWriter, r *http.Request) {
	a, ok := h.attachmentOf(w, r)
	if !ok {
		return
	}
	p, err := h.attachments.Preview(a)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Image-Width", fmt.Sprint(p.Width))
	w.Header().Set("X-Image-Height", fmt.Sprint(p.Height))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(p.PNG)
}

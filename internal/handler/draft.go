package handler

import (
	"net/http"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/surface"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/utils"
)

type draftFile struct {
	Name     string `json:"name"`
	Size     string `json:"size"`
	MimeType string `json:"mimeType"`
}

// draftView is the compose box of a surface: the open chat, the typed text
// and the file waiting to be sent.
type draftView struct {
	ChatId domain.ChatId `json:"chatId"`
	Text   string        `json:"text"`
	File   *draftFile    `json:"file,omitempty"`
}

func draftOf(v surface.View) draftView {
	c := v.Composer()
	d := draftView{ChatId: v.Selected(), Text: c.Text()}
	if pending := c.Pending(); pending != nil {
		d.File = &draftFile{Name: pending.Name, Size: attachment.FormatSize(pending.SizeBytes), MimeType: pending.MimeType}
	}
	return d
}

func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, draftOf(v))
}

func (h *Handler) SetDraftText(w http.ResponseWriter, r *http.Request) {
	type bodyJson struct {
		Text string `json:"text" validate:"max=10000"`
	}
	var body bodyJson
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	v.Composer().SetText(body.Text)
	utils.WriteJSON(w, draftOf(v))
}

// AttachDraftFile replaces the pending file with the "file" part of a
// multipart form. A rejected file leaves the previous one pending.
func (h *Handler) AttachDraftFile(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		utils.WriteErrorAndStatusCode(w, &internal_errors.ErrorWithStatusCode{Message: "Expected multipart form", StatusCode: http.StatusBadRequest})
		return
	}
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	if !h.readForm(w, r, v.Composer(), nil, true) {
		return
	}
	utils.WriteJSON(w, draftOf(v))
}

func (h *Handler) ClearDraftFile(w http.ResponseWriter, r *http.Request) {
	v, ok := h.view(w, r)
	if !ok {
		return
	}
	if err := v.Composer().ClearAttachment(); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/staffdesk/messenger/internal/domain"
	internal_errors "github.com/staffdesk/messenger/shared/errors"
	"github.com/staffdesk/messenger/shared/utils"
)

// GetChats renders the messenger page. A "q" parameter replaces the search
// query kept by the page; without it the previous query stays.
func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Full.Mount(r.Context()); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if q := r.URL.Query(); q.Has("q") {
		ws.Full.Search(q.Get("q"))
	}
	utils.WriteJSON(w, ws.Full.Render())
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	chatId := chi.URLParam(r, "chat")
	chat, ok := store.Chat(chatId)
	if !ok {
		utils.WriteErrorAndStatusCode(w, fmt.Errorf("%w: %s", internal_errors.ErrChatNotFound, chatId))
		return
	}
	utils.WriteJSON(w, h.presenter.Chat(store.Owner(), chat, true))
}

// Select opens a conversation on the requesting surface and marks it read.
// An empty chat_id closes the open conversation.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	type bodyJson struct {
		ChatId domain.ChatId `json:"chat_id"`
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
	if err := v.Select(r.Context(), body.ChatId); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := store.MarkRead(r.Context(), chi.URLParam(r, "chat")); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetUnread(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, map[string]uint{"unread": store.TotalUnread()})
}

package handler

import (
	"net/http"

	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/shared/utils"
)

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	type bodyJson struct {
		UserId domain.UserId `json:"user_id" validate:"required"`
	}
	var body bodyJson
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}

	user, err := h.sessions.Login(r.Context(), body.UserId)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	utils.WriteJSON(w, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	h.workspaces.Drop()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := h.sessions.Current()
	if !ok {
		http.Error(w, "no active session", http.StatusUnauthorized)
		return
	}
	utils.WriteJSON(w, user)
}

package handler

import (
	"net/http"

	"github.com/staffdesk/messenger/internal/surface"
	"github.com/staffdesk/messenger/shared/utils"
)

// widget re-reads the widget's chats and applies action before rendering.
func (h *Handler) widget(w http.ResponseWriter, r *http.Request, action func(*surface.MiniWidget)) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Mini.Mount(r.Context()); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return
	}
	if action != nil {
		action(ws.Mini)
	}
	utils.WriteJSON(w, ws.Mini.Render())
}

func (h *Handler) GetWidget(w http.ResponseWriter, r *http.Request) {
	h.widget(w, r, nil)
}

func (h *Handler) OpenWidget(w http.ResponseWriter, r *http.Request) {
	h.widget(w, r, (*surface.MiniWidget).Open)
}

func (h *Handler) CloseWidget(w http.ResponseWriter, r *http.Request) {
	h.widget(w, r, (*surface.MiniWidget).Close)
}

func (h *Handler) ToggleWidget(w http.ResponseWriter, r *http.Request) {
	h.widget(w, r, (*surface.MiniWidget).ToggleMinimized)
}

// OpenFull answers with the host tab that shows the messenger page.
func (h *Handler) OpenFull(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, map[string]string{"tab": ws.Mini.OpenFull()})
}

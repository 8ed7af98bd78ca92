package handler

import (
	"context"
	"net/http"

	"github.com/staffdesk/messenger/internal/attachment"
	"github.com/staffdesk/messenger/internal/domain"
	"github.com/staffdesk/messenger/internal/service"
	"github.com/staffdesk/messenger/internal/surface"
	"github.com/staffdesk/messenger/shared/utils"
)

// SurfaceHeader selects the surface a request acts for.
const SurfaceHeader = "X-Surface"

type SessionService interface {
	Login(ctx context.Context, id domain.UserId) (domain.User, error)
	Logout(ctx context.Context)
	Sync(ctx context.Context) error
	Current() (domain.User, bool)
	Store(s service.Surface) (*service.ChatStore, error)
}

type AttachmentService interface {
	Prepare(f attachment.File) (*domain.Attachment, error)
	Discard(a *domain.Attachment) error
	Open(a *domain.Attachment) (*attachment.Download, error)
	Preview(a *domain.Attachment) (*attachment.Preview, error)
	MaxSize() uint64
}

type Handler struct {
	sessions    SessionService
	attachments AttachmentService
	presenter   *surface.Presenter
	workspaces  *surface.Workspaces
}

func New(sessions SessionService, attachments AttachmentService, presenter *surface.Presenter) *Handler {
	return &Handler{
		sessions:    sessions,
		attachments: attachments,
		presenter:   presenter,
		workspaces:  surface.NewWorkspaces(presenter, attachments, nil),
	}
}

// store resolves the chat store of the requesting surface and re-reads the
// persisted chats, so every response reflects writes made by the other
// surface.
func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*service.ChatStore, bool) {
	s, err := service.ParseSurface(r.Header.Get(SurfaceHeader))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if err := h.sessions.Sync(r.Context()); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	store, err := h.sessions.Store(s)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	if err := store.Load(r.Context()); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	return store, true
}

// workspace returns the page and widget state of the open session.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*surface.Workspace, bool) {
	if err := h.sessions.Sync(r.Context()); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	full, err := h.sessions.Store(service.SurfaceFull)
	if err != nil {
		h.workspaces.Drop()
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	mini, err := h.sessions.Store(service.SurfaceMini)
	if err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	return h.workspaces.For(full, mini), true
}

// view resolves the requesting surface's view and re-reads its chats.
func (h *Handler) view(w http.ResponseWriter, r *http.Request) (surface.View, bool) {
	s, err := service.ParseSurface(r.Header.Get(SurfaceHeader))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return nil, false
	}
	var v surface.View = ws.Full
	if s == service.SurfaceMini {
		v = ws.Mini
	}
	if err := v.Mount(r.Context()); err != nil {
		utils.WriteErrorAndStatusCode(w, err)
		return nil, false
	}
	return v, true
}

package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/staffdesk/messenger/internal/handler"
	"github.com/staffdesk/messenger/internal/metrics"
	sharedmw "github.com/staffdesk/messenger/shared/middleware"
)

// New creates the chi router with all messenger routes. hsts enables
// Strict-Transport-Security for TLS deployments.
func New(h *handler.Handler, allowedOrigins []string, hsts bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(sharedmw.SecurityHeaders(hsts))

	// Both surfaces run in the host application's pages.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", handler.SurfaceHeader},
		ExposedHeaders:   []string{"Content-Disposition", "X-Image-Width", "X-Image-Height"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/session", h.Login)
		r.Get("/session", h.Me)
		r.Delete("/session", h.Logout)

		r.Get("/unread", h.GetUnread)
		r.Put("/selection", h.Select)

		r.Route("/draft", func(r chi.Router) {
			r.Get("/", h.GetDraft)
			r.Put("/", h.SetDraftText)
			r.Put("/file", h.AttachDraftFile)
			r.Delete("/file", h.ClearDraftFile)
		})

		r.Route("/widget", func(r chi.Router) {
			r.Get("/", h.GetWidget)
			r.Post("/open", h.OpenWidget)
			r.Post("/close", h.CloseWidget)
			r.Post("/toggle", h.ToggleWidget)
			r.Post("/open-full", h.OpenFull)
		})

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", h.GetChats)
			r.Route("/{chat}", func(r chi.Router) {
				r.Get("/", h.GetChat)
				r.Post("/read", h.MarkRead)
				r.Post("/messages", h.SendMessage)
				r.Get("/messages/{message}/file", h.DownloadAttachment)
				r.Get("/messages/{message}/file/preview", h.PreviewAttachment)
			})
		})
	})

	return r
}

package httpapi

import (
	"chatrooms/auth"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(log *slog.Logger, h *Handler, resolver auth.Resolver) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(protected chi.Router) {
		protected.Use(auth.Middleware(resolver))

		protected.Route("/rooms", func(r chi.Router) {
			r.Post("/", h.CreateRoom)
			r.Get("/", h.ListRooms)
			r.Route("/{roomId}", func(r chi.Router) {
				r.Get("/", h.GetRoom)
				r.Patch("/", h.RenameRoom)
				r.Get("/members", h.Members)
			})
		})

		protected.Route("/messages", func(r chi.Router) {
			r.Post("/", h.PostMessage)
			r.Get("/", h.ListMessages)
			r.Get("/search", h.SearchMessages)
		})

		protected.Put("/profile", h.UpsertProfile)
		protected.Get("/profiles/{profileId}", h.GetProfile)

		protected.Route("/presence", func(r chi.Router) {
			r.Post("/join", h.Join)
			r.Post("/leave", h.Leave)
			r.Post("/heartbeat", h.Heartbeat)
		})

		protected.Get("/ws", h.Subscribe)
	})
	return r
}

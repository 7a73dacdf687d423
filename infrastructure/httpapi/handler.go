// Package httpapi exposes the chat gateway over HTTP and websockets.
package httpapi

import (
	"chatrooms/api/chatv1"
	"chatrooms/auth"
	"chatrooms/domain"
	"chatrooms/errors"
	"chatrooms/services"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const sortRecent = "recent"

type Handler struct {
	log      *slog.Logger
	chat     services.IChatService
	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, chat services.IChatService, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		log:  log,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// caller is set by the auth middleware on every protected route.
func caller(r *http.Request) string {
	userID, _ := auth.IdentityFromContext(r.Context())
	return userID
}

type roomBody struct {
	RoomID string `json:"roomId"`
}

func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var body chatv1.CreateRoomRequest
	if err := decode(r, &body); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	room, err := h.chat.CreateRoom(domain.CreateRoomCommand{
		Name:        body.Name,
		Region:      body.Region,
		Province:    body.Province,
		Description: body.Description,
		CreatorID:   caller(r),
	})
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chatv1.FromRoom(room))
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if sort := q.Get("sort"); sort != "" && sort != sortRecent {
		writeError(h.log, w, r, fmt.Errorf("%w: unsupported sort %q", errors.ErrValidation, sort))
		return
	}
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	rooms, err := h.chat.ListRooms(domain.RoomFilter{Region: q.Get("region"), Province: q.Get("province")}, limit)
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.FromRooms(rooms))
}

func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.chat.GetRoom(domain.RoomID(chi.URLParam(r, "roomId")))
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.FromRoom(room))
}

func (h *Handler) RenameRoom(w http.ResponseWriter, r *http.Request) {
	var body chatv1.RenameRoomRequest
	if err := decode(r, &body); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	room, err := h.chat.RenameRoom(domain.RenameRoomCommand{
		Room:     domain.RoomID(chi.URLParam(r, "roomId")),
		CallerID: caller(r),
		Name:     body.Name,
	})
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.FromRoom(room))
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.chat.Members(domain.RoomID(chi.URLParam(r, "roomId")))
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.MembersResponse{Members: members})
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body chatv1.PostMessageRequest
	if err := decode(r, &body); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	cmd, err := body.PostMessageCommand(caller(r))
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	msg, err := h.chat.PostMessage(cmd)
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chatv1.FromMessage(msg))
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	q := r.URL.Query()
	page, err := h.chat.GetMessages(domain.GetMessagesCommand{
		Room:   domain.RoomID(q.Get("roomId")),
		Limit:  limit,
		Before: domain.Cursor(q.Get("before")),
	})
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.ListMessagesResponse{
		Messages: chatv1.FromMessages(page.Messages),
		Cursor:   page.Next.String(),
	})
}

func (h *Handler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit")
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	q := r.URL.Query()
	messages, err := h.chat.SearchMessages(r.Context(), domain.SearchMessagesCommand{
		Room:  domain.RoomID(q.Get("roomId")),
		Query: q.Get("q"),
		Limit: limit,
	})
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.FromMessages(messages))
}

func (h *Handler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	var body chatv1.UpsertProfileRequest
	if err := decode(r, &body); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	profile, err := h.chat.UpsertProfile(domain.UpsertProfileCommand{
		Identity:  caller(r),
		Username:  body.Username,
		AvatarRef: body.Avatar,
	})
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.FromProfile(profile))
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.chat.GetProfile(chi.URLParam(r, "profileId"))
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chatv1.FromProfile(profile))
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	var body roomBody
	if err := decode(r, &body); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	if err := h.chat.Join(caller(r), domain.RoomID(body.RoomID)); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	var body roomBody
	if err := decode(r, &body); err != nil {
		writeError(h.log, w, r, err)
		return
	}
	h.chat.Leave(caller(r), domain.RoomID(body.RoomID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, chatv1.HeartbeatResponse{Active: h.chat.Heartbeat(caller(r))})
}

package httpapi

import (
	"chatrooms/api/chatv1"
	"chatrooms/domain"
	"chatrooms/errors"
	"chatrooms/runtime"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Subscribe upgrades the connection and streams every message appended to
// the room as one JSON text frame. Closing the socket ends the subscription.
// Pongs count as presence heartbeats.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := caller(r)
	// Subscribing before the upgrade keeps errors as plain HTTP responses.
	sub, err := h.chat.Subscribe(userID, domain.RoomID(r.URL.Query().Get("roomId")))
	if err != nil {
		writeError(h.log, w, r, err)
		return
	}
	defer h.chat.Unsubscribe(sub)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go h.readPump(conn, userID, gone)
	h.writePump(conn, sub, gone)
}

// readPump only drains control frames; clients never send data on the socket.
func (h *Handler) readPump(conn *websocket.Conn, userID string, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		h.chat.Heartbeat(userID)
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, sub *runtime.Subscription, gone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gone:
			h.log.Debug("websocket closed by peer", "user_id", sub.Identity, "room_id", sub.Room)
			return
		case msg, ok := <-sub.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, closeFrame(sub.Err()))
				return
			}
			frame, err := json.Marshal(chatv1.FromMessage(msg))
			if err != nil {
				h.log.Error("unable to encode event", "message_id", msg.ID, "error", err)
				continue
			}
			if err = conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.log.Debug("failed to push event to websocket", "user_id", sub.Identity, "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func closeFrame(reason error) []byte {
	if errors.Is(reason, errors.ErrSlowConsumer) {
		return websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason.Error())
	}
	return websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
}

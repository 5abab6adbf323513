package sandbox

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/notes_sdk_go/pkg/notes"
)

const writeWait = 5 * time.Second

// Hub fans change feed events out to every connected websocket.
type Hub struct {
	upgrader websocket.Upgrader
	log      *logrus.Entry

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func newHub(log *logrus.Entry) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:   log,
		conns: make(map[*websocket.Conn]bool),
	}
}

// Len reports the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast writes ev to every subscriber, dropping the ones that fail.
func (h *Hub) Broadcast(ev notes.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			h.log.WithError(err).Debug("dropping change feed subscriber")
			delete(h.conns, conn)
			_ = conn.Close()
		}
	}
}

func (h *Hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	h.log.WithField("remote", r.RemoteAddr).Info("change feed subscriber connected")

	defer func() {
		h.mu.Lock()
		delete(h.conns, conn)
		h.mu.Unlock()
		_ = conn.Close()
	}()

	// The feed is one-way; reading only detects the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

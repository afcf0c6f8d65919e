package main

import (
	"net/http"
	"sync"

	Logger "github.com/globalpulse/newsdesk/utils/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stub is a development tool, any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHub tracks every connected desk and broadcasts push hints to all of
// them. Client to server traffic is heartbeat only and gets drained.
type wsHub struct {
	mu    sync.Mutex
	conns map[string]*websocket.Conn
}

func newWsHub() *wsHub {
	return &wsHub{conns: map[string]*websocket.Conn{}}
}

func (h *wsHub) add(conn *websocket.Conn) string {
	id := uuid.New().String()
	h.mu.Lock()
	h.conns[id] = conn
	h.mu.Unlock()
	return id
}

func (h *wsHub) remove(id string) {
	h.mu.Lock()
	if conn, ok := h.conns[id]; ok {
		conn.Close()
		delete(h.conns, id)
	}
	h.mu.Unlock()
}

// broadcast sends payload to every connection, dropping the stale ones.
func (h *wsHub) broadcast(payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.conns {
		if err := conn.WriteJSON(payload); err != nil {
			Logger.Log.Infof("dropping stale push client %s: %s", id, err)
			conn.Close()
			delete(h.conns, id)
		}
	}
}

// serve upgrades one request and drains inbound heartbeats until the client
// goes away.
func (h *wsHub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Log.Infof("fail to upgrade push connection: %s", err)
		return
	}
	id := h.add(conn)
	Logger.Log.Infof("push client %s connected", id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(id)
	Logger.Log.Infof("push client %s disconnected", id)
}

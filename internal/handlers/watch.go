package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/awidyan/homeboard/internal/store"
	"github.com/awidyan/homeboard/internal/watch"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard is same-host, no auth model to protect
	},
}

const watchPingInterval = 30 * time.Second

// WatchHandler pushes modification markers over a websocket, the push
// equivalent of the polling endpoint.
type WatchHandler struct {
	store *store.Store
	hub   *watch.Hub
}

// NewWatchHandler creates a new WatchHandler instance.
func NewWatchHandler(st *store.Store, hub *watch.Hub) *WatchHandler {
	return &WatchHandler{store: st, hub: hub}
}

type markerFrame struct {
	ModificationMarker int64 `json:"modification_marker"`
}

// Watch upgrades to a websocket and pushes the current marker immediately,
// then a frame for every accepted write until the client disconnects.
// GET /api/config/watch
func (h *WatchHandler) Watch(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("failed to upgrade watch connection: %v", err)
		return
	}
	defer func() { _ = ws.Close() }()

	marker, err := h.store.Marker()
	if err == nil {
		if err := ws.WriteJSON(markerFrame{ModificationMarker: marker}); err != nil {
			return
		}
	}

	sub := h.hub.Subscribe()
	defer h.hub.Unsubscribe(sub)

	// Drain client frames so close and pong handling work.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(watchPingInterval)
	defer ticker.Stop()

	for {
		select {
		case marker, ok := <-sub:
			if !ok {
				return
			}
			if err := ws.WriteJSON(markerFrame{ModificationMarker: marker}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

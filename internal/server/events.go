package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event is pushed to websocket subscribers after every recompilation
type Event struct {
	Type      string `json:"type"` // "compiled" or "failed"
	Input     string `json:"input,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Errors    int    `json:"errors"`
	Warnings  int    `json:"warnings"`
	Schemas   int    `json:"schemas"`
	Message   string `json:"message,omitempty"`
}

// Hub fans events out to connected websocket clients
type Hub struct {
	connections map[*websocket.Conn]bool
	broadcast   chan *Event
	register    chan *websocket.Conn
	unregister  chan *websocket.Conn
	done        chan struct{}
	closeOnce   sync.Once
	mutex       sync.RWMutex
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewHub creates a hub and starts its dispatch loop
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		connections: make(map[*websocket.Conn]bool),
		broadcast:   make(chan *Event, 64),
		register:    make(chan *websocket.Conn),
		unregister:  make(chan *websocket.Conn),
		done:        make(chan struct{}),
		logger:      logger,
		upgrader: websocket.Upgrader{
			CheckOrigin:     localOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	go h.run()
	return h
}

// localOrigin accepts same-origin and localhost pages only
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, prefix := range []string{"http://localhost", "https://localhost", "http://127.0.0.1", "https://127.0.0.1"} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return

		case conn := <-h.register:
			h.mutex.Lock()
			h.connections[conn] = true
			count := len(h.connections)
			h.mutex.Unlock()
			h.logger.Debug("event client connected", zap.Int("clients", count))

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				conn.Close()
			}
			count := len(h.connections)
			h.mutex.Unlock()
			h.logger.Debug("event client disconnected", zap.Int("clients", count))

		case event := <-h.broadcast:
			h.sendToAll(event)
		}
	}
}

func (h *Hub) sendToAll(event *Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Warn("failed to marshal event", zap.Error(err))
		return
	}

	h.mutex.RLock()
	var failed []*websocket.Conn
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			failed = append(failed, conn)
		}
	}
	h.mutex.RUnlock()

	if len(failed) > 0 {
		h.mutex.Lock()
		for _, conn := range failed {
			if _, ok := h.connections[conn]; ok {
				conn.Close()
				delete(h.connections, conn)
			}
		}
		h.mutex.Unlock()
	}
}

// ServeHTTP upgrades the request to a websocket subscription
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}
	go h.readLoop(conn)
}

// readLoop drains client frames so pings and close frames are handled
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket error", zap.Error(err))
			}
			return
		}
	}
}

// Publish queues an event for every client. Events are dropped when the
// queue is full or the hub is closed.
func (h *Hub) Publish(event *Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	select {
	case <-h.done:
	case h.broadcast <- event:
	default:
		h.logger.Warn("event queue full, dropping event", zap.String("type", event.Type))
	}
}

// ConnectionCount returns the number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

// Close disconnects every client and stops the dispatch loop
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)

		h.mutex.Lock()
		defer h.mutex.Unlock()
		for conn := range h.connections {
			conn.Close()
		}
		h.connections = make(map[*websocket.Conn]bool)
	})
}

// Package telemetry streams live search progress to websocket clients.
// It is optional: the hub only exists when the Telemetry option names a
// listen address, and publishing never blocks the search thread.
package telemetry

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// InfoPayload mirrors one engine progress report as JSON.
type InfoPayload struct {
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth"`
	Score    int      `json:"score_cp"`
	Mate     int      `json:"mate,omitempty"`
	Nodes    uint64   `json:"nodes"`
	TimeMs   int64    `json:"time_ms"`
	PV       []string `json:"pv"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The hub serves localhost tooling; no origin policy.
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans search reports out to connected websocket clients.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	broadcast chan InfoPayload
	done      chan struct{}
	server    *http.Server
}

// NewHub creates a hub; call Serve to start accepting clients.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		broadcast: make(chan InfoPayload, 64),
		done:      make(chan struct{}),
	}
}

// Serve listens on addr and accepts websocket clients at /live. It returns
// at once; the listener and the hub run on background goroutines, and a
// listen failure is only logged.
func (h *Hub) Serve(addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", h.handleWS)
	h.server = &http.Server{Addr: addr, Handler: mux}

	go h.run()
	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", addr).Msg("telemetry server")
		}
	}()

	log.Info().Str("addr", addr).Msg("telemetry listening")
}

// Close shuts the server down and disconnects every client.
func (h *Hub) Close() {
	close(h.done)
	if h.server != nil {
		h.server.Close()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// Publish enqueues a report for broadcast. It drops the report rather than
// block when the hub is saturated.
func (h *Hub) Publish(p InfoPayload) {
	select {
	case h.broadcast <- p:
	default:
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			return
		case payload := <-h.broadcast:
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					// Slow client: drop it rather than stall the rest.
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("telemetry upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.readLoop(h)
}

func (c *client) writeLoop() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop drains (and ignores) client messages so pings are answered and
// closed connections are noticed.
func (c *client) readLoop(h *Hub) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

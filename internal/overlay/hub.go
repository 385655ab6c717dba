// Package overlay fans finished translations out to connected overlay
// clients over WebSocket. The hub is fire-and-forget: a slow or dead client
// gets disconnected, never blocks the pipeline.
package overlay

import (
	"encoding/json"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/rvasily/squadvoice/internal/pipeline"
	"github.com/rvasily/squadvoice/pkg/logger"
)

// Envelope is the wire format sent to overlay clients.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub tracks connected overlay clients and broadcasts messages to them.
// It implements pipeline.Display.
type Hub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// sendBuffer is how many messages may queue per client before it is
// considered dead.
const sendBuffer = 16

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:     log.Named("overlay"),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// Handler returns the HTTP handler that upgrades overlay connections.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(ws *websocket.Conn) {
	send := make(chan []byte, sendBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ws.Close()
		return
	}
	h.clients[ws] = send
	n := len(h.clients)
	h.mu.Unlock()

	h.log.Info("overlay client connected", logger.Int("clients", n))
	defer h.drop(ws)

	// Writes happen here; reads are discarded but keep the connection's
	// close detection working.
	go func() {
		for payload := range send {
			if err := websocket.Message.Send(ws, string(payload)); err != nil {
				ws.Close()
				return
			}
		}
	}()

	var discard string
	for {
		if err := websocket.Message.Receive(ws, &discard); err != nil {
			return
		}
	}
}

func (h *Hub) drop(ws *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.clients[ws]
	if ok {
		delete(h.clients, ws)
		close(send)
	}
	n := len(h.clients)
	h.mu.Unlock()

	ws.Close()
	if ok {
		h.log.Info("overlay client disconnected", logger.Int("clients", n))
	}
}

// Show broadcasts one finished translation to every connected client.
func (h *Hub) Show(msg pipeline.Message) {
	h.broadcast(Envelope{Type: "translation", Data: msg})
}

// Clients returns the number of connected overlay clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients. New connections are refused afterwards.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for ws, send := range h.clients {
		delete(h.clients, ws)
		close(send)
		ws.Close()
	}
	h.mu.Unlock()
}

func (h *Hub) broadcast(env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("failed to marshal overlay message", logger.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ws, send := range h.clients {
		select {
		case send <- payload:
		default:
			// Client is not draining its queue. Cut it loose rather than
			// hold up the broadcast.
			delete(h.clients, ws)
			close(send)
			ws.Close()
			h.log.Warn("overlay client too slow, disconnecting")
		}
	}
}

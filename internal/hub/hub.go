// Package hub fans service events out to Server-Sent Events clients.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// DefaultKeepAlive is the interval between keep-alive comments
const DefaultKeepAlive = 30 * time.Second

// Message is a named event sent to every client
type Message struct {
	Event string
	Data  interface{}
}

// Client represents a connected SSE client
type Client struct {
	id     string
	events chan []byte
}

// Hub manages SSE client connections
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Message
	keepAlive  time.Duration
	onCount    func(int)
}

// New creates a new Hub
func New() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Message, 256),
		keepAlive:  DefaultKeepAlive,
	}
}

// WithKeepAlive sets the keep-alive interval
func (h *Hub) WithKeepAlive(d time.Duration) *Hub {
	h.keepAlive = d
	return h
}

// OnClientCount sets a callback receiving the client count after every
// connect and disconnect. Set it before Run.
func (h *Hub) OnClientCount(fn func(int)) *Hub {
	h.onCount = fn
	return h
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// closing every client stream.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("SSE client connected: %s (total: %d)", client.id, count)
			h.reportCount(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.events)
			}
			count := len(h.clients)
			h.mu.Unlock()
			log.Printf("SSE client disconnected: %s (total: %d)", client.id, count)
			h.reportCount(count)

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Data)
			if err != nil {
				log.Printf("Failed to marshal event: %v", err)
				continue
			}

			frame := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", msg.Event, data))

			h.mu.RLock()
			for client := range h.clients {
				select {
				case client.events <- frame:
				default:
					// Client is slow, skip this message
					log.Printf("SSE client %s is slow, skipping message", client.id)
				}
			}
			h.mu.RUnlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.events)
			}
			h.mu.Unlock()
			h.reportCount(0)
			return
		}
	}
}

func (h *Hub) reportCount(n int) {
	if h.onCount != nil {
		h.onCount(n)
	}
}

// Broadcast sends an event to all connected clients
func (h *Hub) Broadcast(event string, data interface{}) {
	select {
	case h.broadcast <- Message{Event: event, Data: data}:
	default:
		log.Println("Broadcast channel full, dropping event")
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles SSE connections
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	client := &Client{
		id:     fmt.Sprintf("%d", time.Now().UnixNano()),
		events: make(chan []byte, 64),
	}

	select {
	case h.register <- client:
	case <-r.Context().Done():
		return
	}

	defer func() {
		// The hub may already have shut down and closed the stream
		select {
		case h.unregister <- client:
		case <-time.After(time.Second):
		}
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.events:
			if !ok {
				return
			}
			if _, err := w.Write(msg); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

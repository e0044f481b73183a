package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"hinosemi/internal/index"
	"hinosemi/internal/infrastructure"
)

// Message types
const (
	TypeConnection = "connection"
	TypeSnapshot   = "index:snapshot"
	TypeRunFailed  = "index:run_failed"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// RunFailure is the payload of TypeRunFailed.
type RunFailure struct {
	RunID string `json:"run_id"`
	Error string `json:"error"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
// The latest snapshot is replayed to every newly registered client.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	latest []byte

	logger *slog.Logger

	totalConnections int64
	messagesSent     int64
	dropped          int64

	quit    chan struct{}
	done    chan struct{}
	running bool
	now     func() time.Time
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Start starts the hub loop. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			latest := h.latest
			h.mu.Unlock()

			h.logger.InfoContext(client.context(), "Client registered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr))

			if data, err := h.encode(TypeConnection, map[string]string{"status": "connected", "client_id": client.id}, client.traceID); err == nil {
				h.deliver(client, data)
			}
			if latest != nil {
				h.deliver(client, latest)
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.InfoContext(client.context(), "Client unregistered",
				slog.Int("total_clients", count),
				slog.String("client_id", client.id),
				slog.Duration("connection_duration", time.Since(client.connectedAt)))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				h.deliver(client, message)
			}
			h.logger.Debug("Broadcast message to clients",
				slog.Int("client_count", len(clients)),
				slog.Int("message_size", len(message)))
		}
	}
}

// deliver queues message for client, disconnecting clients whose buffer is full.
func (h *Hub) deliver(client *Client, message []byte) {
	select {
	case client.send <- message:
		h.mu.Lock()
		h.messagesSent++
		h.mu.Unlock()
	default:
		h.mu.Lock()
		if _, ok := h.clients[client]; ok {
			delete(h.clients, client)
			close(client.send)
		}
		h.dropped++
		h.mu.Unlock()
		h.logger.WarnContext(client.context(), "Client send buffer full, disconnecting",
			slog.String("client_id", client.id))
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) encode(msgType string, data interface{}, traceID string) ([]byte, error) {
	b, err := json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: h.now().Format(time.RFC3339),
		TraceID:   traceID,
	})
	if err != nil {
		h.logger.Error("Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", msgType))
	}
	return b, err
}

// Broadcast sends a typed message to every client.
func (h *Hub) Broadcast(msgType string, data interface{}, traceID string) {
	b, err := h.encode(msgType, data, traceID)
	if err != nil {
		return
	}
	h.send(b)
}

// BroadcastSnapshot pushes a new snapshot and remembers it for late joiners.
func (h *Hub) BroadcastSnapshot(snap index.Snapshot, traceID string) {
	b, err := h.encode(TypeSnapshot, snap, traceID)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.latest = b
	h.mu.Unlock()
	h.send(b)
}

// BroadcastRunFailure tells clients a run did not produce a snapshot.
func (h *Hub) BroadcastRunFailure(runID, reason string) {
	h.Broadcast(TypeRunFailed, RunFailure{RunID: runID, Error: reason}, runID)
}

func (h *Hub) send(b []byte) {
	select {
	case h.broadcast <- b:
	case <-h.quit:
	default:
		h.mu.Lock()
		h.dropped++
		h.mu.Unlock()
		h.logger.Warn("Broadcast queue full, message dropped")
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns hub counters for status endpoints.
func (h *Hub) Stats() map[string]int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return map[string]int64{
		"active_clients":    int64(len(h.clients)),
		"total_connections": h.totalConnections,
		"messages_sent":     h.messagesSent,
		"messages_dropped":  h.dropped,
	}
}

// Stop gracefully stops the hub and closes all clients.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

// ctxWithTrace returns a background context carrying traceID, if any.
func ctxWithTrace(traceID string) context.Context {
	ctx := context.Background()
	if traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, traceID)
	}
	return ctx
}

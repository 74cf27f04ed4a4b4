package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsSendBuffer   = 64 // Messages queued per client before it is dropped as too slow
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins, the API is consumed by automation tools
	},
}

// WSMessage is the envelope for every message sent to clients
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// JobResultNotice announces that a job's result can be fetched from /results
type JobResultNotice struct {
	JobID      string `json:"jobId"`
	TotalBooks int    `json:"totalBooks"`
}

// wsClient owns one connection. Messages are queued on send and written by
// writePump, so a client that stops reading never blocks a broadcast.
type wsClient struct {
	conn      *websocket.Conn
	jobID     string // Empty receives every job
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newWSClient(conn *websocket.Conn, jobID string) *wsClient {
	return &wsClient{
		conn:  conn,
		jobID: jobID,
		send:  make(chan []byte, wsSendBuffer),
		done:  make(chan struct{}),
	}
}

// enqueue reports false when the client's queue is full
func (c *wsClient) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *wsClient) writePump(logger arbor.ILogger) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug().Err(err).Str("job_id", c.jobID).Msg("WebSocket write failed")
				c.close()
				return
			}
		}
	}
}

// close stops the pump and closes the connection, which ends the read loop
func (c *wsClient) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WebSocketHandler streams job status changes to connected clients
type WebSocketHandler struct {
	logger        arbor.ILogger
	eventService  interfaces.EventService
	clients       map[*websocket.Conn]*wsClient
	mu            sync.RWMutex
	subscriptions map[interfaces.EventType]string
}

func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:        logger,
		eventService:  eventService,
		clients:       make(map[*websocket.Conn]*wsClient),
		subscriptions: make(map[interfaces.EventType]string),
	}

	if eventService != nil {
		h.SubscribeToJobEvents()
	}

	return h
}

// SubscribeToJobEvents registers the handler on the event bus
func (h *WebSocketHandler) SubscribeToJobEvents() {
	for _, eventType := range []interfaces.EventType{
		interfaces.EventJobStatusChanged,
		interfaces.EventJobResultStored,
	} {
		id, err := h.eventService.Subscribe(eventType, h.handleJobEvent)
		if err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe WebSocket handler")
			continue
		}
		h.subscriptions[eventType] = id
	}
}

// HandleWebSocket handles WebSocket connections
// GET /ws?jobId={id}
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	client := newWSClient(conn, r.URL.Query().Get("jobId"))

	// Queued first, written only once the client is registered
	if data, err := json.Marshal(WSMessage{Type: "connected", Payload: map[string]string{"jobId": client.jobID}}); err == nil {
		client.enqueue(data)
	}

	h.mu.Lock()
	h.clients[conn] = client
	clientCount := len(h.clients)
	h.mu.Unlock()

	go client.writePump(h.logger)

	h.logger.Debug().
		Str("job_id", client.jobID).
		Int("clients", clientCount).
		Msg("WebSocket client connected")

	// Handle client disconnection
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		clientCount := len(h.clients)
		h.mu.Unlock()

		client.close()
		h.logger.Debug().Int("remaining", clientCount).Msg("WebSocket client disconnected")
	}()

	// Read messages from client (keep connection alive)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
	}
}

func (h *WebSocketHandler) handleJobEvent(ctx context.Context, event interfaces.Event) error {
	switch payload := event.Payload.(type) {
	case models.Job:
		h.broadcast(payload.ID, WSMessage{Type: "job_status", Payload: payload})
	case models.JobResult:
		h.broadcast(payload.JobID, WSMessage{
			Type:    "job_result",
			Payload: JobResultNotice{JobID: payload.JobID, TotalBooks: len(payload.Books)},
		})
	}
	return nil
}

// broadcast sends msg to clients watching jobID or every job
func (h *WebSocketHandler) broadcast(jobID string, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for _, client := range h.clients {
		if client.jobID == "" || client.jobID == jobID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if !client.enqueue(data) {
			h.logger.Warn().
				Str("job_id", jobID).
				Str("client_job_id", client.jobID).
				Msg("WebSocket client is not keeping up, disconnecting")
			client.close()
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unsubscribes from the event bus and disconnects every client
func (h *WebSocketHandler) Close() error {
	if h.eventService != nil {
		for eventType, id := range h.subscriptions {
			if err := h.eventService.Unsubscribe(eventType, id); err != nil {
				h.logger.Debug().Err(err).Str("event_type", string(eventType)).Msg("Failed to unsubscribe WebSocket handler")
			}
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.close()
	}
	return nil
}

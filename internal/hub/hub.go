// Package hub fans call lifecycle updates out to websocket watchers.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/lifeline/internal/domain"
	"github.com/xiaot623/lifeline/internal/observability"
)

// AllReports is the topic of watchers that did not pick a report.
const AllReports = "*"

// TypeCallUpdate tags every message sent to watchers.
const TypeCallUpdate = "call_update"

// CallUpdate is the message pushed for each accepted callback.
type CallUpdate struct {
	Type     string             `json:"type"`
	Ts       int64              `json:"ts"`
	ReportID string             `json:"report_id,omitempty"`
	Session  domain.CallSession `json:"session"`
	Event    domain.CallEvent   `json:"event"`
}

// ErrBufferFull is returned when a connection's send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// Connection represents a single WebSocket connection.
type Connection struct {
	ID       string
	ReportID string
	Conn     *websocket.Conn
	Send     chan []byte
	mu       sync.Mutex
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Close closes the underlying websocket.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

type topicMessage struct {
	topic string
	data  []byte
}

// Hub manages all watcher connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Topics maps a report id (or AllReports) to connection IDs
	topics map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan topicMessage
	done       chan struct{}

	metrics *observability.Metrics
	mu      sync.RWMutex
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan topicMessage, 256),
		done:        make(chan struct{}),
		metrics:     metrics,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, conn := range h.connections {
				close(conn.Send)
				delete(h.connections, id)
				h.metrics.WatchDisconnected()
			}
			h.topics = make(map[string]map[string]bool)
			h.mu.Unlock()
			return

		case conn := <-h.register:
			topic := topicOf(conn)
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.topics[topic] == nil {
				h.topics[topic] = make(map[string]bool)
			}
			h.topics[topic][conn.ID] = true
			h.mu.Unlock()
			h.metrics.WatchConnected()
			log.Printf("INFO: watcher registered: %s (report: %s)", conn.ID, topic)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				topic := topicOf(conn)
				if h.topics[topic] != nil {
					delete(h.topics[topic], conn.ID)
					if len(h.topics[topic]) == 0 {
						delete(h.topics, topic)
					}
				}
				close(conn.Send)
				h.metrics.WatchDisconnected()
			}
			h.mu.Unlock()
			log.Printf("INFO: watcher unregistered: %s", conn.ID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.topics[msg.topic] {
				if conn, exists := h.connections[connID]; exists {
					select {
					case conn.Send <- msg.data:
					default:
						log.Printf("WARN: watcher %s buffer full, closing", connID)
						go h.Unregister(conn)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func topicOf(conn *Connection) string {
	if conn.ReportID == "" {
		return AllReports
	}
	return conn.ReportID
}

// NewConnection wraps ws for a watcher of reportID ("" watches everything).
func (h *Hub) NewConnection(ws *websocket.Conn, reportID string) *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		ReportID: reportID,
		Conn:     ws,
		Send:     make(chan []byte, 256),
	}
}

// Register registers a connection with the hub.
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		close(conn.Send)
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast queues data for one topic. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(topic string, data []byte) {
	select {
	case h.broadcast <- topicMessage{topic: topic, data: data}:
	default:
		log.Printf("WARN: watch broadcast queue full, dropping update for %s", topic)
	}
}

// ObserveCall publishes an accepted callback to the report's watchers and to
// watchers of all reports.
func (h *Hub) ObserveCall(session domain.CallSession, event domain.CallEvent) {
	data, err := json.Marshal(CallUpdate{
		Type:     TypeCallUpdate,
		Ts:       time.Now().UnixMilli(),
		ReportID: session.ReportID,
		Session:  session,
		Event:    event,
	})
	if err != nil {
		log.Printf("WARN: failed to encode call update: %v", err)
		return
	}
	if session.ReportID != "" {
		h.Broadcast(session.ReportID, data)
	}
	h.Broadcast(AllReports, data)
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ai-companion-chat/backend/chat/models"
	"ai-companion-chat/backend/pkg/logger"
	"ai-companion-chat/backend/pkg/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// incoming frames are control traffic only, keep them small
	maxMessageSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// Event is one frame pushed to clients
type Event struct {
	Type    string         `json:"type"`
	Message models.Message `json:"message"`
}

// Client is one WebSocket connection subscribed to a session's stream
type Client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
}

// Hub fans appended transcript messages out to the WebSocket connections of
// their session. Chat input still arrives over the REST API; the stream
// exists so image batches and multi-message turns show up as they are
// produced instead of when the request returns.
type Hub struct {
	mu         sync.Mutex
	sessions   map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	events     chan Event
	log        *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.sessionID] == nil {
				h.sessions[client.sessionID] = make(map[*Client]bool)
			}
			h.sessions[client.sessionID][client] = true
			h.mu.Unlock()
			h.log.Debug("ws client registered", "session_id", client.sessionID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.sessions[client.sessionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.sessions, client.sessionID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.events:
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.LogError(err, "failed to encode ws event")
				continue
			}
			h.mu.Lock()
			for client := range h.sessions[event.Message.SessionID] {
				select {
				case client.send <- payload:
				default:
					close(client.send)
					delete(h.sessions[event.Message.SessionID], client)
					h.log.Warn("ws client dropped, send buffer full", "session_id", client.sessionID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a transcript message for the session's connections. It is
// the orchestrator's emit hook and must never block a chat turn.
func (h *Hub) Broadcast(sessionID string, msg models.Message) {
	select {
	case h.events <- Event{Type: "message", Message: msg}:
	default:
		h.log.Warn("ws event dropped, hub backlogged", "session_id", sessionID)
	}
}

// ActiveConnections reports the number of open connections across sessions
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, clients := range h.sessions {
		total += len(clients)
	}
	return total
}

// ServeWs upgrades an authenticated request into a session event stream
func ServeWs(hub *Hub, c *gin.Context) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session token required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.LogError(err, "ws upgrade failed", "session_id", sessionID)
		return
	}
	conn.EnableWriteCompression(true)

	client := &Client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan []byte, 256),
		hub:       hub,
	}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains the connection so pings and close frames are handled;
// clients do not send chat over the socket
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			// flush anything queued behind it as separate frames
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

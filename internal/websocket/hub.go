// Package websocket pushes fiscal rule changes to connected dashboards.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by CORS on the REST API; the token gates the socket.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Scoped is implemented by events that belong to one company.
type Scoped interface {
	Audience() *uuid.UUID
}

// Client is one dashboard connection and the tenant it was opened for.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	admin     bool
	companyID *uuid.UUID
}

// sees reports whether an event for audience may be delivered to the client.
func (c *Client) sees(audience *uuid.UUID) bool {
	if audience == nil || c.admin {
		return true
	}
	return c.companyID != nil && *c.companyID == *audience
}

type envelope struct {
	audience *uuid.UUID
	payload  []byte
}

// Hub tracks connected clients and fans events out to the ones allowed to
// see them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan envelope, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("websocket"),
	}
}

// Run dispatches registrations and events until Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("WebSocket client connected", zap.Bool("admin", client.admin))
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Debug("WebSocket client disconnected")
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.sees(msg.audience) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					// Slow consumer; drop it rather than block every other client.
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with mu held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
}

// Stop ends Run and disconnects every client. It is safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// QueueLen reports how many events wait for dispatch.
func (h *Hub) QueueLen() int {
	return len(h.broadcast)
}

// BroadcastJSON encodes v and queues it. Values implementing Scoped only reach
// their company and admins. It never blocks the caller: when the queue is
// full the event is dropped and logged.
func (h *Hub) BroadcastJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("Failed to encode websocket event", zap.Error(err))
		return
	}

	msg := envelope{payload: payload}
	if s, ok := v.(Scoped); ok {
		msg.audience = s.Audience()
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("WebSocket broadcast queue full, dropping event")
	}
}

// writePump sends queued events and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One event per frame so every frame is a complete JSON document.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client messages; it only notices pongs and closes.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades the request.
// Browsers cannot set headers on the handshake, hence the query parameter.
func ServeWs(hub *Hub, c *gin.Context, tokens *token.Manager) {
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.logger.Info("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := tokens.Parse(tokenString)
	if err != nil {
		hub.logger.Info("WebSocket connection rejected: invalid token", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if !model.ValidRole(claims.Role) {
		hub.logger.Info("WebSocket connection rejected: inadequate permissions", zap.String("role", claims.Role))
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, 256),
		admin:     claims.Role == model.RoleAdmin,
		companyID: claims.CompanyID,
	}
	select {
	case hub.register <- client:
	case <-hub.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

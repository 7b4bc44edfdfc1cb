package ws

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by middleware.WebSocketCORSCheck.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 65536
	sendBuffer     = 256
)

// Client is one browser connection to a table.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         string
	tableToken string
	room       *room.Room
	send       chan []byte
}

// Hub tracks connections per table and fans room output out to them. It
// implements room.Listener.
type Hub struct {
	tables     map[string]map[string]*Client // table token -> client id -> Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{} // closed when Run returns
	relayed    bool // events arrive via Redis instead of TableEvents
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		tables:     make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func newClientID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Run processes registrations until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	defer close(h.done)
	for {
		select {
		case <-stop:
			return
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.tables[client.tableToken]; !ok {
				h.tables[client.tableToken] = make(map[string]*Client)
			}
			h.tables[client.tableToken][client.id] = client
			size := len(h.tables[client.tableToken])
			h.mu.Unlock()
			log.Printf("[WS] client %s joined table %s (room_size=%d)", client.id, client.tableToken, size)

			if snap := client.room.Snapshot(); snap != nil {
				client.sendJSON(envelope{Type: MsgTableState, Token: client.tableToken, Data: snap})
			}

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.tables[client.tableToken]; ok {
				if cur, ok := clients[client.id]; ok && cur == client {
					delete(clients, client.id)
					close(client.send)
					if len(clients) == 0 {
						delete(h.tables, client.tableToken)
					}
					log.Printf("[WS] client %s left table %s", client.id, client.tableToken)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join hands c to Run. It reports false once the hub has stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns how many connections a table has.
func (h *Hub) ClientCount(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tables[token])
}

// BroadcastToTable sends a message to every connection on a table.
func (h *Hub) BroadcastToTable(token string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.tables[token] {
		select {
		case client.send <- data:
		default:
			log.Printf("[WS] send buffer full for client %s on table %s, dropping message", client.id, token)
		}
	}
}

// TableOpened is a no-op: nobody can be connected yet.
func (h *Hub) TableOpened(room.Info) {}

// TableSnapshot broadcasts the throttled snapshot.
func (h *Hub) TableSnapshot(token string, snapshot any) {
	h.BroadcastToTable(token, envelope{Type: MsgTableState, Token: token, Data: snapshot})
}

// TableEvents broadcasts events unless the Redis relay delivers them.
func (h *Hub) TableEvents(token string, events []game.Event, snapshot any) {
	h.mu.RLock()
	relayed := h.relayed
	h.mu.RUnlock()
	if !relayed {
		for _, e := range events {
			h.BroadcastToTable(token, envelope{Type: MsgTableEvent, Token: token, Data: e})
		}
	}
	// Commands change the table between broadcasts; push the result now.
	h.BroadcastToTable(token, envelope{Type: MsgTableState, Token: token, Data: snapshot})
}

// TableClosed tells clients and drops them.
func (h *Hub) TableClosed(token string) {
	h.BroadcastToTable(token, envelope{Type: MsgTableClosed, Token: token, Message: "table closed"})

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.tables[token] {
		delete(h.tables[token], id)
		close(client.send)
	}
	delete(h.tables, token)
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] write error for client %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] ping error for client %s: %v", c.id, err)
				return
			}
		}
	}
}

// readPump feeds client commands into the room inbox.
func (c *Client) readPump(onActivity func(token string)) {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] unexpected close for client %s: %v", c.id, err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.sendError("invalid message")
			continue
		}
		c.handleMessage(msg)
		if onActivity != nil {
			onActivity(c.tableToken)
		}
	}
}

func (c *Client) handleMessage(msg WSMessage) {
	if msg.Type == MsgGetState {
		c.sendJSON(envelope{Type: MsgTableState, Token: c.tableToken, Data: c.room.Snapshot()})
		return
	}

	cmd, err := ParseCommand(msg)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	if err := c.room.Enqueue(cmd); err != nil {
		c.sendError(err.Error())
	}
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[WS] Error marshaling message: %v", err)
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if cur, ok := c.hub.tables[c.tableToken][c.id]; !ok || cur != c {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("[WS] send buffer full for client %s, dropping message", c.id)
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	c.sendJSON(envelope{Type: MsgError, Message: message})
}

// Package websocket carries the real-time side of match channels: clients
// join a room keyed by match id and receive every message broadcast for
// that match, their own included.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"datingluck-server/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ChatBackend persists and fans out messages; the hub only moves bytes.
type ChatBackend interface {
	AuthorizeParticipant(ctx context.Context, matchID, userID primitive.ObjectID) error
	SendMessage(ctx context.Context, matchID, senderID primitive.ObjectID, body string) error
}

type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	chat    ChatBackend
	timeout time.Duration
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID primitive.ObjectID
	rooms  map[string]bool
}

// clientEvent is what clients write on the socket.
type clientEvent struct {
	Type    string `json:"type"` // join_chat or send_message
	MatchID string `json:"match_id"`
	Body    string `json:"body,omitempty"`
}

type serverEvent struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewHub(timeout time.Duration) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]bool),
		timeout: timeout,
	}
}

// AttachChat wires the chat backend after construction; the backend needs
// the hub as its broadcaster, so the two are linked in main.
func (h *Hub) AttachChat(chat ChatBackend) {
	h.chat = chat
}

// Broadcast delivers payload to every current subscriber of the room.
// Slow clients are dropped rather than blocking the send path.
func (h *Hub) Broadcast(matchID string, payload []byte) {
	var stale []*Client

	h.mu.RLock()
	for client := range h.rooms[matchID] {
		select {
		case client.send <- payload:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range stale {
		h.remove(client)
	}
}

// CloseRoom notifies subscribers that the match is gone and drops the
// room. Client connections survive; they may be joined to other rooms.
func (h *Hub) CloseRoom(matchID string) {
	notice, _ := json.Marshal(serverEvent{Type: "match_closed", MatchID: matchID})

	h.mu.Lock()
	for client := range h.rooms[matchID] {
		select {
		case client.send <- notice:
		default:
		}
		delete(client.rooms, matchID)
	}
	delete(h.rooms, matchID)
	h.mu.Unlock()
}

func (h *Hub) join(client *Client, matchID string) {
	h.mu.Lock()
	if h.rooms[matchID] == nil {
		h.rooms[matchID] = make(map[*Client]bool)
	}
	h.rooms[matchID][client] = true
	client.rooms[matchID] = true
	h.mu.Unlock()
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	for matchID := range client.rooms {
		if room := h.rooms[matchID]; room != nil {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, matchID)
			}
		}
	}
	client.rooms = make(map[string]bool)
	h.mu.Unlock()
}

// HandleWebSocket upgrades the connection. The caller identifies itself
// with the user_id query parameter.
func HandleWebSocket(hub *Hub, c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		rooms:  make(map[string]bool),
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithError(err).Warn("WebSocket read error")
			}
			return
		}

		var event clientEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			c.sendError("", "Malformed event")
			continue
		}

		matchID, err := primitive.ObjectIDFromHex(event.MatchID)
		if err != nil {
			c.sendError(event.MatchID, "Invalid match ID")
			continue
		}

		switch event.Type {
		case "join_chat":
			c.handleJoin(matchID)
		case "send_message":
			c.handleSend(matchID, event.Body)
		}
	}
}

// handleJoin subscribes the client to the room after the same participant
// check send uses; join is not open to spectators.
func (c *Client) handleJoin(matchID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.timeout)
	defer cancel()

	if err := c.hub.chat.AuthorizeParticipant(ctx, matchID, c.userID); err != nil {
		c.sendError(matchID.Hex(), apperr.ClientMessage(err))
		return
	}

	c.hub.join(c, matchID.Hex())
	c.sendEvent(serverEvent{Type: "joined", MatchID: matchID.Hex()})
}

func (c *Client) handleSend(matchID primitive.ObjectID, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.hub.timeout)
	defer cancel()

	if err := c.hub.chat.SendMessage(ctx, matchID, c.userID, body); err != nil {
		c.sendError(matchID.Hex(), apperr.ClientMessage(err))
	}
}

func (c *Client) sendError(matchID, msg string) {
	c.sendEvent(serverEvent{Type: "error", MatchID: matchID, Error: msg})
}

func (c *Client) sendEvent(event serverEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logrus.WithError(err).Warn("WebSocket write error")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

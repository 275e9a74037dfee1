package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 64
)

// Conn is the subset of *websocket.Conn the client needs. Tests substitute
// their own implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one live transport session for a username. It is owned by the
// registry between Attach and Detach and is never reused after disconnect.
type Client struct {
	ID       string
	Username string

	hub  *Hub
	conn Conn
	send chan []byte
}

func newClient(hub *Hub, conn Conn, username string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		Username: username,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// ServeWs upgrades the request and runs the connection until it drops. The
// caller has already authenticated username.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, username string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade for %s: %v", username, err)
		return
	}

	client := newClient(hub, conn, username)
	hub.Attach(client)

	go client.writePump()
	client.readPump()
}

// push queues one event for delivery. Delivery is best-effort: if the
// connection's buffer is full the event is dropped rather than blocking the
// sender.
func (c *Client) push(event string, data interface{}) {
	b, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("marshal %s event: %v", event, err)
		return
	}
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) pushError(code, message string) {
	c.push(EventError, ErrorPayload{Code: code, Message: message})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("set read deadline for %s: %v", c.Username, err)
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read from %s: %v", c.Username, err)
			}
			return
		}
		c.dispatch(data)
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
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound action to the hub or the call coordinator.
// Actions from a single connection run synchronously here, which is what
// keeps a sender's messages persisted and relayed in submission order.
func (c *Client) dispatch(data []byte) {
	var act Action
	if err := json.Unmarshal(data, &act); err != nil {
		c.pushError("bad_request", "malformed action")
		return
	}

	switch act.Action {
	case ActionSend:
		c.hub.SendToAll(c, act.Text, act.Attachment)
	case ActionSendPrivate:
		c.hub.SendPrivate(c, act.To, act.Text, act.Attachment)
	case ActionSendGroup:
		c.hub.SendToGroup(c, act.Group, act.Text, act.Attachment)
	case ActionMarkRead:
		c.hub.MarkRead(c, act.MessageID, act.From)
	case ActionJoinGroup:
		c.hub.JoinGroup(c, act.Group)
	case ActionLeaveGroup:
		c.hub.LeaveGroup(c, act.Group)
	case ActionTyping:
		c.hub.TypingToUser(c, act.To)
	case ActionTypingGroup:
		c.hub.TypingToGroup(c, act.Group)
	case ActionCall:
		c.hub.Calls().CallUser(c, act.Peer, act.Media)
	case ActionAcceptCall:
		c.hub.Calls().AcceptCall(c, act.Peer)
	case ActionRejectCall:
		c.hub.Calls().RejectCall(c, act.Peer)
	case ActionHangup:
		c.hub.Calls().Hangup(c, act.Peer)
	case ActionOffer:
		c.hub.Calls().SendOffer(c, act.Peer, act.Payload)
	case ActionAnswer:
		c.hub.Calls().SendAnswer(c, act.Peer, act.Payload)
	case ActionIceCandidate:
		c.hub.Calls().SendIceCandidate(c, act.Peer, act.Payload)
	default:
		c.pushError("bad_request", "unknown action "+act.Action)
	}
}

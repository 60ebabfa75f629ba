package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/syncify/syncify/backend/go-services/internal/rooms"
	"github.com/syncify/syncify/backend/go-services/pkg/logger"
)

var (
	writeWait      = 10 * time.Second
	maxMessageSize = int64(4096)
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
)

// Client is one websocket connection participating in rooms. Outbound
// messages go through a buffered channel; a full buffer means the peer is
// backpressured and the message is dropped.
type Client struct {
	id       string
	name     string
	conn     *websocket.Conn
	send     chan []byte
	registry *rooms.Registry
}

func newClient(id string, conn *websocket.Conn, registry *rooms.Registry) *Client {
	return &Client{
		id:       id,
		conn:     conn,
		send:     make(chan []byte, 64),
		registry: registry,
	}
}

// ID implements rooms.Conn.
func (c *Client) ID() string { return c.id }

// Send implements rooms.Conn with a non-blocking write.
func (c *Client) Send(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump consumes inbound envelopes until the connection drops, then
// removes the client from every room it joined, announcing one peer-left
// per room.
func (c *Client) ReadPump() {
	defer func() {
		for _, dep := range c.registry.Disconnect(c.id) {
			c.announce(dep.RoomID, rooms.TypePeerLeft, dep.Member)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var env rooms.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			logger.Debugf("ws %s: dropping malformed message: %v", c.id, err)
			continue
		}
		c.dispatch(&env)
	}
}

func (c *Client) dispatch(env *rooms.Envelope) {
	// messages without a room target have nowhere to go; drop silently —
	// the relay has no back-channel to report errors to the sender
	if env.RoomID == "" {
		return
	}
	switch env.Type {
	case rooms.TypeJoinRoom:
		c.name = env.UserName
		c.registry.Join(c, env.RoomID, env.UserName)
		c.announce(env.RoomID, rooms.TypePeerJoined, rooms.Member{ConnID: c.id, DisplayName: env.UserName})
	case rooms.TypeLeaveRoom:
		if m, ok := c.registry.Leave(c.id, env.RoomID); ok {
			c.announce(env.RoomID, rooms.TypePeerLeft, m)
		}
	case rooms.TypePlaybackEvent:
		out, err := json.Marshal(rooms.Envelope{
			Type:     rooms.TypePlaybackEvent,
			RoomID:   env.RoomID,
			ID:       c.id,
			UserName: c.name,
			Payload:  env.Payload,
		})
		if err != nil {
			return
		}
		// the sender does not get its own event echoed back
		c.registry.Broadcast(env.RoomID, out, c.id)
	default:
		logger.Debugf("ws %s: unknown message type %q", c.id, env.Type)
	}
}

// announce fans a membership change out to everyone currently in the room,
// the causing connection included when still joined.
func (c *Client) announce(roomID, typ string, m rooms.Member) {
	out, err := json.Marshal(rooms.Envelope{
		Type:     typ,
		RoomID:   roomID,
		ID:       m.ConnID,
		UserName: m.DisplayName,
	})
	if err != nil {
		return
	}
	c.registry.Broadcast(roomID, out, "")
}

// WritePump drains the send channel onto the socket and keeps the
// connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/0xYujan/Online-Code-IDE/internal/models"
)

// writeTimeout bounds a single frame write so one stalled peer cannot hold
// a room's broadcast loop hostage.
const writeTimeout = 5 * time.Second

type clientState int

const (
	statePending clientState = iota
	stateJoined
	stateClosed
)

// Client is one persistent duplex channel to one participant. It owns the
// transient identity for that connection and serializes writes to the
// underlying websocket.
type Client struct {
	ID   string
	Conn *websocket.Conn

	mu          sync.Mutex
	state       clientState
	roomID      string
	userID      string
	displayName string
	hook        func(models.Frame) error
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{ID: uuid.New().String(), Conn: conn}
}

// SetSendHook replaces the default websocket sender (used in tests).
func (c *Client) SetSendHook(fn func(models.Frame) error) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

// Send delivers one frame to this connection. A write failure means the
// peer is gone or going; the caller treats it as a transient delivery
// failure and never retries.
func (c *Client) Send(frame models.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		return c.hook(frame)
	}
	if c.Conn == nil || c.state == stateClosed {
		return ErrConnectionClosed
	}
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.Conn.WriteJSON(frame)
}

// markJoined transitions pending → joined. A connection joins at most one
// room for its lifetime; a second join is rejected rather than ignored.
func (c *Client) markJoined(roomID, userID, displayName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case stateJoined:
		return ErrAlreadyJoined
	case stateClosed:
		return ErrConnectionClosed
	}
	c.state = stateJoined
	c.roomID = roomID
	c.userID = userID
	c.displayName = displayName
	return nil
}

// markClosed transitions to closed and reports the room the connection was
// in, if any. Idempotent: the second call reports no room.
func (c *Client) markClosed() (roomID string, wasJoined bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasJoined = c.state == stateJoined
	roomID = c.roomID
	c.state = stateClosed
	c.roomID = ""
	return roomID, wasJoined
}

// JoinedRoom reports the room this connection is joined to.
func (c *Client) JoinedRoom() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID, c.state == stateJoined
}

func (c *Client) Identity() (userID, displayName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.displayName
}

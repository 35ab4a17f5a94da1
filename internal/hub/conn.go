package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// ErrConnClosed is returned when sending to a closed connection.
var ErrConnClosed = errors.New("connection closed")

// ErrSendBufferFull is returned when a connection cannot keep up with its
// outbound queue. The hub treats it as a send failure and prunes.
var ErrSendBufferFull = errors.New("send buffer full")

// Conn wraps one live WebSocket connection. All writes go through a single
// write loop; other goroutines only enqueue onto the send channel.
type Conn struct {
	id string
	ws *websocket.Conn

	send chan any
	done chan struct{}
	once sync.Once
}

// NewConn wraps a websocket connection.
func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan any, constants.SendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

// Send enqueues a message for the write loop. It never blocks: a full
// buffer means the client cannot keep up and the send fails.
func (c *Conn) Send(v any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- v:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

// WriteLoop drains the send channel onto the wire and pings the client on a
// fixed interval. It returns when the connection closes or a write fails;
// transport failure is the only thing that closes a connection.
func (c *Conn) WriteLoop() {
	ticker := time.NewTicker(constants.KeepaliveInterval)
	defer ticker.Stop()
	defer c.Close()

	for {
		select {
		case <-c.done:
			return
		case v := <-c.send:
			payload, err := json.Marshal(v)
			if err != nil {
				continue
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(constants.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(constants.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadLoop decodes inbound JSON frames and hands them to the handler. It
// returns on transport failure or malformed framing.
func (c *Conn) ReadLoop(handler func(*Conn, Inbound)) {
	defer c.Close()
	c.ws.SetReadLimit(constants.MaxFrameBytes)

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg Inbound
		if err := json.Unmarshal(payload, &msg); err != nil {
			_ = c.Send(NewError(StatusError, "malformed message"))
			continue
		}
		handler(c, msg)
	}
}

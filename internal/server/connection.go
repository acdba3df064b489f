package server

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/lox/turtlerace/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	sendBufferSize = 256
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
)

// Connection wraps a WebSocket with a buffered write pump. Sends never
// block: a full buffer closes the connection.
type Connection struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *log.Logger

	mu        sync.Mutex
	closed    bool
	listening bool
}

// NewConnection wraps conn and starts its write pump.
func NewConnection(conn *websocket.Conn, logger *log.Logger) *Connection {
	id := uuid.NewString()
	c := &Connection{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.WithPrefix("conn").With("conn", id[:8]),
	}
	go c.writePump()
	return c
}

// ID returns the connection's unique id
func (c *Connection) ID() string {
	return c.id
}

// Send queues msg for the client.
func (c *Connection) Send(msg protocol.ServerMessage) error {
	data, err := protocol.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to encode message", "tag", msg.Tag(), "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		c.closeLocked()
		return ErrSendBufferFull
	}
}

// Close flushes queued messages, sends a close frame and releases the socket.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Listen starts the read pump. Frames go to sink.Deliver and sink.Disconnected
// is called once when the socket goes away.
func (c *Connection) Listen(sink Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.listening {
		return
	}
	c.listening = true
	go c.readPump(sink)
}

// readPump handles incoming messages from the client
func (c *Connection) readPump(sink Sink) {
	defer func() {
		_ = c.Close()
		sink.Disconnected(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket error", "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("Ignoring non-text frame", "type", messageType)
			continue
		}
		sink.Deliver(c, data)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("Failed to write message", "error", err)
				_ = c.Close()
				c.drain()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				c.drain()
				return
			}
		}
	}
}

func (c *Connection) drain() {
	for range c.send {
	}
}

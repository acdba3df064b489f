// Package client is a line mode terminal client for a turtle race room.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/turtlerace/internal/protocol"
)

const writeWait = 10 * time.Second

// RoomURL builds the socket URL for name in room on the server at base.
// http and https schemes are mapped to ws and wss.
func RoomURL(base, room, name string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if room == "" || name == "" {
		return "", errors.New("room and name are required")
	}

	// RawPath keeps a '/' inside room or name escaped as %2F
	escaped := strings.TrimSuffix(u.EscapedPath(), "/") + "/" + url.PathEscape(room) + "/" + url.PathEscape(name)
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + room + "/" + name
	u.RawPath = escaped
	return u.String(), nil
}

// Client is one player's connection to a room
type Client struct {
	conn     *websocket.Conn
	renderer *Renderer
	logger   *log.Logger
	writeMu  sync.Mutex
}

// Dial connects name to room on the server at base.
func Dial(ctx context.Context, base, room, name string, renderer *Renderer, logger *log.Logger) (*Client, error) {
	target, err := RoomURL(base, room, name)
	if err != nil {
		return nil, err
	}

	logger = logger.WithPrefix("client").With("room", room, "player", name)
	logger.Info("Connecting to server", "url", target)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Client{
		conn:     conn,
		renderer: renderer,
		logger:   logger,
	}, nil
}

// Send writes one command to the server
func (c *Client) Send(msg protocol.ClientMessage) error {
	data, err := msg.MarshalJSON()
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close closes the socket
func (c *Client) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Run prints server events to out and sends commands read from in until the
// server closes the socket or ctx is cancelled. Reaching EOF on in stops
// reading commands but keeps printing events.
func (c *Client) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	out = &syncWriter{w: out}

	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readLoop(out)
		cancel()
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Close()
			return <-readErr

		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			msg, err := ParseCommand(line)
			if errors.Is(err, ErrEmptyCommand) {
				continue
			}
			if err != nil {
				fmt.Fprintln(out, c.renderer.styles.Error.Render(err.Error()))
				continue
			}
			c.logger.Debug("Sending command", "command", msg.Command)
			if err := c.Send(msg); err != nil {
				_ = c.Close()
				<-readErr
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// readLoop prints every event. starting is answered with latest so the
// player sees their hand without asking.
func (c *Client) readLoop(out io.Writer) error {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			if errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		msg, err := protocol.DecodeServer(data)
		if err != nil {
			c.logger.Warn("Ignoring unreadable message", "error", err)
			continue
		}
		c.logger.Debug("Received message", "tag", msg.Tag())
		fmt.Fprintln(out, c.renderer.Event(msg))

		if _, ok := msg.(protocol.Starting); ok {
			if err := c.Send(protocol.Latest()); err != nil {
				return fmt.Errorf("send: %w", err)
			}
		}
	}
}

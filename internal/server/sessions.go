package server

import (
	"github.com/lox/turtlerace/internal/protocol"
)

// Socket is one live client connection as seen by a room.
type Socket interface {
	ID() string
	Send(msg protocol.ServerMessage) error
	// Listen starts delivering inbound frames to sink. It is called once,
	// after the room has handled the connect.
	Listen(sink Sink)
	Close() error
}

// Sink receives inbound traffic for a socket.
type Sink interface {
	Deliver(s Socket, data []byte)
	Disconnected(s Socket)
}

// Sessions tracks the live sockets of one room, one per player name. It is
// owned by the room goroutine and not safe for concurrent use.
type Sessions struct {
	byName map[string]Socket
	byID   map[string]string
	order  []string
}

// NewSessions returns an empty registry
func NewSessions() *Sessions {
	return &Sessions{
		byName: make(map[string]Socket),
		byID:   make(map[string]string),
	}
}

// Add registers s for name. Any previous socket for the same name is closed
// and dropped, so a reconnecting player never holds two sockets.
func (ss *Sessions) Add(name string, s Socket) (replaced Socket) {
	if prev, ok := ss.byName[name]; ok {
		delete(ss.byID, prev.ID())
		if prev.ID() != s.ID() {
			_ = prev.Close()
			replaced = prev
		}
	} else {
		ss.order = append(ss.order, name)
	}
	ss.byName[name] = s
	ss.byID[s.ID()] = name
	return replaced
}

// Name returns the player registered for s.
func (ss *Sessions) Name(s Socket) (string, bool) {
	name, ok := ss.byID[s.ID()]
	return name, ok
}

// Remove drops s from the registry and closes it. A socket that was already
// replaced is only closed.
func (ss *Sessions) Remove(s Socket) bool {
	defer func() { _ = s.Close() }()

	name, ok := ss.byID[s.ID()]
	if !ok {
		return false
	}
	delete(ss.byID, s.ID())
	delete(ss.byName, name)
	for i, n := range ss.order {
		if n == name {
			ss.order = append(ss.order[:i], ss.order[i+1:]...)
			break
		}
	}
	return true
}

// Send delivers msg to one socket, pruning it if the send fails.
func (ss *Sessions) Send(s Socket, msg protocol.ServerMessage) error {
	if err := s.Send(msg); err != nil {
		ss.Remove(s)
		return err
	}
	return nil
}

// Broadcast sends msg to every registered socket except the origin, which
// may be nil. Sockets whose send fails are dropped without notifying the
// others. It returns the number of sockets reached.
func (ss *Sessions) Broadcast(msg protocol.ServerMessage, except Socket) int {
	delivered := 0
	for _, s := range ss.Sockets() {
		if except != nil && s.ID() == except.ID() {
			continue
		}
		if err := s.Send(msg); err != nil {
			ss.Remove(s)
			continue
		}
		delivered++
	}
	return delivered
}

// Sockets returns the registered sockets in join order.
func (ss *Sessions) Sockets() []Socket {
	out := make([]Socket, 0, len(ss.order))
	for _, name := range ss.order {
		out = append(out, ss.byName[name])
	}
	return out
}

// Len returns the number of live sockets.
func (ss *Sessions) Len() int {
	return len(ss.byName)
}

// CloseAll closes every socket and empties the registry.
func (ss *Sessions) CloseAll() {
	for _, s := range ss.Sockets() {
		ss.Remove(s)
	}
}

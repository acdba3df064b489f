package server

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/turtlerace/internal/game"
	"github.com/lox/turtlerace/internal/protocol"
	"github.com/lox/turtlerace/internal/randutil"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

var socketSeq atomic.Int64

// fakeSocket records everything a room sends to it.
type fakeSocket struct {
	id   string
	msgs chan protocol.ServerMessage

	mu     sync.Mutex
	closed bool
	fail   bool
	sink   Sink
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		id:   fmt.Sprintf("fake-%d", socketSeq.Add(1)),
		msgs: make(chan protocol.ServerMessage, 128),
	}
}

func (f *fakeSocket) ID() string { return f.id }

func (f *fakeSocket) Send(msg protocol.ServerMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.fail {
		return ErrConnectionClosed
	}
	select {
	case f.msgs <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (f *fakeSocket) Listen(sink Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSocket) isListening() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sink != nil
}

func (f *fakeSocket) breakSends() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = true
}

func (f *fakeSocket) next(t *testing.T) protocol.ServerMessage {
	t.Helper()
	select {
	case msg := <-f.msgs:
		return msg
	case <-time.After(testTimeout):
		require.FailNow(t, "timed out waiting for message", "socket %s", f.id)
		return nil
	}
}

func (f *fakeSocket) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case msg := <-f.msgs:
		require.FailNow(t, "unexpected message", "%T %+v", msg, msg)
	default:
	}
}

// expect reads the next message from s and requires it to be a T.
func expect[T protocol.ServerMessage](t *testing.T, s *fakeSocket) T {
	t.Helper()
	msg := s.next(t)
	out, ok := msg.(T)
	require.Truef(t, ok, "expected %T, got %T (%+v)", out, msg, msg)
	return out
}

func expectError(t *testing.T, s *fakeSocket, reason string) {
	t.Helper()
	msg := expect[protocol.Error](t, s)
	require.Equal(t, reason, msg.Reason)
}

func newTestRoom(t *testing.T, cfg game.Config) (*Room, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	room := NewRoom("R1", cfg, randutil.New(7), clock, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go room.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-room.Done()
	})
	return room, clock
}

// barrier waits until the room has handled everything queued so far.
func barrier(t *testing.T, room *Room) RoomInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	info, err := room.Info(ctx)
	require.NoError(t, err)
	return info
}

func send(t *testing.T, room *Room, s *fakeSocket, msg protocol.ClientMessage) {
	t.Helper()
	data, err := msg.MarshalJSON()
	require.NoError(t, err)
	room.Deliver(s, data)
}

// join connects a new socket as name and consumes its waiting message.
func join(t *testing.T, room *Room, name string) *fakeSocket {
	t.Helper()
	s := newFakeSocket()
	require.NoError(t, room.Connect(s, name))
	expect[protocol.Waiting](t, s)
	return s
}

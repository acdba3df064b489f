package client

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/turtlerace/internal/game"
	"github.com/lox/turtlerace/internal/protocol"
	"github.com/lox/turtlerace/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line string
		want protocol.ClientMessage
	}{
		{"start", protocol.Start()},
		{"  LATEST ", protocol.Latest()},
		{"play 2", protocol.Play(2, "")},
		{"play 0 red", protocol.Play(0, game.Red)},
		{"Play 4 Yellow", protocol.Play(4, game.Yellow)},
	}

	for _, tt := range tests {
		got, err := ParseCommand(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}

	_, err := ParseCommand("   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)

	for _, bad := range []string{"play", "play x", "play 1 orange", "play 1 red extra", "jump"} {
		_, err := ParseCommand(bad)
		assert.Error(t, err, bad)
	}
}

func TestRoomURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, room, name string
		want             string
	}{
		{"http://localhost:8080", "R1", "alice", "ws://localhost:8080/R1/alice"},
		{"https://race.example.com/", "abc", "bob", "wss://race.example.com/abc/bob"},
		{"ws://host/games", "x", "two words", "ws://host/games/x/two%20words"},
		{"ws://host", "r1", "50%", "ws://host/r1/50%25"},
		{"ws://host", "r1", "a/b", "ws://host/r1/a%2Fb"},
	}
	for _, tt := range tests {
		got, err := RoomURL(tt.base, tt.room, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)

		parsed, err := url.Parse(got)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(parsed.Path, "/"+tt.room+"/"+tt.name),
			"%s decodes to %q", got, parsed.Path)
	}

	_, err := RoomURL("ftp://host", "R1", "alice")
	assert.Error(t, err)
	_, err = RoomURL("http://host", "", "alice")
	assert.Error(t, err)
}

func TestRendererPlainText(t *testing.T) {
	t.Parallel()

	r := NewRenderer(io.Discard, "alice", true)
	board := game.Board{
		Start: []game.Turtle{game.Green},
		Track: [][]game.Turtle{{game.Red, game.Blue}, {}, {game.Yellow, game.Purple}},
	}

	out := r.Board(board)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "start")
	assert.Contains(t, lines[0], "green")
	assert.Contains(t, lines[1], "red blue")
	assert.Contains(t, lines[2], ".")
	assert.Contains(t, lines[3], "finish")
	assert.Contains(t, lines[3], "yellow purple")
	assert.NotContains(t, out, "\x1b[", "no escape codes without colour")

	redPlus := game.Card{ID: "1", Effect: game.ColorEffect(game.Red, game.Single)}
	anyUp := game.Card{ID: "2", Effect: game.AnyEffect(game.Up)}
	assert.Equal(t, "0:red+  1:any↑", r.Hand([]game.Card{redPlus, anyUp}))

	tests := []struct {
		msg  protocol.ServerMessage
		want string
	}{
		{protocol.Error{Reason: "not admin"}, "error: not admin"},
		{protocol.Waiting{Names: []string{"alice", "bob"}}, "waiting: alice, bob"},
		{protocol.Joined{Name: "bob"}, "bob joined"},
		{protocol.Starting{}, "game starting"},
		{protocol.Played{Board: board, Card: redPlus, Turn: "alice"}, "your turn"},
		{protocol.Played{Board: board, Card: redPlus, Turn: "bob"}, "bob's turn"},
		{protocol.Done{Board: board, Winners: []game.Winner{{Turtle: game.Yellow, Name: "bob"}, {Turtle: game.Purple}}}, "2. purple (nobody)"},
	}
	for _, tt := range tests {
		assert.Contains(t, r.Event(tt.msg), tt.want)
	}
}

// lockedBuffer is a bytes.Buffer safe to read while the client writes.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestClientRun(t *testing.T) {
	t.Parallel()

	hub := server.NewHub(server.DefaultHubOptions(), quartz.NewReal(), testLogger())
	ts := httptest.NewServer(server.NewServer(hub, testLogger()).Handler())
	t.Cleanup(func() {
		ts.Close()
		hub.Stop()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bob, err := Dial(ctx, ts.URL, "R1", "bob", NewRenderer(io.Discard, "bob", true), testLogger())
	require.NoError(t, err)
	bobOut := &lockedBuffer{}
	go func() { _ = bob.Run(ctx, strings.NewReader(""), bobOut) }()

	require.Eventually(t, func() bool {
		return strings.Contains(bobOut.String(), "waiting: bob")
	}, 2*time.Second, 10*time.Millisecond)

	alice, err := Dial(ctx, ts.URL, "R1", "alice", NewRenderer(io.Discard, "alice", true), testLogger())
	require.NoError(t, err)

	// bob joined first, so alice's start is refused; the bad line is reported
	// locally and never sent.
	stdin, stdinW := io.Pipe()
	aliceOut := &lockedBuffer{}
	done := make(chan error, 1)
	go func() { done <- alice.Run(ctx, stdin, aliceOut) }()

	_, err = io.WriteString(stdinW, "fly away\nstart\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		out := aliceOut.String()
		return strings.Contains(out, "unknown command") && strings.Contains(out, "error: not admin")
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return strings.Contains(bobOut.String(), "alice joined")
	}, 2*time.Second, 10*time.Millisecond)

	// bob starts; both clients answer starting with latest automatically.
	require.NoError(t, bob.Send(protocol.Start()))
	for _, out := range []*lockedBuffer{aliceOut, bobOut} {
		require.Eventually(t, func() bool {
			s := out.String()
			return strings.Contains(s, "game starting") && strings.Contains(s, "hand: 0:")
		}, 2*time.Second, 10*time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
	_ = stdinW.Close()
}

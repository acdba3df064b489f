package server

import (
	"context"
	"errors"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/turtlerace/internal/game"
	"github.com/lox/turtlerace/internal/protocol"
)

// ErrRoomClosed is returned when an event is offered to a stopped room.
var ErrRoomClosed = errors.New("room closed")

const inboxSize = 64

// RoomInfo is a point in time summary of a room.
type RoomInfo struct {
	ID         string     `json:"id"`
	State      game.State `json:"state"`
	Players    []string   `json:"players"`
	Sessions   int        `json:"sessions"`
	LastActive time.Time  `json:"last_active"`
}

type event interface{ isEvent() }

type connectEvent struct {
	socket Socket
	name   string
	ack    chan error
}

type messageEvent struct {
	socket Socket
	data   []byte
}

type disconnectEvent struct {
	socket Socket
}

type infoEvent struct {
	reply chan RoomInfo
}

type retireEvent struct {
	idle  time.Duration
	reply chan bool
}

func (connectEvent) isEvent()    {}
func (messageEvent) isEvent()    {}
func (disconnectEvent) isEvent() {}
func (infoEvent) isEvent()       {}
func (retireEvent) isEvent()     {}

type handlerFunc func(r *Room, s Socket, name string, msg protocol.ClientMessage)

// handlers maps each state to the commands it accepts. Anything missing is
// answered with invalid command.
var handlers = map[game.State]map[protocol.Command]handlerFunc{
	game.StateWaiting: {
		protocol.CommandStart: (*Room).handleStart,
	},
	game.StateStarted: {
		protocol.CommandLatest: (*Room).handleLatest,
		protocol.CommandPlay:   (*Room).handlePlay,
	},
}

// Room is the actor owning one game. Every connect, message and disconnect
// is queued on the inbox and handled by the Run goroutine one at a time, so
// handlers touch the game and sessions without locking.
type Room struct {
	id       string
	game     *game.Game
	sessions *Sessions
	clock    quartz.Clock
	logger   *log.Logger

	inbox    chan event
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	lastActive time.Time
	retired    bool
}

// NewRoom creates a waiting room. Call Run to start processing events.
func NewRoom(id string, cfg game.Config, rng *rand.Rand, clock quartz.Clock, logger *log.Logger) *Room {
	return &Room{
		id:         id,
		game:       game.New(cfg, rng),
		sessions:   NewSessions(),
		clock:      clock,
		logger:     logger.WithPrefix("room").With("room", id),
		inbox:      make(chan event, inboxSize),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		lastActive: clock.Now(),
	}
}

// ID returns the room id
func (r *Room) ID() string {
	return r.id
}

// Run processes events until ctx is cancelled or Stop is called. Every
// socket still registered is closed on the way out.
func (r *Room) Run(ctx context.Context) {
	defer close(r.done)
	defer r.sessions.CloseAll()

	r.logger.Debug("Room started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			r.logger.Info("Room stopped")
			return
		case ev := <-r.inbox:
			r.handle(ev)
		}
	}
}

// Stop ends the Run loop. It is safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed once the Run loop has exited.
func (r *Room) Done() <-chan struct{} {
	return r.done
}

// Connect hands a new socket for name to the room and waits until the room
// has handled it. The room starts listening on the socket afterwards. A
// retired or stopped room returns ErrRoomClosed without touching s.
func (r *Room) Connect(s Socket, name string) error {
	ack := make(chan error, 1)
	if err := r.enqueue(context.Background(), connectEvent{socket: s, name: name, ack: ack}); err != nil {
		return err
	}
	select {
	case err := <-ack:
		return err
	case <-r.done:
		// The ack is sent before done closes.
		select {
		case err := <-ack:
			return err
		default:
			return ErrRoomClosed
		}
	}
}

// Deliver queues an inbound frame
func (r *Room) Deliver(s Socket, data []byte) {
	_ = r.enqueue(context.Background(), messageEvent{socket: s, data: data})
}

// Disconnected queues the removal of a socket
func (r *Room) Disconnected(s Socket) {
	_ = r.enqueue(context.Background(), disconnectEvent{socket: s})
}

// Info asks the room for a summary through its inbox, so it observes every
// event queued before it.
func (r *Room) Info(ctx context.Context) (RoomInfo, error) {
	reply := make(chan RoomInfo, 1)
	if err := r.enqueue(ctx, infoEvent{reply: reply}); err != nil {
		return RoomInfo{}, err
	}
	select {
	case info := <-reply:
		return info, nil
	case <-r.done:
		return RoomInfo{}, ErrRoomClosed
	case <-ctx.Done():
		return RoomInfo{}, ctx.Err()
	}
}

// retire marks the room as retired when it has had no sessions for at
// least idle. A retired room refuses every later connect.
func (r *Room) retire(ctx context.Context, idle time.Duration) (bool, error) {
	reply := make(chan bool, 1)
	if err := r.enqueue(ctx, retireEvent{idle: idle, reply: reply}); err != nil {
		return false, err
	}
	select {
	case retired := <-reply:
		return retired, nil
	case <-r.done:
		return false, ErrRoomClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (r *Room) enqueue(ctx context.Context, ev event) error {
	select {
	case <-r.done:
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- ev:
		return nil
	case <-r.done:
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) handle(ev event) {
	switch ev := ev.(type) {
	case connectEvent:
		if r.retired {
			ev.ack <- ErrRoomClosed
			return
		}
		r.lastActive = r.clock.Now()
		r.onConnect(ev.socket, ev.name)
		ev.ack <- nil
	case messageEvent:
		r.lastActive = r.clock.Now()
		r.onMessage(ev.socket, ev.data)
	case disconnectEvent:
		r.lastActive = r.clock.Now()
		if r.sessions.Remove(ev.socket) {
			r.logger.Debug("Socket disconnected", "sessions", r.sessions.Len())
		}
	case infoEvent:
		ev.reply <- r.info()
	case retireEvent:
		if !r.retired && r.sessions.Len() == 0 && r.clock.Now().Sub(r.lastActive) >= ev.idle {
			r.retired = true
			r.logger.Debug("Room retired", "idle", ev.idle)
		}
		ev.reply <- r.retired
	}
}

func (r *Room) info() RoomInfo {
	players := r.game.Waiting()
	if r.game.State() != game.StateWaiting {
		seated := r.game.Players()
		players = make([]string, len(seated))
		for i, p := range seated {
			players[i] = p.Name
		}
	}
	if players == nil {
		players = []string{}
	}
	return RoomInfo{
		ID:         r.id,
		State:      r.game.State(),
		Players:    players,
		Sessions:   r.sessions.Len(),
		LastActive: r.lastActive,
	}
}

func (r *Room) onConnect(s Socket, name string) {
	logger := r.logger.With("player", name)

	kind, err := r.game.Join(name)
	if err != nil {
		logger.Warn("Connection rejected", "reason", err)
		_ = s.Send(protocol.ErrorFrom(err))
		_ = s.Close()
		return
	}

	switch kind {
	case game.Finished:
		logger.Debug("Serving final standing")
		_ = s.Send(protocol.DoneFrom(r.game.Standings()))
		_ = s.Close()
		return

	case game.Joined:
		r.sessions.Add(name, s)
		logger.Info("Player joined", "waiting", len(r.game.Waiting()), "admin", r.game.Admin() == name)
		if r.sessions.Send(s, protocol.Waiting{Names: r.game.Waiting()}) != nil {
			return
		}
		r.sessions.Broadcast(protocol.Joined{Name: name}, s)

	case game.RejoinedWaiting:
		if r.sessions.Add(name, s) != nil {
			logger.Debug("Replaced previous socket")
		}
		logger.Info("Player reconnected", "state", r.game.State())
		if r.sessions.Send(s, protocol.Waiting{Names: r.game.Waiting()}) != nil {
			return
		}
		r.sessions.Broadcast(protocol.Reconnected{Name: name}, s)

	case game.RejoinedStarted:
		if r.sessions.Add(name, s) != nil {
			logger.Debug("Replaced previous socket")
		}
		logger.Info("Player reconnected", "state", r.game.State())
		if !r.sendSnapshot(s, name) {
			return
		}
	}

	s.Listen(r)
}

func (r *Room) onMessage(s Socket, data []byte) {
	name, ok := r.sessions.Name(s)
	if !ok {
		r.logger.Debug("Dropping message from unregistered socket")
		return
	}

	if r.game.State() == game.StateDone {
		_ = r.sessions.Send(s, protocol.DoneFrom(r.game.Standings()))
		return
	}

	msg, err := protocol.DecodeClient(data)
	if err != nil {
		r.logger.Debug("Rejecting message", "player", name, "error", err)
		_ = r.sessions.Send(s, protocol.ErrorFrom(game.ErrInvalidCommand))
		return
	}
	r.logger.Debug("Received message", "player", name, "command", msg.Command)

	handler, ok := handlers[r.game.State()][msg.Command]
	if !ok {
		_ = r.sessions.Send(s, protocol.ErrorFrom(game.ErrInvalidCommand))
		return
	}
	handler(r, s, name, msg)
}

func (r *Room) handleStart(s Socket, name string, _ protocol.ClientMessage) {
	if err := r.game.Start(name); err != nil {
		r.logger.Debug("Start rejected", "player", name, "reason", err)
		_ = r.sessions.Send(s, protocol.ErrorFrom(err))
		return
	}

	players := r.game.Players()
	r.logger.Info("Game started", "players", len(players), "first", r.game.Turn())
	r.sessions.Broadcast(protocol.Starting{}, nil)
}

func (r *Room) handleLatest(s Socket, name string, _ protocol.ClientMessage) {
	r.sendSnapshot(s, name)
}

func (r *Room) handlePlay(s Socket, name string, msg protocol.ClientMessage) {
	result, ok := r.game.Play(name, msg.CardIndex, msg.Wildcard)
	if !ok {
		r.logger.Debug("Ignoring play", "player", name, "index", msg.CardIndex, "turn", r.game.Turn())
		return
	}

	r.logger.Debug("Card played", "player", name, "card", result.Card, "moved", result.Moved, "next", result.Turn)
	_ = r.sessions.Send(s, protocol.Cards{Hand: result.Hand})
	r.sessions.Broadcast(protocol.PlayedFrom(result), nil)

	if result.Done {
		standings := r.game.Standings()
		r.logger.Info("Game finished", "winners", len(standings.Winners), "first", standings.Winners[0].Turtle)
		r.sessions.Broadcast(protocol.DoneFrom(standings), nil)
	}
}

func (r *Room) sendSnapshot(s Socket, name string) bool {
	snap, ok := r.game.Snapshot(name)
	if !ok {
		_ = r.sessions.Send(s, protocol.ErrorFrom(game.ErrInvalidUser))
		return false
	}
	return r.sessions.Send(s, protocol.StartedFrom(snap)) == nil
}

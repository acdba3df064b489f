package server

import (
	"context"
	"errors"
	"maps"
	rand "math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/turtlerace/internal/game"
	"github.com/lox/turtlerace/internal/randutil"
)

// HubOptions configures the room registry
type HubOptions struct {
	Game         game.Config
	IdleTimeout  time.Duration
	ReapInterval time.Duration
	// Seed makes every room's deal a function of the seed and room id.
	// Zero seeds each room randomly.
	Seed int64
}

// DefaultHubOptions returns the standard rules with ten minute idle rooms
func DefaultHubOptions() HubOptions {
	return HubOptions{
		Game:         game.DefaultConfig(),
		IdleTimeout:  10 * time.Minute,
		ReapInterval: time.Minute,
	}
}

// Hub creates rooms on first use and reclaims the ones nobody is connected
// to. Each room runs in its own goroutine.
type Hub struct {
	opts   HubOptions
	clock  quartz.Clock
	logger *log.Logger

	mu    sync.RWMutex
	rooms map[string]*Room

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub constructs an empty hub
func NewHub(opts HubOptions, clock quartz.Clock, logger *log.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		opts:   opts,
		clock:  clock,
		logger: logger,
		rooms:  make(map[string]*Room),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect hands s to the room id, creating the room if needed. The hub lock
// only covers the lookup; a room that retired in the meantime is replaced
// and the connect retried.
func (h *Hub) Connect(id string, s Socket, name string) error {
	for {
		room, err := h.roomFor(id)
		if err != nil {
			return err
		}
		err = room.Connect(s, name)
		if !errors.Is(err, ErrRoomClosed) {
			return err
		}
		h.forget(id, room)
	}
}

func (h *Hub) roomFor(id string) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return nil, ErrRoomClosed
	}
	room, ok := h.rooms[id]
	if !ok {
		room = h.createLocked(id)
	}
	return room, nil
}

// forget drops room from the registry, unless id already points at a
// replacement, and stops it.
func (h *Hub) forget(id string, room *Room) {
	h.mu.Lock()
	if h.rooms[id] == room {
		delete(h.rooms, id)
	}
	h.mu.Unlock()
	room.Stop()
}

// Room returns the room id if it exists
func (h *Hub) Room(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room, ok := h.rooms[id]
	return room, ok
}

func (h *Hub) createLocked(id string) *Room {
	room := NewRoom(id, h.opts.Game, h.rngFor(id), h.clock, h.logger)
	h.rooms[id] = room

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		room.Run(h.ctx)
	}()

	h.logger.Info("Room created", "room", id, "rooms", len(h.rooms))
	return room
}

func (h *Hub) rngFor(id string) *rand.Rand {
	if h.opts.Seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return randutil.ForRoom(h.opts.Seed, id)
}

// List returns a summary of every room sorted by id.
func (h *Hub) List(ctx context.Context) []RoomInfo {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		info, err := room.Info(ctx)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	slices.SortFunc(infos, func(a, b RoomInfo) int {
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// Len returns the number of live rooms
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Reap stops and forgets every room that has had no sessions for the idle
// timeout. Each room decides for itself through its inbox. It returns the
// ids reclaimed.
func (h *Hub) Reap(ctx context.Context) []string {
	h.mu.RLock()
	rooms := maps.Clone(h.rooms)
	h.mu.RUnlock()

	var reaped []string
	for id, room := range rooms {
		retired, err := room.retire(ctx, h.opts.IdleTimeout)
		if ctx.Err() != nil {
			break
		}
		if err == nil && !retired {
			continue
		}
		h.forget(id, room)
		reaped = append(reaped, id)
		h.logger.Info("Room reclaimed", "room", id, "rooms", h.Len())
	}
	slices.Sort(reaped)
	return reaped
}

// Run reaps idle rooms every ReapInterval until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	w := h.clock.TickerFunc(ctx, h.opts.ReapInterval, func() error {
		h.Reap(ctx)
		return nil
	}, "hub", "reap")
	err := w.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Stop stops every room and waits for their goroutines to exit.
func (h *Hub) Stop() {
	h.cancel()
	h.mu.Lock()
	for id, room := range h.rooms {
		room.Stop()
		delete(h.rooms, id)
	}
	h.mu.Unlock()
	h.wg.Wait()
}

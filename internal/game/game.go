package game

import (
	"encoding/json"
	"fmt"
	rand "math/rand/v2"
	"slices"
)

// State is the room lifecycle phase
type State string

const (
	StateWaiting State = "waiting"
	StateStarted State = "started"
	StateDone    State = "done"
)

// Config controls the shape of a game.
type Config struct {
	Tiles          int
	MinPlayers     int
	MaxPlayers     int
	HandSize       int
	RecycleDiscard bool
}

// DefaultConfig returns the standard rules: nine tiles, two to four
// players, five card hands and the discard pile reshuffled when the deck
// runs dry.
func DefaultConfig() Config {
	return Config{
		Tiles:          DefaultTiles,
		MinPlayers:     2,
		MaxPlayers:     4,
		HandSize:       HandSize,
		RecycleDiscard: true,
	}
}

// Player is a seated participant once the game has started.
type Player struct {
	Name   string
	Turtle Turtle
	Hand   []Card
}

func (p Player) clone() Player {
	p.Hand = append([]Card(nil), p.Hand...)
	return p
}

// Winner pairs a turtle in the finish with the player who owns it. Name is
// empty for a turtle nobody was dealt.
type Winner struct {
	Turtle Turtle
	Name   string
}

// MarshalJSON encodes the winner as the tuple [turtle, name].
func (w Winner) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(w.Turtle), w.Name})
}

func (w *Winner) UnmarshalJSON(data []byte) error {
	var tuple [2]string
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("winner: %w", err)
	}
	w.Turtle = Turtle(tuple[0])
	w.Name = tuple[1]
	return nil
}

// JoinKind describes how a connection was admitted
type JoinKind int

const (
	// Joined is a new player added to the waiting list
	Joined JoinKind = iota
	// RejoinedWaiting is a known waiting player connecting again
	RejoinedWaiting
	// RejoinedStarted is a seated player connecting to a running game
	RejoinedStarted
	// Finished means the game is over; the caller gets the final standing
	Finished
)

func (k JoinKind) String() string {
	switch k {
	case Joined:
		return "joined"
	case RejoinedWaiting:
		return "rejoined_waiting"
	case RejoinedStarted:
		return "rejoined_started"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Snapshot is the full view of a running game for one player.
type Snapshot struct {
	Board  Board
	Player Player
	Turn   string
	Played *Card
}

// Standings is the final result of a finished game.
type Standings struct {
	Board   Board
	Winners []Winner
}

// PlayResult describes a card that was accepted and resolved.
type PlayResult struct {
	Player string
	Card   Card
	Hand   []Card
	Board  Board
	Moved  bool
	Turn   string
	Done   bool
}

// Game is the rules engine for one room. It is not safe for concurrent use;
// the owning room serialises every call.
type Game struct {
	cfg Config
	rng *rand.Rand

	state   State
	admin   string
	waiting []string

	players []*Player
	turn    int

	deck       *Deck
	discard    []Card
	board      Board
	lastPlayed *Card
	winners    []Winner
}

// New creates a waiting game with a freshly shuffled deck and every turtle
// at the start.
func New(cfg Config, rng *rand.Rand) *Game {
	return &Game{
		cfg:   cfg,
		rng:   rng,
		state: StateWaiting,
		deck:  NewDeck(rng),
		board: NewBoard(cfg.Tiles),
	}
}

// State returns the lifecycle phase.
func (g *Game) State() State {
	return g.state
}

// Admin returns the name of the first player to join.
func (g *Game) Admin() string {
	return g.admin
}

// Waiting returns the names in the waiting list, in join order.
func (g *Game) Waiting() []string {
	return append([]string(nil), g.waiting...)
}

// Players returns copies of the seated players in turn order.
func (g *Game) Players() []Player {
	out := make([]Player, len(g.players))
	for i, p := range g.players {
		out[i] = p.clone()
	}
	return out
}

// Board returns the current board.
func (g *Game) Board() Board {
	return g.board.Clone()
}

// Turn returns the name of the player to act, or "" before the game starts.
func (g *Game) Turn() string {
	if len(g.players) == 0 {
		return ""
	}
	return g.players[g.turn].Name
}

// TurnIndex returns the position of the player to act in turn order.
func (g *Game) TurnIndex() int {
	return g.turn
}

// DeckLen returns the number of undrawn cards.
func (g *Game) DeckLen() int {
	return g.deck.Len()
}

// DiscardLen returns the number of played cards not yet recycled.
func (g *Game) DiscardLen() int {
	return len(g.discard)
}

// Join admits name to the room.
func (g *Game) Join(name string) (JoinKind, error) {
	switch g.state {
	case StateDone:
		return Finished, nil

	case StateStarted:
		if g.player(name) == nil {
			return 0, ErrInvalidUser
		}
		return RejoinedStarted, nil
	}

	if slices.Contains(g.waiting, name) {
		return RejoinedWaiting, nil
	}
	if len(g.waiting) >= g.cfg.MaxPlayers {
		return 0, ErrFull
	}
	if len(g.waiting) == 0 {
		g.admin = name
	}
	g.waiting = append(g.waiting, name)
	return Joined, nil
}

// Start deals the game. Only the admin may start, and only with enough
// players waiting.
func (g *Game) Start(name string) error {
	if g.state != StateWaiting {
		return ErrInvalidCommand
	}
	if name != g.admin {
		return ErrNotAdmin
	}
	if len(g.waiting) < g.cfg.MinPlayers {
		return ErrNotEnoughPlayers
	}

	turtles := Turtles
	g.rng.Shuffle(len(turtles), func(i, j int) {
		turtles[i], turtles[j] = turtles[j], turtles[i]
	})

	hands := g.deck.Deal(len(g.waiting), g.cfg.HandSize)
	g.players = make([]*Player, len(g.waiting))
	for i, name := range g.waiting {
		g.players[i] = &Player{Name: name, Turtle: turtles[i], Hand: hands[i]}
	}
	g.rng.Shuffle(len(g.players), func(i, j int) {
		g.players[i], g.players[j] = g.players[j], g.players[i]
	})

	g.turn = 0
	g.state = StateStarted
	return nil
}

// Play resolves the card at index in name's hand. It returns false, and
// changes nothing, when it is not name's turn, the index is out of range or
// the game is not running.
func (g *Game) Play(name string, index int, wildcard Turtle) (PlayResult, bool) {
	if g.state != StateStarted {
		return PlayResult{}, false
	}
	p := g.players[g.turn]
	if p.Name != name || index < 0 || index >= len(p.Hand) {
		return PlayResult{}, false
	}

	card := p.Hand[index]
	p.Hand = slices.Delete(p.Hand, index, index+1)
	g.discard = append(g.discard, card)
	p.Hand = append(p.Hand, g.draw(1)...)

	board, moved := g.board.ApplyCard(card, wildcard)
	g.board = board
	g.turn = (g.turn + 1) % len(g.players)
	g.lastPlayed = &card

	if len(g.board.Finish()) > 0 {
		g.finish()
	}

	return PlayResult{
		Player: p.Name,
		Card:   card,
		Hand:   append([]Card(nil), p.Hand...),
		Board:  g.board.Clone(),
		Moved:  moved,
		Turn:   g.Turn(),
		Done:   g.state == StateDone,
	}, true
}

// draw takes k cards, refilling from the shuffled discard pile first when
// the deck is empty and recycling is enabled.
func (g *Game) draw(k int) []Card {
	if g.deck.Len() < k && g.cfg.RecycleDiscard && len(g.discard) > 0 {
		recycled := &Deck{cards: g.discard}
		recycled.Shuffle(g.rng)
		g.deck.Refill(recycled.cards)
		g.discard = nil
	}
	return g.deck.Draw(k)
}

func (g *Game) finish() {
	finish := g.board.Finish()
	g.winners = make([]Winner, 0, len(finish))
	for _, t := range finish {
		w := Winner{Turtle: t}
		if owner := g.owner(t); owner != nil {
			w.Name = owner.Name
		}
		g.winners = append(g.winners, w)
	}
	g.state = StateDone
}

// Snapshot returns name's view of the running game.
func (g *Game) Snapshot(name string) (Snapshot, bool) {
	p := g.player(name)
	if p == nil {
		return Snapshot{}, false
	}
	snap := Snapshot{
		Board:  g.board.Clone(),
		Player: p.clone(),
		Turn:   g.Turn(),
	}
	if g.lastPlayed != nil {
		played := *g.lastPlayed
		snap.Played = &played
	}
	return snap, true
}

// Standings returns the final board and finishing order.
func (g *Game) Standings() Standings {
	return Standings{
		Board:   g.board.Clone(),
		Winners: append([]Winner(nil), g.winners...),
	}
}

func (g *Game) player(name string) *Player {
	for _, p := range g.players {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (g *Game) owner(t Turtle) *Player {
	for _, p := range g.players {
		if p.Turtle == t {
			return p
		}
	}
	return nil
}

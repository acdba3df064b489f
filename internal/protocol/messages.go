// Package protocol defines the messages exchanged over a room socket. Every
// message is a JSON array whose first element is a string tag.
package protocol

import (
	"encoding/json"

	"github.com/lox/turtlerace/internal/game"
)

// Command is the tag of a client -> server message
type Command string

const (
	CommandStart  Command = "start"
	CommandLatest Command = "latest"
	CommandPlay   Command = "play"
)

// ClientMessage is a decoded client command. CardIndex and Wildcard are
// only meaningful for CommandPlay; Wildcard is empty when omitted.
type ClientMessage struct {
	Command   Command
	CardIndex int
	Wildcard  game.Turtle
}

// Start returns the ["start"] command.
func Start() ClientMessage {
	return ClientMessage{Command: CommandStart}
}

// Latest returns the ["latest"] command.
func Latest() ClientMessage {
	return ClientMessage{Command: CommandLatest}
}

// Play returns ["play", index] or ["play", index, wildcard].
func Play(index int, wildcard game.Turtle) ClientMessage {
	return ClientMessage{Command: CommandPlay, CardIndex: index, Wildcard: wildcard}
}

// Tag is the tag of a server -> client message
type Tag string

const (
	TagError       Tag = "error"
	TagWaiting     Tag = "waiting"
	TagJoined      Tag = "joined"
	TagReconnected Tag = "reconnected"
	TagStarting    Tag = "starting"
	TagStarted     Tag = "started"
	TagCards       Tag = "cards"
	TagPlayed      Tag = "played"
	TagDone        Tag = "done"
)

// ServerMessage is any server -> client event.
type ServerMessage interface {
	Tag() Tag
}

// Error reports a rejected command to the offending connection.
type Error struct {
	Reason string
}

// Waiting lists the players in the waiting room.
type Waiting struct {
	Names []string
}

// Joined announces a new player in the waiting room.
type Joined struct {
	Name string
}

// Reconnected announces a known player connecting again.
type Reconnected struct {
	Name string
}

// Starting tells clients the game was dealt; they answer with latest.
type Starting struct{}

// Started is one player's full view of a running game.
type Started struct {
	Board  game.Board `json:"board"`
	Player PlayerView `json:"player"`
	Turn   string     `json:"turn"`
	Played *game.Card `json:"played,omitempty"`
}

// Cards is the acting player's hand after a play.
type Cards struct {
	Hand []game.Card
}

// Played is broadcast after every accepted card.
type Played struct {
	Board game.Board `json:"board"`
	Card  game.Card  `json:"card"`
	Turn  string     `json:"turn"`
}

// Done is the final standing of a finished game.
type Done struct {
	Board   game.Board    `json:"board"`
	Winners []game.Winner `json:"winners"`
}

func (Error) Tag() Tag       { return TagError }
func (Waiting) Tag() Tag     { return TagWaiting }
func (Joined) Tag() Tag      { return TagJoined }
func (Reconnected) Tag() Tag { return TagReconnected }
func (Starting) Tag() Tag    { return TagStarting }
func (Started) Tag() Tag     { return TagStarted }
func (Cards) Tag() Tag       { return TagCards }
func (Played) Tag() Tag      { return TagPlayed }
func (Done) Tag() Tag        { return TagDone }

// PlayerView is the private part of a snapshot, encoded as
// [name, {cards, turtle}].
type PlayerView struct {
	Name   string
	Cards  []game.Card
	Turtle game.Turtle
}

type playerDetails struct {
	Cards  []game.Card `json:"cards"`
	Turtle game.Turtle `json:"turtle"`
}

func (p PlayerView) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Name, playerDetails{Cards: nonNil(p.Cards), Turtle: p.Turtle}})
}

func (p *PlayerView) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if len(tuple) != 2 {
		return malformed("player view needs 2 elements, got %d", len(tuple))
	}
	var details playerDetails
	if err := json.Unmarshal(tuple[0], &p.Name); err != nil {
		return err
	}
	if err := json.Unmarshal(tuple[1], &details); err != nil {
		return err
	}
	p.Cards = details.Cards
	p.Turtle = details.Turtle
	return nil
}

// Helpers to convert game results into messages

// ErrorFrom wraps a rule violation.
func ErrorFrom(err error) Error {
	return Error{Reason: err.Error()}
}

func StartedFrom(s game.Snapshot) Started {
	return Started{
		Board: s.Board,
		Player: PlayerView{
			Name:   s.Player.Name,
			Cards:  s.Player.Hand,
			Turtle: s.Player.Turtle,
		},
		Turn:   s.Turn,
		Played: s.Played,
	}
}

func PlayedFrom(r game.PlayResult) Played {
	return Played{Board: r.Board, Card: r.Card, Turn: r.Turn}
}

func DoneFrom(s game.Standings) Done {
	return Done{Board: s.Board, Winners: s.Winners}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

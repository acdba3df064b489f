package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// DefaultTiles is the number of intermediate tiles between start and finish
const DefaultTiles = 9

// Board is the race track. Start holds turtles that have not left the gate
// and has no stacking order. Track holds the intermediate tiles followed by
// the finish; each is a stack with index 0 at the bottom.
//
// Board values are treated as immutable: Move and ApplyCard return a new
// board and never modify the receiver.
type Board struct {
	Start []Turtle
	Track [][]Turtle
}

// NewBoard returns a board with every turtle at the start and the given
// number of tiles before the finish.
func NewBoard(tiles int) Board {
	return Board{
		Start: append([]Turtle(nil), Turtles[:]...),
		Track: make([][]Turtle, tiles+1),
	}
}

// Compartments returns the number of compartments including start and finish.
func (b Board) Compartments() int {
	return len(b.Track) + 1
}

// Compartment returns the turtles in compartment i, where 0 is the start
// and Compartments()-1 the finish.
func (b Board) Compartment(i int) []Turtle {
	if i == 0 {
		return b.Start
	}
	return b.Track[i-1]
}

// Finish returns the finish stack, first arrival first.
func (b Board) Finish() []Turtle {
	return b.Track[len(b.Track)-1]
}

// Clone returns a deep copy of the board.
func (b Board) Clone() Board {
	out := Board{
		Start: slices.Clone(b.Start),
		Track: make([][]Turtle, len(b.Track)),
	}
	for i, stack := range b.Track {
		out.Track[i] = slices.Clone(stack)
	}
	return out
}

// Locate finds the compartment holding t and its height in that stack.
// Start is scanned first, then the track from the first tile to the finish.
func (b Board) Locate(t Turtle) (compartment, height int, ok bool) {
	for i, candidate := range b.Start {
		if candidate == t {
			return 0, i, true
		}
	}
	for i, stack := range b.Track {
		for h, candidate := range stack {
			if candidate == t {
				return i + 1, h, true
			}
		}
	}
	return 0, 0, false
}

// InLastPlace reports whether t sits in the first non-empty compartment
// counting from the start, alone or tied with others.
func (b Board) InLastPlace(t Turtle) bool {
	for c := range b.Compartments() {
		stack := b.Compartment(c)
		if len(stack) == 0 {
			continue
		}
		for _, candidate := range stack {
			if candidate == t {
				return true
			}
		}
		return false
	}
	return false
}

// Move relocates t by delta compartments, carrying every turtle stacked on
// top of it. A turtle leaving the start moves alone. Moves that would land
// outside the track are wasted and leave the board unchanged.
func (b Board) Move(t Turtle, delta int) (Board, bool) {
	out := b.Clone()

	compartment, height, ok := b.Locate(t)
	if !ok || delta == 0 {
		return out, false
	}

	if compartment == 0 {
		target := delta - 1
		if delta < 0 || target >= len(out.Track) {
			return out, false
		}
		out.Start = append(out.Start[:height:height], out.Start[height+1:]...)
		out.Track[target] = append(out.Track[target], t)
		return out, true
	}

	from := compartment - 1
	target := from + delta
	if target < 0 || target >= len(out.Track) {
		return out, false
	}

	unit := out.Track[from][height:]
	out.Track[from] = out.Track[from][:height:height]
	out.Track[target] = append(out.Track[target], unit...)
	return out, true
}

// ApplyCard resolves card against the board. wildcard names the turtle a
// wildcard card applies to and is ignored for coloured cards. The second
// result reports whether any turtle moved; a card with no effect is still
// considered played.
func (b Board) ApplyCard(card Card, wildcard Turtle) (Board, bool) {
	effect := card.Effect
	if !effect.Any {
		return b.Move(effect.Turtle, effect.Move.Delta())
	}

	if !wildcard.Valid() {
		return b.Clone(), false
	}
	if effect.Move.LastPlaceOnly() && !b.InLastPlace(wildcard) {
		return b.Clone(), false
	}
	return b.Move(wildcard, effect.Move.Delta())
}

// Validate checks that every turtle appears exactly once.
func (b Board) Validate() error {
	if len(b.Track) == 0 {
		return errors.New("board has no finish")
	}

	seen := make(map[Turtle]int, len(Turtles))
	for c := range b.Compartments() {
		for _, t := range b.Compartment(c) {
			if !t.Valid() {
				return fmt.Errorf("unknown turtle %q in compartment %d", t, c)
			}
			seen[t]++
		}
	}
	for _, t := range Turtles {
		if seen[t] != 1 {
			return fmt.Errorf("turtle %s appears %d times", t, seen[t])
		}
	}
	return nil
}

// MarshalJSON encodes the board as [start, tile1, ..., finish].
func (b Board) MarshalJSON() ([]byte, error) {
	compartments := make([][]Turtle, 0, b.Compartments())
	for c := range b.Compartments() {
		stack := b.Compartment(c)
		if stack == nil {
			stack = []Turtle{}
		}
		compartments = append(compartments, stack)
	}
	return json.Marshal(compartments)
}

func (b *Board) UnmarshalJSON(data []byte) error {
	var compartments [][]Turtle
	if err := json.Unmarshal(data, &compartments); err != nil {
		return fmt.Errorf("board: %w", err)
	}
	if len(compartments) < 2 {
		return fmt.Errorf("board: need start and finish, got %d compartments", len(compartments))
	}
	b.Start = compartments[0]
	b.Track = compartments[1:]
	return nil
}

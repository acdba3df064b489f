package game

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Move is the movement printed on a card
type Move string

const (
	Double   Move = "++"
	Single   Move = "+"
	Back     Move = "-"
	Up       Move = "↑"
	DoubleUp Move = "↑↑"
)

// Delta returns how many compartments the move travels.
func (m Move) Delta() int {
	switch m {
	case Double, DoubleUp:
		return 2
	case Single, Up:
		return 1
	case Back:
		return -1
	default:
		return 0
	}
}

// LastPlaceOnly reports whether the move may only be applied to a turtle in
// last place.
func (m Move) LastPlaceOnly() bool {
	return m == Up || m == DoubleUp
}

const anyPrefix = "any"

// Effect is what a card does when played. Wildcard effects apply to a
// turtle chosen by the player instead of a fixed colour.
type Effect struct {
	Turtle Turtle
	Any    bool
	Move   Move
}

// ColorEffect returns the effect of a coloured card.
func ColorEffect(t Turtle, m Move) Effect {
	return Effect{Turtle: t, Move: m}
}

// AnyEffect returns the effect of a wildcard card.
func AnyEffect(m Move) Effect {
	return Effect{Any: true, Move: m}
}

// String returns the wire form, e.g. "red++" or "any↑"
func (e Effect) String() string {
	if e.Any {
		return anyPrefix + string(e.Move)
	}
	return string(e.Turtle) + string(e.Move)
}

// ParseEffect parses the wire form of an effect.
func ParseEffect(s string) (Effect, error) {
	if rest, ok := strings.CutPrefix(s, anyPrefix); ok {
		switch m := Move(rest); m {
		case Single, Back, Up, DoubleUp:
			return AnyEffect(m), nil
		}
		return Effect{}, fmt.Errorf("invalid wildcard effect: %q", s)
	}

	for _, t := range Turtles {
		rest, ok := strings.CutPrefix(s, string(t))
		if !ok {
			continue
		}
		switch m := Move(rest); m {
		case Double, Single, Back:
			return ColorEffect(t, m), nil
		}
		break
	}
	return Effect{}, fmt.Errorf("invalid effect: %q", s)
}

func (e Effect) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Effect) UnmarshalText(text []byte) error {
	parsed, err := ParseEffect(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Card is a single movement card. IDs are unique within one game only.
type Card struct {
	ID     string
	Effect Effect
}

func (c Card) String() string {
	return c.ID + ":" + c.Effect.String()
}

// MarshalJSON encodes the card as the tuple [id, effect].
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{c.ID, c.Effect.String()})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var tuple [2]string
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("card: %w", err)
	}
	effect, err := ParseEffect(tuple[1])
	if err != nil {
		return err
	}
	c.ID = tuple[0]
	c.Effect = effect
	return nil
}

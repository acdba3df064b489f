package game

import "fmt"

// Turtle is one of the five racing pieces, identified by its colour.
type Turtle string

const (
	Green  Turtle = "green"
	Purple Turtle = "purple"
	Blue   Turtle = "blue"
	Red    Turtle = "red"
	Yellow Turtle = "yellow"
)

// Turtles lists every turtle on the board in a fixed order.
var Turtles = [...]Turtle{Green, Purple, Blue, Red, Yellow}

// Valid reports whether t names one of the five turtles.
func (t Turtle) Valid() bool {
	for _, candidate := range Turtles {
		if t == candidate {
			return true
		}
	}
	return false
}

func (t Turtle) String() string {
	return string(t)
}

// ParseTurtle converts a colour name into a Turtle
func ParseTurtle(s string) (Turtle, error) {
	t := Turtle(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown turtle: %q", s)
	}
	return t, nil
}

package client

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lox/turtlerace/internal/game"
	"github.com/lox/turtlerace/internal/protocol"
)

// ErrEmptyCommand is returned for a blank input line
var ErrEmptyCommand = errors.New("empty command")

// ParseCommand turns a line typed by the user into a client message:
//
//	start
//	latest
//	play <index> [turtle]
func ParseCommand(line string) (protocol.ClientMessage, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return protocol.ClientMessage{}, ErrEmptyCommand
	}

	switch protocol.Command(fields[0]) {
	case protocol.CommandStart:
		return protocol.Start(), nil

	case protocol.CommandLatest:
		return protocol.Latest(), nil

	case protocol.CommandPlay:
		if len(fields) < 2 || len(fields) > 3 {
			return protocol.ClientMessage{}, fmt.Errorf("usage: play <index> [turtle]")
		}
		index, err := strconv.Atoi(fields[1])
		if err != nil {
			return protocol.ClientMessage{}, fmt.Errorf("card index %q is not a number", fields[1])
		}
		var wildcard game.Turtle
		if len(fields) == 3 {
			wildcard, err = game.ParseTurtle(fields[2])
			if err != nil {
				return protocol.ClientMessage{}, err
			}
		}
		return protocol.Play(index, wildcard), nil

	default:
		return protocol.ClientMessage{}, fmt.Errorf("unknown command %q (try start, latest or play)", fields[0])
	}
}

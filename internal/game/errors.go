package game

import "errors"

// Rule violations reported back to the offending connection. The error text
// is the reason sent on the wire.
var (
	ErrNotAdmin         = errors.New("not admin")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrInvalidUser      = errors.New("invalid user")
	ErrFull             = errors.New("full")
)

// Package game implements the rules of the turtle race.
//
// The main type is Game, which owns one room's lifecycle (waiting, started,
// done), the roster, the turn pointer, the deck and discard pile, and the
// board.
//
// # Basic Usage
//
//	g := game.New(game.DefaultConfig(), randutil.New(42))
//	g.Join("alice") // first joiner is the admin
//	g.Join("bob")
//	if err := g.Start("alice"); err != nil {
//	    // game.ErrNotAdmin, game.ErrNotEnoughPlayers, ...
//	}
//	result, ok := g.Play(g.Turn(), 0, game.Red)
//	if ok && result.Done {
//	    winners := g.Standings().Winners
//	}
//
// # Architecture
//
//   - Deck: the fixed 52 card composition, shuffled with an injected *rand.Rand
//   - Board: an immutable value; Move and ApplyCard return a new board and
//     implement stack-carry, bounds no-ops and the last place rule for ↑ cards
//   - Game: validates commands and reports rule violations as sentinel errors
//     whose text is the wire reason
//
// Game is not safe for concurrent use. The server runs each room on its own
// goroutine and serialises every call.
package game

package game

import (
	"encoding/json"
	"testing"

	"github.com/lox/turtlerace/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBoard builds a board from a start set and the track stacks, the last
// of which is the finish.
func testBoard(start []Turtle, track ...[]Turtle) Board {
	b := Board{Start: start, Track: make([][]Turtle, len(track))}
	for i, stack := range track {
		b.Track[i] = stack
	}
	return b
}

func card(effect string) Card {
	e, err := ParseEffect(effect)
	if err != nil {
		panic(err)
	}
	return Card{ID: "0", Effect: e}
}

func TestNewBoard(t *testing.T) {
	t.Parallel()

	b := NewBoard(3)
	assert.Equal(t, 5, b.Compartments())
	assert.ElementsMatch(t, Turtles[:], b.Start)
	assert.Empty(t, b.Finish())
	require.NoError(t, b.Validate())
}

func TestMoveFromStart(t *testing.T) {
	t.Parallel()

	b := NewBoard(3)

	t.Run("forward leaves alone", func(t *testing.T) {
		out, moved := b.Move(Red, 1)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Red}, out.Track[0])
		assert.NotContains(t, out.Start, Red)
		assert.Len(t, out.Start, 4)
	})

	t.Run("double lands on second tile", func(t *testing.T) {
		out, moved := b.Move(Blue, 2)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Blue}, out.Track[1])
	})

	t.Run("backwards is a no-op", func(t *testing.T) {
		out, moved := b.Move(Red, -1)
		assert.False(t, moved)
		assert.Equal(t, b, out)
	})

	t.Run("receiver is not modified", func(t *testing.T) {
		_, _ = b.Move(Green, 1)
		assert.Len(t, b.Start, 5)
		assert.Empty(t, b.Track[0])
	})
}

func TestMoveStackCarry(t *testing.T) {
	t.Parallel()

	b := testBoard(
		[]Turtle{Yellow},
		[]Turtle{Green, Red, Blue},
		[]Turtle{Purple},
		[]Turtle{},
		[]Turtle{},
	)

	t.Run("carries turtles above", func(t *testing.T) {
		out, moved := b.Move(Red, 1)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Green}, out.Track[0])
		assert.Equal(t, []Turtle{Purple, Red, Blue}, out.Track[1])
		require.NoError(t, out.Validate())
	})

	t.Run("bottom turtle carries the whole stack", func(t *testing.T) {
		out, moved := b.Move(Green, 2)
		require.True(t, moved)
		assert.Empty(t, out.Track[0])
		assert.Equal(t, []Turtle{Green, Red, Blue}, out.Track[2])
	})

	t.Run("top turtle moves alone", func(t *testing.T) {
		out, moved := b.Move(Blue, 1)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Green, Red}, out.Track[0])
		assert.Equal(t, []Turtle{Purple, Blue}, out.Track[1])
	})

	t.Run("stack moving back", func(t *testing.T) {
		out, moved := b.Move(Purple, -1)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Green, Red, Blue, Purple}, out.Track[0])
		assert.Empty(t, out.Track[1])
	})
}

func TestMoveOutOfBounds(t *testing.T) {
	t.Parallel()

	b := testBoard(
		[]Turtle{Yellow, Green},
		[]Turtle{Red},
		[]Turtle{},
		[]Turtle{Blue},
		[]Turtle{Purple},
	)

	tests := []struct {
		name   string
		turtle Turtle
		delta  int
	}{
		{"retreat past the first tile", Red, -1},
		{"overshoot the finish", Blue, 2},
		{"leave the finish", Purple, 1},
		{"start past the finish", Yellow, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, moved := b.Move(tt.turtle, tt.delta)
			assert.False(t, moved)
			assert.Equal(t, b, out)
		})
	}

	t.Run("exact landing on the finish", func(t *testing.T) {
		out, moved := b.Move(Blue, 1)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Purple, Blue}, out.Finish())
	})
}

func TestInLastPlace(t *testing.T) {
	t.Parallel()

	t.Run("everyone tied at the start", func(t *testing.T) {
		b := NewBoard(3)
		for _, turtle := range Turtles {
			assert.True(t, b.InLastPlace(turtle), turtle)
		}
	})

	t.Run("first non-empty tile", func(t *testing.T) {
		b := testBoard(
			[]Turtle{},
			[]Turtle{},
			[]Turtle{Red, Green},
			[]Turtle{Blue, Yellow, Purple},
			[]Turtle{},
		)
		assert.True(t, b.InLastPlace(Red))
		assert.True(t, b.InLastPlace(Green))
		assert.False(t, b.InLastPlace(Blue))
	})

	t.Run("start is last while occupied", func(t *testing.T) {
		b := testBoard(
			[]Turtle{Yellow},
			[]Turtle{Red, Green, Blue, Purple},
			[]Turtle{},
		)
		assert.True(t, b.InLastPlace(Yellow))
		assert.False(t, b.InLastPlace(Red))
	})
}

func TestApplyCard(t *testing.T) {
	t.Parallel()

	b := testBoard(
		[]Turtle{},
		[]Turtle{Red},
		[]Turtle{Blue, Green},
		[]Turtle{Yellow, Purple},
		[]Turtle{},
		[]Turtle{},
	)

	t.Run("coloured card ignores wildcard", func(t *testing.T) {
		out, moved := b.ApplyCard(card("green++"), Red)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Green}, out.Track[3])
		assert.Equal(t, []Turtle{Red}, out.Track[0])
	})

	t.Run("wildcard without turtle is a no-op", func(t *testing.T) {
		out, moved := b.ApplyCard(card("any+"), "")
		assert.False(t, moved)
		assert.Equal(t, b, out)
	})

	t.Run("wildcard with unknown turtle is a no-op", func(t *testing.T) {
		out, moved := b.ApplyCard(card("any-"), Turtle("orange"))
		assert.False(t, moved)
		assert.Equal(t, b, out)
	})

	t.Run("wildcard moves the chosen turtle", func(t *testing.T) {
		out, moved := b.ApplyCard(card("any-"), Yellow)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Blue, Green, Yellow, Purple}, out.Track[1])
	})

	t.Run("up moves a last place turtle", func(t *testing.T) {
		out, moved := b.ApplyCard(card("any↑"), Red)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Blue, Green, Red}, out.Track[1])
	})

	t.Run("double up moves a last place turtle two", func(t *testing.T) {
		out, moved := b.ApplyCard(card("any↑↑"), Red)
		require.True(t, moved)
		assert.Equal(t, []Turtle{Yellow, Purple, Red}, out.Track[2])
	})

	t.Run("up is wasted on a leader", func(t *testing.T) {
		out, moved := b.ApplyCard(card("any↑"), Blue)
		assert.False(t, moved)
		assert.Equal(t, b, out)
	})
}

func TestApplyCardConservesTurtles(t *testing.T) {
	t.Parallel()

	rng := randutil.New(99)
	deck := NewDeck(rng).Cards()

	for game := range 50 {
		b := NewBoard(DefaultTiles)
		for step := range 200 {
			c := deck[rng.IntN(len(deck))]
			wildcard := Turtles[rng.IntN(len(Turtles))]
			before := b.Clone()

			next, moved := b.ApplyCard(c, wildcard)
			require.NoError(t, next.Validate(), "game %d step %d card %s", game, step, c)
			require.Equal(t, before, b, "receiver modified")
			if !moved {
				require.Equal(t, b, next)
			}
			if len(next.Finish()) > 0 {
				break
			}
			b = next
		}
	}
}

func TestBoardJSON(t *testing.T) {
	t.Parallel()

	b := testBoard(
		[]Turtle{Green, Purple},
		[]Turtle{Red, Blue},
		[]Turtle{},
		[]Turtle{Yellow},
	)

	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `[["green","purple"],["red","blue"],[],["yellow"]]`, string(data))

	var decoded Board
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, b, decoded)

	assert.Error(t, json.Unmarshal([]byte(`[["red"]]`), &decoded))
}

package game

import (
	"encoding/json"
	"testing"

	"github.com/lox/turtlerace/internal/randutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckComposition(t *testing.T) {
	t.Parallel()

	d := NewDeck(randutil.New(1))
	require.Equal(t, DeckSize, d.Len())

	counts := make(map[string]int)
	ids := make(map[string]bool)
	for _, c := range d.Cards() {
		counts[c.Effect.String()]++
		assert.False(t, ids[c.ID], "duplicate id %s", c.ID)
		ids[c.ID] = true
	}

	for _, turtle := range Turtles {
		assert.Equal(t, 1, counts[string(turtle)+"++"], turtle)
		assert.Equal(t, 5, counts[string(turtle)+"+"], turtle)
		assert.Equal(t, 2, counts[string(turtle)+"-"], turtle)
	}
	assert.Equal(t, 5, counts["any+"])
	assert.Equal(t, 2, counts["any-"])
	assert.Equal(t, 3, counts["any↑"])
	assert.Equal(t, 2, counts["any↑↑"])
}

func TestNewDeckShuffles(t *testing.T) {
	t.Parallel()

	a := NewDeck(randutil.New(1)).Cards()
	b := NewDeck(randutil.New(2)).Cards()
	assert.NotEqual(t, a, b)
	assert.ElementsMatch(t, a, b)

	again := NewDeck(randutil.New(1)).Cards()
	assert.Equal(t, a, again, "same seed should give the same order")
}

func TestDeckDealAndDraw(t *testing.T) {
	t.Parallel()

	t.Run("deal takes from the front in player order", func(t *testing.T) {
		d := NewDeck(randutil.New(3))
		before := d.Cards()

		hands := d.Deal(3, HandSize)
		require.Len(t, hands, 3)
		for i, hand := range hands {
			assert.Equal(t, before[i*HandSize:(i+1)*HandSize], hand)
		}
		assert.Equal(t, DeckSize-3*HandSize, d.Len())
	})

	t.Run("draw returns what is left", func(t *testing.T) {
		d := NewDeck(randutil.New(4))
		d.Draw(DeckSize - 2)

		drawn := d.Draw(5)
		assert.Len(t, drawn, 2)
		assert.Zero(t, d.Len())
		assert.Empty(t, d.Draw(1))
	})
}

func TestParseEffect(t *testing.T) {
	t.Parallel()

	valid := map[string]Effect{
		"red++":  ColorEffect(Red, Double),
		"green+": ColorEffect(Green, Single),
		"blue-":  ColorEffect(Blue, Back),
		"any+":   AnyEffect(Single),
		"any-":   AnyEffect(Back),
		"any↑":   AnyEffect(Up),
		"any↑↑":  AnyEffect(DoubleUp),
	}
	for input, want := range valid {
		got, err := ParseEffect(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
		assert.Equal(t, input, got.String())
	}

	for _, input := range []string{"", "red", "red↑", "any++", "orange+", "any"} {
		_, err := ParseEffect(input)
		assert.Error(t, err, input)
	}
}

func TestCardJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(Card{ID: "12", Effect: AnyEffect(DoubleUp)})
	require.NoError(t, err)
	assert.JSONEq(t, `["12","any↑↑"]`, string(data))

	var c Card
	require.NoError(t, json.Unmarshal([]byte(`["3","purple-"]`), &c))
	assert.Equal(t, Card{ID: "3", Effect: ColorEffect(Purple, Back)}, c)
}

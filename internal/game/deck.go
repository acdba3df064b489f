package game

import (
	rand "math/rand/v2"
	"strconv"
)

const (
	// DeckSize is the number of cards in a full deck
	DeckSize = 52

	// HandSize is the number of cards dealt to each player
	HandSize = 5
)

// cardCount describes how many copies of an effect a deck holds
type cardCount struct {
	effect Effect
	count  int
}

// composition returns the fixed deck recipe: per colour 1×++, 5×+, 2×-,
// plus 5×any+, 2×any-, 3×any↑ and 2×any↑↑.
func composition() []cardCount {
	counts := make([]cardCount, 0, len(Turtles)*3+4)
	for _, t := range Turtles {
		counts = append(counts,
			cardCount{ColorEffect(t, Double), 1},
			cardCount{ColorEffect(t, Single), 5},
			cardCount{ColorEffect(t, Back), 2},
		)
	}
	return append(counts,
		cardCount{AnyEffect(Single), 5},
		cardCount{AnyEffect(Back), 2},
		cardCount{AnyEffect(Up), 3},
		cardCount{AnyEffect(DoubleUp), 2},
	)
}

// Deck is an ordered pile of cards; deals and draws take from the front.
type Deck struct {
	cards []Card
}

// NewDeck builds the full 52 card deck with sequential ids and shuffles it.
func NewDeck(rng *rand.Rand) *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, cc := range composition() {
		for range cc.count {
			cards = append(cards, Card{ID: strconv.Itoa(len(cards)), Effect: cc.effect})
		}
	}

	d := &Deck{cards: cards}
	d.Shuffle(rng)
	return d
}

// Shuffle performs a uniform Fisher-Yates permutation of the remaining cards
func (d *Deck) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Len returns the number of cards left in the deck.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Cards returns a copy of the remaining cards in draw order.
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards...)
}

// Deal removes size cards per player for n players, in player order.
// Players dealt after the deck runs out receive short hands.
func (d *Deck) Deal(n, size int) [][]Card {
	hands := make([][]Card, n)
	for i := range hands {
		hands[i] = d.Draw(size)
	}
	return hands
}

// Draw removes and returns up to k cards from the front of the deck.
func (d *Deck) Draw(k int) []Card {
	if k > len(d.cards) {
		k = len(d.cards)
	}
	if k <= 0 {
		return nil
	}
	drawn := append([]Card(nil), d.cards[:k]...)
	d.cards = d.cards[k:]
	return drawn
}

// Refill places cards at the back of the deck.
func (d *Deck) Refill(cards []Card) {
	d.cards = append(d.cards, cards...)
}

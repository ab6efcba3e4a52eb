package card

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
)

// ErrExhausted is returned when the draw stack is empty and the discard
// pile has nothing to reshuffle (one card or fewer).
var ErrExhausted = errors.New("deck exhausted")

// Deck owns the draw stack and the discard pile of a session. The full
// catalog is the standard 108-card multiset: per non-wild color one 0,
// two each of 1-9, two each of SKIP/REVERSE/DRAW_TWO, plus four WILD
// and four WILD_DRAW_FOUR.
type Deck struct {
	draw    []Card
	discard []Card
	rng     *rand.Rand
}

// TotalCards is the size of the full catalog. Conservation against this
// constant is checked by the session after every mutation.
const TotalCards = 108

// Build returns the 108-card catalog in catalog order with stable IDs.
func Build() []Card {
	cards := make([]Card, 0, TotalCards)
	add := func(kind Kind, color Color, value int) {
		id := fmt.Sprintf("c%03d", len(cards))
		cards = append(cards, Card{ID: id, Kind: kind, Color: color, Value: value})
	}

	for _, color := range Colors {
		add(Number, color, 0)
		for v := 1; v <= 9; v++ {
			add(Number, color, v)
			add(Number, color, v)
		}
		for i := 0; i < 2; i++ {
			add(Skip, color, 0)
			add(Reverse, color, 0)
			add(DrawTwo, color, 0)
		}
	}
	for i := 0; i < 4; i++ {
		add(WildCard, Wild, 0)
		add(WildDrawFour, Wild, 0)
	}
	return cards
}

// NewDeck builds and shuffles a full deck using the provided RNG.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{draw: Build(), rng: rng}
	d.shuffle(d.draw)
	return d
}

func (d *Deck) shuffle(cards []Card) {
	d.rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Draw removes and returns the top card of the draw stack, reshuffling
// the discard pile (minus its top card) back in when the stack runs dry.
func (d *Deck) Draw() (Card, error) {
	if len(d.draw) == 0 {
		if err := d.reshuffle(); err != nil {
			return Card{}, err
		}
	}
	c := d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]
	return c, nil
}

// reshuffle folds everything below the discard top back into the draw
// stack. Wilds lose their chosen color on the way back in.
func (d *Deck) reshuffle() error {
	if len(d.discard) <= 1 {
		return ErrExhausted
	}
	top := d.discard[len(d.discard)-1]
	recycled := d.discard[:len(d.discard)-1]
	for i := range recycled {
		recycled[i].ChosenColor = nil
	}
	d.draw = append(d.draw, recycled...)
	d.discard = []Card{top}
	d.shuffle(d.draw)
	return nil
}

// FlipInitial draws the first top card for a new game. Action and wild
// cards are rejected and tucked back under the draw stack until a NUMBER
// comes up.
func (d *Deck) FlipInitial() (Card, error) {
	for {
		c, err := d.Draw()
		if err != nil {
			return Card{}, err
		}
		if c.Kind == Number {
			d.discard = append(d.discard, c)
			return c, nil
		}
		// Rejected first card goes under the pile, not back on top.
		d.draw = append([]Card{c}, d.draw...)
	}
}

// Discard places a played card on top of the discard pile.
func (d *Deck) Discard(c Card) {
	d.discard = append(d.discard, c)
}

// Top returns the current top of the discard pile.
func (d *Deck) Top() (Card, bool) {
	if len(d.discard) == 0 {
		return Card{}, false
	}
	return d.discard[len(d.discard)-1], true
}

// SetTopChosenColor commits a wild's color on the discard top.
func (d *Deck) SetTopChosenColor(color Color) {
	if len(d.discard) == 0 {
		return
	}
	top := &d.discard[len(d.discard)-1]
	if top.Kind.IsWild() {
		c := color
		top.ChosenColor = &c
	}
}

// DrawRemaining returns the number of cards left in the draw stack.
func (d *Deck) DrawRemaining() int {
	return len(d.draw)
}

// DiscardCount returns the number of cards in the discard pile.
func (d *Deck) DiscardCount() int {
	return len(d.discard)
}

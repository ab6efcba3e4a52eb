package game

import (
	rand "math/rand/v2"

	"github.com/playone/oneserver/internal/card"
)

// Probability that a bot remembers to call ONE when dropping to a
// single card.
const botCallOneChance = 0.90

// BotView is the information a bot strategy is allowed to see. It is a
// plain value: the strategy never touches session state.
type BotView struct {
	Hand         []card.Card
	Top          card.Card
	Pending      int
	NextHandSize int
}

// BotDecision is the outcome of consulting the strategy. Exactly one of
// Play/Draw is set. ChosenColor accompanies a wild play.
type BotDecision struct {
	Play        *card.Card
	ChosenColor *card.Color
	Draw        bool
	CallOne     bool
}

// ChooseAction picks the bot's move for the current turn. Deterministic
// given the view and the RNG.
func ChooseAction(view BotView, rng *rand.Rand) BotDecision {
	pending := &PenaltyStack{}
	if view.Pending > 0 {
		pending.Add(card.DrawTwo, view.Pending)
	}
	rules := Rules{stackingAllowed: true}
	playable := make([]card.Card, 0, len(view.Hand))
	for _, c := range view.Hand {
		if rules.Playable(c, view.Top, pending) {
			playable = append(playable, c)
		}
	}
	if len(playable) == 0 {
		return BotDecision{Draw: true}
	}

	pick := choosePreferred(view, playable)
	decision := BotDecision{Play: &pick}
	if pick.Kind.IsWild() {
		color := ChooseColor(remainderOf(view.Hand, pick.ID), rng)
		decision.ChosenColor = &color
	}
	if len(view.Hand) == 2 {
		decision.CallOne = rng.Float64() < botCallOneChance
	}
	return decision
}

// choosePreferred applies the preference order over the playable set.
func choosePreferred(view BotView, playable []card.Card) card.Card {
	committed := view.Top.EffectiveColor()

	// Paying down a chain: prefer a same-color stacker, then any.
	if view.Pending > 0 {
		if c, ok := firstMatch(playable, func(c card.Card) bool {
			return c.Kind == card.DrawTwo && c.Color == committed
		}); ok {
			return c
		}
		return playable[0]
	}

	// Down to two cards: lead with an action card so the last card is
	// more likely to land next turn; wilds are the fallback.
	if len(view.Hand) == 2 {
		if c, ok := firstMatch(playable, isColoredAction); ok {
			return c
		}
		if c, ok := firstMatch(playable, func(c card.Card) bool { return c.Kind.IsWild() }); ok {
			return c
		}
	}

	// Next seat is close to going out: deny with a penalty or skip.
	if view.NextHandSize > 0 && view.NextHandSize <= 2 {
		for _, kind := range []card.Kind{card.DrawTwo, card.WildDrawFour, card.Skip} {
			if c, ok := firstMatch(playable, func(c card.Card) bool { return c.Kind == kind }); ok {
				return c
			}
		}
	}

	// Default order: action, color-matching number, any number, wild last.
	if c, ok := firstMatch(playable, isColoredAction); ok {
		return c
	}
	if c, ok := firstMatch(playable, func(c card.Card) bool {
		return c.Kind == card.Number && c.Color == committed
	}); ok {
		return c
	}
	if c, ok := firstMatch(playable, func(c card.Card) bool { return c.Kind == card.Number }); ok {
		return c
	}
	return playable[0]
}

// ChooseColor picks the color most represented in the remaining hand,
// breaking ties uniformly at random.
func ChooseColor(hand []card.Card, rng *rand.Rand) card.Color {
	counts := map[card.Color]int{}
	for _, c := range hand {
		if c.Color != card.Wild {
			counts[c.Color]++
		}
	}

	best := -1
	var candidates []card.Color
	for _, color := range card.Colors {
		n := counts[color]
		if n > best {
			best = n
			candidates = candidates[:0]
			candidates = append(candidates, color)
		} else if n == best {
			candidates = append(candidates, color)
		}
	}
	return candidates[rng.IntN(len(candidates))]
}

func isColoredAction(c card.Card) bool {
	switch c.Kind {
	case card.Skip, card.Reverse, card.DrawTwo:
		return true
	}
	return false
}

func firstMatch(cards []card.Card, pred func(card.Card) bool) (card.Card, bool) {
	for _, c := range cards {
		if pred(c) {
			return c, true
		}
	}
	return card.Card{}, false
}

func remainderOf(hand []card.Card, playedID string) []card.Card {
	out := make([]card.Card, 0, len(hand)-1)
	for _, c := range hand {
		if c.ID != playedID {
			out = append(out, c)
		}
	}
	return out
}

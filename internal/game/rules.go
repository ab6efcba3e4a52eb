package game

import (
	"github.com/rs/zerolog"

	"github.com/playone/oneserver/internal/card"
)

// Rules is the playability predicate and effect table for the game.
// It is stateless; the session feeds it the discard top plus the
// penalty stack and applies the outcome itself.
type Rules struct {
	stackingAllowed bool
	logger          zerolog.Logger
}

// NewRules creates a rules engine.
func NewRules(stackingAllowed bool, logger zerolog.Logger) *Rules {
	return &Rules{
		stackingAllowed: stackingAllowed,
		logger:          logger.With().Str("component", "rules").Logger(),
	}
}

// Playable reports whether c may be played on top, honoring the
// pending-draw gate: while a chain is active only another penalty card
// extends it.
func (r *Rules) Playable(c card.Card, top card.Card, pending *PenaltyStack) bool {
	if pending.Active() {
		return pending.CanStack(c.Kind)
	}

	if c.Kind.IsWild() {
		return true
	}

	committed := top.EffectiveColor()
	if c.Color == committed {
		return true
	}
	if c.Kind == top.Kind && c.Kind != card.Number {
		return true
	}
	if c.Kind == card.Number && top.Kind == card.Number && c.Value == top.Value {
		return true
	}
	return false
}

// CheckWildDrawFour logs a note when a WILD_DRAW_FOUR is played while
// the hand still holds a card matching the committed color. The play is
// accepted regardless; there is no challenge mechanic.
func (r *Rules) CheckWildDrawFour(seat *Seat, top card.Card) {
	committed := top.EffectiveColor()
	for _, held := range seat.Hand {
		if !held.Kind.IsWild() && held.Color == committed {
			r.logger.Debug().
				Str("seat", seat.ID).
				Str("color", committed.String()).
				Msg("WILD_DRAW_FOUR played while holding a matching color")
			return
		}
	}
}

// Effect describes what the session must do after a legal play, before
// the cursor advances.
type Effect struct {
	Advance       int       // cursor steps (1 = next seat, 2 = skip)
	Reverse       bool      // flip direction before advancing
	PendingAdd    int       // add to the penalty stack (stacking on)
	ImmediateDraw int       // cards the next seat draws right now (stacking off)
	NeedsColor    bool      // play must carry a chosen color
	PenaltyKind   card.Kind // kind recorded on the stack when PendingAdd > 0
}

// Resolve returns the effect of playing a card of the given kind.
// seatCount matters for REVERSE: with exactly two seats it behaves as a
// SKIP, landing the turn back on the player.
func (r *Rules) Resolve(kind card.Kind, seatCount int) Effect {
	switch kind {
	case card.Skip:
		return Effect{Advance: 2}
	case card.Reverse:
		if seatCount == 2 {
			return Effect{Reverse: true, Advance: 2}
		}
		return Effect{Reverse: true, Advance: 1}
	case card.DrawTwo:
		return r.penaltyEffect(card.DrawTwo, 2)
	case card.WildCard:
		return Effect{Advance: 1, NeedsColor: true}
	case card.WildDrawFour:
		e := r.penaltyEffect(card.WildDrawFour, 4)
		e.NeedsColor = true
		return e
	default:
		return Effect{Advance: 1}
	}
}

func (r *Rules) penaltyEffect(kind card.Kind, amount int) Effect {
	if r.stackingAllowed {
		return Effect{Advance: 1, PendingAdd: amount, PenaltyKind: kind}
	}
	// Without stacking the next seat pays immediately and is skipped.
	return Effect{Advance: 2, ImmediateDraw: amount}
}

package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/randutil"
)

func TestChooseActionDrawsWhenNothingPlayable(t *testing.T) {
	rng := randutil.New(1)
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.Number, Color: card.Blue, Value: 2},
			{ID: "h2", Kind: card.Number, Color: card.Green, Value: 8},
		},
		Top: card.Card{Kind: card.Number, Color: card.Red, Value: 5},
	}

	d := ChooseAction(view, rng)
	assert.True(t, d.Draw)
	assert.Nil(t, d.Play)
}

func TestChooseActionStacksOnPendingDraw(t *testing.T) {
	rng := randutil.New(1)
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.Number, Color: card.Red, Value: 5},
			{ID: "h2", Kind: card.DrawTwo, Color: card.Blue},
			{ID: "h3", Kind: card.DrawTwo, Color: card.Red},
		},
		Top:     card.Card{Kind: card.DrawTwo, Color: card.Red},
		Pending: 2,
	}

	d := ChooseAction(view, rng)
	require.NotNil(t, d.Play)
	assert.Equal(t, "h3", d.Play.ID, "prefers the same-color stacker")
}

func TestChooseActionDrawsIntoPendingWithoutStacker(t *testing.T) {
	rng := randutil.New(1)
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.Number, Color: card.Red, Value: 5},
			{ID: "h2", Kind: card.Skip, Color: card.Red},
		},
		Top:     card.Card{Kind: card.DrawTwo, Color: card.Red},
		Pending: 2,
	}

	d := ChooseAction(view, rng)
	assert.True(t, d.Draw)
}

func TestChooseActionPrefersActionOverNumber(t *testing.T) {
	rng := randutil.New(1)
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.Number, Color: card.Red, Value: 5},
			{ID: "h2", Kind: card.Skip, Color: card.Red},
			{ID: "h3", Kind: card.WildCard, Color: card.Wild},
			{ID: "h4", Kind: card.Number, Color: card.Blue, Value: 3},
		},
		Top: card.Card{Kind: card.Number, Color: card.Red, Value: 9},
	}

	d := ChooseAction(view, rng)
	require.NotNil(t, d.Play)
	assert.Equal(t, "h2", d.Play.ID)
}

func TestChooseActionDeniesSeatCloseToWinning(t *testing.T) {
	rng := randutil.New(1)
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.Number, Color: card.Red, Value: 5},
			{ID: "h2", Kind: card.DrawTwo, Color: card.Red},
			{ID: "h3", Kind: card.Skip, Color: card.Red},
			{ID: "h4", Kind: card.Number, Color: card.Red, Value: 1},
		},
		Top:          card.Card{Kind: card.Number, Color: card.Red, Value: 9},
		NextHandSize: 1,
	}

	d := ChooseAction(view, rng)
	require.NotNil(t, d.Play)
	assert.Equal(t, "h2", d.Play.ID, "a draw penalty beats a skip for denial")
}

func TestChooseActionWildCarriesColor(t *testing.T) {
	rng := randutil.New(1)
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.WildCard, Color: card.Wild},
			{ID: "h2", Kind: card.Number, Color: card.Green, Value: 2},
			{ID: "h3", Kind: card.Number, Color: card.Green, Value: 7},
			{ID: "h4", Kind: card.Number, Color: card.Blue, Value: 4},
		},
		Top: card.Card{Kind: card.Number, Color: card.Red, Value: 5},
	}

	d := ChooseAction(view, rng)
	require.NotNil(t, d.Play)
	require.Equal(t, "h1", d.Play.ID, "only the wild is playable")
	require.NotNil(t, d.ChosenColor)
	assert.Equal(t, card.Green, *d.ChosenColor, "green dominates the remaining hand")
}

func TestChooseColorTieBreakIsUniform(t *testing.T) {
	hand := []card.Card{
		{Kind: card.Number, Color: card.Red, Value: 1},
		{Kind: card.Number, Color: card.Blue, Value: 2},
	}

	seen := map[card.Color]bool{}
	for seed := int64(0); seed < 40; seed++ {
		seen[ChooseColor(hand, randutil.New(seed))] = true
	}
	assert.True(t, seen[card.Red])
	assert.True(t, seen[card.Blue])
	assert.False(t, seen[card.Green])
	assert.False(t, seen[card.Yellow])
}

func TestChooseActionCallsOneAtTwoCards(t *testing.T) {
	view := BotView{
		Hand: []card.Card{
			{ID: "h1", Kind: card.Number, Color: card.Red, Value: 5},
			{ID: "h2", Kind: card.Number, Color: card.Blue, Value: 3},
		},
		Top: card.Card{Kind: card.Number, Color: card.Red, Value: 9},
	}

	calls := 0
	const trials = 200
	for seed := int64(0); seed < trials; seed++ {
		d := ChooseAction(view, randutil.New(seed))
		require.NotNil(t, d.Play)
		if d.CallOne {
			calls++
		}
	}
	// Bots forget the call roughly 10% of the time.
	assert.Greater(t, calls, trials/2)
	assert.Less(t, calls, trials)
}

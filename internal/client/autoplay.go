package client

import (
	rand "math/rand/v2"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/server"
)

// AutoPlayer drives a client connection with the built-in bot strategy.
// It reacts to state broadcasts: whenever the tracked seat becomes the
// current one, it consults the strategy and sends exactly one action.
// Used by the spawn command to fill demo rooms with wire-level players.
type AutoPlayer struct {
	client *Client
	state  *GameState
	logger *log.Logger

	mu        sync.Mutex
	rng       *rand.Rand
	acted     bool
	recovered bool

	gameOver chan struct{}
	overOnce sync.Once
}

// NewAutoPlayer attaches an automatic player to a client. Call before
// Connect, like TrackState.
func NewAutoPlayer(c *Client, state *GameState, rng *rand.Rand, logger *log.Logger) *AutoPlayer {
	a := &AutoPlayer{
		client:   c,
		state:    state,
		logger:   logger.WithPrefix("autoplay"),
		rng:      rng,
		gameOver: make(chan struct{}),
	}

	// The private hand lands after the public broadcast, so acting on
	// private_hand sees both halves of the turn's state.
	c.AddEventHandler(server.MessageType(game.EventPrivateHand), func(*server.Message) { a.maybeAct() })
	c.AddEventHandler(server.MessageType(game.EventPublicState), func(*server.Message) { a.maybeAct() })
	c.AddEventHandler(server.MessageType(game.EventError), a.onError)
	c.AddEventHandler(server.MessageType(game.EventGameEnded), func(*server.Message) {
		a.overOnce.Do(func() { close(a.gameOver) })
	})

	return a
}

// GameOver is closed when the tracked room's game finishes.
func (a *AutoPlayer) GameOver() <-chan struct{} {
	return a.gameOver
}

// maybeAct sends one action when it is our turn. A turn produces several
// broadcasts (public state plus each private hand), so the acted flag
// holds until the state shows the turn has moved on.
func (a *AutoPlayer) maybeAct() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.state.IsMyTurn() {
		a.acted = false
		a.recovered = false
		return
	}
	if a.acted {
		return
	}
	hand := a.state.Hand()
	pub := a.state.Public()
	if pub.TopCard == nil || len(hand) == 0 {
		return
	}

	view := game.BotView{
		Hand:         hand,
		Top:          *pub.TopCard,
		Pending:      pub.PendingDrawCount,
		NextHandSize: a.state.NextHandSize(),
	}
	decision := game.ChooseAction(view, a.rng)

	var err error
	switch {
	case decision.Play != nil:
		err = a.client.PlayCard(decision.Play.ID, decision.ChosenColor)
	case decision.Draw:
		err = a.client.DrawCard()
	}
	if err != nil {
		a.logger.Error("Failed to send action", "error", err)
		return
	}
	a.acted = true
	if decision.CallOne {
		if err := a.client.CallOne(); err != nil {
			a.logger.Error("Failed to call ONE", "error", err)
		}
	}
}

// onError falls back to drawing when a play was rejected, once per turn,
// so a strategy slip cannot wedge the game.
func (a *AutoPlayer) onError(msg *server.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Debug("Server rejected action", "data", string(msg.Data))
	if !a.state.IsMyTurn() || a.recovered {
		return
	}
	a.recovered = true
	if err := a.client.DrawCard(); err != nil {
		a.logger.Error("Failed to send recovery draw", "error", err)
	}
}

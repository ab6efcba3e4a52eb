package game

import (
	"errors"
	"time"

	"github.com/playone/oneserver/internal/card"
)

// Start deals the opening hands and flips the first top card.
func (s *Session) Start(leaderSeatID string) error {
	return s.do(func() error {
		if s.status != StatusLobby {
			return NewError(CodeWrongState, "game already started")
		}
		if err := s.requireLeader(leaderSeatID); err != nil {
			return err
		}
		if len(s.seats) < 2 {
			return NewError(CodeTooFewPlayers, "need at least 2 players")
		}

		s.deck = card.NewDeck(s.rng)
		for _, seat := range s.seats {
			seat.Hand = nil
			seat.CalledOne = false
			for i := 0; i < s.cfg.InitialHandSize; i++ {
				c, err := s.deck.Draw()
				if err != nil {
					return NewError(CodeInternal, "deal failed")
				}
				seat.AddCards(c)
			}
		}
		if _, err := s.deck.FlipInitial(); err != nil {
			return NewError(CodeInternal, "initial flip failed")
		}

		ids := make([]string, len(s.seats))
		for i, seat := range s.seats {
			ids[i] = seat.ID
		}
		s.cursor = NewTurnCursor(ids)
		s.status = StatusPlaying
		s.startedAt = s.clock.Now()
		s.cardsPlayed = 0
		s.oneCall = NewOneCallTracker()
		s.pending.Clear()

		s.logger.Info().Int("seats", len(s.seats)).Msg("Game started")
		s.broadcastState(true)
		s.scheduleBots()
		return nil
	})
}

// PlayCard validates and applies a play for the current seat.
func (s *Session) PlayCard(seatID, cardID string, chosenColor *card.Color) error {
	return s.do(func() error {
		seat, err := s.requireTurn(seatID)
		if err != nil {
			return err
		}
		return s.applyPlay(seat, cardID, chosenColor)
	})
}

// DrawCard applies the draw action: pay a pending penalty, or draw a
// single card. Either way the turn ends.
func (s *Session) DrawCard(seatID string) error {
	return s.do(func() error {
		seat, err := s.requireTurn(seatID)
		if err != nil {
			return err
		}
		return s.applyDraw(seat)
	})
}

// CallOne records a ONE call for a seat down to a single card.
func (s *Session) CallOne(seatID string) error {
	return s.do(func() error {
		if s.status != StatusPlaying {
			return NewError(CodeWrongState, "no game in progress")
		}
		seat := s.seatByID(seatID)
		if seat == nil {
			return NewError(CodeNotFound, "no such seat")
		}
		if !s.oneCall.Call(seat) {
			return NewError(CodeNotEligible, "cannot call ONE now")
		}
		s.fanout.Broadcast(s.roomCode, EventOneCalled, OneCalled{SeatID: seat.ID})
		s.broadcastState(false)
		return nil
	})
}

// CatchNoOne penalizes a seat that failed to call ONE. The cursor does
// not move.
func (s *Session) CatchNoOne(callerSeatID, targetSeatID string) error {
	return s.do(func() error {
		if s.status != StatusPlaying {
			return NewError(CodeWrongState, "no game in progress")
		}
		caller := s.seatByID(callerSeatID)
		target := s.seatByID(targetSeatID)
		if caller == nil || target == nil {
			return NewError(CodeNotFound, "no such seat")
		}
		if caller.ID == target.ID {
			return NewError(CodeNotEligible, "cannot catch yourself")
		}
		if !s.oneCall.Catch(target) {
			return NewError(CodeNotEligible, "nothing to catch")
		}

		n := s.dealTo(target, 2)
		target.CalledOne = false
		s.fanout.Broadcast(s.roomCode, EventOneCaught, OneCaught{
			SeatID:   target.ID,
			ByCaller: caller.ID,
			Penalty:  n,
		})
		s.broadcastState(false)
		return nil
	})
}

// requireTurn checks the game is live and the seat owns the turn.
func (s *Session) requireTurn(seatID string) (*Seat, error) {
	if s.status != StatusPlaying {
		return nil, NewError(CodeWrongState, "no game in progress")
	}
	seat := s.seatByID(seatID)
	if seat == nil {
		return nil, NewError(CodeNotFound, "no such seat")
	}
	if s.cursor.Current() != seatID {
		return nil, NewError(CodeNotYourTurn, "not your turn")
	}
	return seat, nil
}

// applyPlay is the shared play path for humans and bots. Runs on the
// writer.
func (s *Session) applyPlay(seat *Seat, cardID string, chosenColor *card.Color) error {
	c, ok := seat.FindCard(cardID)
	if !ok {
		return NewError(CodeCardNotInHand, "card not in hand")
	}
	top, _ := s.deck.Top()
	if s.pending.Active() && !s.pending.CanStack(c.Kind) {
		return NewError(CodeMustStack, "must stack a +2/+4 or draw %d", s.pending.Count())
	}
	if !s.rules.Playable(c, top, &s.pending) {
		return NewError(CodeIllegalPlay, "%s cannot be played on %s", c, top)
	}

	effect := s.rules.Resolve(c.Kind, s.cursor.Len())
	if effect.NeedsColor {
		if chosenColor == nil || *chosenColor == card.Wild {
			return NewError(CodeMissingColor, "wild plays must choose a color")
		}
	}
	if c.Kind == card.WildDrawFour {
		s.rules.CheckWildDrawFour(seat, top)
	}

	// Commit.
	seat.RemoveCard(c.ID)
	s.deck.Discard(c)
	if effect.NeedsColor {
		s.deck.SetTopChosenColor(*chosenColor)
	}
	s.cardsPlayed++

	s.fanout.Broadcast(s.roomCode, EventCardPlayed, CardPlayed{
		SeatID:      seat.ID,
		Card:        c,
		ChosenColor: chosenColor,
	})

	// Win is detected before the cursor moves.
	if seat.HandSize() == 0 {
		s.endGame(seat)
		return nil
	}
	if seat.HandSize() == 1 && !seat.CalledOne {
		s.oneCall.OpenWindow(seat.ID)
	}

	if effect.Reverse {
		s.cursor.Reverse()
	}
	if effect.PendingAdd > 0 {
		s.pending.Add(effect.PenaltyKind, effect.PendingAdd)
	}

	if effect.ImmediateDraw > 0 {
		// Stacking disabled: the next seat pays on the spot and loses
		// the turn.
		s.cursor.Advance()
		victim := s.seatByID(s.cursor.Current())
		if victim != nil {
			n := s.dealTo(victim, effect.ImmediateDraw)
			s.oneCall.Reset(victim)
			s.fanout.Broadcast(s.roomCode, EventCardDrawn, CardDrawn{SeatID: victim.ID, Count: n})
		}
		s.cursor.Advance()
	} else {
		for i := 0; i < effect.Advance; i++ {
			s.cursor.Advance()
		}
	}

	s.finishTurn()
	return nil
}

// applyDraw is the shared draw path for humans and bots.
func (s *Session) applyDraw(seat *Seat) error {
	if s.pending.Active() {
		owed := s.pending.Count()
		n := s.dealTo(seat, owed)
		if n == 0 {
			return NewError(CodeDeckExhausted, "no cards left to draw")
		}
		s.pending.Clear()
		s.oneCall.Reset(seat)
		s.fanout.Broadcast(s.roomCode, EventCardDrawn, CardDrawn{SeatID: seat.ID, Count: n})
	} else {
		c, err := s.deck.Draw()
		if err != nil {
			if errors.Is(err, card.ErrExhausted) {
				return NewError(CodeDeckExhausted, "no cards left to draw")
			}
			return err
		}
		seat.AddCards(c)
		s.oneCall.Reset(seat)
		s.fanout.Broadcast(s.roomCode, EventCardDrawn, CardDrawn{SeatID: seat.ID, Count: 1})
	}

	s.cursor.Advance()
	s.finishTurn()
	return nil
}

// dealTo draws up to n cards into a seat's hand, tolerating an
// exhausted deck mid-way. Returns how many were actually dealt.
func (s *Session) dealTo(seat *Seat, n int) int {
	dealt := 0
	for i := 0; i < n; i++ {
		c, err := s.deck.Draw()
		if err != nil {
			s.logger.Warn().Err(err).Str("seat", seat.ID).Int("wanted", n).Int("dealt", dealt).
				Msg("Deck exhausted during penalty deal")
			break
		}
		seat.AddCards(c)
		dealt++
	}
	return dealt
}

// finishTurn runs the turn-start bookkeeping for the new current seat
// and emits the post-action events.
func (s *Session) finishTurn() {
	cur := s.seatByID(s.cursor.Current())
	if cur != nil && s.oneCall.WindowOpen(cur.ID) {
		// Window expired uncaught: automatic two-card penalty.
		n := s.dealTo(cur, 2)
		s.oneCall.Reset(cur)
		s.fanout.Broadcast(s.roomCode, EventOneCaught, OneCaught{SeatID: cur.ID, Penalty: n})
	}

	s.fanout.Broadcast(s.roomCode, EventTurnChanged, TurnChanged{
		CurrentSeatID: s.cursor.Current(),
		Direction:     s.cursor.Direction(),
	})
	s.broadcastState(false)
	s.scheduleBots()
}

// ---- end of game ----

// endGame finalizes the session: standings, scores, hooks. Runs on the
// writer; hooks are dispatched to a detached goroutine.
func (s *Session) endGame(winner *Seat) {
	s.status = StatusGameOver
	s.botGen++ // cancel any scheduled bot action

	rankings := ComputeRankings(s.seats)
	for _, r := range rankings {
		if seat := s.seatByID(r.SeatID); seat != nil {
			seat.Score += r.PointsEarned
		}
	}

	winnerID := ""
	if winner != nil {
		winnerID = winner.ID
	}
	s.logger.Info().Str("winner", winnerID).Int("cards_played", s.cardsPlayed).Msg("Game over")
	s.fanout.Broadcast(s.roomCode, EventGameEnded, GameEnded{WinnerSeatID: winnerID, Rankings: rankings})
	s.broadcastState(false)

	rec, ok := s.buildRecord(winner)
	if !ok {
		return
	}
	hooks := s.hooks
	go hooks.RecordGameEnd(rec)
}

// buildRecord assembles the LifecycleHooks payload. Skipped entirely
// when no humans remain to attribute the game to.
func (s *Session) buildRecord(winner *Seat) (GameRecord, bool) {
	humans := s.humanSeats()
	if len(humans) == 0 {
		return GameRecord{}, false
	}

	endedAt := s.clock.Now()
	minutes := int(endedAt.Sub(s.startedAt) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	participants := make([]string, 0, len(humans))
	scores := make(map[string]int, len(humans))
	for _, seat := range humans {
		participants = append(participants, seat.UserID)
		scores[seat.UserID] = seat.Score
	}

	winnerUser := humans[0].UserID
	if winner != nil && winner.Kind == Human && winner.UserID != "" {
		winnerUser = winner.UserID
	}

	return GameRecord{
		RoomCode:         s.roomCode,
		SessionID:        s.id,
		StartedAt:        s.startedAt,
		EndedAt:          endedAt,
		DurationMinutes:  minutes,
		Participants:     participants,
		WinnerUserID:     winnerUser,
		FinalScores:      scores,
		TotalCardsPlayed: s.cardsPlayed,
	}, true
}

// ---- bot autoplay ----

// scheduleBots arms the bot timer when the current seat is a bot. Runs
// on the writer. Re-entrant calls from inside runBots are ignored: the
// loop drives its own next action.
func (s *Session) scheduleBots() {
	if s.inBotRun {
		return
	}
	if s.status != StatusPlaying || s.cursor == nil {
		return
	}
	cur := s.seatByID(s.cursor.Current())
	if cur == nil || !cur.Kind.IsBot() {
		return
	}

	s.botGen++
	gen := s.botGen
	s.clock.AfterFunc(s.cfg.BotDelay, func() {
		// Posted back onto the writer; a stale generation means the
		// turn changed before the timer fired and the action is void.
		_ = s.do(func() error {
			s.runBots(gen)
			return nil
		})
	})
}

// runBots executes bot turns on the writer. With a zero delay several
// bot turns run back to back, bounded by MaxBotRun; with a real delay
// one action runs per tick so clients see progress.
func (s *Session) runBots(gen int) {
	if gen != s.botGen {
		return
	}
	s.inBotRun = true
	for i := 0; i < s.cfg.MaxBotRun; i++ {
		if s.status != StatusPlaying {
			break
		}
		cur := s.seatByID(s.cursor.Current())
		if cur == nil || !cur.Kind.IsBot() {
			break
		}

		s.botAct(cur)

		if s.cfg.BotDelay > 0 {
			break
		}
	}
	s.inBotRun = false
	// Re-arm if a bot still owns the turn (next tick, or the loop hit
	// its consecutive-action cap).
	s.scheduleBots()
}

// botAct performs one bot action through the same code path humans use.
func (s *Session) botAct(seat *Seat) {
	top, _ := s.deck.Top()
	next := s.seatByID(s.cursor.PeekNext())
	view := BotView{
		Hand:    seat.Hand,
		Top:     top,
		Pending: s.pending.Count(),
	}
	if next != nil {
		view.NextHandSize = next.HandSize()
	}

	decision := ChooseAction(view, s.rng)
	if decision.CallOne && seat.HandSize() == 2 {
		// The call lands after the play drops the hand to one card;
		// remember the intent and apply it below.
		defer func() {
			if s.status == StatusPlaying && seat.HandSize() == 1 && !seat.CalledOne {
				if s.oneCall.Call(seat) {
					s.fanout.Broadcast(s.roomCode, EventOneCalled, OneCalled{SeatID: seat.ID})
				}
			}
		}()
	}

	var err error
	if decision.Draw {
		err = s.applyDraw(seat)
	} else {
		err = s.applyPlay(seat, decision.Play.ID, decision.ChosenColor)
	}
	if err != nil {
		// A bot error is a bug; advance the turn so the loop cannot
		// wedge on it.
		s.logger.Error().Err(err).Str("seat", seat.ID).Msg("Bot action failed, advancing turn")
		s.cursor.Advance()
		s.finishTurn()
	}
}

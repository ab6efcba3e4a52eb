package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/randutil"
)

// recordingFanout captures every emitted event in order.
type recordingFanout struct {
	mu     sync.Mutex
	events []sentEvent
}

type sentEvent struct {
	Room   string
	SeatID string
	UserID string
	Type   EventType
	Data   any
}

func (f *recordingFanout) Broadcast(room string, ev EventType, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{Room: room, Type: ev, Data: data})
}

func (f *recordingFanout) ToSeat(room, seatID string, ev EventType, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{Room: room, SeatID: seatID, Type: ev, Data: data})
}

func (f *recordingFanout) ToUser(userID string, ev EventType, data any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{UserID: userID, Type: ev, Data: data})
}

func (f *recordingFanout) byType(ev EventType) []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentEvent
	for _, e := range f.events {
		if e.Type == ev {
			out = append(out, e)
		}
	}
	return out
}

func (f *recordingFanout) all() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEvent, len(f.events))
	copy(out, f.events)
	return out
}

type recordingHooks struct {
	ch chan GameRecord
}

func newRecordingHooks() *recordingHooks {
	return &recordingHooks{ch: make(chan GameRecord, 4)}
}

func (h *recordingHooks) RecordGameEnd(rec GameRecord) { h.ch <- rec }

// testRoom bundles a session with its recording collaborators.
type testRoom struct {
	s      *Session
	fanout *recordingFanout
	hooks  *recordingHooks
	seats  map[string]string // nickname -> seat id
	order  []string          // seat ids in join order
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.BotDelay = 0
	return cfg
}

func newTestRoom(t *testing.T, cfg Config, clock quartz.Clock, nicknames ...string) *testRoom {
	t.Helper()
	r := &testRoom{
		fanout: &recordingFanout{},
		hooks:  newRecordingHooks(),
		seats:  make(map[string]string),
	}
	r.s = NewSession("sess-1", "AB12CD", cfg, false, Deps{
		Fanout: r.fanout,
		Hooks:  r.hooks,
		Clock:  clock,
		RNG:    randutil.New(cfg.Seed),
		Logger: zerolog.Nop(),
	})
	t.Cleanup(r.s.Close)

	for _, nick := range nicknames {
		seatID, err := r.s.Join("u-"+nick, nick)
		require.NoError(t, err)
		r.seats[nick] = seatID
		r.order = append(r.order, seatID)
	}
	return r
}

func (r *testRoom) seat(nick string) string { return r.seats[nick] }

func (r *testRoom) leader() string { return r.order[0] }

// force runs fn on the session writer, used to pin game state for a
// scenario.
func (r *testRoom) force(fn func(s *Session)) {
	_ = r.s.do(func() error { fn(r.s); return nil })
}

func (r *testRoom) start(t *testing.T) {
	t.Helper()
	require.NoError(t, r.s.Start(r.leader()))
}

func (r *testRoom) handOf(seatID string) []card.Card {
	var hand []card.Card
	r.force(func(s *Session) {
		if seat := s.seatByID(seatID); seat != nil {
			hand = append(hand, seat.Hand...)
		}
	})
	return hand
}

func pickCard(t *testing.T, kind card.Kind, color card.Color) card.Card {
	t.Helper()
	for _, c := range card.Build() {
		if c.Kind == kind && c.Color == color {
			return c
		}
	}
	t.Fatalf("no %v %v in catalog", color, kind)
	return card.Card{}
}

func pickNumber(t *testing.T, color card.Color, value int) card.Card {
	t.Helper()
	for _, c := range card.Build() {
		if c.Kind == card.Number && c.Color == color && c.Value == value {
			return c
		}
	}
	t.Fatalf("no %v %d in catalog", color, value)
	return card.Card{}
}

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	require.ErrorAs(t, err, new(*Error))
	assert.Equal(t, code, AsError(err).Code)
}

// ---- lobby ----

func TestJoinAndLeaderAssignment(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")

	snap := r.s.Snapshot()
	assert.Len(t, snap.Seats, 2)
	assert.Equal(t, r.seat("alice"), snap.LeaderSeatID, "first join leads")

	_, err := r.s.Join("u-alice", "alice")
	requireCode(t, err, CodeAlreadyInRoom)
}

func TestJoinFullRoom(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPlayers = 2
	r := newTestRoom(t, cfg, nil, "alice", "bob")

	_, err := r.s.Join("u-carol", "carol")
	requireCode(t, err, CodeRoomFull)
}

func TestAddRemoveBots(t *testing.T) {
	cfg := testConfig()
	cfg.BotLimit = 2
	r := newTestRoom(t, cfg, nil, "alice")

	require.NoError(t, r.s.AddBot(r.leader()))
	require.NoError(t, r.s.AddBot(r.leader()))
	requireCode(t, r.s.AddBot(r.leader()), CodeBotLimit)

	snap := r.s.Snapshot()
	require.Len(t, snap.Seats, 3)
	botSeat := snap.Seats[1].SeatID
	require.NoError(t, r.s.RemoveBot(r.leader(), botSeat))
	assert.Len(t, r.s.Snapshot().Seats, 2)

	requireCode(t, r.s.RemoveBot(r.leader(), "seat-999"), CodeNotFound)
}

func TestAddBotRequiresLeader(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	requireCode(t, r.s.AddBot(r.seat("bob")), CodeNotLeader)
}

func TestTransferLeader(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	require.NoError(t, r.s.AddBot(r.leader()))
	botSeat := r.s.Snapshot().Seats[2].SeatID

	requireCode(t, r.s.TransferLeader(r.leader(), botSeat), CodeTargetIsBot)
	requireCode(t, r.s.TransferLeader(r.seat("bob"), r.seat("bob")), CodeNotLeader)

	require.NoError(t, r.s.TransferLeader(r.leader(), r.seat("bob")))
	assert.Equal(t, r.seat("bob"), r.s.Snapshot().LeaderSeatID)
}

func TestKickBarsRejoin(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")

	requireCode(t, r.s.Kick(r.leader(), r.leader()), CodeSelfKick)
	requireCode(t, r.s.Kick(r.seat("bob"), r.seat("carol")), CodeNotLeader)

	require.NoError(t, r.s.Kick(r.leader(), r.seat("bob")))
	assert.Len(t, r.s.Snapshot().Seats, 2)

	_, err := r.s.Join("u-bob", "bob")
	requireCode(t, err, CodePlayerKicked)

	kicked := r.fanout.byType(EventPlayerKicked)
	require.NotEmpty(t, kicked)
}

func TestLeaveIsIdempotent(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")

	require.NoError(t, r.s.Leave("u-bob"))
	require.NoError(t, r.s.Leave("u-bob"), "second leave is a no-op")
	assert.Len(t, r.s.Snapshot().Seats, 1)
}

func TestLeaderLeavesLobby(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")

	require.NoError(t, r.s.Leave("u-alice"))
	snap := r.s.Snapshot()
	assert.Equal(t, r.seat("bob"), snap.LeaderSeatID, "earliest remaining human leads")
	assert.Len(t, snap.Seats, 2)
}

func TestStartValidation(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")

	requireCode(t, r.s.Start(r.seat("bob")), CodeNotLeader)

	solo := newTestRoom(t, testConfig(), nil, "zoe")
	requireCode(t, solo.s.Start(solo.leader()), CodeTooFewPlayers)

	r.start(t)
	requireCode(t, r.s.Start(r.leader()), CodeWrongState)

	_, err := r.s.Join("u-carol", "carol")
	requireCode(t, err, CodeWrongState)
}

func TestStartDealsAndBroadcasts(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")
	r.start(t)

	snap := r.s.Snapshot()
	assert.Equal(t, StatusPlaying, snap.Status)
	require.NotNil(t, snap.TopCard)
	assert.Equal(t, card.Number, snap.TopCard.Kind, "initial flip is always a number")
	assert.Equal(t, r.order[0], snap.CurrentSeatID)
	assert.Equal(t, r.order, snap.TurnOrder)
	for _, seat := range snap.Seats {
		assert.Equal(t, 7, seat.HandSize)
	}

	// The public GAME_STARTED snapshot precedes the dealt hands.
	all := r.fanout.all()
	startedAt := -1
	for i, e := range all {
		if e.Type == EventGameStarted {
			startedAt = i
		}
	}
	require.NotEqual(t, -1, startedAt)
	handsAfter := 0
	for _, e := range all[startedAt+1:] {
		if e.Type == EventPrivateHand {
			handsAfter++
			data := e.Data.(PrivateHand)
			assert.Len(t, data.Cards, 7)
			assert.Equal(t, e.SeatID, data.SeatID)
		}
	}
	assert.Equal(t, 3, handsAfter, "one hand per human, after the public snapshot")
}

// ---- turn validation ----

func TestPlayValidation(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	r.start(t)

	red5 := pickNumber(t, card.Red, 5)
	blue9 := pickNumber(t, card.Blue, 9)
	wild := pickCard(t, card.WildCard, card.Wild)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{blue9, wild}
		s.deck.Discard(red5)
		s.cursor = NewTurnCursor(r.order)
	})

	requireCode(t, r.s.PlayCard(r.seat("bob"), blue9.ID, nil), CodeNotYourTurn)
	requireCode(t, r.s.PlayCard(r.seat("alice"), "c999", nil), CodeCardNotInHand)
	requireCode(t, r.s.PlayCard(r.seat("alice"), blue9.ID, nil), CodeIllegalPlay)
	requireCode(t, r.s.PlayCard(r.seat("alice"), wild.ID, nil), CodeMissingColor)

	// Nothing mutated along the way.
	assert.Len(t, r.handOf(r.seat("alice")), 2)
	assert.Equal(t, r.seat("alice"), r.s.Snapshot().CurrentSeatID)
}

func TestReverseWithTwoSeats(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	r.start(t)

	rev := pickCard(t, card.Reverse, card.Blue)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{rev, pickNumber(t, card.Red, 5)}
		s.deck.Discard(pickNumber(t, card.Blue, 3))
		s.cursor = NewTurnCursor(r.order)
	})

	require.NoError(t, r.s.PlayCard(r.seat("alice"), rev.ID, nil))

	snap := r.s.Snapshot()
	assert.Equal(t, CounterClockwise, snap.Direction)
	assert.Equal(t, r.seat("alice"), snap.CurrentSeatID, "reverse in two-seat acts as a skip")
}

func TestDrawTwoStackThenPayment(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol", "dave")
	r.start(t)

	redTwo := pickCard(t, card.DrawTwo, card.Red)
	blueTwo := pickCard(t, card.DrawTwo, card.Blue)
	filler := pickNumber(t, card.Yellow, 8)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{redTwo, pickNumber(t, card.Red, 1)}
		s.seatByID(r.seat("bob")).Hand = []card.Card{blueTwo, pickNumber(t, card.Blue, 1)}
		s.seatByID(r.seat("carol")).Hand = []card.Card{pickNumber(t, card.Green, 7), filler}
		s.deck.Discard(pickNumber(t, card.Red, 5))
		s.cursor = NewTurnCursor(r.order)
	})

	require.NoError(t, r.s.PlayCard(r.seat("alice"), redTwo.ID, nil))
	snap := r.s.Snapshot()
	assert.Equal(t, 2, snap.PendingDrawCount)
	assert.Equal(t, r.seat("bob"), snap.CurrentSeatID)

	require.NoError(t, r.s.PlayCard(r.seat("bob"), blueTwo.ID, nil))
	snap = r.s.Snapshot()
	assert.Equal(t, 4, snap.PendingDrawCount)
	assert.Equal(t, r.seat("carol"), snap.CurrentSeatID)

	// Carol has no stacker: a normal play is rejected, drawing pays.
	requireCode(t, r.s.PlayCard(r.seat("carol"), filler.ID, nil), CodeMustStack)
	require.NoError(t, r.s.DrawCard(r.seat("carol")))

	snap = r.s.Snapshot()
	assert.Zero(t, snap.PendingDrawCount)
	assert.Equal(t, r.seat("dave"), snap.CurrentSeatID)
	assert.Len(t, r.handOf(r.seat("carol")), 6, "2 held + 4 drawn")

	drawn := r.fanout.byType(EventCardDrawn)
	require.NotEmpty(t, drawn)
	last := drawn[len(drawn)-1].Data.(CardDrawn)
	assert.Equal(t, r.seat("carol"), last.SeatID)
	assert.Equal(t, 4, last.Count)
}

func TestWildCommitsChosenColor(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")
	r.start(t)

	wild := pickCard(t, card.WildCard, card.Wild)
	green2 := pickNumber(t, card.Green, 2)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{wild, pickNumber(t, card.Red, 1)}
		s.seatByID(r.seat("bob")).Hand = []card.Card{green2, pickNumber(t, card.Red, 9)}
		s.deck.Discard(pickNumber(t, card.Red, 3))
		s.cursor = NewTurnCursor(r.order)
	})

	green := card.Green
	require.NoError(t, r.s.PlayCard(r.seat("alice"), wild.ID, &green))

	snap := r.s.Snapshot()
	require.NotNil(t, snap.TopCard)
	assert.Equal(t, card.WildCard, snap.TopCard.Kind)
	require.NotNil(t, snap.CommittedColor)
	assert.Equal(t, card.Green, *snap.CommittedColor)
	assert.Equal(t, r.seat("bob"), snap.CurrentSeatID)

	// Bob can follow the committed color.
	require.NoError(t, r.s.PlayCard(r.seat("bob"), green2.ID, nil))
}

func TestDrawEndsTurn(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	r.start(t)

	before := len(r.handOf(r.seat("alice")))
	require.NoError(t, r.s.DrawCard(r.seat("alice")))

	assert.Len(t, r.handOf(r.seat("alice")), before+1)
	assert.Equal(t, r.seat("bob"), r.s.Snapshot().CurrentSeatID, "drawing always ends the turn")
}

func TestCardConservation(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	r.start(t)

	total := func() int {
		n := 0
		r.force(func(s *Session) {
			for _, seat := range s.seats {
				n += seat.HandSize()
			}
			n += s.deck.DrawRemaining() + s.deck.DiscardCount()
		})
		return n
	}

	assert.Equal(t, card.TotalCards, total())
	for i := 0; i < 6; i++ {
		var cur string
		r.force(func(s *Session) { cur = s.cursor.Current() })
		require.NoError(t, r.s.DrawCard(cur))
		assert.Equal(t, card.TotalCards, total())
	}
}

// ---- ONE calls ----

func TestCallOneThenCatchFails(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")
	r.start(t)

	red5 := pickNumber(t, card.Red, 5)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{red5, pickNumber(t, card.Red, 7)}
		s.deck.Discard(pickNumber(t, card.Red, 3))
		s.cursor = NewTurnCursor(r.order)
	})

	require.NoError(t, r.s.PlayCard(r.seat("alice"), red5.ID, nil))
	require.NoError(t, r.s.CallOne(r.seat("alice")))
	require.Len(t, r.fanout.byType(EventOneCalled), 1)

	requireCode(t, r.s.CatchNoOne(r.seat("bob"), r.seat("alice")), CodeNotEligible)
	assert.Len(t, r.handOf(r.seat("alice")), 1, "a called seat cannot be caught")
}

func TestCatchNoOne(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")
	r.start(t)

	red5 := pickNumber(t, card.Red, 5)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{red5, pickNumber(t, card.Red, 7)}
		s.deck.Discard(pickNumber(t, card.Red, 3))
		s.cursor = NewTurnCursor(r.order)
	})

	require.NoError(t, r.s.PlayCard(r.seat("alice"), red5.ID, nil))
	require.NoError(t, r.s.CatchNoOne(r.seat("bob"), r.seat("alice")))

	assert.Len(t, r.handOf(r.seat("alice")), 3, "1 held + 2 penalty")
	assert.Equal(t, r.seat("bob"), r.s.Snapshot().CurrentSeatID, "catch does not move the cursor")

	caught := r.fanout.byType(EventOneCaught)
	require.Len(t, caught, 1)
	data := caught[0].Data.(OneCaught)
	assert.Equal(t, r.seat("alice"), data.SeatID)
	assert.Equal(t, r.seat("bob"), data.ByCaller)
	assert.Equal(t, 2, data.Penalty)

	requireCode(t, r.s.CatchNoOne(r.seat("carol"), r.seat("alice")), CodeNotEligible)
	requireCode(t, r.s.CatchNoOne(r.seat("alice"), r.seat("alice")), CodeNotEligible)
}

func TestUncaughtWindowExpiresAtNextTurn(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob", "carol")
	r.start(t)

	red5 := pickNumber(t, card.Red, 5)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{red5, pickNumber(t, card.Red, 7)}
		s.deck.Discard(pickNumber(t, card.Red, 3))
		s.cursor = NewTurnCursor(r.order)
	})

	require.NoError(t, r.s.PlayCard(r.seat("alice"), red5.ID, nil))
	require.NoError(t, r.s.DrawCard(r.seat("bob")))
	require.NoError(t, r.s.DrawCard(r.seat("carol")))

	// The turn came back around: the omission penalizes automatically.
	assert.Len(t, r.handOf(r.seat("alice")), 3)
	caught := r.fanout.byType(EventOneCaught)
	require.Len(t, caught, 1)
	data := caught[0].Data.(OneCaught)
	assert.Equal(t, r.seat("alice"), data.SeatID)
	assert.Empty(t, data.ByCaller)
	assert.Equal(t, 2, data.Penalty)
}

// ---- end of game ----

func TestWinEndsGame(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	r.start(t)

	red5 := pickNumber(t, card.Red, 5)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{red5}
		s.seatByID(r.seat("bob")).Hand = []card.Card{pickNumber(t, card.Blue, 9), pickNumber(t, card.Blue, 8)}
		s.deck.Discard(pickNumber(t, card.Red, 3))
		s.cursor = NewTurnCursor(r.order)
	})

	require.NoError(t, r.s.PlayCard(r.seat("alice"), red5.ID, nil))

	snap := r.s.Snapshot()
	assert.Equal(t, StatusGameOver, snap.Status)

	ended := r.fanout.byType(EventGameEnded)
	require.Len(t, ended, 1, "GAME_ENDED fires exactly once")
	data := ended[0].Data.(GameEnded)
	assert.Equal(t, r.seat("alice"), data.WinnerSeatID)
	require.Len(t, data.Rankings, 2)
	assert.Equal(t, 50, data.Rankings[0].PointsEarned)
	assert.Equal(t, 10, data.Rankings[1].PointsEarned)

	for _, seat := range snap.Seats {
		switch seat.SeatID {
		case r.seat("alice"):
			assert.Equal(t, 50, seat.Score)
		case r.seat("bob"):
			assert.Equal(t, 10, seat.Score)
		}
	}

	select {
	case rec := <-r.hooks.ch:
		assert.Equal(t, "AB12CD", rec.RoomCode)
		assert.Equal(t, "u-alice", rec.WinnerUserID)
		assert.ElementsMatch(t, []string{"u-alice", "u-bob"}, rec.Participants)
		assert.Equal(t, 50, rec.FinalScores["u-alice"])
		assert.GreaterOrEqual(t, rec.DurationMinutes, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("lifecycle hook never fired")
	}

	// A finished game is immutable until reset.
	requireCode(t, r.s.PlayCard(r.seat("bob"), "c001", nil), CodeWrongState)
	requireCode(t, r.s.DrawCard(r.seat("bob")), CodeWrongState)
	requireCode(t, r.s.CallOne(r.seat("bob")), CodeWrongState)
}

func TestResetReturnsToLobby(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil, "alice", "bob")
	r.start(t)

	red5 := pickNumber(t, card.Red, 5)
	r.force(func(s *Session) {
		s.seatByID(r.seat("alice")).Hand = []card.Card{red5}
		s.deck.Discard(pickNumber(t, card.Red, 3))
		s.cursor = NewTurnCursor(r.order)
	})
	require.NoError(t, r.s.PlayCard(r.seat("alice"), red5.ID, nil))

	requireCode(t, r.s.Reset(r.seat("bob")), CodeNotLeader)
	require.NoError(t, r.s.Reset(r.leader()))

	snap := r.s.Snapshot()
	assert.Equal(t, StatusLobby, snap.Status)
	assert.Empty(t, snap.CurrentSeatID)
	for _, seat := range snap.Seats {
		assert.Zero(t, seat.HandSize)
	}
	// Scores survive into the next game.
	assert.Equal(t, 50, snap.Seats[0].Score)

	r.start(t)
	assert.Equal(t, StatusPlaying, r.s.Snapshot().Status)
}

// ---- substitution and reconnect ----

func TestLeaveMidGameSubstitutesBot(t *testing.T) {
	cfg := testConfig()
	cfg.BotDelay = 50 * time.Millisecond
	mClock := quartz.NewMock(t)
	r := newTestRoom(t, cfg, mClock, "hana")
	require.NoError(t, r.s.AddBot(r.leader()))
	_, err := r.s.Join("u-hugo", "hugo")
	require.NoError(t, err)
	hugoSeat := r.s.SeatIDOf("u-hugo")
	r.start(t)

	hanaSeat := r.seat("hana")
	handBefore := r.handOf(hanaSeat)
	require.Equal(t, hanaSeat, r.s.Snapshot().CurrentSeatID)

	require.NoError(t, r.s.Leave("u-hana"))

	snap := r.s.Snapshot()
	var sub *SeatInfo
	for i := range snap.Seats {
		if snap.Seats[i].SeatID == hanaSeat {
			sub = &snap.Seats[i]
		}
	}
	require.NotNil(t, sub, "the seat position survives the leave")
	assert.Equal(t, SubstituteBot, sub.Kind)
	assert.Equal(t, len(handBefore), sub.HandSize, "the substitute inherits the hand")
	assert.Equal(t, hugoSeat, snap.LeaderSeatID, "leadership moves to the remaining human")
	assert.Equal(t, hanaSeat, snap.CurrentSeatID, "the cursor stays on the substituted seat")

	// The substitute acts within the bot delay.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	mClock.Advance(cfg.BotDelay).MustWait(ctx)

	acted := false
	for _, e := range r.fanout.all() {
		if e.Type == EventCardPlayed && e.Data.(CardPlayed).SeatID == hanaSeat {
			acted = true
		}
		if e.Type == EventCardDrawn && e.Data.(CardDrawn).SeatID == hanaSeat {
			acted = true
		}
	}
	assert.True(t, acted, "substitute bot took over the pending turn")

	select {
	case <-r.hooks.ch:
		t.Fatal("no lifecycle hook should fire on a substitution")
	default:
	}
}

func TestReconnectReclaimsSeat(t *testing.T) {
	cfg := testConfig()
	cfg.BotDelay = time.Hour // park the bots
	mClock := quartz.NewMock(t)
	r := newTestRoom(t, cfg, mClock, "alice", "bob", "carol")
	r.start(t)

	aliceSeat := r.seat("alice")
	handBefore := r.handOf(aliceSeat)

	require.NoError(t, r.s.Leave("u-alice"))
	seatID, err := r.s.Join("u-alice", "alice")
	require.NoError(t, err)
	assert.Equal(t, aliceSeat, seatID, "reconnect lands on the original seat")

	snap := r.s.Snapshot()
	for _, seat := range snap.Seats {
		if seat.SeatID == aliceSeat {
			assert.Equal(t, Human, seat.Kind)
			assert.Equal(t, len(handBefore), seat.HandSize)
		}
	}
	assert.Equal(t, len(handBefore), len(r.handOf(aliceSeat)))
}

func TestLastHumanLeavingClosesRoom(t *testing.T) {
	cfg := testConfig()
	cfg.BotDelay = time.Hour
	mClock := quartz.NewMock(t)
	r := newTestRoom(t, cfg, mClock, "alice")
	require.NoError(t, r.s.AddBot(r.leader()))
	r.start(t)

	require.NoError(t, r.s.Leave("u-alice"))

	require.NotEmpty(t, r.fanout.byType(EventRoomClosed))
	_, err := r.s.Join("u-alice", "alice")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBotsPlayToCompletion(t *testing.T) {
	cfg := testConfig()
	cfg.BotDelay = 10 * time.Millisecond
	mClock := quartz.NewMock(t)
	r := newTestRoom(t, cfg, mClock, "alice")
	require.NoError(t, r.s.AddBot(r.leader()))
	require.NoError(t, r.s.AddBot(r.leader()))
	r.start(t)

	// Alice plays her first legal card (or draws); the bots drive the
	// rest. Bound the loop generously, a game ends long before 2000
	// half-turns.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	alice := r.seat("alice")
	for i := 0; i < 2000; i++ {
		snap := r.s.Snapshot()
		if snap.Status == StatusGameOver {
			break
		}
		if snap.CurrentSeatID == alice {
			played := false
			for _, c := range r.handOf(alice) {
				var chosen *card.Color
				if c.Kind.IsWild() {
					red := card.Red
					chosen = &red
				}
				if r.s.PlayCard(alice, c.ID, chosen) == nil {
					played = true
					break
				}
			}
			if !played {
				_ = r.s.DrawCard(alice)
			}
			continue
		}
		mClock.Advance(cfg.BotDelay).MustWait(ctx)
	}

	assert.Equal(t, StatusGameOver, r.s.Snapshot().Status)
	assert.Len(t, r.fanout.byType(EventGameEnded), 1)
}

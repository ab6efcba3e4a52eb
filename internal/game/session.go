package game

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/randutil"
)

// ErrClosed is returned for intents posted after the session shut down.
var ErrClosed = NewError(CodeNotFound, "room is closed")

// intentQueueSize bounds the per-session inbound queue.
const intentQueueSize = 64

// Session is the authoritative per-room game runtime. All state lives
// behind a single writer goroutine fed by an intent channel; public
// methods post closures onto that channel and wait for the reply, so
// no caller ever observes mid-mutation state.
type Session struct {
	id        string
	roomCode  string
	cfg       Config
	isPrivate bool

	status       Status
	seats        []*Seat // seating order
	cursor       *TurnCursor
	deck         *card.Deck
	pending      PenaltyStack
	oneCall      *OneCallTracker
	rules        *Rules
	leaderSeatID string
	kicked       map[string]bool // external user ids barred from rejoining
	startedAt    time.Time
	cardsPlayed  int
	seatSeq      int

	fanout Fanout
	hooks  LifecycleHooks
	clock  quartz.Clock
	rng    *rand.Rand
	logger zerolog.Logger

	onClosed      func(roomCode string)
	onUserEvicted func(userID string)

	intents    chan intent
	done       chan struct{}
	closeOnce  sync.Once
	notifyOnce sync.Once
	closing    bool // set on the writer; loop exits after the reply is sent

	// botGen invalidates scheduled bot timers when the turn changes
	// underneath them (e.g. a reconnecting human reclaims the seat).
	botGen   int
	inBotRun bool
}

type intent struct {
	fn    func() error
	reply chan error
}

// Deps are the session's external collaborators. Nil fields get no-op
// or real-clock defaults.
type Deps struct {
	Fanout        Fanout
	Hooks         LifecycleHooks
	Clock         quartz.Clock
	RNG           *rand.Rand
	Logger        zerolog.Logger
	OnClosed      func(roomCode string)
	OnUserEvicted func(userID string)
}

// NewSession creates a session in LOBBY state and starts its writer.
func NewSession(id, roomCode string, cfg Config, isPrivate bool, deps Deps) *Session {
	cfg = cfg.withDefaults()
	if deps.Fanout == nil {
		deps.Fanout = NopFanout{}
	}
	if deps.Hooks == nil {
		deps.Hooks = NopHooks{}
	}
	if deps.Clock == nil {
		deps.Clock = quartz.NewReal()
	}
	if deps.RNG == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		deps.RNG = randutil.New(seed)
	}

	s := &Session{
		id:        id,
		roomCode:  roomCode,
		cfg:       cfg,
		isPrivate: isPrivate,
		status:    StatusLobby,
		oneCall:   NewOneCallTracker(),
		kicked:    make(map[string]bool),
		fanout:    deps.Fanout,
		hooks:     deps.Hooks,
		clock:     deps.Clock,
		rng:       deps.RNG,
		logger: deps.Logger.With().
			Str("component", "session").
			Str("room", roomCode).
			Logger(),
		onClosed:      deps.OnClosed,
		onUserEvicted: deps.OnUserEvicted,
		intents:       make(chan intent, intentQueueSize),
		done:          make(chan struct{}),
	}
	s.rules = NewRules(cfg.StackingAllowed, deps.Logger)

	go s.run()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// RoomCode returns the room code this session serves.
func (s *Session) RoomCode() string { return s.roomCode }

// run is the writer loop. Every mutation of session state happens here.
func (s *Session) run() {
	for {
		select {
		case it := <-s.intents:
			it.reply <- s.guard(it.fn)
			if s.closing {
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// guard keeps a programming error in one intent from killing the
// session: the intent is discarded, logged, and the loop continues.
func (s *Session) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("intent panicked, session continues")
			err = NewError(CodeInternal, "internal server error")
		}
	}()
	return fn()
}

// do posts an intent and waits for its result.
func (s *Session) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case s.intents <- intent{fn: fn, reply: reply}:
	case <-s.done:
		return ErrClosed
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		// The writer replies before it exits; prefer a reply that is
		// already buffered over reporting a closed room.
		select {
		case err := <-reply:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close tears the session down. Idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.notifyClosed()
	})
}

func (s *Session) notifyClosed() {
	s.notifyOnce.Do(func() {
		if s.onClosed != nil {
			s.onClosed(s.roomCode)
		}
	})
}

// closeRoom is called on the writer when the room dies (last human
// gone). It notifies subscribers, unmaps remaining humans, and arranges
// for the loop to stop once the current reply is delivered. The closed
// notification fires here, on the writer, so callers observe the room
// gone as soon as their triggering call returns.
func (s *Session) closeRoom(reason string) {
	s.logger.Info().Str("reason", reason).Msg("Room closing")
	for _, seat := range s.seats {
		if seat.Kind == Human && seat.UserID != "" && s.onUserEvicted != nil {
			s.onUserEvicted(seat.UserID)
		}
	}
	s.fanout.Broadcast(s.roomCode, EventRoomClosed, map[string]string{"roomCode": s.roomCode, "reason": reason})
	s.notifyClosed()
	s.closing = true
}

// ---- lobby operations ----

// Join seats a new human, or reconnects one to the substitute bot that
// has been holding their seat.
func (s *Session) Join(userID, nickname string) (seatID string, err error) {
	err = s.do(func() error {
		if s.kicked[userID] {
			return NewError(CodePlayerKicked, "you were removed from this room")
		}

		// Reconnect path: reclaim a substitute seat mid-game.
		if sub := s.seatByReplacedUser(userID); sub != nil && s.status == StatusPlaying {
			sub.Kind = Human
			sub.UserID = userID
			sub.ReplacedUserID = ""
			sub.Nickname = nickname
			sub.Connected = true
			s.botGen++ // discard any pending bot action for this seat
			seatID = sub.ID
			s.logger.Info().Str("seat", sub.ID).Str("user", userID).Msg("Player reconnected")
			s.fanout.Broadcast(s.roomCode, EventPlayerJoined, PlayerJoined{Seat: s.seatInfo(sub)})
			s.broadcastState(false)
			s.scheduleBots()
			return nil
		}

		if s.status != StatusLobby {
			return NewError(CodeWrongState, "game already in progress")
		}
		if s.seatByUser(userID) != nil {
			return NewError(CodeAlreadyInRoom, "already seated in this room")
		}
		if len(s.seats) >= s.cfg.MaxPlayers {
			return NewError(CodeRoomFull, "room is full")
		}

		seat := s.newSeat(Human, nickname)
		seat.UserID = userID
		seat.Connected = true
		s.seats = append(s.seats, seat)
		if s.leaderSeatID == "" {
			s.leaderSeatID = seat.ID
		}
		seatID = seat.ID
		s.logger.Info().Str("seat", seat.ID).Str("user", userID).Msg("Player joined")
		s.fanout.Broadcast(s.roomCode, EventPlayerJoined, PlayerJoined{Seat: s.seatInfo(seat)})
		s.broadcastState(false)
		return nil
	})
	return seatID, err
}

// AddBot adds a server bot to the lobby.
func (s *Session) AddBot(leaderSeatID string) error {
	return s.do(func() error {
		if s.status != StatusLobby {
			return NewError(CodeWrongState, "bots can only be added in the lobby")
		}
		if err := s.requireLeader(leaderSeatID); err != nil {
			return err
		}
		if len(s.seats) >= s.cfg.MaxPlayers {
			return NewError(CodeRoomFull, "room is full")
		}
		if s.botCount() >= s.cfg.BotLimit {
			return NewError(CodeBotLimit, "bot limit reached")
		}

		seat := s.newSeat(Bot, fmt.Sprintf("Bot %d", s.botCount()+1))
		s.seats = append(s.seats, seat)
		s.logger.Info().Str("seat", seat.ID).Msg("Bot added")
		s.fanout.Broadcast(s.roomCode, EventPlayerJoined, PlayerJoined{Seat: s.seatInfo(seat)})
		s.broadcastState(false)
		return nil
	})
}

// RemoveBot removes a lobby bot.
func (s *Session) RemoveBot(leaderSeatID, botSeatID string) error {
	return s.do(func() error {
		if s.status != StatusLobby {
			return NewError(CodeWrongState, "bots can only be removed in the lobby")
		}
		if err := s.requireLeader(leaderSeatID); err != nil {
			return err
		}
		seat := s.seatByID(botSeatID)
		if seat == nil || !seat.Kind.IsBot() {
			return NewError(CodeNotFound, "no such bot")
		}
		s.removeSeat(seat.ID)
		s.fanout.Broadcast(s.roomCode, EventPlayerLeft, PlayerLeft{SeatID: seat.ID, Reason: "removed"})
		s.broadcastState(false)
		return nil
	})
}

// Kick removes a seat by leader decree and bars the user from
// rejoining. Mid-game kicks follow the same substitution rules as a
// voluntary leave.
func (s *Session) Kick(leaderSeatID, targetSeatID string) error {
	return s.do(func() error {
		if err := s.requireLeader(leaderSeatID); err != nil {
			return err
		}
		if targetSeatID == leaderSeatID {
			return NewError(CodeSelfKick, "cannot kick yourself")
		}
		target := s.seatByID(targetSeatID)
		if target == nil {
			return NewError(CodeNotFound, "no such seat")
		}

		if target.UserID != "" {
			s.kicked[target.UserID] = true
			if s.onUserEvicted != nil {
				s.onUserEvicted(target.UserID)
			}
			s.fanout.ToUser(target.UserID, EventPlayerKicked, PlayerKicked{SeatID: target.ID})
		}
		s.fanout.Broadcast(s.roomCode, EventPlayerKicked, PlayerKicked{SeatID: target.ID})
		s.departSeat(target, "kicked")
		return nil
	})
}

// TransferLeader reassigns room leadership to another human seat.
func (s *Session) TransferLeader(currentLeaderSeatID, newLeaderSeatID string) error {
	return s.do(func() error {
		if err := s.requireLeader(currentLeaderSeatID); err != nil {
			return err
		}
		target := s.seatByID(newLeaderSeatID)
		if target == nil {
			return NewError(CodeNotFound, "no such seat")
		}
		if target.Kind != Human {
			return NewError(CodeTargetIsBot, "bots cannot lead")
		}
		old := s.leaderSeatID
		s.leaderSeatID = target.ID
		s.fanout.Broadcast(s.roomCode, EventLeaderChange, LeaderChanged{OldSeatID: old, NewSeatID: target.ID})
		s.broadcastState(false)
		return nil
	})
}

// Leave removes a seat on behalf of its user. Safe to call twice: a
// second call finds no seat and is a no-op.
func (s *Session) Leave(userID string) error {
	return s.do(func() error {
		seat := s.seatByUser(userID)
		if seat == nil {
			return nil
		}
		s.fanout.Broadcast(s.roomCode, EventPlayerLeft, PlayerLeft{SeatID: seat.ID, Reason: "left"})
		s.departSeat(seat, "left")
		return nil
	})
}

// departSeat handles a seat that is going away, whatever the cause:
// mid-game the seat becomes a substitute bot, in the lobby it is
// removed, and leadership moves when the leader is the one leaving.
// Runs on the writer.
func (s *Session) departSeat(seat *Seat, reason string) {
	wasLeader := seat.ID == s.leaderSeatID

	switch s.status {
	case StatusPlaying:
		humansLeft := 0
		for _, other := range s.seats {
			if other.ID != seat.ID && other.Kind == Human {
				humansLeft++
			}
		}
		if humansLeft == 0 {
			s.closeRoom("last human left")
			return
		}

		// The seat lives on as a substitute bot: same ring position,
		// same hand, same score, same call flag.
		seat.ReplacedUserID = seat.UserID
		seat.UserID = ""
		seat.Kind = SubstituteBot
		seat.Connected = false
		if wasLeader {
			s.transferToEarliestHuman(seat.ID)
		}
		s.broadcastState(false)
		s.scheduleBots()

	default:
		s.removeSeat(seat.ID)
		humans := s.humanSeats()
		if len(humans) == 0 {
			s.closeRoom("no humans remain")
			return
		}
		if wasLeader {
			s.transferToEarliestHuman("")
		}
		s.broadcastState(false)
	}
	_ = reason
}

// Reset returns a finished room to the lobby for another game.
// Substitute bots (their humans are gone) are dropped; scores persist.
func (s *Session) Reset(leaderSeatID string) error {
	return s.do(func() error {
		if s.status != StatusGameOver {
			return NewError(CodeWrongState, "game is not over")
		}
		if err := s.requireLeader(leaderSeatID); err != nil {
			return err
		}

		kept := s.seats[:0]
		for _, seat := range s.seats {
			if seat.Kind == SubstituteBot {
				continue
			}
			seat.Hand = nil
			seat.CalledOne = false
			kept = append(kept, seat)
		}
		s.seats = kept
		s.status = StatusLobby
		s.cursor = nil
		s.deck = nil
		s.pending.Clear()
		s.oneCall = NewOneCallTracker()
		s.cardsPlayed = 0
		s.fanout.Broadcast(s.roomCode, EventRoomUpdated, map[string]string{"roomCode": s.roomCode})
		s.broadcastState(false)
		return nil
	})
}

// ---- snapshots ----

// RoomInfo is the lobby-listing view of a room.
type RoomInfo struct {
	RoomCode   string `json:"roomCode"`
	SessionID  string `json:"sessionId"`
	Status     Status `json:"status"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	IsPrivate  bool   `json:"isPrivate"`
}

// Info returns a point-in-time summary, serialized on the writer.
func (s *Session) Info() RoomInfo {
	var info RoomInfo
	_ = s.do(func() error {
		info = RoomInfo{
			RoomCode:   s.roomCode,
			SessionID:  s.id,
			Status:     s.status,
			Players:    len(s.seats),
			MaxPlayers: s.cfg.MaxPlayers,
			IsPrivate:  s.isPrivate,
		}
		return nil
	})
	return info
}

// Snapshot returns the public state as broadcast to clients.
func (s *Session) Snapshot() PublicState {
	var snap PublicState
	_ = s.do(func() error {
		snap = s.publicState(false)
		return nil
	})
	return snap
}

// HandOf returns a copy of the user's current hand, serialized on the
// writer so a caller joining mid-game sees the post-join deal.
func (s *Session) HandOf(userID string) ([]card.Card, error) {
	var hand []card.Card
	err := s.do(func() error {
		seat := s.seatByUser(userID)
		if seat == nil {
			return NewError(CodeNotFound, "no seat for this user")
		}
		hand = make([]card.Card, len(seat.Hand))
		copy(hand, seat.Hand)
		return nil
	})
	return hand, err
}

// SeatIDOf resolves an external user to their seat id.
func (s *Session) SeatIDOf(userID string) string {
	var id string
	_ = s.do(func() error {
		if seat := s.seatByUser(userID); seat != nil {
			id = seat.ID
		}
		return nil
	})
	return id
}

// Chat relays a chat line from a seated user to the room.
func (s *Session) Chat(userID, text string) error {
	return s.do(func() error {
		seat := s.seatByUser(userID)
		if seat == nil {
			return NewError(CodeNotFound, "not seated in this room")
		}
		s.fanout.Broadcast(s.roomCode, EventChat, ChatMessage{
			SeatID:   seat.ID,
			Nickname: seat.Nickname,
			Text:     text,
		})
		return nil
	})
}

// ---- writer-side helpers ----

func (s *Session) newSeat(kind SeatKind, nickname string) *Seat {
	s.seatSeq++
	return &Seat{
		ID:       fmt.Sprintf("seat-%d", s.seatSeq),
		Nickname: nickname,
		Kind:     kind,
		JoinedAt: s.clock.Now(),
	}
}

func (s *Session) seatByID(id string) *Seat {
	for _, seat := range s.seats {
		if seat.ID == id {
			return seat
		}
	}
	return nil
}

func (s *Session) seatByUser(userID string) *Seat {
	if userID == "" {
		return nil
	}
	for _, seat := range s.seats {
		if seat.UserID == userID {
			return seat
		}
	}
	return nil
}

func (s *Session) seatByReplacedUser(userID string) *Seat {
	if userID == "" {
		return nil
	}
	for _, seat := range s.seats {
		if seat.Kind == SubstituteBot && seat.ReplacedUserID == userID {
			return seat
		}
	}
	return nil
}

func (s *Session) humanSeats() []*Seat {
	var humans []*Seat
	for _, seat := range s.seats {
		if seat.Kind == Human {
			humans = append(humans, seat)
		}
	}
	return humans
}

func (s *Session) botCount() int {
	n := 0
	for _, seat := range s.seats {
		if seat.Kind.IsBot() {
			n++
		}
	}
	return n
}

func (s *Session) requireLeader(seatID string) error {
	if seatID != s.leaderSeatID {
		return NewError(CodeNotLeader, "only the room leader can do that")
	}
	if s.seatByID(seatID) == nil {
		return NewError(CodeNotFound, "no such seat")
	}
	return nil
}

func (s *Session) removeSeat(seatID string) {
	for i, seat := range s.seats {
		if seat.ID == seatID {
			s.seats = append(s.seats[:i], s.seats[i+1:]...)
			break
		}
	}
	if s.cursor != nil {
		s.cursor.Remove(seatID)
	}
	s.oneCall.CloseWindow(seatID)
}

// transferToEarliestHuman hands leadership to the earliest-joining
// human, excluding one seat id (the leaver).
func (s *Session) transferToEarliestHuman(excludeSeatID string) {
	var earliest *Seat
	for _, seat := range s.seats {
		if seat.Kind != Human || seat.ID == excludeSeatID {
			continue
		}
		if earliest == nil || seat.JoinedAt.Before(earliest.JoinedAt) {
			earliest = seat
		}
	}
	if earliest == nil {
		return
	}
	old := s.leaderSeatID
	s.leaderSeatID = earliest.ID
	s.fanout.Broadcast(s.roomCode, EventLeaderChange, LeaderChanged{OldSeatID: old, NewSeatID: earliest.ID})
}

func (s *Session) seatInfo(seat *Seat) SeatInfo {
	return SeatInfo{
		SeatID:    seat.ID,
		Nickname:  seat.Nickname,
		Kind:      seat.Kind,
		HandSize:  seat.HandSize(),
		CalledOne: seat.CalledOne,
		Connected: seat.Connected,
		Score:     seat.Score,
	}
}

func (s *Session) publicState(gameStarted bool) PublicState {
	state := PublicState{
		SessionID:        s.id,
		RoomCode:         s.roomCode,
		Status:           s.status,
		PendingDrawCount: s.pending.Count(),
		LeaderSeatID:     s.leaderSeatID,
		GameStarted:      gameStarted,
		Seats:            make([]SeatInfo, 0, len(s.seats)),
	}
	for _, seat := range s.seats {
		state.Seats = append(state.Seats, s.seatInfo(seat))
	}
	if s.cursor != nil {
		state.CurrentSeatID = s.cursor.Current()
		state.Direction = s.cursor.Direction()
		state.TurnOrder = s.cursor.Order()
	}
	if s.deck != nil {
		state.DeckSize = s.deck.DrawRemaining()
		if top, ok := s.deck.Top(); ok {
			t := top
			state.TopCard = &t
			committed := top.EffectiveColor()
			state.CommittedColor = &committed
		}
	}
	return state
}

// broadcastState emits the post-action snapshot pair: one PUBLIC_STATE
// to the room, then one PRIVATE_HAND per human seat, in that order.
func (s *Session) broadcastState(gameStarted bool) {
	event := EventPublicState
	if gameStarted {
		event = EventGameStarted
	}
	s.fanout.Broadcast(s.roomCode, event, s.publicState(gameStarted))
	for _, seat := range s.seats {
		if seat.Kind != Human {
			continue
		}
		hand := make([]card.Card, len(seat.Hand))
		copy(hand, seat.Hand)
		s.fanout.ToSeat(s.roomCode, seat.ID, EventPrivateHand, PrivateHand{SeatID: seat.ID, Cards: hand})
	}
}

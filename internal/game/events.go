package game

import (
	"time"

	"github.com/playone/oneserver/internal/card"
)

// EventType identifies a server-to-client event.
type EventType string

const (
	EventRoomCreated  EventType = "room_created"
	EventRoomUpdated  EventType = "room_updated"
	EventRoomClosed   EventType = "room_closed"
	EventPlayerJoined EventType = "player_joined"
	EventPlayerLeft   EventType = "player_left"
	EventPlayerKicked EventType = "player_kicked"
	EventLeaderChange EventType = "leader_changed"
	EventGameStarted  EventType = "game_started"
	EventPublicState  EventType = "public_state"
	EventPrivateHand  EventType = "private_hand"
	EventCardPlayed   EventType = "card_played"
	EventCardDrawn    EventType = "card_drawn"
	EventTurnChanged  EventType = "turn_changed"
	EventOneCalled    EventType = "one_called"
	EventOneCaught    EventType = "one_caught"
	EventGameEnded    EventType = "game_ended"
	EventError        EventType = "error"
	EventChat         EventType = "chat"
)

// Fanout routes session events to connected clients. The session calls
// it from its writer goroutine; implementations must not block on the
// network (buffered per-connection send queues).
type Fanout interface {
	Broadcast(roomCode string, event EventType, data any)
	ToSeat(roomCode, seatID string, event EventType, data any)
	ToUser(userID string, event EventType, data any)
}

// NopFanout discards everything; used by tests that only inspect state.
type NopFanout struct{}

func (NopFanout) Broadcast(string, EventType, any)      {}
func (NopFanout) ToSeat(string, string, EventType, any) {}
func (NopFanout) ToUser(string, EventType, any)         {}

// Status is the session lifecycle state.
type Status int

const (
	StatusLobby Status = iota
	StatusPlaying
	StatusGameOver
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case StatusLobby:
		return "LOBBY"
	case StatusPlaying:
		return "PLAYING"
	case StatusGameOver:
		return "GAME_OVER"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "PLAYING":
		*s = StatusPlaying
	case "GAME_OVER":
		*s = StatusGameOver
	default:
		*s = StatusLobby
	}
	return nil
}

// SeatInfo is the public view of a seat: no cards, only the count.
type SeatInfo struct {
	SeatID    string   `json:"seatId"`
	Nickname  string   `json:"nickname"`
	Kind      SeatKind `json:"kind"`
	HandSize  int      `json:"handSize"`
	CalledOne bool     `json:"calledOne"`
	Connected bool     `json:"connected"`
	Score     int      `json:"score"`
}

// PublicState is the broadcast snapshot emitted after every mutation.
type PublicState struct {
	SessionID        string      `json:"sessionId"`
	RoomCode         string      `json:"roomCode"`
	Status           Status      `json:"status"`
	CurrentSeatID    string      `json:"currentSeatId,omitempty"`
	Direction        Direction   `json:"direction"`
	TopCard          *card.Card  `json:"topCard,omitempty"`
	CommittedColor   *card.Color `json:"committedColor,omitempty"`
	DeckSize         int         `json:"deckSize"`
	PendingDrawCount int         `json:"pendingDrawCount"`
	LeaderSeatID     string      `json:"leaderSeatId,omitempty"`
	Seats            []SeatInfo  `json:"seats"`
	TurnOrder        []string    `json:"turnOrder,omitempty"`
	GameStarted      bool        `json:"gameStarted,omitempty"`
}

// PrivateHand is the per-seat snapshot of the full hand, in order.
type PrivateHand struct {
	SeatID string      `json:"seatId"`
	Cards  []card.Card `json:"cards"`
}

// CardPlayed announces a play to the room.
type CardPlayed struct {
	SeatID      string      `json:"seatId"`
	Card        card.Card   `json:"card"`
	ChosenColor *card.Color `json:"chosenColor,omitempty"`
}

// CardDrawn announces how many cards a seat drew, never which.
type CardDrawn struct {
	SeatID string `json:"seatId"`
	Count  int    `json:"count"`
}

// TurnChanged announces the new current seat.
type TurnChanged struct {
	CurrentSeatID string    `json:"currentSeatId"`
	Direction     Direction `json:"direction"`
}

// OneCalled announces a successful ONE call.
type OneCalled struct {
	SeatID string `json:"seatId"`
}

// OneCaught announces a caught (or expired) missing ONE call.
type OneCaught struct {
	SeatID   string `json:"seatId"`
	ByCaller string `json:"byCaller,omitempty"`
	Penalty  int    `json:"penalty"`
}

// PlayerJoined announces a new seat.
type PlayerJoined struct {
	Seat SeatInfo `json:"seat"`
}

// PlayerLeft announces a departed seat.
type PlayerLeft struct {
	SeatID string `json:"seatId"`
	Reason string `json:"reason,omitempty"`
}

// PlayerKicked announces a removal by the leader.
type PlayerKicked struct {
	SeatID string `json:"seatId"`
}

// LeaderChanged announces a leadership transfer.
type LeaderChanged struct {
	OldSeatID string `json:"oldSeatId,omitempty"`
	NewSeatID string `json:"newSeatId"`
}

// GameEnded carries the final standings.
type GameEnded struct {
	WinnerSeatID string    `json:"winnerSeatId,omitempty"`
	Rankings     []Ranking `json:"rankings"`
}

// ErrorEvent is the per-user error payload.
type ErrorEvent struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

// ChatMessage relays room chat.
type ChatMessage struct {
	SeatID   string `json:"seatId"`
	Nickname string `json:"nickname"`
	Text     string `json:"text"`
}

// GameRecord is handed to LifecycleHooks exactly once per finished game.
type GameRecord struct {
	RoomCode         string
	SessionID        string
	StartedAt        time.Time
	EndedAt          time.Time
	DurationMinutes  int
	Participants     []string // external user ids, bots omitted
	WinnerUserID     string   // first human when the winner is a bot
	FinalScores      map[string]int
	TotalCardsPlayed int
}

// LifecycleHooks receives end-of-game facts for persistence. Invoked
// from a detached goroutine; implementations may block on I/O.
type LifecycleHooks interface {
	RecordGameEnd(rec GameRecord)
}

// NopHooks ignores everything.
type NopHooks struct{}

func (NopHooks) RecordGameEnd(GameRecord) {}

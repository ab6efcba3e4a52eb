package client

import (
	"encoding/json"
	"sync"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/server"
)

// GameState mirrors the server's view of the current room as seen from
// one seat. It is fed by the client's event goroutine and read by the
// UI or an automatic player.
type GameState struct {
	mu     sync.RWMutex
	client *Client
	public game.PublicState
	hand   []card.Card
	inRoom bool
}

// TrackState wires a state tracker onto a client's event stream. Must
// be called before Connect so no events are missed.
func TrackState(c *Client) *GameState {
	s := &GameState{client: c}

	c.AddEventHandler(server.MessageTypeRoomCreated, s.onRoomCreated)
	c.AddEventHandler(server.MessageTypeRoomJoined, s.onRoomJoined)
	c.AddEventHandler(server.MessageTypeRoomLeft, s.onRoomLeft)
	c.AddEventHandler(server.MessageType(game.EventPublicState), s.onPublicState)
	c.AddEventHandler(server.MessageType(game.EventGameStarted), s.onPublicState)
	c.AddEventHandler(server.MessageType(game.EventPrivateHand), s.onPrivateHand)
	c.AddEventHandler(server.MessageType(game.EventRoomClosed), s.onRoomClosed)

	return s
}

func (s *GameState) onRoomCreated(msg *server.Message) {
	var data server.RoomCreatedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	s.client.SetRoom(data.RoomCode, data.SeatID)
	s.mu.Lock()
	s.inRoom = true
	s.hand = nil
	s.mu.Unlock()
}

func (s *GameState) onRoomJoined(msg *server.Message) {
	var data server.RoomJoinedData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return
	}
	s.client.SetRoom(data.RoomCode, data.SeatID)
	s.mu.Lock()
	s.inRoom = true
	s.public = data.State
	s.hand = data.Hand
	s.mu.Unlock()
}

func (s *GameState) onRoomLeft(msg *server.Message) {
	s.client.SetRoom("", "")
	s.mu.Lock()
	s.inRoom = false
	s.public = game.PublicState{}
	s.hand = nil
	s.mu.Unlock()
}

func (s *GameState) onRoomClosed(msg *server.Message) {
	s.onRoomLeft(msg)
}

func (s *GameState) onPublicState(msg *server.Message) {
	var state game.PublicState
	if err := json.Unmarshal(msg.Data, &state); err != nil {
		return
	}
	s.mu.Lock()
	s.public = state
	s.mu.Unlock()
}

func (s *GameState) onPrivateHand(msg *server.Message) {
	var hand game.PrivateHand
	if err := json.Unmarshal(msg.Data, &hand); err != nil {
		return
	}
	if hand.SeatID != s.client.SeatID() {
		return
	}
	s.mu.Lock()
	s.hand = hand.Cards
	s.mu.Unlock()
}

// Public returns the latest broadcast state.
func (s *GameState) Public() game.PublicState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.public
}

// Hand returns a copy of the tracked private hand.
func (s *GameState) Hand() []card.Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]card.Card, len(s.hand))
	copy(out, s.hand)
	return out
}

// InRoom reports whether the client currently holds a seat.
func (s *GameState) InRoom() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inRoom
}

// IsMyTurn reports whether the tracked seat is the current one in a
// running game.
func (s *GameState) IsMyTurn() bool {
	seatID := s.client.SeatID()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return seatID != "" &&
		s.public.Status == game.StatusPlaying &&
		s.public.CurrentSeatID == seatID
}

// NextHandSize returns the hand size of the seat that plays after the
// current one, following direction. Zero when unknown.
func (s *GameState) NextHandSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := s.public.TurnOrder
	if len(order) < 2 {
		return 0
	}
	cur := -1
	for i, id := range order {
		if id == s.public.CurrentSeatID {
			cur = i
			break
		}
	}
	if cur < 0 {
		return 0
	}

	step := 1
	if s.public.Direction == game.CounterClockwise {
		step = -1
	}
	next := order[((cur+step)%len(order)+len(order))%len(order)]
	for _, seat := range s.public.Seats {
		if seat.SeatID == next {
			return seat.HandSize
		}
	}
	return 0
}

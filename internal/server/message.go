package server

import (
	"encoding/json"
	"time"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type HelloData struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

type CreateRoomData struct {
	IsPrivate       bool `json:"isPrivate,omitempty"`
	MaxPlayers      int  `json:"maxPlayers,omitempty"`
	InitialHandSize int  `json:"initialHandSize,omitempty"`
	NoStacking      bool `json:"noStacking,omitempty"`
}

type JoinRoomData struct {
	RoomCode string `json:"roomCode"`
}

type PlayCardData struct {
	CardID      string      `json:"cardId"`
	ChosenColor *card.Color `json:"chosenColor,omitempty"`
}

type CatchNoOneData struct {
	TargetSeatID string `json:"targetSeatId"`
}

type RemoveBotData struct {
	BotSeatID string `json:"botSeatId"`
}

type KickPlayerData struct {
	TargetSeatID string `json:"targetSeatId"`
}

type TransferLeaderData struct {
	TargetSeatID string `json:"targetSeatId"`
}

type ChatData struct {
	Text string `json:"text"`
}

// Server → Client Messages

type HelloResponseData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomCreatedData struct {
	RoomCode string `json:"roomCode"`
	SeatID   string `json:"seatId"`
}

type RoomJoinedData struct {
	RoomCode string           `json:"roomCode"`
	SeatID   string           `json:"seatId"`
	State    game.PublicState `json:"state"`
	// Hand is set when the join lands in a running game (a reconnect
	// reclaiming a substitute seat). Hand events fanned out during the
	// join itself target the seat id before this connection adopts it,
	// so the cards ride along with the join response instead.
	Hand []card.Card `json:"hand,omitempty"`
}

type RoomLeftData struct {
	RoomCode string `json:"roomCode"`
}

type RoomListData struct {
	Rooms []game.RoomInfo `json:"rooms"`
}

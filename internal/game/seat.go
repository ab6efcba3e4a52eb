package game

import (
	"time"

	"github.com/playone/oneserver/internal/card"
)

// SeatKind distinguishes humans from server-driven bots.
type SeatKind int

const (
	Human SeatKind = iota
	Bot
	SubstituteBot
)

// String returns the string representation of a seat kind
func (k SeatKind) String() string {
	switch k {
	case Human:
		return "HUMAN"
	case Bot:
		return "BOT"
	case SubstituteBot:
		return "SUBSTITUTE_BOT"
	default:
		return "?"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k SeatKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SeatKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "BOT":
		*k = Bot
	case "SUBSTITUTE_BOT":
		*k = SubstituteBot
	default:
		*k = Human
	}
	return nil
}

// IsBot reports whether the seat is driven by the autoplay loop.
func (k SeatKind) IsBot() bool {
	return k == Bot || k == SubstituteBot
}

// Seat is a stable position in a session's turn ring. A SUBSTITUTE_BOT
// keeps the external user id of the human it replaced so a reconnect
// can be matched back to the seat.
type Seat struct {
	ID             string
	UserID         string // external user id; empty for bots
	ReplacedUserID string // set on SUBSTITUTE_BOT only
	Nickname       string
	Kind           SeatKind
	Connected      bool
	Hand           []card.Card // insertion order preserved
	Score          int
	CalledOne      bool
	JoinedAt       time.Time
}

// HandSize returns the number of cards held.
func (s *Seat) HandSize() int {
	return len(s.Hand)
}

// HandPoints sums the point values of the held cards.
func (s *Seat) HandPoints() int {
	total := 0
	for _, c := range s.Hand {
		total += c.Points()
	}
	return total
}

// FindCard locates a card by id without removing it.
func (s *Seat) FindCard(cardID string) (card.Card, bool) {
	for _, c := range s.Hand {
		if c.ID == cardID {
			return c, true
		}
	}
	return card.Card{}, false
}

// RemoveCard takes a card out of the hand by id, preserving the order
// of the remaining cards.
func (s *Seat) RemoveCard(cardID string) (card.Card, bool) {
	for i, c := range s.Hand {
		if c.ID == cardID {
			s.Hand = append(s.Hand[:i], s.Hand[i+1:]...)
			return c, true
		}
	}
	return card.Card{}, false
}

// AddCards appends drawn cards to the end of the hand.
func (s *Seat) AddCards(cards ...card.Card) {
	s.Hand = append(s.Hand, cards...)
}

// HasStacker reports whether the hand holds a card that can extend a
// pending draw chain.
func (s *Seat) HasStacker() bool {
	for _, c := range s.Hand {
		if c.Kind.IsDrawPenalty() {
			return true
		}
	}
	return false
}

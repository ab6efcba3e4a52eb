package game

import "fmt"

// Code is a stable machine-readable error code surfaced to clients.
type Code string

const (
	// Not-authorized
	CodeNotLeader   Code = "NOT_LEADER"
	CodeNotYourTurn Code = "NOT_YOUR_TURN"
	CodeSelfKick    Code = "SELF_KICK"
	CodeTargetIsBot Code = "TARGET_IS_BOT"

	// State
	CodeWrongState    Code = "WRONG_STATE"
	CodeTooFewPlayers Code = "TOO_FEW_PLAYERS"
	CodeRoomFull      Code = "ROOM_FULL"
	CodeBotLimit      Code = "BOT_LIMIT"
	CodePlayerKicked  Code = "PLAYER_KICKED"
	CodeAlreadyInRoom Code = "ALREADY_IN_ROOM"

	// Validation
	CodeCardNotInHand      Code = "CARD_NOT_IN_HAND"
	CodeIllegalPlay        Code = "ILLEGAL_PLAY"
	CodeMissingColor       Code = "MISSING_COLOR"
	CodeMustStack          Code = "MUST_STACK"
	CodeMustStackOrForfeit Code = "MUST_STACK_OR_FORFEIT"
	CodeNotEligible        Code = "NOT_ELIGIBLE"
	CodeNotFound           Code = "NOT_FOUND"

	// Transient
	CodeDeckExhausted Code = "DECK_EXHAUSTED"
	CodeInternal      Code = "INTERNAL"
)

// Error is a typed validation or state error. Validation errors reach
// only the requesting seat; they never mutate state and never broadcast.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a typed error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError extracts a typed *Error from err, wrapping anything else as
// INTERNAL so clients never see raw internals.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if te, ok := err.(*Error); ok {
		return te
	}
	return &Error{Code: CodeInternal, Message: "internal server error"}
}

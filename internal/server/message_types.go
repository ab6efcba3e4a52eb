package server

// Note: game events (public_state, card_played, etc.) are defined in
// internal/game/events.go and are forwarded as WebSocket messages with
// the event name as the message type.

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeHello          MessageType = "hello"
	MessageTypeCreateRoom     MessageType = "create_room"
	MessageTypeJoinRoom       MessageType = "join_room"
	MessageTypeLeaveRoom      MessageType = "leave_room"
	MessageTypeListRooms      MessageType = "list_rooms"
	MessageTypeStartGame      MessageType = "start_game"
	MessageTypePlayCard       MessageType = "play_card"
	MessageTypeDrawCard       MessageType = "draw_card"
	MessageTypeCallOne        MessageType = "call_one"
	MessageTypeCatchNoOne     MessageType = "catch_no_one"
	MessageTypeAddBot         MessageType = "add_bot"
	MessageTypeRemoveBot      MessageType = "remove_bot"
	MessageTypeKickPlayer     MessageType = "kick_player"
	MessageTypeTransferLeader MessageType = "transfer_leader"
	MessageTypeResetGame      MessageType = "reset_game"
	MessageTypeChat           MessageType = "chat"

	// Server to client messages
	MessageTypeHelloResponse MessageType = "hello_response"
	MessageTypeRoomCreated   MessageType = "room_created"
	MessageTypeRoomJoined    MessageType = "room_joined"
	MessageTypeRoomLeft      MessageType = "room_left"
	MessageTypeRoomList      MessageType = "room_list"
	MessageTypeError         MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/playone/oneserver/internal/game"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	userID    string
	seatID    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	registry  *Registry
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, registry *Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
		registry: registry,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetUser associates this connection with an authenticated user
func (c *Connection) SetUser(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// GetUser returns the associated user ID
func (c *Connection) GetUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetSeat associates this connection with a seat in its current room
func (c *Connection) SetSeat(seatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seatID = seatID
}

// GetSeat returns the associated seat ID
func (c *Connection) GetSeat() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seatID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "user", c.GetUser())

	switch msg.Type {
	case MessageTypeHello:
		var data HelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse hello data")
			return
		}
		c.handleHello(data)

	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create room data")
			return
		}
		c.handleCreateRoom(data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		c.handleLeaveRoom()

	case MessageTypeListRooms:
		c.handleListRooms()

	case MessageTypeStartGame:
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.Start(seatID)
		})

	case MessageTypePlayCard:
		var data PlayCardData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse play card data")
			return
		}
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.PlayCard(seatID, data.CardID, data.ChosenColor)
		})

	case MessageTypeDrawCard:
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.DrawCard(seatID)
		})

	case MessageTypeCallOne:
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.CallOne(seatID)
		})

	case MessageTypeCatchNoOne:
		var data CatchNoOneData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse catch data")
			return
		}
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.CatchNoOne(seatID, data.TargetSeatID)
		})

	case MessageTypeAddBot:
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.AddBot(seatID)
		})

	case MessageTypeRemoveBot:
		var data RemoveBotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse remove bot data")
			return
		}
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.RemoveBot(seatID, data.BotSeatID)
		})

	case MessageTypeKickPlayer:
		var data KickPlayerData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse kick data")
			return
		}
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.Kick(seatID, data.TargetSeatID)
		})

	case MessageTypeTransferLeader:
		var data TransferLeaderData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse transfer data")
			return
		}
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.TransferLeader(seatID, data.TargetSeatID)
		})

	case MessageTypeResetGame:
		c.inRoom(func(sess *game.Session, seatID string) error {
			return sess.Reset(seatID)
		})

	case MessageTypeChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse chat data")
			return
		}
		c.inRoom(func(sess *game.Session, _ string) error {
			return sess.Chat(c.GetUser(), data.Text)
		})

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

// sendGameError maps a typed game error onto the wire.
func (c *Connection) sendGameError(err error) {
	ge := game.AsError(err)
	c.sendError(string(ge.Code), ge.Message)
}

// authed resolves the connection's user, rejecting unauthenticated
// requests.
func (c *Connection) authed() (string, bool) {
	userID := c.GetUser()
	if userID == "" {
		c.sendError("not_authenticated", "Send hello first")
		return "", false
	}
	return userID, true
}

// inRoom runs a session operation on behalf of this connection's seat.
func (c *Connection) inRoom(fn func(sess *game.Session, seatID string) error) {
	userID, ok := c.authed()
	if !ok {
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Room registry not available")
		return
	}

	sess, ok := c.registry.RoomOf(userID)
	if !ok {
		c.sendError(string(game.CodeNotFound), "Not in a room")
		return
	}

	if err := fn(sess, sess.SeatIDOf(userID)); err != nil {
		c.sendGameError(err)
	}
}

func (c *Connection) handleHello(data HelloData) {
	name := strings.TrimSpace(data.Name)
	c.logger.Info("Hello", "name", name)

	// Simple authentication - any non-empty display name is accepted
	// and doubles as the external user id.
	if name == "" {
		c.sendError("invalid_hello", "Display name required")
		return
	}

	c.SetUser(name)

	response, _ := NewMessage(MessageTypeHelloResponse, HelloResponseData{
		Success: true,
		UserID:  name,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleCreateRoom(data CreateRoomData) {
	userID, ok := c.authed()
	if !ok {
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Room registry not available")
		return
	}
	c.logger.Info("Create room request", "user", userID)

	sess, seatID, err := c.registry.CreateRoom(userID, userID, data)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.SetSeat(seatID)

	response, _ := NewMessage(MessageTypeRoomCreated, RoomCreatedData{
		RoomCode: sess.RoomCode(),
		SeatID:   seatID,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	userID, ok := c.authed()
	if !ok {
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Room registry not available")
		return
	}
	c.logger.Info("Join room request", "room", data.RoomCode, "user", userID)

	sess, seatID, err := c.registry.JoinRoom(data.RoomCode, userID, userID)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.SetSeat(seatID)

	hand, handErr := sess.HandOf(userID)
	if handErr != nil {
		hand = nil
	}
	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomCode: sess.RoomCode(),
		SeatID:   seatID,
		State:    sess.Snapshot(),
		Hand:     hand,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLeaveRoom() {
	userID, ok := c.authed()
	if !ok {
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Room registry not available")
		return
	}
	c.logger.Info("Leave room request", "user", userID)

	code, err := c.registry.LeaveRoom(userID)
	if err != nil {
		c.sendGameError(err)
		return
	}
	c.SetSeat("")

	response, _ := NewMessage(MessageTypeRoomLeft, RoomLeftData{RoomCode: code})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleListRooms() {
	if _, ok := c.authed(); !ok {
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Room registry not available")
		return
	}

	response, _ := NewMessage(MessageTypeRoomList, RoomListData{
		Rooms: c.registry.ListRooms(),
	})
	_ = c.SendMessage(response) // Ignore send errors
}

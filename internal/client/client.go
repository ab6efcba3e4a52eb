// Package client implements the WebSocket client side of the game
// protocol: a connection wrapper with typed request helpers, a tracked
// view of room state, and an automatic player used for demos and tests.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/playone/oneserver/internal/card"
	"github.com/playone/oneserver/internal/server"
)

// Client represents a WebSocket client connection to a game server.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	userID    string
	roomCode  string
	seatID    string
	closeOnce sync.Once

	eventHandlers map[server.MessageType][]EventHandler
}

// EventHandler is a function that handles incoming messages. Handlers
// run on the client's event goroutine in arrival order, so state
// trackers observe updates in the order the server sent them.
type EventHandler func(*server.Message)

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL:     serverURL,
		send:          make(chan *server.Message, 256),
		receive:       make(chan *server.Message, 256),
		logger:        logger.WithPrefix("client"),
		ctx:           ctx,
		cancel:        cancel,
		eventHandlers: make(map[server.MessageType][]EventHandler),
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	go c.eventProcessor()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.conn != nil {
			_ = c.conn.Close() // Ignore close errors during shutdown
			c.connected = false
		}

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// Done is closed once the connection has shut down.
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// SendMessage sends a message to the server
func (c *Client) SendMessage(msg *server.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return fmt.Errorf("send buffer full")
	}
}

// sendTyped marshals and queues a request.
func (c *Client) sendTyped(msgType server.MessageType, data any) error {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return err
	}
	return c.SendMessage(msg)
}

// readPump handles incoming messages from the server
func (c *Client) readPump() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
		_ = c.Disconnect()
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		c.logger.Debug("Received message", "type", msg.Type)

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// writePump handles outgoing messages to the server
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second) // Ping interval
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// eventProcessor processes incoming messages and dispatches to handlers
func (c *Client) eventProcessor() {
	for {
		select {
		case msg := <-c.receive:
			c.handleMessage(msg)
		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches messages to registered handlers
func (c *Client) handleMessage(msg *server.Message) {
	c.mu.RLock()
	handlers := c.eventHandlers[msg.Type]
	c.mu.RUnlock()

	if len(handlers) == 0 {
		c.logger.Debug("No handler for message type", "type", msg.Type)
		return
	}
	for _, handler := range handlers {
		handler(msg)
	}
}

// AddEventHandler adds an event handler for a specific message type
func (c *Client) AddEventHandler(messageType server.MessageType, handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.eventHandlers[messageType] = append(c.eventHandlers[messageType], handler)
}

// WaitForMessage waits for a specific message type with timeout
func (c *Client) WaitForMessage(messageType server.MessageType, timeout time.Duration) (*server.Message, error) {
	responseChan := make(chan *server.Message, 1)

	handler := func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	}

	c.AddEventHandler(messageType, handler)

	select {
	case msg := <-responseChan:
		return msg, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout waiting for %s", messageType)
	case <-c.ctx.Done():
		return nil, c.ctx.Err()
	}
}

// Handshake sends the hello and waits for the server's response. The
// handler is registered before the hello goes out, so a response that
// arrives immediately cannot slip past the wait.
func (c *Client) Handshake(name string, timeout time.Duration) error {
	responseChan := make(chan *server.Message, 1)
	c.AddEventHandler(server.MessageTypeHelloResponse, func(msg *server.Message) {
		select {
		case responseChan <- msg:
		default:
		}
	})

	if err := c.Hello(name); err != nil {
		return err
	}

	select {
	case <-responseChan:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for %s", server.MessageTypeHelloResponse)
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// ---- typed requests ----

// Hello introduces the player and establishes the user identity.
func (c *Client) Hello(name string) error {
	c.mu.Lock()
	c.userID = name
	c.mu.Unlock()
	return c.sendTyped(server.MessageTypeHello, server.HelloData{Name: name})
}

// CreateRoom asks the server for a fresh room with the given options.
func (c *Client) CreateRoom(opts server.CreateRoomData) error {
	return c.sendTyped(server.MessageTypeCreateRoom, opts)
}

// JoinRoom joins an existing room by code.
func (c *Client) JoinRoom(roomCode string) error {
	return c.sendTyped(server.MessageTypeJoinRoom, server.JoinRoomData{RoomCode: roomCode})
}

// LeaveRoom leaves the current room.
func (c *Client) LeaveRoom() error {
	return c.sendTyped(server.MessageTypeLeaveRoom, nil)
}

// ListRooms requests the public room listing.
func (c *Client) ListRooms() error {
	return c.sendTyped(server.MessageTypeListRooms, nil)
}

// StartGame starts the game; only the room leader may do this.
func (c *Client) StartGame() error {
	return c.sendTyped(server.MessageTypeStartGame, nil)
}

// PlayCard plays a card from the hand, with a chosen color for wilds.
func (c *Client) PlayCard(cardID string, chosenColor *card.Color) error {
	return c.sendTyped(server.MessageTypePlayCard, server.PlayCardData{
		CardID:      cardID,
		ChosenColor: chosenColor,
	})
}

// DrawCard draws from the deck, ending the turn.
func (c *Client) DrawCard() error {
	return c.sendTyped(server.MessageTypeDrawCard, nil)
}

// CallOne declares ONE while holding a single card.
func (c *Client) CallOne() error {
	return c.sendTyped(server.MessageTypeCallOne, nil)
}

// CatchNoOne accuses a seat of failing to call ONE.
func (c *Client) CatchNoOne(targetSeatID string) error {
	return c.sendTyped(server.MessageTypeCatchNoOne, server.CatchNoOneData{TargetSeatID: targetSeatID})
}

// AddBot asks for another bot seat; leader only.
func (c *Client) AddBot() error {
	return c.sendTyped(server.MessageTypeAddBot, nil)
}

// RemoveBot removes a bot seat from the lobby.
func (c *Client) RemoveBot(botSeatID string) error {
	return c.sendTyped(server.MessageTypeRemoveBot, server.RemoveBotData{BotSeatID: botSeatID})
}

// KickPlayer removes a player from the room.
func (c *Client) KickPlayer(targetSeatID string) error {
	return c.sendTyped(server.MessageTypeKickPlayer, server.KickPlayerData{TargetSeatID: targetSeatID})
}

// TransferLeader hands room leadership to another human seat.
func (c *Client) TransferLeader(targetSeatID string) error {
	return c.sendTyped(server.MessageTypeTransferLeader, server.TransferLeaderData{TargetSeatID: targetSeatID})
}

// ResetGame returns a finished game to the lobby.
func (c *Client) ResetGame() error {
	return c.sendTyped(server.MessageTypeResetGame, nil)
}

// Chat sends a chat line to the room.
func (c *Client) Chat(text string) error {
	return c.sendTyped(server.MessageTypeChat, server.ChatData{Text: text})
}

// SetRoom records the room and seat assigned by the server.
func (c *Client) SetRoom(roomCode, seatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = roomCode
	c.seatID = seatID
}

// RoomCode returns the current room code, empty when not in a room.
func (c *Client) RoomCode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

// SeatID returns the seat assigned in the current room.
func (c *Client) SeatID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seatID
}

// UserID returns the name the client introduced itself with.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}
